package pdfconvert

import (
	"github.com/sirupsen/logrus"
)

// Progress receives page level progress. current counts from 1.
type Progress interface {
	Progress(current, total int, message string)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(current, total int, message string)

func (f ProgressFunc) Progress(current, total int, message string) { f(current, total, message) }

type nopProgress struct{}

func (nopProgress) Progress(int, int, string) {}

// Options are shared by all conversions.
type Options struct {
	Log      logrus.FieldLogger // nil means logrus.StandardLogger()
	Progress Progress           // nil means no reporting
}

func (o Options) log() logrus.FieldLogger {
	if o.Log == nil {
		return logrus.StandardLogger()
	}
	return o.Log
}

func (o Options) progress() Progress {
	if o.Progress == nil {
		return nopProgress{}
	}
	return o.Progress
}
