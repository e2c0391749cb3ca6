package pdfconvert

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
)

// ErrCancelled is the reason reported when the user declines to continue,
// for example by leaving a prompt empty.
var ErrCancelled = eris.New("cancelled by user")

// Status is the outcome of a conversion.
type Status int

const (
	Success Status = iota
	Cancelled
	Failed
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Result is returned by every conversion instead of a bare error, so that
// callers can tell a user cancellation from a failure.
type Result struct {
	Status  Status
	Pages   int      // Pages fully processed
	Outputs []string // Files written, only set on Success
	Err     error    // Reason for Cancelled or Failed
}

func (r Result) OK() bool { return r.Status == Success }

func succeeded(pages int, outputs ...string) Result {
	return Result{Status: Success, Pages: pages, Outputs: outputs}
}

// CancelledResult reports a run that stopped before writing anything.
func CancelledResult(pages int, reason error) Result {
	return Result{Status: Cancelled, Pages: pages, Err: reason}
}

// FailedResult reports a run that stopped on err.
func FailedResult(pages int, err error) Result {
	return Result{Status: Failed, Pages: pages, Err: err}
}

// ResultFor maps an error that ended a run early to a Result. Context cancellation
// is a user stop, not a failure.
func ResultFor(pages int, err error) Result {
	if errors.Is(err, context.Canceled) || eris.Is(err, context.Canceled) || eris.Is(err, ErrCancelled) {
		return CancelledResult(pages, err)
	}
	return FailedResult(pages, err)
}
