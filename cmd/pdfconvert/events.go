package main

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"github.com/bmharper/pdfconvert"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

type outputEvent struct {
	Type     string           `json:"type"`
	Progress *progressPayload `json:"progress,omitempty"`
	Result   *resultPayload   `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type progressPayload struct {
	Current int     `json:"current"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

type resultPayload struct {
	Status  string   `json:"status"`
	Pages   int      `json:"pages"`
	Outputs []string `json:"outputs,omitempty"`
}

// eventWriter writes one JSON object per line, for front ends that drive
// pdfconvert as a child process. Once a write fails, later events are
// dropped and Err reports the failure.
type eventWriter struct {
	enc *json.Encoder
	w   *bufio.Writer
	log logrus.FieldLogger
	mu  sync.Mutex
	err error
}

func newEventWriter(writer io.Writer, log logrus.FieldLogger) *eventWriter {
	buf := bufio.NewWriter(writer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &eventWriter{enc: enc, w: buf, log: log}
}

func (e *eventWriter) write(ev outputEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return
	}
	err := e.enc.Encode(ev)
	if err == nil {
		err = e.w.Flush()
	}
	if err != nil {
		e.err = eris.Wrap(err, "write event")
		e.log.Errorf("%v", e.err)
	}
}

// Err is the first write failure, if any.
func (e *eventWriter) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *eventWriter) Progress(current, total int, message string) {
	percent := 0.0
	if total > 0 {
		percent = min(float64(current)/float64(total)*100.0, 100.0)
	}
	e.write(outputEvent{
		Type:     "progress",
		Progress: &progressPayload{Current: current, Total: total, Percent: percent, Message: message},
	})
}

// Result writes a result event, followed by an error event when the run did
// not succeed.
func (e *eventWriter) Result(res pdfconvert.Result) {
	e.write(outputEvent{
		Type:   "result",
		Result: &resultPayload{Status: res.Status.String(), Pages: res.Pages, Outputs: res.Outputs},
	})
	if res.Err != nil {
		e.Error(res.Err)
	}
}

func (e *eventWriter) Error(err error) {
	e.write(outputEvent{
		Type:  "error",
		Error: err.Error(),
	})
}
