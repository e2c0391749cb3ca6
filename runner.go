package pdfconvert

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
)

var ErrBusy = eris.New("a conversion is already running")

// Runner runs at most one conversion at a time on a background goroutine.
// The MuPDF context and the output files are owned by that single worker.
type Runner struct {
	mu     sync.Mutex
	active *Job
}

// Job is a conversion started by a Runner.
type Job struct {
	Name   string
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// Start runs fn in a new goroutine. It fails with ErrBusy while a previous
// job has not finished. fn must check ctx between pages.
func (r *Runner) Start(ctx context.Context, name string, fn func(ctx context.Context) Result) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return nil, eris.Wrapf(ErrBusy, "cannot start %s while %s is running", name, r.active.Name)
	}
	jobCtx, cancel := context.WithCancel(ctx)
	job := &Job{Name: name, cancel: cancel, done: make(chan struct{})}
	r.active = job
	go func() {
		defer cancel()
		res := fn(jobCtx)
		r.mu.Lock()
		job.result = res
		r.active = nil
		r.mu.Unlock()
		close(job.done)
	}()
	return job, nil
}

// Busy reports whether a job is running.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Cancel asks the job to stop at the next page boundary.
func (j *Job) Cancel() { j.cancel() }

func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes and returns its result.
func (j *Job) Wait() Result {
	<-j.done
	return j.result
}
