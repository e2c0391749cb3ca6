package pdfconvert

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
)

func TestRunnerRejectsSecondJob(t *testing.T) {
	var r Runner
	release := make(chan struct{})
	first, err := r.Start(context.Background(), "first", func(ctx context.Context) Result {
		<-release
		return succeeded(1, "a.pdf")
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !r.Busy() {
		t.Fatalf("runner should be busy")
	}
	if _, err := r.Start(context.Background(), "second", func(ctx context.Context) Result { return succeeded(0) }); !eris.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(release)
	res := first.Wait()
	if res.Status != Success || res.Outputs[0] != "a.pdf" {
		t.Fatalf("unexpected result %+v", res)
	}
	if r.Busy() {
		t.Fatalf("runner should be idle after Wait")
	}
	second, err := r.Start(context.Background(), "second", func(ctx context.Context) Result { return succeeded(0) })
	if err != nil {
		t.Fatalf("Start() after completion error = %v", err)
	}
	second.Wait()
}

func TestJobCancel(t *testing.T) {
	var r Runner
	started := make(chan struct{})
	job, err := r.Start(context.Background(), "slow", func(ctx context.Context) Result {
		close(started)
		<-ctx.Done()
		return ResultFor(3, ctx.Err())
	})
	if err != nil {
		t.Fatal(err)
	}
	<-started
	job.Cancel()
	res := job.Wait()
	if res.Status != Cancelled || res.Pages != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestResultFor(t *testing.T) {
	if got := ResultFor(0, eris.Wrap(context.Canceled, "page 2")).Status; got != Cancelled {
		t.Fatalf("wrapped cancellation = %v", got)
	}
	if got := ResultFor(0, eris.New("boom")).Status; got != Failed {
		t.Fatalf("plain error = %v", got)
	}
	if Failed.String() != "failed" || Cancelled.String() != "cancelled" || Success.String() != "success" {
		t.Fatalf("status strings")
	}
}
