package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bmharper/pdfconvert"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

func noEnv(string) string { return "" }

func TestPromptPath(t *testing.T) {
	var out bytes.Buffer
	p := &prompter{in: bufio.NewReader(strings.NewReader("  scan.PDF \n\n")), out: &out}

	got, err := p.path("", "Enter the path to the PDF file: ", pdfExts)
	if err != nil || got != "scan.PDF" {
		t.Fatalf("path() = %q, %v", got, err)
	}
	if out.String() != "Enter the path to the PDF file: " {
		t.Errorf("prompt = %q", out.String())
	}
	if _, err := p.path("", "again: ", pdfExts); !eris.Is(err, pdfconvert.ErrCancelled) {
		t.Errorf("empty answer: %v", err)
	}
	// End of input is an empty answer too
	if _, err := p.path("", "again: ", pdfExts); !eris.Is(err, pdfconvert.ErrCancelled) {
		t.Errorf("no answer: %v", err)
	}
	if got, err := p.path("bg.JPEG", "", imageExts); err != nil || got != "bg.JPEG" {
		t.Errorf("given value: %q, %v", got, err)
	}
	if _, err := p.path("notes.txt", "", pdfExts); err == nil {
		t.Errorf("expected an extension error")
	}
}

func TestEventWriter(t *testing.T) {
	var buf bytes.Buffer
	e := newEventWriter(&buf, logrus.New())
	e.Progress(1, 4, "Processing page 1/4")
	e.Result(pdfconvert.CancelledResult(1, pdfconvert.ErrCancelled))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d events: %v", len(lines), lines)
	}
	var ev outputEvent
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "progress" || ev.Progress.Percent != 25 || ev.Progress.Message != "Processing page 1/4" {
		t.Errorf("progress event %+v", ev.Progress)
	}
	ev = outputEvent{}
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "result" || ev.Result.Status != "cancelled" || ev.Result.Pages != 1 {
		t.Errorf("result event %+v", ev.Result)
	}
	ev = outputEvent{}
	if err := json.Unmarshal([]byte(lines[2]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "error" || ev.Error != pdfconvert.ErrCancelled.Error() {
		t.Errorf("error event %+v", ev)
	}
}

type brokenPipe struct{ writes int }

func (b *brokenPipe) Write(p []byte) (int, error) {
	b.writes++
	return 0, eris.New("broken pipe")
}

func TestEventWriterBrokenPipe(t *testing.T) {
	var logs bytes.Buffer
	log := logrus.New()
	log.SetOutput(&logs)
	out := &brokenPipe{}
	e := newEventWriter(out, log)
	e.Progress(1, 2, "Processing page 1/2")
	e.Progress(2, 2, "Processing page 2/2")
	e.Result(pdfconvert.Result{Status: pdfconvert.Success, Pages: 2})

	if e.Err() == nil || !strings.Contains(e.Err().Error(), "broken pipe") {
		t.Errorf("Err() = %v", e.Err())
	}
	if out.writes != 1 {
		t.Errorf("kept writing after a failure: %d writes", out.writes)
	}
	if n := strings.Count(logs.String(), "broken pipe"); n != 1 {
		t.Errorf("failure logged %d times: %s", n, logs.String())
	}

	a := &app{log: log, events: e}
	if code := a.report(pdfconvert.Result{Status: pdfconvert.Success, Pages: 2}); code != exitFailed {
		t.Errorf("report exit %d with a broken event stream", code)
	}
}

func TestRunMarkdown(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "readme.md")
	if err := os.WriteFile(md, []byte("# Title\n\nSome text.\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	code := run([]string{"-events", "md2docx", "-md", md, "-title", "Readme"}, strings.NewReader(""), &stdout, &stderr, noEnv)
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "readme.docx")); err != nil {
		t.Errorf("output missing: %v", err)
	}
	if !strings.Contains(stdout.String(), `"status":"success"`) {
		t.Errorf("no result event in %s", stdout.String())
	}
}

func TestRunExitCodes(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cases := []struct {
		name  string
		args  []string
		stdin string
		want  int
	}{
		{"no command", nil, "", exitFailed},
		{"unknown command", []string{"frobnicate"}, "", exitFailed},
		{"empty prompt", []string{"jpg"}, "\n", exitCancelled},
		{"wrong extension", []string{"jpg", "-pdf", "scan.png"}, "", exitFailed},
		{"missing file", []string{"jpg", "-pdf", filepath.Join(t.TempDir(), "none.pdf")}, "", exitFailed},
		{"bad mode", []string{"docx", "-pdf", "a.pdf", "-mode", "html"}, "", exitFailed},
		{"bad config", []string{"-config", filepath.Join(t.TempDir(), "none.yml"), "tools"}, "", exitFailed},
	}
	for _, c := range cases {
		code := run(c.args, strings.NewReader(c.stdin), &stdout, &stderr, noEnv)
		if code != c.want {
			t.Errorf("%s: exit %d, want %d", c.name, code, c.want)
		}
	}
}
