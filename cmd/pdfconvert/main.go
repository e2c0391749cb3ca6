package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bmharper/pdfconvert"
	"github.com/bmharper/pdfconvert/internal/config"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/sirupsen/logrus"
)

const (
	exitOK        = 0
	exitFailed    = 1
	exitCancelled = 2
)

const usage = `Usage: pdfconvert [-config file.yml] [-v] [-events] <command> [flags]

Commands:
  overlay   place an image beneath every page of a PDF
  jpg       export every page of a PDF to JPEG, plus a zip of the images
  docx      convert a PDF to DOCX (-mode images or -mode text for OCR)
  md2docx   convert a markdown file to DOCX
  tools     report the external tools that were found

Run 'pdfconvert <command> -h' for the flags of a command.
`

func main() {
	// pdfcpu would otherwise create its config directory in the user's home
	pdfapi.DisableConfigDir()
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv))
}

type app struct {
	cfg    *config.Config
	log    *logrus.Logger
	prompt *prompter
	stdout io.Writer
	stderr io.Writer
	events *eventWriter // nil unless -events was given
	runner pdfconvert.Runner
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) int {
	global := flag.NewFlagSet("pdfconvert", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", "", "YAML configuration file (default $"+config.EnvConfig+")")
	verbose := global.Bool("v", false, "Show debug output")
	events := global.Bool("events", false, "Write progress and results to stdout as JSON lines")
	if err := global.Parse(args); err != nil {
		return exitFailed
	}
	if global.NArg() == 0 {
		global.Usage()
		return exitFailed
	}

	log := logrus.New()
	log.SetOutput(stderr)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(*configPath, getenv)
	if err != nil {
		log.Errorf("%v", err)
		return exitFailed
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		prompt: &prompter{in: bufio.NewReader(stdin), out: stderr},
		stdout: stdout,
		stderr: stderr,
	}
	if *events {
		a.events = newEventWriter(stdout, log)
	}

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "overlay":
		return a.overlay(rest)
	case "jpg":
		return a.exportJPEG(rest)
	case "docx":
		return a.docx(rest)
	case "md2docx":
		return a.markdown(rest)
	case "tools":
		return a.tools(rest)
	}
	fmt.Fprintf(stderr, "Unknown command %q\n\n", cmd)
	global.Usage()
	return exitFailed
}

func (a *app) options() pdfconvert.Options {
	opt := pdfconvert.Options{Log: a.log}
	if a.events != nil {
		opt.Progress = a.events
	} else {
		opt.Progress = pdfconvert.ProgressFunc(func(current, total int, message string) {
			a.log.WithFields(logrus.Fields{"page": current, "pages": total}).Info(message)
		})
	}
	return opt
}

// execute runs fn on the background worker. An interrupt asks the job to stop
// after the page it is working on.
func (a *app) execute(name string, fn func(ctx context.Context) pdfconvert.Result) int {
	job, err := a.runner.Start(context.Background(), name, fn)
	if err != nil {
		return a.report(pdfconvert.FailedResult(0, err))
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	for {
		select {
		case <-sig:
			a.log.Info("Stopping after the current page")
			job.Cancel()
		case <-job.Done():
			return a.report(job.Wait())
		}
	}
}

func (a *app) report(res pdfconvert.Result) int {
	if a.events != nil {
		a.events.Result(res)
		// A front end that never saw the result must not treat the run as a success
		if err := a.events.Err(); err != nil && res.Status == pdfconvert.Success {
			return exitFailed
		}
	}
	switch res.Status {
	case pdfconvert.Success:
		a.log.WithField("pages", res.Pages).Infof("Done: %v", strings.Join(res.Outputs, ", "))
		return exitOK
	case pdfconvert.Cancelled:
		a.log.Infof("Cancelled: %v", res.Err)
		return exitCancelled
	}
	a.log.Errorf("Failed: %v", res.Err)
	return exitFailed
}
