// Package tools resolves the external command line programs used by the
// converters (tesseract, pdftoppm) and runs them.
package tools

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

var ErrToolNotFound = eris.New("external tool not found")

// Executor runs a command. Tests substitute a fake.
type Executor interface {
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecExecutor runs commands with os/exec.
type ExecExecutor struct{}

func (ExecExecutor) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Tool is an external program with a configurable location.
type Tool struct {
	Name        string   // Program name, used for discovery when Path is empty
	Path        string   // Configured path (may be a bare name)
	VersionArgs []string // Arguments that make the program print its version
	Exec        Executor // nil means ExecExecutor
}

// New returns a tool that is discovered on PATH unless path is set.
func New(name, path string, versionArgs ...string) *Tool {
	return &Tool{Name: name, Path: path, VersionArgs: versionArgs}
}

func (t *Tool) executor() Executor {
	if t.Exec == nil {
		return ExecExecutor{}
	}
	return t.Exec
}

// Resolve turns the configured path (or the program name) into an executable
// path. Only the real executor consults PATH.
func (t *Tool) Resolve() (string, error) {
	candidate := t.Path
	if candidate == "" {
		candidate = t.Name
	}
	if _, isExec := t.executor().(ExecExecutor); !isExec {
		return candidate, nil
	}
	found, err := exec.LookPath(candidate)
	if err != nil {
		return "", eris.Wrapf(ErrToolNotFound, "%s (%s): %v", t.Name, candidate, err)
	}
	return found, nil
}

// Run resolves the tool and executes it with args.
func (t *Tool) Run(ctx context.Context, stdin io.Reader, args ...string) ([]byte, error) {
	path, err := t.Resolve()
	if err != nil {
		return nil, err
	}
	stdout, stderr, err := t.executor().Run(ctx, stdin, path, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "%s failed: %s", t.Name, strings.TrimSpace(string(stderr)))
	}
	return stdout, nil
}

// Version returns the first non-empty line the tool prints for its version
// arguments. pdftoppm prints it on stderr, tesseract on stdout.
func (t *Tool) Version(ctx context.Context) (string, error) {
	path, err := t.Resolve()
	if err != nil {
		return "", err
	}
	stdout, stderr, runErr := t.executor().Run(ctx, nil, path, t.VersionArgs...)
	for _, out := range [][]byte{stdout, stderr} {
		if line := firstLine(out); line != "" {
			return line, nil
		}
	}
	if runErr != nil {
		return "", eris.Wrapf(runErr, "%s version", t.Name)
	}
	return "", eris.Errorf("%s printed no version", t.Name)
}

func firstLine(b []byte) string {
	for _, line := range strings.Split(string(b), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
