package main

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmharper/pdfconvert"
	"github.com/rotisserie/eris"
)

var (
	pdfExts      = []string{".pdf"}
	imageExts    = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp", ".gif"}
	docxExts     = []string{".docx"}
	markdownExts = []string{".md", ".markdown"}
)

// prompter asks for paths that were not given on the command line.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// path returns value, or asks question when value is empty. An empty answer
// means the user gave up, and is reported as pdfconvert.ErrCancelled. The
// path must carry one of exts.
func (p *prompter) path(value, question string, exts []string) (string, error) {
	if value == "" {
		fmt.Fprint(p.out, question)
		line, err := p.in.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", eris.Wrap(err, "read answer")
		}
		value = strings.TrimSpace(line)
		if value == "" {
			return "", eris.Wrap(pdfconvert.ErrCancelled, "no file selected")
		}
	}
	if !hasExt(value, exts) {
		return "", eris.Errorf("%s: expected a %s file", value, strings.Join(exts, ", "))
	}
	return value, nil
}

func hasExt(path string, exts []string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(path)))
}
