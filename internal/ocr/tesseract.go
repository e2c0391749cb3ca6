package ocr

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/bmharper/pdfconvert/internal/tools"
	"github.com/rotisserie/eris"
)

// Tesseract runs the tesseract executable, feeding the image on stdin and
// reading the text from stdout.
type Tesseract struct {
	Tool    *tools.Tool
	Options Options
}

// NewTesseract returns an engine for the executable at path. An empty path
// means "tesseract" from PATH.
func NewTesseract(path string, opt Options) *Tesseract {
	return &Tesseract{
		Tool:    tools.New("tesseract", path, "--version"),
		Options: opt,
	}
}

func (t *Tesseract) Name() string { return "tesseract" }

// Version reports the installed tesseract version. It fails when the
// executable cannot be found.
func (t *Tesseract) Version(ctx context.Context) (string, error) {
	return t.Tool.Version(ctx)
}

func (t *Tesseract) Recognize(ctx context.Context, png []byte) (string, error) {
	args := []string{"stdin", "stdout", "-l", t.Options.languageArg()}
	if t.Options.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(t.Options.DPI))
	}
	out, err := t.Tool.Run(ctx, bytes.NewReader(png), args...)
	if err != nil {
		return "", eris.Wrap(err, "recognize text")
	}
	return strings.TrimRight(CleanText(string(out)), " \n\t"), nil
}
