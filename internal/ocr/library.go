package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rotisserie/eris"
)

// Library performs OCR in-process through libtesseract.
type Library struct {
	Options        Options
	TessdataPrefix string // Directory holding the traineddata files, empty for the default
	clientFactory  func() *gosseract.Client
}

func NewLibrary(opt Options, tessdataPrefix string) *Library {
	return &Library{Options: opt, TessdataPrefix: tessdataPrefix, clientFactory: gosseract.NewClient}
}

func (l *Library) Name() string { return "libtesseract" }

func (l *Library) Version(ctx context.Context) (string, error) {
	return "libtesseract " + gosseract.Version(), nil
}

// Recognize uses a fresh client per page, so a failed page leaves no state
// behind in the next one.
func (l *Library) Recognize(ctx context.Context, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := l.clientFactory()
	defer c.Close()
	if l.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(l.TessdataPrefix); err != nil {
			return "", eris.Wrap(err, "set tessdata prefix")
		}
	}
	if err := c.SetLanguage(l.Options.languageArg()); err != nil {
		return "", eris.Wrap(err, "set languages")
	}
	if l.Options.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(l.Options.DPI)); err != nil {
			return "", eris.Wrap(err, "set dpi")
		}
	}
	if err := c.SetImageFromBytes(png); err != nil {
		return "", eris.Wrap(err, "set image")
	}
	text, err := c.Text()
	if err != nil {
		return "", eris.Wrap(err, "recognize text")
	}
	return strings.TrimRight(CleanText(text), " \n\t"), nil
}
