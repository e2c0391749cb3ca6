// Package ocr turns page bitmaps into text. Two engines are provided: the
// tesseract command line program, and libtesseract linked through gosseract.
package ocr

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Engine recognizes the text in a PNG encoded image. Reading order within
// the page is the engine's responsibility.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, png []byte) (string, error)
}

// Options shared by the engines.
type Options struct {
	Languages []string // Tesseract language codes, eg "eng", "deu"
	DPI       int      // Resolution the image was rendered at, 0 to let tesseract guess
}

func (o Options) languageArg() string {
	if len(o.Languages) == 0 {
		return "eng"
	}
	return strings.Join(o.Languages, "+")
}

// CleanText normalizes recognized text to NFC, converts CRLF to LF, and drops
// control characters that cannot appear in XML documents.
func CleanText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return '\n'
		case unicode.IsControl(r), r == 0xFFFE, r == 0xFFFF:
			return -1
		}
		return r
	}, s)
}
