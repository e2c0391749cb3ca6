package pdfconvert

import (
	"context"
	"fmt"

	"github.com/bmharper/pdfconvert/internal/docx"
	"github.com/bmharper/pdfconvert/internal/ocr"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// DefaultOCRDPI is high enough for good recognition of body text.
const DefaultOCRDPI = 300

// OCRRequest describes a PDF to DOCX run through OCR.
type OCRRequest struct {
	DocxRequest
	Engine       ocr.Engine
	Straightener *Straightener // Optional page cleanup before recognition
}

// PageHeader is the line that introduces the text of page (0 based).
func PageHeader(page int) string {
	return fmt.Sprintf("Page %d:\n", page+1)
}

// ConvertToDocxText recognizes the text of every page and writes it to a
// DOCX, one page per PDF page. An OCR failure fails the whole run.
func ConvertToDocxText(ctx context.Context, req OCRRequest) Result {
	if req.Engine == nil {
		return FailedResult(0, eris.New("no OCR engine configured"))
	}
	log := req.log().WithFields(logrus.Fields{"docx": req.OutputPath, "engine": req.Engine.Name()})
	dpi := req.DPI
	if dpi <= 0 {
		dpi = DefaultOCRDPI
	}
	out := docx.New(req.page())
	total := req.Source.NumPages()
	progress := req.progress()
	log.Infof("Starting OCR conversion of %v pages", total)

	// A page that has started is allowed to finish, so the engine does not
	// see the cancellation.
	pageCtx := context.WithoutCancel(ctx)

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			log.Info("Conversion stopped")
			return CancelledResult(i, err)
		}
		progress.Progress(i+1, total, fmt.Sprintf("Processing page %d/%d", i+1, total))
		text, err := req.recognizePage(pageCtx, i, dpi, log)
		if err != nil {
			return FailedResult(i, eris.Wrapf(err, "page %d", i+1))
		}
		out.AddParagraph(PageHeader(i))
		out.AddParagraph(text)
		if i < total-1 {
			out.AddPageBreak()
		}
	}

	if err := ctx.Err(); err != nil {
		log.Info("Conversion stopped")
		return CancelledResult(total, err)
	}
	if err := out.Save(req.OutputPath); err != nil {
		return FailedResult(total, err)
	}
	log.Infof("Conversion completed, saved %v", req.OutputPath)
	return succeeded(total, req.OutputPath)
}

func (req OCRRequest) recognizePage(ctx context.Context, page int, dpi float64, log logrus.FieldLogger) (string, error) {
	img, err := req.Source.Rasterize(page, dpi)
	if err != nil {
		return "", err
	}
	if req.Straightener.Enabled() {
		fixed, angle, err := req.Straightener.Straighten(img)
		if err != nil {
			return "", err
		}
		if angle != 0 {
			log.WithField("page", page+1).Debugf("Removed skew of %.2f degrees", angle)
		}
		img = fixed
	}
	encoded, err := encodePNG(img)
	if err != nil {
		return "", err
	}
	text, err := req.Engine.Recognize(ctx, encoded)
	if err != nil {
		return "", eris.Wrapf(err, "%s", req.Engine.Name())
	}
	log.WithFields(logrus.Fields{"page": page + 1, "chars": len(text)}).Debug("Recognized page")
	return text, nil
}
