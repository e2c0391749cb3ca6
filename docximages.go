package pdfconvert

import (
	"context"
	"fmt"

	"github.com/bmharper/pdfconvert/internal/docx"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// DocxRequest describes a PDF to DOCX run.
type DocxRequest struct {
	Options
	Source     PageSource
	OutputPath string
	DPI        float64        // Render resolution, conversion specific default when <= 0
	Page       docx.PageSetup // Output page, docx.Letter() when zero
}

func (r DocxRequest) page() docx.PageSetup {
	if r.Page.Width <= 0 || r.Page.Height <= 0 {
		return docx.Letter()
	}
	return r.Page
}

// PictureSize is the size, in inches, at which a page image of pixel size img
// is placed on an output page.
func PictureSize(img Size, page docx.PageSetup) Size {
	return FitWithin(img, Size{Width: page.ContentWidth(), Height: page.ContentHeight()})
}

// ConvertToDocxImages writes a DOCX with one section per PDF page, each
// holding the rendered page as a centered picture.
func ConvertToDocxImages(ctx context.Context, req DocxRequest) Result {
	log := req.log().WithField("docx", req.OutputPath)
	page := req.page()
	out := docx.New(page)
	total := req.Source.NumPages()
	progress := req.progress()
	log.Infof("Converting %v pages to page images", total)

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			log.Info("Conversion stopped")
			return CancelledResult(i, err)
		}
		progress.Progress(i+1, total, fmt.Sprintf("Processing page %d/%d", i+1, total))
		img, err := req.Source.Rasterize(i, req.DPI)
		if err != nil {
			return FailedResult(i, err)
		}
		pixels := imageSize(img)
		size := PictureSize(pixels, page)
		log.WithFields(logrus.Fields{"page": i + 1}).Debugf("Image %vx%v pixels placed at %.2fx%.2f inches",
			pixels.Width, pixels.Height, size.Width, size.Height)

		encoded, err := encodePNG(img)
		if err != nil {
			return FailedResult(i, eris.Wrapf(err, "page %d", i+1))
		}
		if i > 0 {
			out.AddSection()
		}
		p := out.AddParagraph("")
		p.Align = docx.AlignCenter
		p.NoSpacing = true
		if err := out.AddPicture(p, encoded, "image/png", size.Width, size.Height); err != nil {
			return FailedResult(i, eris.Wrapf(err, "page %d", i+1))
		}
	}

	if err := ctx.Err(); err != nil {
		log.Info("Conversion stopped")
		return CancelledResult(total, err)
	}
	if err := out.Save(req.OutputPath); err != nil {
		return FailedResult(total, err)
	}
	log.Infof("Saved %v", req.OutputPath)
	return succeeded(total, req.OutputPath)
}
