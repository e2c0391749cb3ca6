package pdfconvert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"strconv"

	"github.com/bmharper/pdfconvert/internal/atomicfile"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// DefaultOverlayDPI is the resolution the background image is resampled to
// before it is embedded. Images that are already smaller are used as-is.
const DefaultOverlayDPI = 150

// OverlayPlan places a background image on one page. Offset is measured
// from the top-left corner of the page, in points.
type OverlayPlan struct {
	Page   Size
	Size   Size
	Offset Point
}

// PlanOverlay fits img inside the page, preserving its aspect ratio, and
// centers it.
func PlanOverlay(page Rect, img Size) OverlayPlan {
	ps := page.Size()
	s := FitInside(ps, img)
	return OverlayPlan{Page: ps, Size: s, Offset: Center(ps, s)}
}

// OverlayRequest describes an overlay run.
type OverlayRequest struct {
	Options
	PDFPath    string
	ImagePath  string
	OutputPath string
	DPI        float64 // Resample resolution for the image, DefaultOverlayDPI when <= 0
}

// Overlay writes a copy of the PDF with the image placed beneath the existing
// content of every page. Nothing is written unless every page succeeds.
func Overlay(ctx context.Context, req OverlayRequest) Result {
	log := req.log().WithFields(logrus.Fields{"pdf": req.PDFPath, "image": req.ImagePath})
	log.Infof("Overlaying %v under %v", req.ImagePath, req.PDFPath)

	data, err := os.ReadFile(req.PDFPath)
	if err != nil {
		return FailedResult(0, eris.Wrapf(err, "read %s", req.PDFPath))
	}
	conf := model.NewDefaultConfiguration()
	dims, err := pdfapi.PageDims(bytes.NewReader(data), conf)
	if err != nil {
		return FailedResult(0, unreadable(req.PDFPath, err))
	}
	img, err := loadImage(req.ImagePath)
	if err != nil {
		return FailedResult(0, err)
	}
	log.Debugf("Found %v pages", len(dims))

	watermarks := map[int]*model.Watermark{}
	progress := req.progress()
	for page, dim := range dims {
		if err := ctx.Err(); err != nil {
			log.Info("Overlay stopped")
			return CancelledResult(page, err)
		}
		progress.Progress(page+1, len(dims), fmt.Sprintf("Processing page %d/%d", page+1, len(dims)))
		plan := PlanOverlay(Rect{Max: Point{X: dim.Width, Y: dim.Height}}, imageSize(img))
		log.WithField("page", page+1).Debugf("Page %.2f x %.2f, image %.2f x %.2f at (%.2f, %.2f)",
			plan.Page.Width, plan.Page.Height, plan.Size.Width, plan.Size.Height, plan.Offset.X, plan.Offset.Y)
		wm, err := overlayWatermark(img, plan, req.DPI)
		if err != nil {
			return FailedResult(page, eris.Wrapf(err, "page %d", page+1))
		}
		watermarks[page+1] = wm
	}

	if err := ctx.Err(); err != nil {
		log.Info("Overlay stopped")
		return CancelledResult(len(dims), err)
	}
	out := data
	if len(watermarks) != 0 {
		var buf bytes.Buffer
		if err := pdfapi.AddWatermarksMap(bytes.NewReader(data), &buf, watermarks, conf); err != nil {
			return FailedResult(len(dims), eris.Wrap(err, "add background images"))
		}
		out = buf.Bytes()
	}
	if err := atomicfile.WriteBytes(req.OutputPath, out); err != nil {
		return FailedResult(len(dims), err)
	}
	log.Infof("Saved %v", req.OutputPath)
	return succeeded(len(dims), req.OutputPath)
}

func imageSize(img image.Image) Size {
	b := img.Bounds()
	return Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// overlayPixels is the pixel size the image is embedded at for plan. It never
// exceeds the source image, and keeps the source aspect ratio.
func overlayPixels(src Size, plan OverlayPlan, dpi float64) (int, int) {
	if dpi <= 0 {
		dpi = DefaultOverlayDPI
	}
	w := math.Round(plan.Size.Width / 72 * dpi)
	if w >= src.Width {
		return int(src.Width), int(src.Height)
	}
	w = math.Max(w, 1)
	h := math.Max(math.Round(w/src.Aspect()), 1)
	return int(w), int(h)
}

// overlayWatermark builds a pdfcpu watermark (drawn beneath page content)
// that shows img at plan.Size, centered on the page. The watermark has a
// single scale factor, so the width is exact and the height is within half a
// resampled pixel of plan.Size.Height.
func overlayWatermark(img image.Image, plan OverlayPlan, dpi float64) (*model.Watermark, error) {
	src := imageSize(img)
	w, h := overlayPixels(src, plan, dpi)
	if w != int(src.Width) || h != int(src.Height) {
		img = resample(img, w, h)
	}
	encoded, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	scale := plan.Size.Width / float64(w)
	desc := "pos:c, off:0 0, rot:0, op:1, scalefactor:" + strconv.FormatFloat(scale, 'f', -1, 64) + " abs"
	wm, err := pdfapi.ImageWatermarkForReader(bytes.NewReader(encoded), desc, false, false, types.POINTS)
	if err != nil {
		return nil, eris.Wrap(err, "build background image")
	}
	return wm, nil
}
