package pdfconvert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmharper/pdfconvert/internal/archive"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// DefaultExportDPI matches the resolution poppler's pdftoppm uses by default
// in most front ends.
const DefaultExportDPI = 200

// ExportRequest describes a JPEG export run. Source must already be open;
// PDFPath names the output locations.
type ExportRequest struct {
	Options
	Source  PageSource
	PDFPath string
	DPI     float64 // DefaultExportDPI when <= 0
	Quality int     // JPEG quality, DefaultJPEGQuality when <= 0
}

// ExportPaths returns the image directory and zip archive that ExportJPEG
// writes for pdfPath: "<stem>_images" and "<stem>_images.zip" beside it.
func ExportPaths(pdfPath string) (dir, zip string) {
	stem := strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath))
	return stem + "_images", stem + "_images.zip"
}

// PageImageName is the file name of page (0 based) inside the export
// directory.
func PageImageName(page int) string {
	return fmt.Sprintf("page_%d.jpg", page+1)
}

// ExportJPEG renders every page to a JPEG file in a sibling directory, then
// archives that directory. A cancelled or failed run removes the images it
// wrote and does not create the archive.
func ExportJPEG(ctx context.Context, req ExportRequest) (res Result) {
	dir, zipPath := ExportPaths(req.PDFPath)
	log := req.log().WithField("pdf", req.PDFPath)
	dpi := req.DPI
	if dpi <= 0 {
		dpi = DefaultExportDPI
	}

	_, statErr := os.Stat(dir)
	createdDir := os.IsNotExist(statErr)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return FailedResult(0, eris.Wrapf(err, "create %s", dir))
	}

	var written []string
	defer func() {
		if res.OK() {
			return
		}
		for _, f := range written {
			os.Remove(f)
		}
		if createdDir {
			os.Remove(dir)
		}
	}()

	total := req.Source.NumPages()
	log.Infof("Converting %v pages to JPG", total)
	progress := req.progress()
	for page := 0; page < total; page++ {
		if err := ctx.Err(); err != nil {
			log.Info("Export stopped")
			return CancelledResult(page, err)
		}
		img, err := req.Source.Rasterize(page, dpi)
		if err != nil {
			return FailedResult(page, err)
		}
		raw, err := encodeJPEG(img, req.Quality)
		if err != nil {
			return FailedResult(page, eris.Wrapf(err, "page %d", page+1))
		}
		path := filepath.Join(dir, PageImageName(page))
		if err := os.WriteFile(path, raw, 0644); err != nil {
			return FailedResult(page, eris.Wrapf(err, "write %s", path))
		}
		written = append(written, path)
		progress.Progress(page+1, total, fmt.Sprintf("Converted page %d/%d", page+1, total))
		log.WithFields(logrus.Fields{"page": page + 1, "bytes": len(raw)}).Debug("Wrote page image")
	}
	if err := ctx.Err(); err != nil {
		log.Info("Export stopped")
		return CancelledResult(total, err)
	}
	log.Infof("Conversion completed. %v pages converted to JPG", total)

	entries, err := archive.EntriesFor(dir, written)
	if err != nil {
		return FailedResult(total, err)
	}
	if err := archive.Write(zipPath, entries, nil); err != nil {
		return FailedResult(total, eris.Wrapf(err, "archive %s", dir))
	}
	log.Infof("Images archived into %v", zipPath)
	return succeeded(total, append(written, zipPath)...)
}
