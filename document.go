package pdfconvert

import (
	"bytes"
	"image"
	"io"
	"os"
	"sync"

	"github.com/gen2brain/go-fitz"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rotisserie/eris"
)

// DefaultDPI is the device resolution used when a caller does not ask for a
// specific one. At 72 dpi one pixel is one point.
const DefaultDPI = 72

// ErrUnreadableDocument is returned when a file is not a PDF we can open,
// including encrypted files (passwords are not supported).
var ErrUnreadableDocument = eris.New("unreadable document")

// PageSource is an open PDF that can report page sizes and render pages.
// Pages are indexed from 0. Nothing is cached between calls.
type PageSource interface {
	NumPages() int
	PageRect(page int) (Rect, error)
	Rasterize(page int, dpi float64) (image.Image, error)
	Close() error
}

// Document represents a PDF document opened with MuPDF for rendering.
// Page rectangles come from pdfcpu, which reports them in exact points.
type Document struct {
	fz       *fitz.Document
	reader   io.ReadSeeker
	numPages int

	dimsOnce sync.Once
	dims     []types.Dim
	dimsErr  error
	closed   bool
}

func newDocument(fz *fitz.Document, reader io.ReadSeeker) *Document {
	return &Document{
		fz:       fz,
		reader:   reader,
		numPages: fz.NumPage(),
	}
}

func unreadable(name string, err error) error {
	if eris.Is(err, fitz.ErrNeedsPassword) {
		return eris.Wrapf(ErrUnreadableDocument, "%s is encrypted", name)
	}
	return eris.Wrapf(ErrUnreadableDocument, "%s: %v", name, err)
}

// Load a PDF from a file
func NewDocumentFromFile(filename string) (*Document, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", filename)
	}
	fz, err := fitz.New(filename)
	if err != nil {
		file.Close()
		return nil, unreadable(filename, err)
	}
	return newDocument(fz, file), nil
}

// Load a PDF from bytes
func NewDocumentFromMemory(doc []byte) (*Document, error) {
	fz, err := fitz.NewFromMemory(doc)
	if err != nil {
		return nil, unreadable("document", err)
	}
	return newDocument(fz, bytes.NewReader(doc)), nil
}

func (d *Document) NumPages() int {
	return d.numPages
}

// Close releases the MuPDF handle and the file. Calling it again is a no-op.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	err := d.fz.Close()
	if closer, ok := d.reader.(io.Closer); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (d *Document) checkPage(page int) error {
	if page < 0 || page >= d.numPages {
		return eris.Errorf("page %d out of range (document has %d pages)", page+1, d.numPages)
	}
	return nil
}

// PageRect returns the page size in points. pdfcpu is asked once for all
// pages; if it cannot parse the file, MuPDF's integer bounds are used.
func (d *Document) PageRect(page int) (Rect, error) {
	if err := d.checkPage(page); err != nil {
		return Rect{}, err
	}
	d.dimsOnce.Do(func() {
		if _, err := d.reader.Seek(0, io.SeekStart); err != nil {
			d.dimsErr = err
			return
		}
		d.dims, d.dimsErr = pdfapi.PageDims(d.reader, model.NewDefaultConfiguration())
	})
	if d.dimsErr == nil && page < len(d.dims) {
		dim := d.dims[page]
		return Rect{Max: Point{X: dim.Width, Y: dim.Height}}, nil
	}
	b, err := d.fz.Bound(page)
	if err != nil {
		return Rect{}, eris.Wrapf(err, "bounds of page %d", page+1)
	}
	return Rect{Max: Point{X: float64(b.Dx()), Y: float64(b.Dy())}}, nil
}

// Rasterize renders the page at dpi (DefaultDPI when dpi <= 0).
func (d *Document) Rasterize(page int, dpi float64) (image.Image, error) {
	if err := d.checkPage(page); err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	img, err := d.fz.ImageDPI(page, dpi)
	if err != nil {
		return nil, eris.Wrapf(err, "render page %d", page+1)
	}
	return img, nil
}

// Returns true if this PDF is a scanned document
func (d *Document) IsScanned() (bool, error) {
	// pdfcpu is not able to extract the text from the document, which is why we use
	// go-fitz for this.
	for i := range d.numPages {
		txt, err := d.fz.Text(i)
		if err != nil {
			return false, err
		}
		if txt != "" {
			return false, nil
		}
	}
	return true, nil
}
