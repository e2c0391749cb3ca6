package pdfconvert

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"strconv"

	"github.com/bmharper/pdfconvert/internal/tools"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rotisserie/eris"
)

// PopplerSource renders pages with the pdftoppm command line tool. Page
// counts and sizes come from pdfcpu.
type PopplerSource struct {
	ctx  context.Context
	tool *tools.Tool
	path string
	dims []types.Dim
}

// NewPdftoppm returns the pdftoppm tool at path ("" for PATH discovery).
func NewPdftoppm(path string) *tools.Tool {
	return tools.New("pdftoppm", path, "-v")
}

// NewPopplerSource opens path for rendering with tool. ctx bounds every
// pdftoppm invocation made through the source.
func NewPopplerSource(ctx context.Context, path string, tool *tools.Tool) (*PopplerSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	dims, err := pdfapi.PageDims(f, model.NewDefaultConfiguration())
	if err != nil {
		return nil, unreadable(path, err)
	}
	if _, err := tool.Resolve(); err != nil {
		return nil, err
	}
	return &PopplerSource{ctx: ctx, tool: tool, path: path, dims: dims}, nil
}

func (p *PopplerSource) NumPages() int { return len(p.dims) }

func (p *PopplerSource) PageRect(page int) (Rect, error) {
	if page < 0 || page >= len(p.dims) {
		return Rect{}, eris.Errorf("page %d out of range (document has %d pages)", page+1, len(p.dims))
	}
	return Rect{Max: Point{X: p.dims[page].Width, Y: p.dims[page].Height}}, nil
}

// Rasterize runs pdftoppm for a single page and decodes the PNG it writes to
// stdout.
func (p *PopplerSource) Rasterize(page int, dpi float64) (image.Image, error) {
	if page < 0 || page >= len(p.dims) {
		return nil, eris.Errorf("page %d out of range (document has %d pages)", page+1, len(p.dims))
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	n := strconv.Itoa(page + 1)
	args := []string{
		"-png",
		"-r", strconv.FormatFloat(dpi, 'f', -1, 64),
		"-f", n,
		"-l", n,
		p.path,
	}
	out, err := p.tool.Run(p.ctx, nil, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "render page %d", page+1)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, eris.Wrapf(err, "decode page %d", page+1)
	}
	return img, nil
}

func (p *PopplerSource) Close() error { return nil }
