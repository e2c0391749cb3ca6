package pdfconvert

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"testing"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

func TestMain(m *testing.M) {
	pdfapi.DisableConfigDir()
	os.Exit(m.Run())
}

func quiet() Options {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return Options{Log: log}
}

// pageShade is the gray level fakeSource paints page with.
func pageShade(page int) uint8 {
	return uint8(30 + 60*(page%4))
}

// fakeSource renders every page as a flat gray image of the page size.
type fakeSource struct {
	pages       []Size
	failAt      int // -1 for never
	onRasterize func(page int)
	calls       []int
}

func newFakeSource(pages ...Size) *fakeSource {
	return &fakeSource{pages: pages, failAt: -1}
}

func (f *fakeSource) NumPages() int { return len(f.pages) }

func (f *fakeSource) PageRect(page int) (Rect, error) {
	if page < 0 || page >= len(f.pages) {
		return Rect{}, eris.Errorf("page %d out of range", page+1)
	}
	return Rect{Max: Point{X: f.pages[page].Width, Y: f.pages[page].Height}}, nil
}

func (f *fakeSource) Rasterize(page int, dpi float64) (image.Image, error) {
	f.calls = append(f.calls, page)
	if page == f.failAt {
		return nil, eris.Errorf("render page %d: broken", page+1)
	}
	if page < 0 || page >= len(f.pages) {
		return nil, eris.Errorf("page %d out of range", page+1)
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	w := int(math.Round(f.pages[page].Width / 72 * dpi))
	h := int(math.Round(f.pages[page].Height / 72 * dpi))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	shade := pageShade(page)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = shade
		img.Pix[i+1] = shade
		img.Pix[i+2] = shade
		img.Pix[i+3] = 255
	}
	if f.onRasterize != nil {
		f.onRasterize(page)
	}
	return img, nil
}

func (f *fakeSource) Close() error { return nil }

// grayAt returns the gray level of the center pixel of img.
func grayAt(img image.Image) uint8 {
	b := img.Bounds()
	g := color.GrayModel.Convert(img.At((b.Min.X+b.Max.X)/2, (b.Min.Y+b.Max.Y)/2)).(color.Gray)
	return g.Y
}

func closeTo(a, b uint8, within int) bool {
	d := int(a) - int(b)
	return d >= -within && d <= within
}

// blankPDF builds a PDF with one empty page per size (in points).
func blankPDF(pages ...Size) []byte {
	return buildPDF("", pages...)
}

// buildPDF is blankPDF with content drawn on every page. content is a PDF
// content stream, eg "0 g 10 10 50 50 re f".
func buildPDF(content string, pages ...Size) []byte {
	var b bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, b.Len())
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}
	b.WriteString("%PDF-1.4\n")
	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(pages)))
	contents := ""
	if content != "" {
		contents = fmt.Sprintf(" /Contents %d 0 R", len(pages)+3)
	}
	for _, p := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << >>%s >>", p.Width, p.Height, contents))
	}
	if content != "" {
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(offsets)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return b.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// zipParts maps every entry of the zip file at path to its contents, and
// returns the entry names in archive order.
func zipParts(t *testing.T, path string) (map[string][]byte, []string) {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer zr.Close()
	parts := map[string][]byte{}
	var names []string
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		parts[f.Name] = data
		names = append(names, f.Name)
	}
	return parts, names
}
