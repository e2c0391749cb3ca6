package pdfconvert

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bmharper/pdfconvert/internal/docx"
	"github.com/rotisserie/eris"
)

func TestPictureSize(t *testing.T) {
	letter := docx.Letter()
	cases := []struct {
		img  Size
		want Size
	}{
		// Tall pages fill the content height
		{Size{1000, 2000}, Size{5, 10}},
		// A Letter page is wider than the 7.5x10 content area
		{Size{1275, 1650}, Size{7.5, 7.5 * 1650 / 1275}},
		// Landscape starts from the content width
		{Size{1650, 1275}, Size{7.5, 7.5 * 1275 / 1650}},
		// Near square portrait images are clamped by the width
		{Size{900, 1000}, Size{7.5, 7.5 * 1000 / 900}},
	}
	for _, c := range cases {
		got := PictureSize(c.img, letter)
		if !near(got.Width, c.want.Width) || !near(got.Height, c.want.Height) {
			t.Errorf("PictureSize(%v) = %v, want %v", c.img, got, c.want)
		}
		if got.Width > letter.ContentWidth()+tolerance || got.Height > letter.ContentHeight()+tolerance {
			t.Errorf("PictureSize(%v) = %v exceeds the content area", c.img, got)
		}
	}
}

func TestConvertToDocxImages(t *testing.T) {
	out := filepath.Join(t.TempDir(), "pages.docx")
	src := newFakeSource(Size{612, 792}, Size{792, 612}, Size{300, 300})
	res := ConvertToDocxImages(context.Background(), DocxRequest{Options: quiet(), Source: src, OutputPath: out, DPI: 36})
	if !res.OK() {
		t.Fatalf("ConvertToDocxImages failed: %v", res.Err)
	}
	if res.Pages != 3 || len(res.Outputs) != 1 || res.Outputs[0] != out {
		t.Fatalf("unexpected result %+v", res)
	}

	parts, _ := zipParts(t, out)
	body := string(parts["word/document.xml"])
	if n := strings.Count(body, "<w:sectPr>"); n != 3 {
		t.Errorf("document has %d sections, want 3", n)
	}
	if n := strings.Count(body, "<w:drawing>"); n != 3 {
		t.Errorf("document has %d pictures, want 3", n)
	}
	last := -1
	for i := 0; i < 3; i++ {
		rel := fmt.Sprintf(`r:embed="rIdImage%d"`, i+1)
		at := strings.Index(body, rel)
		if at <= last {
			t.Errorf("picture %d is out of order", i+1)
		}
		last = at

		media, ok := parts[fmt.Sprintf("word/media/image%d.png", i+1)]
		if !ok {
			t.Fatalf("picture %d missing from package", i+1)
		}
		img, err := png.Decode(bytes.NewReader(media))
		if err != nil {
			t.Fatal(err)
		}
		if g := grayAt(img); g != pageShade(i) {
			t.Errorf("picture %d shows page shade %v, want %v", i+1, g, pageShade(i))
		}
	}
}

func TestConvertToDocxImagesCancel(t *testing.T) {
	for k := 0; k < 3; k++ {
		out := filepath.Join(t.TempDir(), "pages.docx")
		ctx, cancel := context.WithCancel(context.Background())
		src := newFakeSource(Size{72, 72}, Size{72, 72}, Size{72, 72})
		src.onRasterize = func(page int) {
			if page == k {
				cancel()
			}
		}
		res := ConvertToDocxImages(ctx, DocxRequest{Options: quiet(), Source: src, OutputPath: out})
		cancel()
		if res.Status != Cancelled {
			t.Errorf("stop after page %d: status %v", k, res.Status)
		}
		if exists(out) {
			t.Errorf("stop after page %d wrote %v", k, out)
		}
	}
}

// shadeEngine "recognizes" a page by reporting the shade fakeSource painted.
type shadeEngine struct {
	failOn uint8
	calls  int
}

func (e *shadeEngine) Name() string { return "shade" }

func (e *shadeEngine) Recognize(ctx context.Context, encoded []byte) (string, error) {
	e.calls++
	img, err := png.Decode(bytes.NewReader(encoded))
	if err != nil {
		return "", err
	}
	g := grayAt(img)
	if e.failOn != 0 && g == e.failOn {
		return "", eris.New("engine crashed")
	}
	return fmt.Sprintf("shade %d", g), nil
}

func TestConvertToDocxText(t *testing.T) {
	out := filepath.Join(t.TempDir(), "text.docx")
	src := newFakeSource(Size{72, 72}, Size{72, 72}, Size{72, 72})
	engine := &shadeEngine{}
	req := OCRRequest{
		DocxRequest: DocxRequest{Options: quiet(), Source: src, OutputPath: out, DPI: 36},
		Engine:      engine,
	}
	res := ConvertToDocxText(context.Background(), req)
	if !res.OK() {
		t.Fatalf("ConvertToDocxText failed: %v", res.Err)
	}
	if engine.calls != 3 {
		t.Errorf("engine called %d times", engine.calls)
	}

	parts, _ := zipParts(t, out)
	body := string(parts["word/document.xml"])
	if n := strings.Count(body, `<w:br w:type="page"/>`); n != 2 {
		t.Errorf("document has %d page breaks, want 2", n)
	}
	last := -1
	for i := 0; i < 3; i++ {
		header := strings.Index(body, fmt.Sprintf("Page %d:", i+1))
		text := strings.Index(body, fmt.Sprintf("shade %d", pageShade(i)))
		if header <= last || text <= header {
			t.Errorf("page %d is out of order", i+1)
		}
		last = text
	}
}

func TestConvertToDocxTextEngineFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "text.docx")
	src := newFakeSource(Size{72, 72}, Size{72, 72}, Size{72, 72})
	req := OCRRequest{
		DocxRequest: DocxRequest{Options: quiet(), Source: src, OutputPath: out},
		Engine:      &shadeEngine{failOn: pageShade(1)},
	}
	res := ConvertToDocxText(context.Background(), req)
	if res.Status != Failed || res.Pages != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(res.Err.Error(), "engine crashed") {
		t.Errorf("error %q lost the engine message", res.Err)
	}
	if exists(out) {
		t.Errorf("failed run wrote %v", out)
	}
}

func TestConvertToDocxTextCancel(t *testing.T) {
	for k := 0; k < 3; k++ {
		out := filepath.Join(t.TempDir(), "text.docx")
		ctx, cancel := context.WithCancel(context.Background())
		src := newFakeSource(Size{72, 72}, Size{72, 72}, Size{72, 72})
		src.onRasterize = func(page int) {
			if page == k {
				cancel()
			}
		}
		engine := &shadeEngine{}
		req := OCRRequest{
			DocxRequest: DocxRequest{Options: quiet(), Source: src, OutputPath: out},
			Engine:      engine,
		}
		res := ConvertToDocxText(ctx, req)
		cancel()
		if res.Status != Cancelled {
			t.Errorf("stop after page %d: status %v", k, res.Status)
		}
		// The page in flight is still recognized
		if engine.calls != k+1 {
			t.Errorf("stop after page %d: engine called %d times", k, engine.calls)
		}
		if exists(out) {
			t.Errorf("stop after page %d wrote %v", k, out)
		}
	}
}

func TestConvertToDocxTextNeedsEngine(t *testing.T) {
	res := ConvertToDocxText(context.Background(), OCRRequest{DocxRequest: DocxRequest{Source: newFakeSource()}})
	if res.Status != Failed {
		t.Errorf("status = %v", res.Status)
	}
}
