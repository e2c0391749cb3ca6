package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/bmharper/pdfconvert"
	"github.com/bmharper/pdfconvert/internal/config"
	"github.com/bmharper/pdfconvert/internal/docx"
	"github.com/bmharper/pdfconvert/internal/ocr"
	"github.com/bmharper/pdfconvert/internal/tools"
	"github.com/rotisserie/eris"
)

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// pick returns set when the flag was given, else the configured value.
func pick(set, configured float64) float64 {
	if set > 0 {
		return set
	}
	return configured
}

func (a *app) page() docx.PageSetup {
	return docx.PageSetup{Width: a.cfg.Page.Width, Height: a.cfg.Page.Height, Margin: a.cfg.Page.Margin}
}

// openSource opens the PDF with the configured rasterizer. pdftoppm calls
// are not cancelled with ctx, so that a page that has started completes.
func (a *app) openSource(ctx context.Context, path string) (pdfconvert.PageSource, error) {
	if a.cfg.Rasterizer == config.RasterizerPdftoppm {
		return pdfconvert.NewPopplerSource(context.WithoutCancel(ctx), path, pdfconvert.NewPdftoppm(a.cfg.Pdftoppm))
	}
	return pdfconvert.NewDocumentFromFile(path)
}

func (a *app) overlay(args []string) int {
	fs := a.flags("overlay")
	pdfPath := fs.String("pdf", "", "Input PDF")
	imagePath := fs.String("image", "", "Background image (png, jpg, bmp, tiff, webp, gif)")
	out := fs.String("out", "", "Output PDF")
	dpi := fs.Float64("dpi", 0, "Resolution the image is embedded at")
	if err := fs.Parse(args); err != nil {
		return exitFailed
	}

	var err error
	if *pdfPath, err = a.prompt.path(*pdfPath, "Enter the path to the PDF file: ", pdfExts); err != nil {
		return a.report(pdfconvert.ResultFor(0, err))
	}
	if *imagePath, err = a.prompt.path(*imagePath, "Enter the path to the image file: ", imageExts); err != nil {
		return a.report(pdfconvert.ResultFor(0, err))
	}
	if *out, err = a.prompt.path(*out, "Enter the path for the output PDF: ", pdfExts); err != nil {
		return a.report(pdfconvert.ResultFor(0, err))
	}

	req := pdfconvert.OverlayRequest{
		Options:    a.options(),
		PDFPath:    *pdfPath,
		ImagePath:  *imagePath,
		OutputPath: *out,
		DPI:        pick(*dpi, a.cfg.DPI.Overlay),
	}
	return a.execute("overlay", func(ctx context.Context) pdfconvert.Result {
		return pdfconvert.Overlay(ctx, req)
	})
}

func (a *app) exportJPEG(args []string) int {
	fs := a.flags("jpg")
	pdfPath := fs.String("pdf", "", "Input PDF")
	dpi := fs.Float64("dpi", 0, "Render resolution")
	quality := fs.Int("quality", 0, "JPEG quality (1-100)")
	if err := fs.Parse(args); err != nil {
		return exitFailed
	}
	var err error
	if *pdfPath, err = a.prompt.path(*pdfPath, "Enter the path to the PDF file: ", pdfExts); err != nil {
		return a.report(pdfconvert.ResultFor(0, err))
	}
	if *quality == 0 {
		*quality = a.cfg.JPEGQuality
	}

	return a.execute("jpg", func(ctx context.Context) pdfconvert.Result {
		src, err := a.openSource(ctx, *pdfPath)
		if err != nil {
			return pdfconvert.ResultFor(0, err)
		}
		defer src.Close()
		return pdfconvert.ExportJPEG(ctx, pdfconvert.ExportRequest{
			Options: a.options(),
			Source:  src,
			PDFPath: *pdfPath,
			DPI:     pick(*dpi, a.cfg.DPI.Export),
			Quality: *quality,
		})
	})
}

func (a *app) docx(args []string) int {
	fs := a.flags("docx")
	pdfPath := fs.String("pdf", "", "Input PDF")
	out := fs.String("out", "", "Output DOCX (default: next to the PDF)")
	mode := fs.String("mode", "text", "text (OCR) or images (one picture per page)")
	dpi := fs.Float64("dpi", 0, "Render resolution")
	lang := fs.String("lang", "", "OCR languages, eg eng+deu")
	if err := fs.Parse(args); err != nil {
		return exitFailed
	}
	if *mode != "text" && *mode != "images" {
		fmt.Fprintf(a.stderr, "Unknown mode %q (expected text or images)\n", *mode)
		return exitFailed
	}
	var err error
	if *pdfPath, err = a.prompt.path(*pdfPath, "Enter the path to the PDF file: ", pdfExts); err != nil {
		return a.report(pdfconvert.ResultFor(0, err))
	}
	if *out == "" {
		*out = strings.TrimSuffix(*pdfPath, filepath.Ext(*pdfPath)) + ".docx"
	}
	if !hasExt(*out, docxExts) {
		return a.report(pdfconvert.FailedResult(0, eris.Errorf("%s: expected a .docx file", *out)))
	}
	if *lang != "" {
		a.cfg.Languages = config.ParseLanguages(*lang)
	}

	base := pdfconvert.DocxRequest{
		Options:    a.options(),
		OutputPath: *out,
		Page:       a.page(),
	}
	if *mode == "images" {
		base.DPI = pick(*dpi, a.cfg.DPI.Images)
		return a.execute("docx images", func(ctx context.Context) pdfconvert.Result {
			src, err := a.openSource(ctx, *pdfPath)
			if err != nil {
				return pdfconvert.ResultFor(0, err)
			}
			defer src.Close()
			req := base
			req.Source = src
			return pdfconvert.ConvertToDocxImages(ctx, req)
		})
	}

	base.DPI = pick(*dpi, a.cfg.DPI.OCR)
	return a.execute("docx text", func(ctx context.Context) pdfconvert.Result {
		engine, err := a.engine(ctx, int(base.DPI))
		if err != nil {
			return pdfconvert.ResultFor(0, err)
		}
		var straightener *pdfconvert.Straightener
		if s := a.cfg.Straighten; s.Deskew || s.Upright {
			if straightener, err = pdfconvert.NewStraightener(s.Deskew, s.Upright, s.MaxAngle); err != nil {
				return pdfconvert.ResultFor(0, err)
			}
		}
		src, err := a.openSource(ctx, *pdfPath)
		if err != nil {
			return pdfconvert.ResultFor(0, err)
		}
		defer src.Close()
		req := pdfconvert.OCRRequest{DocxRequest: base, Engine: engine, Straightener: straightener}
		req.Source = src
		return pdfconvert.ConvertToDocxText(ctx, req)
	})
}

type versioned interface {
	ocr.Engine
	Version(ctx context.Context) (string, error)
}

// engine builds the configured OCR engine and checks that it can run.
func (a *app) engine(ctx context.Context, dpi int) (ocr.Engine, error) {
	opt := ocr.Options{Languages: a.cfg.Languages, DPI: dpi}
	var engine versioned
	if a.cfg.Engine == config.EngineLibrary {
		engine = ocr.NewLibrary(opt, a.cfg.TessdataPrefix)
	} else {
		engine = ocr.NewTesseract(a.cfg.Tesseract, opt)
	}
	version, err := engine.Version(ctx)
	if err != nil {
		return nil, err
	}
	a.log.Infof("Using %v", version)
	return engine, nil
}

func (a *app) markdown(args []string) int {
	fs := a.flags("md2docx")
	mdPath := fs.String("md", "", "Input markdown file")
	out := fs.String("out", "", "Output DOCX (default: next to the markdown file)")
	title := fs.String("title", "", "Document title")
	author := fs.String("author", "", "Document author")
	toc := fs.Int("toc", pdfconvert.DefaultTOCLevels, "Heading levels in the table of contents, 0 for none")
	if err := fs.Parse(args); err != nil {
		return exitFailed
	}
	var err error
	if *mdPath, err = a.prompt.path(*mdPath, "Enter the path to the markdown file: ", markdownExts); err != nil {
		return a.report(pdfconvert.ResultFor(0, err))
	}
	if *out == "" {
		*out = strings.TrimSuffix(*mdPath, filepath.Ext(*mdPath)) + ".docx"
	}
	if !hasExt(*out, docxExts) {
		return a.report(pdfconvert.FailedResult(0, eris.Errorf("%s: expected a .docx file", *out)))
	}
	req := pdfconvert.MarkdownRequest{
		Options:      a.options(),
		MarkdownPath: *mdPath,
		OutputPath:   *out,
		Title:        *title,
		Author:       *author,
		Page:         a.page(),
		TOCLevels:    *toc,
	}
	if *toc <= 0 {
		req.TOCLevels = -1
	}
	return a.execute("md2docx", func(ctx context.Context) pdfconvert.Result {
		return pdfconvert.ConvertMarkdown(ctx, req)
	})
}

// tools prints the location and version of every external program. It fails
// when a program the configuration needs is missing.
func (a *app) tools(args []string) int {
	if err := a.flags("tools").Parse(args); err != nil {
		return exitFailed
	}
	ctx := context.Background()
	required := map[string]bool{
		"tesseract": a.cfg.Engine == config.EngineCLI,
		"pdftoppm":  a.cfg.Rasterizer == config.RasterizerPdftoppm,
	}
	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	code := exitOK
	for _, t := range []*tools.Tool{
		ocr.NewTesseract(a.cfg.Tesseract, ocr.Options{}).Tool,
		pdfconvert.NewPdftoppm(a.cfg.Pdftoppm),
	} {
		path, err := t.Resolve()
		if err != nil {
			fmt.Fprintf(w, "%s\tnot found\t\n", t.Name)
			if required[t.Name] {
				a.log.Errorf("%v", err)
				code = exitFailed
			}
			continue
		}
		version, err := t.Version(ctx)
		if err != nil {
			version = "unknown version: " + err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, path, version)
	}
	lib, _ := ocr.NewLibrary(ocr.Options{}, a.cfg.TessdataPrefix).Version(ctx)
	fmt.Fprintf(w, "libtesseract\t(linked)\t%s\n", lib)
	return code
}
