package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	// Decoders for the -image flag
	_ "image/jpeg"
	_ "image/png"

	"github.com/bmharper/pdfconvert"
	"github.com/bmharper/pdfconvert/internal/docx"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// You give this program a PDF, or a directory which it recursively scans for PDF files.
// For every page it prints the page size, and where an overlay image and a DOCX page
// picture would be placed. Useful for checking the layout math against real documents.

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	imagePath := flag.String("image", "", "Overlay image to plan for (default: a 4:3 landscape image)")
	dpi := flag.Float64("dpi", pdfconvert.DefaultDPI, "Resolution used for the DOCX picture plan")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Printf("Usage: %s [-image bg.png] [-dpi 72] <file.pdf|directory>\n", os.Args[0])
		return
	}
	pdfapi.DisableConfigDir()

	overlay := pdfconvert.Size{Width: 1600, Height: 1200}
	if *imagePath != "" {
		f, err := os.Open(*imagePath)
		check(err)
		cfg, _, err := image.DecodeConfig(f)
		f.Close()
		check(err)
		overlay = pdfconvert.Size{Width: float64(cfg.Width), Height: float64(cfg.Height)}
	}

	input := flag.Arg(0)
	pdfFiles := []string{input}
	if info, err := os.Stat(input); err == nil && info.IsDir() {
		pdfFiles = findAllPDFFilesInDirectory(input)
	}
	for _, pdfFile := range pdfFiles {
		dumpDocument(pdfFile, overlay, *dpi)
	}
}

func dumpDocument(pdfFile string, overlay pdfconvert.Size, dpi float64) {
	doc, err := pdfconvert.NewDocumentFromFile(pdfFile)
	if err != nil {
		fmt.Printf("%v: %v\n", pdfFile, err)
		return
	}
	defer doc.Close()
	scanned, err := doc.IsScanned()
	check(err)
	fmt.Printf("%v: %v pages, scanned: %v\n", filepath.Base(pdfFile), doc.NumPages(), scanned)

	page := docx.Letter()
	for i := 0; i < doc.NumPages(); i++ {
		r, err := doc.PageRect(i)
		check(err)
		plan := pdfconvert.PlanOverlay(r, overlay)
		// Pixel size of the page when rendered at dpi
		pixels := pdfconvert.Size{Width: r.Width() / 72 * dpi, Height: r.Height() / 72 * dpi}
		picture := pdfconvert.PictureSize(pixels, page)
		fmt.Printf("  %3d  %7.2f x %-7.2f  overlay %7.2f x %-7.2f at (%.2f, %.2f)  docx %.2f x %.2f in\n",
			i+1, r.Width(), r.Height(),
			plan.Size.Width, plan.Size.Height, plan.Offset.X, plan.Offset.Y,
			picture.Width, picture.Height)
	}
}

func findAllPDFFilesInDirectory(dir string) []string {
	var pdfFiles []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.ToLower(filepath.Ext(path)) == ".pdf" {
			pdfFiles = append(pdfFiles, path)
		}
		return nil
	})
	check(err)
	return pdfFiles
}
