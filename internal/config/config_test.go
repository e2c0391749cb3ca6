package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("", env(nil))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine != EngineCLI || cfg.Rasterizer != RasterizerMuPDF {
		t.Errorf("engine %v, rasterizer %v", cfg.Engine, cfg.Rasterizer)
	}
	if cfg.DPI.OCR != 300 || cfg.DPI.Images != 72 || cfg.DPI.Export != 200 {
		t.Errorf("dpi %+v", cfg.DPI)
	}
	if len(cfg.Languages) != 1 || cfg.Languages[0] != "eng" {
		t.Errorf("languages %v", cfg.Languages)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfconvert.yml")
	yml := `
tesseract: /opt/tesseract/bin/tesseract
engine: library
jpeg_quality: 80
dpi:
  ocr: 400
page:
  width: 8.27
  height: 11.69
  margin: 0.75
straighten:
  deskew: true
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("", env(map[string]string{
		EnvConfig:    path,
		EnvTesseract: "/usr/local/bin/tesseract",
		EnvLang:      "eng+deu",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tesseract != "/usr/local/bin/tesseract" {
		t.Errorf("environment did not override the file: %v", cfg.Tesseract)
	}
	if cfg.Engine != EngineLibrary || cfg.JPEGQuality != 80 || cfg.DPI.OCR != 400 {
		t.Errorf("file values lost: %+v", cfg)
	}
	// Keys missing from the file keep their defaults
	if cfg.DPI.Export != 200 || cfg.Straighten.MaxAngle != 5 || !cfg.Straighten.Deskew {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Page.Margin != 0.75 {
		t.Errorf("page %+v", cfg.Page)
	}
	if strings.Join(cfg.Languages, "+") != "eng+deu" {
		t.Errorf("languages %v", cfg.Languages)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.yml"), env(nil)); err == nil {
		t.Errorf("expected error for a missing file")
	}
	cases := map[string]string{
		"bad yaml":   "engine: [",
		"engine":     "engine: cloud",
		"rasterizer": "rasterizer: ghostscript",
		"quality":    "jpeg_quality: 101",
		"dpi":        "dpi:\n  ocr: -1",
		"margin":     "page:\n  margin: 5",
	}
	for name, yml := range cases {
		path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".yml")
		if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path, env(nil)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestParseLanguages(t *testing.T) {
	for in, want := range map[string]string{
		"eng":           "eng",
		"eng+deu":       "eng+deu",
		"eng, fra,,deu": "eng+fra+deu",
		"":              "",
	} {
		if got := strings.Join(ParseLanguages(in), "+"); got != want {
			t.Errorf("ParseLanguages(%q) = %q, want %q", in, got, want)
		}
	}
}
