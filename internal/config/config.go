// Package config loads pdfconvert settings from a YAML file and the
// environment.
package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfig    = "PDFCONVERT_CONFIG"
	EnvTesseract = "PDFCONVERT_TESSERACT"
	EnvPdftoppm  = "PDFCONVERT_PDFTOPPM"
	EnvLang      = "PDFCONVERT_LANG"
)

// OCR engines
const (
	EngineCLI     = "cli"     // tesseract executable
	EngineLibrary = "library" // libtesseract through gosseract
)

// Rasterizers
const (
	RasterizerMuPDF    = "mupdf"
	RasterizerPdftoppm = "pdftoppm"
)

// DPI holds the render resolution of each conversion. Zero means the
// conversion's own default.
type DPI struct {
	Overlay float64 `yaml:"overlay"`
	Export  float64 `yaml:"export"`
	Images  float64 `yaml:"images"`
	OCR     float64 `yaml:"ocr"`
}

// Page is the DOCX output page, in inches.
type Page struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Margin float64 `yaml:"margin"`
}

type Straighten struct {
	Deskew   bool    `yaml:"deskew"`
	Upright  bool    `yaml:"upright"`
	MaxAngle float64 `yaml:"max_angle"`
}

type Config struct {
	Tesseract      string     `yaml:"tesseract"` // Path to the executable, empty to search PATH
	Pdftoppm       string     `yaml:"pdftoppm"`
	TessdataPrefix string     `yaml:"tessdata_prefix"`
	Languages      []string   `yaml:"languages"`
	Engine         string     `yaml:"engine"`
	Rasterizer     string     `yaml:"rasterizer"`
	JPEGQuality    int        `yaml:"jpeg_quality"`
	DPI            DPI        `yaml:"dpi"`
	Page           Page       `yaml:"page"`
	Straighten     Straighten `yaml:"straighten"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Languages:   []string{"eng"},
		Engine:      EngineCLI,
		Rasterizer:  RasterizerMuPDF,
		JPEGQuality: 95,
		DPI: DPI{
			Overlay: 150,
			Export:  200,
			Images:  72,
			OCR:     300,
		},
		Page: Page{
			Width:  8.5,
			Height: 11,
			Margin: 0.5,
		},
		Straighten: Straighten{
			MaxAngle: 5,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path (or
// $PDFCONVERT_CONFIG when path is empty), then the environment. getenv is
// usually os.Getenv.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = getenv(EnvConfig)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, eris.Wrapf(err, "parse config %s", path)
		}
	}

	if v := getenv(EnvTesseract); v != "" {
		cfg.Tesseract = v
	}
	if v := getenv(EnvPdftoppm); v != "" {
		cfg.Pdftoppm = v
	}
	if v := getenv(EnvLang); v != "" {
		cfg.Languages = ParseLanguages(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseLanguages splits a tesseract style language list ("eng+deu", or
// comma separated).
func ParseLanguages(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' || r == ' ' })
}

func (c *Config) Validate() error {
	switch c.Engine {
	case EngineCLI, EngineLibrary:
	default:
		return eris.Errorf("unknown OCR engine %q (expected %q or %q)", c.Engine, EngineCLI, EngineLibrary)
	}
	switch c.Rasterizer {
	case RasterizerMuPDF, RasterizerPdftoppm:
	default:
		return eris.Errorf("unknown rasterizer %q (expected %q or %q)", c.Rasterizer, RasterizerMuPDF, RasterizerPdftoppm)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return eris.Errorf("jpeg_quality %d is outside 1..100", c.JPEGQuality)
	}
	for name, dpi := range map[string]float64{"overlay": c.DPI.Overlay, "export": c.DPI.Export, "images": c.DPI.Images, "ocr": c.DPI.OCR} {
		if dpi < 0 {
			return eris.Errorf("dpi.%s must not be negative", name)
		}
	}
	p := c.Page
	if p.Width <= 0 || p.Height <= 0 || p.Margin < 0 || 2*p.Margin >= p.Width || 2*p.Margin >= p.Height {
		return eris.Errorf("page %vx%v with margin %v leaves no room for content", p.Width, p.Height, p.Margin)
	}
	if c.Straighten.MaxAngle <= 0 || c.Straighten.MaxAngle > 45 {
		return eris.Errorf("straighten.max_angle %v is outside (0, 45]", c.Straighten.MaxAngle)
	}
	return nil
}
