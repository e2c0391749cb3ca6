package pdfconvert

import (
	"bytes"
	"image"
	"image/png"
	"os"

	// Decoders for the overlay image formats
	_ "image/gif"
	_ "image/jpeg"

	"github.com/bmharper/cimg/v2"
	"github.com/rotisserie/eris"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 95

// toCImage copies img into a new RGBA cimg.Image.
func toCImage(img image.Image) *cimg.Image {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	c := cimg.NewImage(b.Dx(), b.Dy(), cimg.PixelFormatRGBA)
	rowBytes := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		copy(c.Pixels[y*c.Stride:y*c.Stride+rowBytes], rgba.Pix[y*rgba.Stride:y*rgba.Stride+rowBytes])
	}
	return c
}

// fromCImage wraps the pixels of c without copying them.
func fromCImage(c *cimg.Image) image.Image {
	r := image.Rect(0, 0, c.Width, c.Height)
	switch c.Format {
	case cimg.PixelFormatRGBA:
		return &image.RGBA{Pix: c.Pixels, Stride: c.Stride, Rect: r}
	case cimg.PixelFormatGRAY:
		return &image.Gray{Pix: c.Pixels, Stride: c.Stride, Rect: r}
	case cimg.PixelFormatRGB:
		out := image.NewRGBA(r)
		for y := 0; y < c.Height; y++ {
			src := c.Pixels[y*c.Stride:]
			dst := out.Pix[y*out.Stride:]
			for x := 0; x < c.Width; x++ {
				dst[x*4+0] = src[x*3+0]
				dst[x*4+1] = src[x*3+1]
				dst[x*4+2] = src[x*3+2]
				dst[x*4+3] = 255
			}
		}
		return out
	}
	return fromCImage(c.ToGray())
}

// encodeJPEG compresses img with libjpeg-turbo, without chroma subsampling.
func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	raw, err := cimg.Compress(toCImage(img), cimg.MakeCompressParams(cimg.Sampling444, quality, 0))
	if err != nil {
		return nil, eris.Wrap(err, "compress jpeg")
	}
	return raw, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, eris.Wrap(err, "encode png")
	}
	return buf.Bytes(), nil
}

// loadImage decodes a PNG, JPEG, GIF, BMP, TIFF or WebP file.
func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open image %s", path)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, eris.Wrapf(err, "decode image %s", path)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, eris.Errorf("image %s is empty", path)
	}
	return img, nil
}

// resample scales img to w x h pixels with a Catmull-Rom filter. The source
// image is not modified.
func resample(img image.Image, w, h int) image.Image {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
