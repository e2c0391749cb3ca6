package pdfconvert

import (
	"image"
	"math"

	"github.com/bmharper/cimg/v2"
	"github.com/bmharper/docangle"
	"github.com/bmharper/textorient"
	"github.com/rotisserie/eris"
)

// Straightener prepares scanned pages for OCR. Deskew removes small rotations
// left by the scanner, Upright turns pages that are on their side or upside
// down.
type Straightener struct {
	Deskew   bool
	Upright  bool
	MaxAngle float64 // We only scan between -MaxAngle and +MaxAngle degrees
	orient   *textorient.Orient
}

// NewStraightener loads the orientation model when upright is requested.
func NewStraightener(deskew, upright bool, maxAngle float64) (*Straightener, error) {
	s := &Straightener{Deskew: deskew, Upright: upright, MaxAngle: maxAngle}
	if upright {
		orient, err := textorient.NewOrient()
		if err != nil {
			return nil, eris.Wrap(err, "load text orientation model")
		}
		s.orient = orient
	}
	return s, nil
}

// Enabled is false when Straighten would return its input unchanged.
func (s *Straightener) Enabled() bool {
	return s != nil && (s.Deskew || s.Upright)
}

// Straighten returns the corrected page and the skew angle (in degrees) that
// was removed.
func (s *Straightener) Straighten(page image.Image) (image.Image, float64, error) {
	if !s.Enabled() {
		return page, 0, nil
	}
	img := toCImage(page)
	fixed := img
	angle := 0.0
	if s.Deskew {
		angle = getImageAngle(img, s.MaxAngle, false)
		if angle != 0 {
			fixed = rotateImage(img, -angle)
		}
	}
	if s.Upright {
		upright, err := s.orient.MakeUpright(fixed)
		if err != nil {
			return nil, 0, eris.Wrap(err, "make page upright")
		}
		fixed = upright
	}
	if fixed == img {
		// There was no transformation at all, so just return the original
		return page, 0, nil
	}
	return fromCImage(fixed), angle, nil
}

func rotateImage(img *cimg.Image, angle float64) *cimg.Image {
	const cropLimitDegrees = 5
	var newWidth int
	var newHeight int
	if math.Abs(angle) <= cropLimitDegrees {
		// If the angle is small, then just clip, because there's usually padding implicitly added by the rotated scan
		newWidth = img.Width
		newHeight = img.Height
	} else if math.Abs(angle-90) <= cropLimitDegrees || math.Abs(angle+90) <= cropLimitDegrees {
		// Same as above, but for landscape scans
		newWidth = img.Height
		newHeight = img.Width
	} else {
		cosA := math.Abs(math.Cos(angle * math.Pi / 180))
		sinA := math.Abs(math.Sin(angle * math.Pi / 180))
		newWidth = int(float64(img.Width)*cosA + float64(img.Height)*sinA)
		newHeight = int(float64(img.Width)*sinA + float64(img.Height)*cosA)
	}

	fixed := cimg.NewImage(newWidth, newHeight, img.Format)
	cimg.Rotate(img, fixed, angle*math.Pi/180, nil)
	return fixed
}

func getImageAngle(img *cimg.Image, maxAngle float64, include90Degrees bool) float64 {
	params := docangle.NewWhiteLinesParams()
	params.Include90Degrees = include90Degrees
	params.MinDeltaDegrees = -maxAngle
	params.MaxDeltaDegrees = maxAngle
	_, angle := docangle.GetAngleWhiteLines(makeDocAngleImage(img), params)
	return angle
}

func makeDocAngleImage(img *cimg.Image) *docangle.Image {
	img = img.ToGray()
	return &docangle.Image{
		Pixels: img.Pixels,
		Width:  img.Width,
		Height: img.Height,
	}
}
