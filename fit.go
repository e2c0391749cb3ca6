package pdfconvert

// Size is a width and height in any unit (points, inches or pixels).
type Size struct {
	Width  float64
	Height float64
}

// Aspect is Width / Height.
func (s Size) Aspect() float64 {
	return s.Width / s.Height
}

// Point is an offset from the top-left corner of a page.
type Point struct {
	X float64
	Y float64
}

// Rect is a page rectangle in points (1/72 inch).
type Rect struct {
	Min Point
	Max Point
}

func (r Rect) Width() float64  { return r.Max.X - r.Min.X }
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }
func (r Rect) Size() Size      { return Size{Width: r.Width(), Height: r.Height()} }

// FitInside scales img so that it lies entirely within bounds, keeps its
// aspect ratio, and touches at least one pair of bounds edges.
func FitInside(bounds, img Size) Size {
	if img.Aspect() > bounds.Aspect() {
		return Size{Width: bounds.Width, Height: bounds.Width / img.Aspect()}
	}
	return Size{Width: bounds.Height * img.Aspect(), Height: bounds.Height}
}

// FitWithin is the document page rule: landscape images start from the
// maximum width, portrait images from the maximum height, and the result is
// then clamped against each bound in turn.
func FitWithin(img, bounds Size) Size {
	aspect := img.Aspect()
	var s Size
	if aspect > 1 {
		s.Width = bounds.Width
		s.Height = s.Width / aspect
	} else {
		s.Height = bounds.Height
		s.Width = s.Height * aspect
	}
	if s.Width > bounds.Width {
		s.Width = bounds.Width
		s.Height = s.Width / aspect
	}
	if s.Height > bounds.Height {
		s.Height = bounds.Height
		s.Width = s.Height * aspect
	}
	return s
}

// Center returns the offset that centers inner within outer.
func Center(outer, inner Size) Point {
	return Point{
		X: (outer.Width - inner.Width) / 2,
		Y: (outer.Height - inner.Height) / 2,
	}
}
