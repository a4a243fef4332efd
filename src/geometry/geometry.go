package geometry

import "image"

// MinSpan is the exclusive lower bound on both sides of a usable selection.
const MinSpan = 10

// Point is a screen-space pixel coordinate.
type Point struct {
	X int
	Y int
}

// Rectangle is a normalized screen region. Left/Top is always the top-left corner
// and Width/Height are never negative.
type Rectangle struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// FromCorners builds the rectangle spanned by two arbitrary corner points.
// The result does not depend on the drag direction.
func FromCorners(p0, p1 Point) Rectangle {
	return Rectangle{
		Left:   minInt(p0.X, p1.X),
		Top:    minInt(p0.Y, p1.Y),
		Width:  absInt(p1.X - p0.X),
		Height: absInt(p1.Y - p0.Y),
	}
}

// Valid reports whether r is large enough to be captured.
func Valid(r Rectangle) bool { return r.Valid() }

func (r Rectangle) Valid() bool {
	return r.Width > MinSpan && r.Height > MinSpan
}

func (r Rectangle) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Offset returns r shifted by (dx, dy).
func (r Rectangle) Offset(dx, dy int) Rectangle {
	r.Left += dx
	r.Top += dy
	return r
}

// Bounds converts r to an image.Rectangle (Max is exclusive).
func (r Rectangle) Bounds() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
