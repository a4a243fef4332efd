package screenshot

import (
	"fmt"
	"image"

	"circle-search/src/geometry"

	"github.com/kbinani/screenshot"
)

// Image is a captured raster. Pixels is anchored at (0,0).
type Image struct {
	Pixels *image.RGBA
	Width  int
	Height int
}

// CaptureError reports that the screen could not be read for a rectangle.
type CaptureError struct {
	Rect   geometry.Rectangle
	Reason string
	Err    error
}

func (e *CaptureError) Error() string {
	msg := fmt.Sprintf("capture %dx%d at (%d,%d): %s", e.Rect.Width, e.Rect.Height, e.Rect.Left, e.Rect.Top, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Backend is the platform screen reader.
type Backend interface {
	NumActiveDisplays() int
	GetDisplayBounds(displayIndex int) image.Rectangle
	CaptureRect(rect image.Rectangle) (*image.RGBA, error)
}

type kbinaniBackend struct{}

func (kbinaniBackend) NumActiveDisplays() int { return screenshot.NumActiveDisplays() }

func (kbinaniBackend) GetDisplayBounds(i int) image.Rectangle { return screenshot.GetDisplayBounds(i) }

func (kbinaniBackend) CaptureRect(r image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(r)
}

// Capturer reads screen pixels through a Backend.
type Capturer struct {
	backend Backend
}

// New returns a Capturer using the native screenshot backend.
func New() *Capturer { return &Capturer{backend: kbinaniBackend{}} }

// NewWithBackend is used by tests and alternative platforms.
func NewWithBackend(b Backend) *Capturer { return &Capturer{backend: b} }

var defaultCapturer = New()

// Capture reads the live screen inside r using the native backend.
func Capture(r geometry.Rectangle) (*Image, error) { return defaultCapturer.Capture(r) }

// DisplayBounds returns the union of all active displays using the native backend.
func DisplayBounds() (image.Rectangle, error) { return defaultCapturer.DisplayBounds() }

// DisplayBounds returns the union of all active display bounds.
func (c *Capturer) DisplayBounds() (image.Rectangle, error) {
	n := c.backend.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	union := c.backend.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(c.backend.GetDisplayBounds(i))
	}
	return union, nil
}

// Capture reads the pixels of r. The rectangle has to lie completely inside
// the virtual screen formed by the active displays.
func (c *Capturer) Capture(r geometry.Rectangle) (*Image, error) {
	if r.Empty() {
		return nil, &CaptureError{Rect: r, Reason: "empty rectangle"}
	}

	union, err := c.DisplayBounds()
	if err != nil {
		return nil, &CaptureError{Rect: r, Reason: "no display surface", Err: err}
	}
	bounds := r.Bounds()
	if !bounds.In(union) {
		return nil, &CaptureError{Rect: r, Reason: fmt.Sprintf("outside display surface %v", union)}
	}

	img, err := c.backend.CaptureRect(bounds)
	if err != nil {
		return nil, &CaptureError{Rect: r, Reason: "backend refused capture", Err: err}
	}
	if img == nil {
		return nil, &CaptureError{Rect: r, Reason: "backend returned no image"}
	}
	if img.Bounds().Min != (image.Point{}) {
		img = rebase(img)
	}

	return &Image{Pixels: img, Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}, nil
}

// CaptureVirtualScreen captures the whole area covered by the active displays.
func (c *Capturer) CaptureVirtualScreen() (*Image, error) {
	union, err := c.DisplayBounds()
	if err != nil {
		return nil, &CaptureError{Reason: "no display surface", Err: err}
	}
	return c.Capture(geometry.Rectangle{
		Left:   union.Min.X,
		Top:    union.Min.Y,
		Width:  union.Dx(),
		Height: union.Dy(),
	})
}

func rebase(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*4], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return dst
}
