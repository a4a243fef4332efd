package overlay

import (
	"context"
	"errors"

	"circle-search/src/geometry"
	"circle-search/src/selection"
)

// ErrUnsupported is returned on platforms without a native overlay.
var ErrUnsupported = errors.New("interactive region selection not implemented for this platform")

// Selector defines a synchronous region-selection API owned by the event loop.
// The call is blocking and MUST be invoked only from the single event-loop goroutine.
// Returns (rect, cancelled, error). If cancelled is true, rect is undefined and err is nil.
type Selector interface {
	Select(ctx context.Context) (geometry.Rectangle, bool, error)
}

// SurfaceFactory creates a fresh surface for every selection session.
type SurfaceFactory func() selection.Surface

type surfaceSelector struct {
	newSurface SurfaceFactory
}

// NewSelector returns the selector backed by the platform overlay.
func NewSelector() Selector {
	return NewSelectorWithSurface(newPlatformSurface)
}

// NewSelectorWithSurface runs selection sessions on surfaces built by factory.
func NewSelectorWithSurface(factory SurfaceFactory) Selector {
	return &surfaceSelector{newSurface: factory}
}

func (s *surfaceSelector) Select(ctx context.Context) (geometry.Rectangle, bool, error) {
	out, err := selection.Select(ctx, s.newSurface())
	if err != nil {
		return geometry.Rectangle{}, false, err
	}
	if !out.Selected {
		return geometry.Rectangle{}, true, nil
	}
	return out.Rect, false, nil
}
