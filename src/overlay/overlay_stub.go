//go:build !windows

package overlay

import (
	"context"

	"circle-search/src/selection"
)

type stubSurface struct{}

func newPlatformSurface() selection.Surface { return stubSurface{} }

func (stubSurface) Open(ctx context.Context, hint string) (<-chan selection.Event, error) {
	return nil, ErrUnsupported
}

func (stubSurface) Render(selection.Effect) {}

func (stubSurface) Close() error { return nil }
