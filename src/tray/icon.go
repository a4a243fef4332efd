package tray

import (
	"bytes"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
)

const iconSize = 32

var (
	iconOnce  sync.Once
	iconBytes []byte
	iconErr   error
)

// Icon returns the tray icon in the encoding the platform tray expects.
func Icon() ([]byte, error) {
	iconOnce.Do(func() {
		var png []byte
		png, iconErr = iconPNG()
		if iconErr != nil {
			return
		}
		iconBytes = wrapIcon(png)
	})
	return iconBytes, iconErr
}

// iconPNG draws a magnifier ring on a transparent background.
func iconPNG() ([]byte, error) {
	img := drawIcon(iconSize)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawIcon(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	blue := color.NRGBA{R: 0x1a, G: 0x73, B: 0xe8, A: 0xff}

	cx, cy := float64(size)*0.42, float64(size)*0.42
	outer, inner := float64(size)*0.36, float64(size)*0.24
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			d2 := dx*dx + dy*dy
			if d2 <= outer*outer && d2 >= inner*inner {
				img.SetNRGBA(x, y, blue)
			}
		}
	}
	// Handle from the ring towards the bottom-right corner.
	for i := int(float64(size) * 0.66); i < size-2; i++ {
		for w := -2; w <= 1; w++ {
			if j := i + w; j >= 0 && j < size {
				img.SetNRGBA(i, j, blue)
			}
		}
	}
	return img
}
