//go:build !windows

package tray

func wrapIcon(png []byte) []byte { return png }
