//go:build !windows

package main

import "image"

func enableDPIAwareness() {}

func virtualScreen() (image.Rectangle, int, bool) { return image.Rectangle{}, 0, false }
