//go:build windows

package main

import (
	"image"
	"log"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

const processPerMonitorDPIAware = 2

var procSetProcessDpiAwareness = windows.NewLazySystemDLL("shcore.dll").NewProc("SetProcessDpiAwareness")

// enableDPIAwareness makes overlay, capture and cursor coordinates all physical
// pixels. Per-monitor awareness needs Windows 8.1; older systems get system awareness.
func enableDPIAwareness() {
	if err := procSetProcessDpiAwareness.Find(); err == nil {
		hr, _, _ := procSetProcessDpiAwareness.Call(processPerMonitorDPIAware)
		if hr == 0 {
			log.Printf("DPI: per-monitor awareness enabled")
			return
		}
		log.Printf("DPI: SetProcessDpiAwareness failed, HRESULT 0x%08x", uint32(hr))
	}
	if win.SetProcessDPIAware() {
		log.Printf("DPI: system awareness enabled")
		return
	}
	log.Printf("DPI: no awareness set, selections may be offset on scaled displays")
}

// virtualScreen is the rectangle the overlay window covers.
func virtualScreen() (image.Rectangle, int, bool) {
	x := int(win.GetSystemMetrics(win.SM_XVIRTUALSCREEN))
	y := int(win.GetSystemMetrics(win.SM_YVIRTUALSCREEN))
	w := int(win.GetSystemMetrics(win.SM_CXVIRTUALSCREEN))
	h := int(win.GetSystemMetrics(win.SM_CYVIRTUALSCREEN))
	monitors := int(win.GetSystemMetrics(win.SM_CMONITORS))
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, monitors, false
	}
	return image.Rect(x, y, x+w, y+h), monitors, true
}
