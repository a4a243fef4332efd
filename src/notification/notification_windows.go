//go:build windows

package notification

import (
	"golang.org/x/sys/windows"
)

const (
	iconError = windows.MB_ICONERROR
	mbFlags   = windows.MB_OK | windows.MB_SETFOREGROUND | windows.MB_TOPMOST
)

func showMessageBox(title, message string, icon uint32) error {
	titlePtr, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return err
	}
	messagePtr, err := windows.UTF16PtrFromString(message)
	if err != nil {
		return err
	}
	_, err = windows.MessageBox(0, messagePtr, titlePtr, mbFlags|icon)
	return err
}
