//go:build !windows

package notification

import "log"

const iconError = 0

// showMessageBox logs on platforms without a native dialog.
func showMessageBox(title, message string, icon uint32) error {
	log.Printf("%s: %s", title, message)
	return nil
}
