package notification

import (
	"log"
)

const maxMessageLength = 300

// ShowError tells the user a session failed. It never blocks the caller.
func ShowError(title, message string) {
	message = truncate(message)
	log.Printf("Notification: %s: %s", title, message)
	go func() {
		if err := showMessageBox(title, message, iconError); err != nil {
			log.Printf("Failed to show notification: %v", err)
		}
	}()
}

// ShowBlockingError shows a modal error and returns once the user dismissed it.
// Used for startup failures before the tray exists.
func ShowBlockingError(title, message string) {
	if err := showMessageBox(title, truncate(message), iconError); err != nil {
		log.Printf("%s: %s", title, message)
	}
}

func truncate(text string) string {
	if len(text) > maxMessageLength {
		return text[:maxMessageLength] + "..."
	}
	return text
}
