package opener

import (
	"fmt"
	"log"
	"net/url"
)

// Open hands a URL to the user's default handler.
func Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("refusing to open malformed URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("refusing to open URL with scheme %q", u.Scheme)
	}
	log.Printf("opener: opening %s", u.Host+u.Path)
	return openURL(rawURL)
}
