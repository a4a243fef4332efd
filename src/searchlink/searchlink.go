package searchlink

import (
	"net/url"
	"strings"
)

// DefaultHost is the Google Lens endpoint accepting ?url= image lookups.
const DefaultHost = "lens.google.com"

// Builder fills the uploadbyurl template for a search host.
type Builder struct {
	Host string
}

// Build returns https://<host>/uploadbyurl?url=<escaped u>.
func (b Builder) Build(u string) string {
	host := strings.TrimSpace(b.Host)
	if host == "" {
		host = DefaultHost
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "https://"), "/")
	return "https://" + host + "/uploadbyurl?url=" + Escape(u)
}

// Build uses DefaultHost.
func Build(u string) string { return Builder{}.Build(u) }

// Escape percent-encodes every byte except the RFC 3986 unreserved set,
// so ':', '/', '&', '?' and spaces are all escaped.
func Escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
