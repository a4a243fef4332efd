package upload

import (
	"regexp"
	"strings"
)

var (
	idNamePath = regexp.MustCompile(`^(https://[^/]+)/(\d+/[^/]+)$`)
	anyPath    = regexp.MustCompile(`^(https://[^/]+)/(.+)$`)
)

// Normalize rewrites a hosted file URL into its direct-download form:
// https scheme and a /dl/ segment right after the host. It is idempotent.
// URLs without a path (https://host or https://host/) have no file to point
// at and are only scheme-upgraded; Upload rejects such responses, so this
// case never reaches a search link.
func Normalize(url string) string {
	if strings.HasPrefix(url, "http://") {
		url = "https://" + strings.TrimPrefix(url, "http://")
	}

	if strings.Contains(url, "/dl/") {
		return url
	}

	if m := idNamePath.FindStringSubmatch(url); m != nil {
		return m[1] + "/dl/" + m[2]
	}

	// Best effort for shapes other than /<id>/<name>.
	if m := anyPath.FindStringSubmatch(url); m != nil {
		return m[1] + "/dl/" + m[2]
	}

	return url
}
