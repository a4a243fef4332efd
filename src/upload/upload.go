package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the anonymous tmpfiles.org upload API.
	DefaultEndpoint = "https://tmpfiles.org/api/v1/upload"
	// DefaultTimeout bounds the whole request, including reading the response.
	DefaultTimeout = 30 * time.Second

	formField       = "file"
	maxResponseSize = 1 << 20
	statusSuccess   = "success"
)

// ErrTimeout is wrapped by upload errors caused by the time bound.
var ErrTimeout = errors.New("upload timed out")

// Error is an upload failure: transport, HTTP status, response shape or host status.
type Error struct {
	Reason     string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil && !strings.Contains(e.Reason, e.Err.Error()) {
		return fmt.Sprintf("Upload error: %s: %v", e.Reason, e.Err)
	}
	return "Upload error: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// response covers both {status, data:{url}} and {status, error}.
type response struct {
	Status string          `json:"status"`
	Data   *responseData   `json:"data,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

type responseData struct {
	URL string `json:"url"`
}

// Client uploads files to an anonymous file host.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient returns a client for endpoint bounded by timeout. Zero values select the defaults.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{endpoint: endpoint, http: &http.Client{Timeout: timeout}}
}

// Endpoint returns the upload URL in use.
func (c *Client) Endpoint() string { return c.endpoint }

// Upload sends the file at path in a single multipart POST and returns the
// hosted file URL exactly as the host reported it.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	body, contentType, err := multipartBody(path)
	if err != nil {
		return "", &Error{Reason: "read file", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", &Error{Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", transportError(err)
	}
	log.Printf("upload: %s answered %d in %v (%d bytes)", c.endpoint, resp.StatusCode, time.Since(start).Round(time.Millisecond), len(raw))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{Reason: fmt.Sprintf("HTTP Error: %d", resp.StatusCode), StatusCode: resp.StatusCode}
	}

	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &Error{Reason: "invalid response", StatusCode: resp.StatusCode, Err: err}
	}
	if parsed.Status != statusSuccess {
		return "", &Error{Reason: "Upload failed: " + parsed.errorMessage(), StatusCode: resp.StatusCode}
	}
	if parsed.Data == nil || strings.TrimSpace(parsed.Data.URL) == "" {
		return "", &Error{Reason: "invalid response: missing data.url", StatusCode: resp.StatusCode}
	}
	hosted := strings.TrimSpace(parsed.Data.URL)
	if !hasFilePath(hosted) {
		return "", &Error{Reason: fmt.Sprintf("invalid response: data.url %q has no file path", hosted), StatusCode: resp.StatusCode}
	}
	return hosted, nil
}

// hasFilePath reports whether u is an absolute URL naming something below the host root.
func hasFilePath(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return false
	}
	return strings.Trim(parsed.Path, "/") != ""
}

// UploadAndNormalize uploads path and returns the canonical direct-access URL.
func (c *Client) UploadAndNormalize(ctx context.Context, path string) (string, error) {
	remote, err := c.Upload(ctx, path)
	if err != nil {
		return "", err
	}
	return Normalize(remote), nil
}

func (r response) errorMessage() string {
	if len(r.Error) == 0 || string(r.Error) == "null" {
		return "Unknown error"
	}
	var s string
	if err := json.Unmarshal(r.Error, &s); err == nil {
		if s == "" {
			return "Unknown error"
		}
		return s
	}
	return string(r.Error)
}

func multipartBody(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(formField, filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func transportError(err error) error {
	if isTimeout(err) {
		return &Error{Reason: "request exceeded time bound", Err: fmt.Errorf("%w: %v", ErrTimeout, err)}
	}
	return &Error{Reason: "request failed", Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
