package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempPNG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "circle_search_20250101_120000.png")
	data := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 1, 2, 3}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestUploadSuccess(t *testing.T) {
	path := writeTempPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing multipart file: %v", err)
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		defer f.Close()
		if hdr.Filename != filepath.Base(path) {
			t.Errorf("filename = %q", hdr.Filename)
		}
		b, _ := io.ReadAll(f)
		if len(b) != 11 {
			t.Errorf("uploaded %d bytes, want 11", len(b))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"success","data":{"url":"http://tmpfiles.org/123/file.png"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	got, err := c.Upload(context.Background(), path)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got != "http://tmpfiles.org/123/file.png" {
		t.Errorf("Upload = %q", got)
	}

	norm, err := c.UploadAndNormalize(context.Background(), path)
	if err != nil {
		t.Fatalf("UploadAndNormalize: %v", err)
	}
	if norm != "https://tmpfiles.org/dl/123/file.png" {
		t.Errorf("UploadAndNormalize = %q", norm)
	}
}

func TestUploadFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason string
	}{
		{"http error", http.StatusInternalServerError, `oops`, "HTTP Error: 500"},
		{"not json", http.StatusOK, `<html>maintenance</html>`, "invalid response"},
		{"status failed with message", http.StatusOK, `{"status":"error","error":"file too large"}`, "Upload failed: file too large"},
		{"status failed without message", http.StatusOK, `{"status":"error"}`, "Upload failed: Unknown error"},
		{"structured error", http.StatusOK, `{"status":"error","error":{"code":7}}`, `Upload failed: {"code":7}`},
		{"missing url", http.StatusOK, `{"status":"success","data":{}}`, "missing data.url"},
		{"url without path", http.StatusOK, `{"status":"success","data":{"url":"https://tmpfiles.org/"}}`, "has no file path"},
		{"url without host", http.StatusOK, `{"status":"success","data":{"url":"/123/file.png"}}`, "has no file path"},
	}

	path := writeTempPNG(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, 5*time.Second).Upload(context.Background(), path)
			var ue *Error
			if !errors.As(err, &ue) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if !strings.Contains(ue.Error(), tt.wantReason) {
				t.Errorf("error %q does not mention %q", ue.Error(), tt.wantReason)
			}
			if errors.Is(err, ErrTimeout) {
				t.Error("non-timeout failure reported as timeout")
			}
		})
	}
}

func TestUploadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewClient(srv.URL, 100*time.Millisecond).Upload(context.Background(), writeTempPNG(t))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	var ue *Error
	if !errors.As(err, &ue) {
		t.Errorf("timeout should still be an *Error, got %T", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("timeout bound not honoured: %v", time.Since(start))
	}
}

func TestUploadMissingFile(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1", time.Second).Upload(context.Background(), filepath.Join(t.TempDir(), "nope.png"))
	var ue *Error
	if !errors.As(err, &ue) {
		t.Fatalf("expected *Error, got %v", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("", 0)
	if c.Endpoint() != DefaultEndpoint {
		t.Errorf("endpoint = %q", c.Endpoint())
	}
	if c.http.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", c.http.Timeout, DefaultTimeout)
	}
}
