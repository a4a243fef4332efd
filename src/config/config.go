package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

const (
	DefaultHotkey          = "Home"
	DefaultUploadEndpoint  = "https://tmpfiles.org/api/v1/upload"
	DefaultUploadTimeout   = 30
	DefaultSearchHost      = "lens.google.com"
	EnvFileEnvVar          = "CIRCLE_SEARCH_ENV"
	defaultFileLoggingFlag = "true"
)

type LoadOptions struct {
	HotkeyOverride         string
	ScreenshotsDirOverride string
}

type Config struct {
	Hotkey              string
	EnableFileLogging   bool
	UploadEndpoint      string
	UploadTimeoutSec    int
	SearchHost          string
	ScreenshotsDir      string
	CopyLinkToClipboard bool
	NotifyErrors        bool
	EnvPath             string
}

// UploadTimeout is the upload bound as a duration.
func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeoutSec) * time.Second
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) LoadOptions (command line)
	// 2) process environment
	// 3) .env beside the executable, or the file named by CIRCLE_SEARCH_ENV
	envPath := resolveEnvPath()
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("read %s: %w", envPath, err)
		}
	}

	uploadTimeout := DefaultUploadTimeout
	if v := strings.TrimSpace(os.Getenv("UPLOAD_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			uploadTimeout = n
		}
	}

	cfg := &Config{
		Hotkey:              firstNonEmpty(opts.HotkeyOverride, os.Getenv("HOTKEY"), DefaultHotkey),
		EnableFileLogging:   envBool("ENABLE_FILE_LOGGING", defaultFileLoggingFlag),
		UploadEndpoint:      getEnvWithDefault("UPLOAD_ENDPOINT", DefaultUploadEndpoint),
		UploadTimeoutSec:    uploadTimeout,
		SearchHost:          getEnvWithDefault("SEARCH_HOST", DefaultSearchHost),
		ScreenshotsDir:      firstNonEmpty(opts.ScreenshotsDirOverride, os.Getenv("SCREENSHOTS_DIR")),
		CopyLinkToClipboard: envBool("COPY_LINK_TO_CLIPBOARD", "false"),
		NotifyErrors:        envBool("NOTIFY_ERRORS", "false"),
		EnvPath:             envPath,
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	if strings.TrimSpace(c.Hotkey) == "" {
		result = multierror.Append(result, fmt.Errorf("HOTKEY must not be empty"))
	}
	if !strings.HasPrefix(c.UploadEndpoint, "http://") && !strings.HasPrefix(c.UploadEndpoint, "https://") {
		result = multierror.Append(result, fmt.Errorf("UPLOAD_ENDPOINT %q is not an http(s) URL", c.UploadEndpoint))
	}
	if c.UploadTimeoutSec <= 0 {
		result = multierror.Append(result, fmt.Errorf("UPLOAD_TIMEOUT_SEC must be positive, got %d", c.UploadTimeoutSec))
	}
	if strings.ContainsAny(strings.TrimPrefix(c.SearchHost, "https://"), " ?#") || strings.TrimSpace(c.SearchHost) == "" {
		result = multierror.Append(result, fmt.Errorf("SEARCH_HOST %q is not a host name", c.SearchHost))
	}
	return result.ErrorOrNil()
}

func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func envBool(key, defaultValue string) bool {
	v := strings.ToLower(strings.TrimSpace(getEnvWithDefault(key, defaultValue)))
	return v == "true" || v == "1" || v == "yes"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
