package runtimeinit

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"circle-search/src/clipboard"
	"circle-search/src/config"
	"circle-search/src/logutil"
	"circle-search/src/notification"
	"circle-search/src/screenshot"
)

type Options struct {
	LoadOptions config.LoadOptions
	// SetupLogging replaces logutil.Setup; tests pass a no-op.
	SetupLogging func(enableFile bool)
	// CheckDisplay replaces the display check.
	CheckDisplay func() error
	// InitClipboard replaces clipboard.Init.
	InitClipboard func() error
	// ShowBlockingError shows startup failures in a modal dialog.
	ShowBlockingError bool
}

// Bootstrap prepares the process before any trigger source starts: configuration,
// logging, a display check and the clipboard when links are copied.
func Bootstrap(opts Options) (*config.Config, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	setupLogging := opts.SetupLogging
	if setupLogging == nil {
		setupLogging = func(enable bool) { logutil.Setup(enable, logDir()) }
	}
	setupLogging(cfg.EnableFileLogging)
	if cfg.EnvPath != "" {
		log.Printf("Configuration loaded from %s", cfg.EnvPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, startupError(opts, "Invalid configuration", err)
	}

	check := opts.CheckDisplay
	if check == nil {
		check = checkDisplay
	}
	if err := check(); err != nil {
		return nil, startupError(opts, "No display available", err)
	}

	if cfg.CopyLinkToClipboard {
		initClipboard := opts.InitClipboard
		if initClipboard == nil {
			initClipboard = clipboard.Init
		}
		if err := initClipboard(); err != nil {
			// The link is still opened; only the copy is lost.
			log.Printf("Clipboard unavailable, links will not be copied: %v", err)
			cfg.CopyLinkToClipboard = false
		}
	}

	log.Printf("Hotkey: %s", cfg.Hotkey)
	log.Printf("Upload endpoint: %s (timeout %ds)", cfg.UploadEndpoint, cfg.UploadTimeoutSec)
	log.Printf("Search host: %s", cfg.SearchHost)
	return cfg, nil
}

func startupError(opts Options, title string, err error) error {
	if opts.ShowBlockingError {
		notification.ShowBlockingError(title, err.Error())
	}
	return fmt.Errorf("%s: %w", title, err)
}

func checkDisplay() error {
	bounds, err := screenshot.DisplayBounds()
	if err != nil {
		return err
	}
	log.Printf("Display surface: %v", bounds)
	return nil
}

func logDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(execPath)
}
