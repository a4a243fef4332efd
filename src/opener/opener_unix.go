//go:build !windows

package opener

import (
	"fmt"
	"os/exec"
	"runtime"
)

func command(goos string) string {
	if goos == "darwin" {
		return "open"
	}
	return "xdg-open"
}

func openURL(rawURL string) error {
	name := command(runtime.GOOS)
	cmd := exec.Command(name, rawURL)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	// Reap the helper without blocking the session.
	go func() { _ = cmd.Wait() }()
	return nil
}
