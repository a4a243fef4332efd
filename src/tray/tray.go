package tray

import (
	"fmt"
	"log"
	"sync"

	"github.com/getlantern/systray"
)

// Config describes the tray icon and its menu callbacks.
type Config struct {
	Title     string
	Tooltip   string
	OnCapture func()
	OnReady   func()
	OnExit    func()
}

// Tray wraps the process-wide systray icon. Only one may run per process.
type Tray struct {
	cfg  Config
	icon []byte

	mu      sync.Mutex
	ready   bool
	stopped bool
	done    chan struct{}
}

// New prepares the tray without showing it.
func New(cfg Config) (*Tray, error) {
	icon, err := Icon()
	if err != nil {
		return nil, fmt.Errorf("build tray icon: %w", err)
	}
	if cfg.Title == "" {
		cfg.Title = "Circle Search"
	}
	return &Tray{cfg: cfg, icon: icon, done: make(chan struct{})}, nil
}

// Run shows the icon and blocks until Quit or the Exit menu item.
// It must be called from the main goroutine on platforms that require it.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the icon and makes Run return.
func (t *Tray) Quit() {
	t.mu.Lock()
	ready := t.ready && !t.stopped
	t.mu.Unlock()
	if ready {
		systray.Quit()
	}
}

// Done is closed after the tray has been torn down.
func (t *Tray) Done() <-chan struct{} { return t.done }

// SetTooltip updates the hover text once the icon is visible.
func (t *Tray) SetTooltip(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg.Tooltip = text
	if t.ready && !t.stopped {
		systray.SetTooltip(text)
	}
}

func (t *Tray) onReady() {
	systray.SetIcon(t.icon)
	systray.SetTitle(t.cfg.Title)

	t.mu.Lock()
	systray.SetTooltip(t.cfg.Tooltip)
	t.ready = true
	t.mu.Unlock()

	mCapture := systray.AddMenuItem("Take Screenshot", "Select a region and search it")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Exit", "Quit the application")

	go func() {
		for {
			select {
			case <-mCapture.ClickedCh:
				log.Printf("Tray: Take Screenshot clicked")
				if t.cfg.OnCapture != nil {
					t.cfg.OnCapture()
				}
			case <-mQuit.ClickedCh:
				log.Printf("Tray: Exit clicked")
				if t.cfg.OnExit != nil {
					t.cfg.OnExit()
				}
				systray.Quit()
				return
			case <-t.done:
				return
			}
		}
	}()

	if t.cfg.OnReady != nil {
		t.cfg.OnReady()
	}
}

func (t *Tray) onExit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.done)
	log.Printf("Tray stopped")
}
