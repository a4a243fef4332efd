package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"circle-search/src/config"
	"circle-search/src/eventloop"
	"circle-search/src/geometry"
	"circle-search/src/hotkey"
	"circle-search/src/notification"
	"circle-search/src/overlay"
	"circle-search/src/searchlink"
	"circle-search/src/session"
	"circle-search/src/singleinstance"
	"circle-search/src/storage"
	"circle-search/src/tray"
	"circle-search/src/upload"

	"github.com/hashicorp/go-multierror"
)

type trayIcon interface {
	Run()
	Quit()
	SetTooltip(text string)
}

type hotkeyListener interface {
	Start(callback func()) error
	Stop()
}

// deps are the process-wide collaborators; tests replace them.
type deps struct {
	newTray   func(tray.Config) (trayIcon, error)
	newHotkey func(combo string) (hotkeyListener, error)
	selector  overlay.Selector
	server    singleinstance.Server
	open      func(string) error
}

func defaultDeps() deps {
	return deps{
		newTray: func(c tray.Config) (trayIcon, error) { return tray.New(c) },
		newHotkey: func(combo string) (hotkeyListener, error) {
			return hotkey.New(combo)
		},
		selector: overlay.NewSelector(),
		server:   singleinstance.NewServer(),
	}
}

// App is the resident application: tray icon, hotkey listener and event loop,
// with one explicit lifetime from New to Shutdown.
type App struct {
	cfg     *config.Config
	loop    *eventloop.Loop
	tray    trayIcon
	hotkey  hotkeyListener
	tooltip string

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// New wires the resident application from cfg. Nothing is started yet.
func New(cfg *config.Config) (*App, error) {
	return newApp(cfg, defaultDeps())
}

func newApp(cfg *config.Config, d deps) (*App, error) {
	a := &App{
		cfg:     cfg,
		tooltip: fmt.Sprintf("Circle Search - Press %s to capture", cfg.Hotkey),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	pipeline := PipelineOptions(cfg)
	var notify func(title, message string)
	if cfg.NotifyErrors {
		notify = notification.ShowError
	}
	a.loop = eventloop.New(eventloop.Options{
		Selector: d.selector,
		Process: func(ctx context.Context, r geometry.Rectangle) (session.Result, error) {
			return session.Run(ctx, r, pipeline)
		},
		Server:       d.server,
		LocalTarget:  LocalTarget(cfg, d.open),
		Open:         d.open,
		Notify:       notify,
		OnBusyChange: a.onBusyChange,
	})

	var err error
	a.tray, err = d.newTray(tray.Config{
		Title:     "Circle Search",
		Tooltip:   a.tooltip,
		OnCapture: func() { a.loop.Trigger(eventloop.SourceTray) },
		OnReady: func() {
			if a.ctx.Err() != nil {
				a.tray.Quit()
			}
		},
		OnExit: func() { a.cancel() },
	})
	if err != nil {
		return nil, fmt.Errorf("create tray: %w", err)
	}

	a.hotkey, err = d.newHotkey(cfg.Hotkey)
	if err != nil {
		return nil, fmt.Errorf("hotkey %q: %w", cfg.Hotkey, err)
	}
	return a, nil
}

// PipelineOptions builds the capture-to-link pipeline settings from cfg.
func PipelineOptions(cfg *config.Config) session.Options {
	return session.Options{
		Store:    storage.New(cfg.ScreenshotsDir),
		Uploader: upload.NewClient(cfg.UploadEndpoint, cfg.UploadTimeout()),
		Links:    searchlink.Builder{Host: cfg.SearchHost},
	}
}

// LocalTarget opens the link and, when configured, copies it too.
func LocalTarget(cfg *config.Config, open func(string) error) session.ResultTarget {
	browser := session.BrowserTarget{Open: open}
	if !cfg.CopyLinkToClipboard {
		return browser
	}
	return session.MultiTarget{browser, session.ClipboardTarget{}}
}

// Run starts every trigger source and blocks in the tray loop until Exit,
// a parent cancellation or a fatal loop error.
func (a *App) Run(parent context.Context) error {
	stopParent := context.AfterFunc(parent, a.cancel)
	defer stopParent()

	var result *multierror.Error

	loopErr := make(chan error, 1)
	go func() {
		err := a.loop.Run(a.ctx)
		a.cancel()
		loopErr <- err
	}()

	if err := a.hotkey.Start(func() { a.loop.Trigger(eventloop.SourceHotkey) }); err != nil {
		// The tray menu still works without the hotkey.
		log.Printf("Hotkey unavailable: %v", err)
		result = multierror.Append(result, fmt.Errorf("hotkey: %w", err))
	}

	go func() {
		<-a.ctx.Done()
		a.tray.Quit()
	}()

	log.Printf("Circle Search running, press %s or use the tray menu", a.cfg.Hotkey)
	a.tray.Run()

	a.Shutdown()
	if err := <-loopErr; err != nil && !errors.Is(err, context.Canceled) {
		result = multierror.Append(result, fmt.Errorf("event loop: %w", err))
	}
	return result.ErrorOrNil()
}

// Shutdown stops the hotkey listener, removes the tray icon and cancels the
// application context. It is safe to call more than once.
func (a *App) Shutdown() {
	a.once.Do(func() {
		log.Printf("Shutting down")
		a.cancel()
		a.hotkey.Stop()
		a.tray.Quit()
	})
}

func (a *App) onBusyChange(busy bool) {
	if busy {
		a.tray.SetTooltip("Circle Search: uploading...")
		return
	}
	a.tray.SetTooltip(a.tooltip)
}
