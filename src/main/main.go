package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"circle-search/src/app"
	"circle-search/src/config"
	"circle-search/src/overlay"
	"circle-search/src/runtimeinit"
	"circle-search/src/screenshot"
	"circle-search/src/session"
	"circle-search/src/singleinstance"
)

const version = "1.0.0"

type mainOptions struct {
	runOnce        bool
	print          bool
	hotkey         string
	screenshotsDir string
}

func (o mainOptions) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		HotkeyOverride:         o.hotkey,
		ScreenshotsDirOverride: o.screenshotsDir,
	}
}

func (o mainOptions) mode() singleinstance.Mode {
	if o.print {
		return singleinstance.ModePrint
	}
	return singleinstance.ModeOpen
}

func main() {
	// Ensure DPI awareness before creating any windows or querying metrics
	enableDPIAwareness()

	// The tray message loop runs on the main goroutine and needs a stable OS thread.
	runtime.LockOSThread()

	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(normalizeLegacyArgs(os.Args)[1:])

	if err := fang.Execute(
		context.Background(),
		cmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "circle-search",
		Short: "Select a screen region and search it with Google Lens",
		Long: "circle-search stays in the system tray. Press the hotkey or use the tray menu, drag a " +
			"rectangle over the screen and the region opens as a visual search in the browser.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.runOnce {
				return runOnce(cmd.Context(), *opts, cmd.OutOrStdout())
			}
			if opts.print {
				return errors.New("--print requires --run-once")
			}
			return runResident(cmd.Context(), *opts)
		},
	}

	cmd.Flags().BoolVar(&opts.runOnce, "run-once", false, "Run one selection, then exit (delegates to a running instance when present)")
	cmd.Flags().BoolVar(&opts.print, "print", false, "With --run-once, print the search link instead of opening it")
	cmd.Flags().StringVar(&opts.hotkey, "hotkey", "", "Hotkey combination (overrides HOTKEY)")
	cmd.Flags().StringVar(&opts.screenshotsDir, "screenshots-dir", "", "Directory for captured screenshots (overrides SCREENSHOTS_DIR)")

	return cmd
}

var legacyFlags = []string{"run-once", "print", "hotkey", "screenshots-dir"}

// normalizeLegacyArgs maps single-dash long flags (-run-once, -hotkey=Home) to
// the double-dash form cobra expects.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range legacyFlags {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}

func runResident(ctx context.Context, opts mainOptions) error {
	// Load .env early so SINGLEINSTANCE_PORT_* are applied before the scan
	_, _ = config.LoadWithOptions(opts.loadOptions())
	if port, ok := singleinstance.DetectResidentPort(ctx); ok {
		log.Printf("Resident already running on port %d", port)
		return fmt.Errorf("circle-search is already running on port %d", port)
	}

	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:       opts.loadOptions(),
		ShowBlockingError: true,
	})
	if err != nil {
		return err
	}
	logDisplayConfiguration()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	log.Printf("Circle Search %s initialized", version)
	return a.Run(ctx)
}

// logDisplayConfiguration logs the overlay's coordinate space next to the
// capture back end's, and warns when they disagree.
func logDisplayConfiguration() {
	overlaySpace, monitors, ok := virtualScreen()
	if !ok {
		return
	}
	log.Printf("Display: %d monitor(s), overlay space %v (origin %v)", monitors, overlaySpace, overlaySpace.Min)
	captureSpace, err := screenshot.DisplayBounds()
	if err != nil {
		log.Printf("Display: capture bounds unavailable: %v", err)
		return
	}
	if msg := displayMismatch(overlaySpace, captureSpace); msg != "" {
		log.Printf("Display: %s", msg)
	}
}

// displayMismatch describes how the overlay and capture rectangles differ, or
// returns "" when they match.
func displayMismatch(overlaySpace, captureSpace image.Rectangle) string {
	if overlaySpace == captureSpace {
		return ""
	}
	return fmt.Sprintf("overlay space %v differs from capture space %v; selections may not line up (check display scaling)",
		overlaySpace, captureSpace)
}

func runOnce(ctx context.Context, opts mainOptions, out io.Writer) error {
	// Load .env early so SINGLEINSTANCE_PORT_* are applied before delegation scan
	_, _ = config.LoadWithOptions(opts.loadOptions())
	return handleRunOnceWithDelegation(ctx, singleinstance.NewClient(), opts.mode(), out, func() error {
		return runStandalone(ctx, opts, out)
	})
}

// handleRunOnceWithDelegation hands the session to a resident instance and
// falls back to a standalone one only when no resident answered.
func handleRunOnceWithDelegation(ctx context.Context, client singleinstance.Client, mode singleinstance.Mode, out io.Writer, fallback func() error) error {
	delegated, link, err := client.TryRunOnce(ctx, mode)
	if !delegated {
		if err != nil {
			log.Printf("Delegation error: %v; falling back to standalone", err)
		} else {
			log.Printf("No resident detected, running standalone")
		}
		return fallback()
	}
	if err != nil {
		if errors.Is(err, singleinstance.ErrCancelled) {
			log.Printf("Resident reported: %v", err)
			return nil
		}
		return fmt.Errorf("resident: %w", err)
	}

	log.Printf("Delegated %s to resident", mode)
	if mode == singleinstance.ModePrint {
		_, err := fmt.Fprintln(out, link)
		return err
	}
	return nil
}

func runStandalone(ctx context.Context, opts mainOptions, out io.Writer) error {
	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{LoadOptions: opts.loadOptions()})
	if err != nil {
		return err
	}

	pipeline := app.PipelineOptions(cfg)
	pipeline.SelectRegion = overlay.NewSelector().Select
	if opts.print {
		pipeline.Target = session.StdoutTarget{Writer: out}
	} else {
		pipeline.Target = app.LocalTarget(cfg, nil)
	}

	log.Printf("Running one session (--run-once, mode %s)", opts.mode())
	res, err := session.Execute(ctx, pipeline)
	if errors.Is(err, session.ErrSelectionCancelled) {
		log.Printf("Selection cancelled, nothing to do")
		return nil
	}
	if err != nil {
		return errors.New(session.Describe(err))
	}
	log.Printf("Session completed in %v: %s", res.Elapsed, res.SearchURL)
	return nil
}
