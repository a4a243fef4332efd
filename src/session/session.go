package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"circle-search/src/geometry"
	"circle-search/src/logutil"
	"circle-search/src/screenshot"
	"circle-search/src/searchlink"
	"circle-search/src/storage"
	"circle-search/src/upload"
)

var ErrSelectionCancelled = errors.New("selection cancelled")

// Stage names used in StageError.
const (
	StageSelect  = "select"
	StageCapture = "capture"
	StagePersist = "persist"
	StageUpload  = "upload"
	StageOpen    = "open"
)

// StageError tags a pipeline failure with the step that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

type RegionSelectorFunc func(ctx context.Context) (geometry.Rectangle, bool, error)

type CaptureFunc func(r geometry.Rectangle) (*screenshot.Image, error)

type Persister interface {
	Save(img *screenshot.Image) (storage.File, error)
}

type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

type LinkBuilder interface {
	Build(normalizedURL string) string
}

type ResultTarget interface {
	OnSuccess(link string) error
	OnFailure(err error) error
}

type Options struct {
	SelectRegion RegionSelectorFunc
	Capture      CaptureFunc
	Store        Persister
	Uploader     Uploader
	Links        LinkBuilder
	Target       ResultTarget
}

type Result struct {
	Rect      geometry.Rectangle
	File      storage.File
	RemoteURL string
	UploadURL string
	SearchURL string
	Elapsed   time.Duration
}

// Execute runs one selection followed by the capture pipeline.
// A cancelled selection returns ErrSelectionCancelled and is reported to the target.
func Execute(ctx context.Context, opts Options) (Result, error) {
	if opts.SelectRegion == nil {
		return Result{}, errors.New("SelectRegion is required")
	}
	if opts.Target == nil {
		return Result{}, errors.New("Target is required")
	}

	rect, cancelled, err := opts.SelectRegion(ctx)
	if err != nil {
		err = &StageError{Stage: StageSelect, Err: err}
		_ = opts.Target.OnFailure(err)
		return Result{}, err
	}
	if cancelled {
		_ = opts.Target.OnFailure(ErrSelectionCancelled)
		return Result{}, ErrSelectionCancelled
	}
	return Process(ctx, rect, opts)
}

// Process runs the pipeline for rect and hands the search link to the target.
// Every failure ends only this session.
func Process(ctx context.Context, rect geometry.Rectangle, opts Options) (Result, error) {
	if opts.Target == nil {
		return Result{}, errors.New("Target is required")
	}
	res, err := Run(ctx, rect, opts)
	return res, Deliver(opts.Target, res, err)
}

// Run performs capture, persist, upload, normalize and link building for rect.
// Errors are *StageError values; nothing is delivered to a target.
func Run(ctx context.Context, rect geometry.Rectangle, opts Options) (Result, error) {
	opts = withDefaults(opts)
	started := time.Now()
	res := Result{Rect: rect}

	img, err := opts.Capture(rect)
	if err != nil {
		return res, &StageError{Stage: StageCapture, Err: err}
	}
	log.Printf("Session: captured %dx%d at (%d,%d)", img.Width, img.Height, rect.Left, rect.Top)

	file, err := opts.Store.Save(img)
	if err != nil {
		return res, &StageError{Stage: StagePersist, Err: err}
	}
	res.File = file
	log.Printf("Session: screenshot saved to %s", file.Path)

	remote, err := opts.Uploader.Upload(ctx, file.Path)
	if err != nil {
		return res, &StageError{Stage: StageUpload, Err: err}
	}
	res.RemoteURL = remote
	res.UploadURL = upload.Normalize(remote)
	res.SearchURL = opts.Links.Build(res.UploadURL)
	res.Elapsed = time.Since(started)
	log.Printf("Session: uploaded as %s in %v", logutil.Sanitize(res.UploadURL), res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// Deliver reports the outcome of Run to target. A failing OnSuccess becomes an
// open-stage error and is reported through OnFailure as well.
func Deliver(target ResultTarget, res Result, err error) error {
	if err == nil {
		if err = target.OnSuccess(res.SearchURL); err == nil {
			return nil
		}
		err = &StageError{Stage: StageOpen, Err: err}
	}
	if terr := target.OnFailure(err); terr != nil {
		log.Printf("Session: failed to report error to target: %v", terr)
	}
	return err
}

func withDefaults(opts Options) Options {
	if opts.Capture == nil {
		opts.Capture = screenshot.Capture
	}
	if opts.Store == nil {
		opts.Store = storage.New("")
	}
	if opts.Uploader == nil {
		opts.Uploader = upload.NewClient("", 0)
	}
	if opts.Links == nil {
		opts.Links = searchlink.Builder{}
	}
	return opts
}

// Describe turns a session error into the short text shown to the user.
func Describe(err error) string {
	var stageErr *StageError
	var captureErr *screenshot.CaptureError
	var uploadErr *upload.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSelectionCancelled):
		return "Selection cancelled"
	case errors.Is(err, upload.ErrTimeout):
		return "Upload timed out"
	case errors.As(err, &captureErr):
		return fmt.Sprintf("Screen capture failed: %s", captureErr.Reason)
	case errors.As(err, &uploadErr):
		return uploadErr.Error()
	case errors.As(err, &stageErr):
		return fmt.Sprintf("%s failed: %v", stageErr.Stage, stageErr.Err)
	default:
		return err.Error()
	}
}
