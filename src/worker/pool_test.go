package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"circle-search/src/geometry"
	"circle-search/src/session"
)

var rect = geometry.Rectangle{Left: 1, Top: 2, Width: 30, Height: 40}

func TestSubmitRunsProcess(t *testing.T) {
	p := New(1, func(ctx context.Context, r geometry.Rectangle) (session.Result, error) {
		return session.Result{Rect: r, SearchURL: "https://search"}, nil
	})
	defer p.Close()

	done := make(chan session.Result, 1)
	if !p.Submit(context.Background(), rect, func(res session.Result, err error) {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- res
	}) {
		t.Fatal("Submit rejected on an idle pool")
	}
	select {
	case res := <-done:
		if res.Rect != rect || res.SearchURL != "https://search" {
			t.Errorf("result = %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback not invoked")
	}
}

func TestSubmitBackPressure(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	p := New(1, func(ctx context.Context, r geometry.Rectangle) (session.Result, error) {
		started <- struct{}{}
		<-release
		return session.Result{}, nil
	})
	defer p.Close()

	if !p.Submit(context.Background(), rect, nil) {
		t.Fatal("first submit rejected")
	}
	<-started
	if !p.Submit(context.Background(), rect, nil) {
		t.Fatal("queue slot should accept one pending job")
	}
	if p.Submit(context.Background(), rect, nil) {
		t.Error("third submit must be dropped while busy and queue full")
	}
	close(release)
}

func TestCancelledContextSkipsProcess(t *testing.T) {
	var calls atomic.Int32
	p := New(1, func(ctx context.Context, r geometry.Rectangle) (session.Result, error) {
		calls.Add(1)
		return session.Result{}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errCh := make(chan error, 1)
	p.Submit(ctx, rect, func(_ session.Result, err error) { errCh <- err })
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	p.Close()
	if calls.Load() != 0 {
		t.Error("process ran for a cancelled job")
	}
}

func TestSubmitAfterClose(t *testing.T) {
	p := New(0, func(context.Context, geometry.Rectangle) (session.Result, error) { return session.Result{}, nil })
	p.Close()
	p.Close()
	if p.Submit(context.Background(), rect, nil) {
		t.Error("closed pool accepted a job")
	}
}
