package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"circle-search/src/singleinstance"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"circle-search", "-run-once", "-hotkey", "ctrl+alt+s"},
			out:  []string{"circle-search", "--run-once", "--hotkey", "ctrl+alt+s"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"circle-search", "-run-once=true", "-screenshots-dir=/tmp/shots"},
			out:  []string{"circle-search", "--run-once=true", "--screenshots-dir=/tmp/shots"},
		},
		{
			name: "Leaves other flags unchanged",
			in:   []string{"circle-search", "--run-once", "-print", "--other", "-x"},
			out:  []string{"circle-search", "--run-once", "--print", "--other", "-x"},
		},
		{
			name: "Does not touch values that look like flags",
			in:   []string{"circle-search", "--hotkey", "-printscreen"},
			out:  []string{"circle-search", "--hotkey", "-printscreen"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if len(got) != len(tt.out) {
				t.Fatalf("Expected len=%d, got %d", len(tt.out), len(got))
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Fatalf("Expected arg[%d]=%q, got %q", i, tt.out[i], got[i])
				}
			}
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--run-once", "--print", "--hotkey", "F9", "--screenshots-dir", "/tmp/shots"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if !opts.runOnce || !opts.print {
		t.Fatalf("Expected runOnce and print, got %+v", *opts)
	}
	if opts.mode() != singleinstance.ModePrint {
		t.Fatalf("Expected PRINT mode, got %s", opts.mode())
	}
	lo := opts.loadOptions()
	if lo.HotkeyOverride != "F9" || lo.ScreenshotsDirOverride != "/tmp/shots" {
		t.Fatalf("Unexpected load options %+v", lo)
	}
}

func TestPrintWithoutRunOnceFails(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs([]string{"--print"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("Expected --print without --run-once to fail")
	}
}

type fakeClient struct {
	delegated bool
	link      string
	err       error
	called    bool
	mode      singleinstance.Mode
}

func (f *fakeClient) TryRunOnce(ctx context.Context, mode singleinstance.Mode) (bool, string, error) {
	f.called = true
	f.mode = mode
	return f.delegated, f.link, f.err
}

func TestHandleRunOnceWithDelegation_Delegated(t *testing.T) {
	client := &fakeClient{delegated: true}
	fallbackCalled := false

	err := handleRunOnceWithDelegation(context.Background(), client, singleinstance.ModeOpen, &bytes.Buffer{}, func() error {
		fallbackCalled = true
		return nil
	})

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !client.called {
		t.Fatal("Expected client.TryRunOnce to be called")
	}
	if fallbackCalled {
		t.Fatal("Did not expect fallback when delegation succeeds")
	}
}

func TestHandleRunOnceWithDelegation_PrintWritesLink(t *testing.T) {
	link := "https://lens.google.com/uploadbyurl?url=https%3A%2F%2Ftmpfiles.org%2Fdl%2F1%2Fa.png"
	client := &fakeClient{delegated: true, link: link}
	var out bytes.Buffer

	err := handleRunOnceWithDelegation(context.Background(), client, singleinstance.ModePrint, &out, func() error {
		t.Fatal("Did not expect fallback")
		return nil
	})

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if client.mode != singleinstance.ModePrint {
		t.Fatalf("Expected PRINT request, got %s", client.mode)
	}
	if out.String() != link+"\n" {
		t.Fatalf("Expected link on stdout, got %q", out.String())
	}
}

func TestHandleRunOnceWithDelegation_NoResidentFallback(t *testing.T) {
	client := &fakeClient{delegated: false}
	fallbackCalled := false

	err := handleRunOnceWithDelegation(context.Background(), client, singleinstance.ModeOpen, &bytes.Buffer{}, func() error {
		fallbackCalled = true
		return nil
	})

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !client.called {
		t.Fatal("Expected client.TryRunOnce to be called")
	}
	if !fallbackCalled {
		t.Fatal("Expected fallback when no resident is delegated")
	}
}

func TestHandleRunOnceWithDelegation_FallbackErrorReturned(t *testing.T) {
	client := &fakeClient{}
	want := errors.New("no display")

	err := handleRunOnceWithDelegation(context.Background(), client, singleinstance.ModeOpen, &bytes.Buffer{}, func() error {
		return want
	})

	if !errors.Is(err, want) {
		t.Fatalf("Expected fallback error, got %v", err)
	}
}

func TestHandleRunOnceWithDelegation_ResidentErrorNoFallback(t *testing.T) {
	client := &fakeClient{delegated: true, err: errors.New("Busy, please retry")}
	fallbackCalled := false

	err := handleRunOnceWithDelegation(context.Background(), client, singleinstance.ModeOpen, &bytes.Buffer{}, func() error {
		fallbackCalled = true
		return nil
	})

	if err == nil {
		t.Fatal("Expected resident error to be returned")
	}
	if fallbackCalled {
		t.Fatal("A resident that answered must not be bypassed by a second overlay")
	}
}

func TestHandleRunOnceWithDelegation_ResidentCancelIsNotAnError(t *testing.T) {
	client := &fakeClient{delegated: true, err: singleinstance.ErrCancelled}

	err := handleRunOnceWithDelegation(context.Background(), client, singleinstance.ModePrint, &bytes.Buffer{}, func() error {
		t.Fatal("Did not expect fallback")
		return nil
	})

	if err != nil {
		t.Fatalf("Cancelled selection should exit cleanly, got %v", err)
	}
}

func TestDisplayMismatch(t *testing.T) {
	space := image.Rect(-1920, 0, 2560, 1440)
	if msg := displayMismatch(space, space); msg != "" {
		t.Errorf("matching spaces reported %q", msg)
	}
	scaled := image.Rect(-1536, 0, 2048, 1152)
	msg := displayMismatch(space, scaled)
	if msg == "" || !strings.Contains(msg, "scaling") {
		t.Errorf("mismatch message = %q", msg)
	}
}
