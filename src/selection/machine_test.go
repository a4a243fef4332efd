package selection

import (
	"context"
	"errors"
	"testing"
	"time"

	"circle-search/src/geometry"
)

func feed(events ...Event) Machine {
	var m Machine
	for _, ev := range events {
		m, _ = Transition(m, ev)
	}
	return m
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name     string
		events   []Event
		state    State
		lastKind EffectKind
		outcome  Outcome
	}{
		{
			name:     "press starts dragging",
			events:   []Event{Press(10, 10)},
			state:    StateDragging,
			lastKind: EffectPreview,
			outcome:  Cancelled(),
		},
		{
			name:     "release completes valid rectangle",
			events:   []Event{Press(50, 50), Move(120, 90), Release(200, 150)},
			state:    StateCompleted,
			lastKind: EffectFinish,
			outcome:  Selected(geometry.Rectangle{Left: 50, Top: 50, Width: 150, Height: 100}),
		},
		{
			name:     "small release is cancelled",
			events:   []Event{Press(100, 100), Release(103, 105)},
			state:    StateCompleted,
			lastKind: EffectFinish,
			outcome:  Cancelled(),
		},
		{
			name:     "cancel while idle",
			events:   []Event{Cancel()},
			state:    StateCancelled,
			lastKind: EffectFinish,
			outcome:  Cancelled(),
		},
		{
			name:     "cancel while dragging",
			events:   []Event{Press(0, 0), Move(300, 300), Cancel()},
			state:    StateCancelled,
			lastKind: EffectErase,
			outcome:  Cancelled(),
		},
		{
			name:     "move while idle ignored",
			events:   []Event{Move(40, 40)},
			state:    StateIdle,
			lastKind: EffectNone,
			outcome:  Cancelled(),
		},
		{
			name:     "release while idle ignored",
			events:   []Event{Release(40, 40)},
			state:    StateIdle,
			lastKind: EffectNone,
			outcome:  Cancelled(),
		},
		{
			name:     "second press while dragging ignored",
			events:   []Event{Press(0, 0), Press(500, 500)},
			state:    StateDragging,
			lastKind: EffectNone,
			outcome:  Cancelled(),
		},
		{
			name:     "terminal state absorbs events",
			events:   []Event{Press(0, 0), Release(100, 100), Press(5, 5), Move(6, 6)},
			state:    StateCompleted,
			lastKind: EffectNone,
			outcome:  Selected(geometry.Rectangle{Left: 0, Top: 0, Width: 100, Height: 100}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Machine
			var eff Effect
			for _, ev := range tt.events {
				m, eff = Transition(m, ev)
			}
			if m.State() != tt.state {
				t.Errorf("state = %s, want %s", m.State(), tt.state)
			}
			if eff.Kind != tt.lastKind {
				t.Errorf("last effect = %d, want %d", eff.Kind, tt.lastKind)
			}
			if got := m.Outcome(); got != tt.outcome {
				t.Errorf("outcome = %s, want %s", got, tt.outcome)
			}
		})
	}
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	start := feed(Press(10, 20))
	before := start
	next, _ := Transition(start, Move(90, 90))
	if start != before {
		t.Fatalf("Transition mutated its input: %+v -> %+v", before, start)
	}
	if next.Anchor() != (geometry.Point{X: 10, Y: 20}) {
		t.Errorf("anchor = %+v, want (10,20)", next.Anchor())
	}
}

func TestPreviewReplacesPrevious(t *testing.T) {
	m := feed(Press(100, 100))
	var effects []Effect
	for _, q := range []geometry.Point{{X: 150, Y: 130}, {X: 20, Y: 40}, {X: 101, Y: 300}} {
		var eff Effect
		m, eff = Transition(m, Move(q.X, q.Y))
		effects = append(effects, eff)
	}

	want := []geometry.Rectangle{
		{Left: 100, Top: 100, Width: 50, Height: 30},
		{Left: 20, Top: 40, Width: 80, Height: 60},
		{Left: 100, Top: 100, Width: 1, Height: 200},
	}
	for i, eff := range effects {
		if eff.Kind != EffectPreview {
			t.Fatalf("effect %d kind = %d, want preview", i, eff.Kind)
		}
		if eff.Rect != want[i] {
			t.Errorf("preview %d = %+v, want %+v", i, eff.Rect, want[i])
		}
	}
	if m.Rectangle() != want[len(want)-1] {
		t.Errorf("machine keeps %+v, want only the latest preview", m.Rectangle())
	}
}

func TestCancelAlwaysWins(t *testing.T) {
	prefixes := [][]Event{
		nil,
		{Press(1, 1)},
		{Press(1, 1), Move(500, 500)},
		{Press(1, 1), Move(500, 500), Move(900, 20), Move(30, 700)},
		{Move(3, 3), Press(400, 400), Move(10, 10)},
	}
	for i, prefix := range prefixes {
		m := feed(append(append([]Event{}, prefix...), Cancel())...)
		if m.State() != StateCancelled {
			t.Errorf("prefix %d: state = %s, want cancelled", i, m.State())
		}
		if m.Outcome().Selected {
			t.Errorf("prefix %d: outcome selected after cancel", i)
		}
		if m.Rectangle() != (geometry.Rectangle{}) || m.Anchor() != (geometry.Point{}) {
			t.Errorf("prefix %d: cancel kept anchor/preview: %+v", i, m)
		}
	}
}

type fakeSurface struct {
	events  chan Event
	openErr error
	hint    string
	effects []Effect
	closed  int
}

func newFakeSurface(events ...Event) *fakeSurface {
	ch := make(chan Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	return &fakeSurface{events: ch}
}

func (f *fakeSurface) Open(ctx context.Context, hint string) (<-chan Event, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.hint = hint
	return f.events, nil
}

func (f *fakeSurface) Render(effect Effect) { f.effects = append(f.effects, effect) }

func (f *fakeSurface) Close() error {
	f.closed++
	return nil
}

func TestSelectCompleted(t *testing.T) {
	s := newFakeSurface(Press(50, 50), Move(60, 60), Move(100, 100), Release(200, 150))
	out, err := Select(context.Background(), s)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	want := Selected(geometry.Rectangle{Left: 50, Top: 50, Width: 150, Height: 100})
	if out != want {
		t.Errorf("outcome = %s, want %s", out, want)
	}
	if s.closed != 1 {
		t.Errorf("surface closed %d times, want 1", s.closed)
	}
	if s.hint != Instruction {
		t.Errorf("hint = %q", s.hint)
	}
	if len(s.effects) != 4 || s.effects[3].Kind != EffectFinish {
		t.Errorf("unexpected effects: %+v", s.effects)
	}
}

func TestSelectTooSmallIsCancelled(t *testing.T) {
	s := newFakeSurface(Press(100, 100), Release(103, 105))
	out, err := Select(context.Background(), s)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if out.Selected {
		t.Errorf("expected cancelled outcome, got %s", out)
	}
}

func TestSelectClosedStreamCancels(t *testing.T) {
	s := newFakeSurface(Press(0, 0), Move(400, 400))
	close(s.events)
	out, err := Select(context.Background(), s)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if out.Selected {
		t.Errorf("expected cancelled outcome, got %s", out)
	}
	if last := s.effects[len(s.effects)-1]; last.Kind != EffectErase {
		t.Errorf("expected preview to be erased, last effect %+v", last)
	}
}

func TestSelectContextCancel(t *testing.T) {
	s := &fakeSurface{events: make(chan Event)}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out, err := Select(ctx, s)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if out.Selected {
		t.Errorf("expected cancelled outcome, got %s", out)
	}
	if s.closed != 1 {
		t.Errorf("surface closed %d times, want 1", s.closed)
	}
}

func TestSelectOpenError(t *testing.T) {
	s := &fakeSurface{openErr: errors.New("no desktop")}
	out, err := Select(context.Background(), s)
	if err == nil {
		t.Fatal("expected error when surface cannot open")
	}
	if out.Selected {
		t.Error("outcome must be cancelled on error")
	}
	if s.closed != 0 {
		t.Error("Close must not be called when Open failed")
	}
}

func TestRunStopsAtTerminal(t *testing.T) {
	ch := make(chan Event, 5)
	ch <- Press(0, 0)
	ch <- Release(50, 50)
	ch <- Press(1, 1)
	m, n := Run(context.Background(), ch, nil)
	if m.State() != StateCompleted {
		t.Fatalf("state = %s", m.State())
	}
	if n != 2 {
		t.Errorf("consumed %d events, want 2", n)
	}
	if len(ch) != 1 {
		t.Errorf("events after the terminal state must stay queued, %d left", len(ch))
	}
}
