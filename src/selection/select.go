package selection

import (
	"context"
	"fmt"
	"log"
)

// Instruction is the one-line hint shown on the overlay.
const Instruction = "Click and drag to select area. Press ESC to cancel."

// Surface is the interactive full-screen overlay a session runs on.
//
// Open shows the surface and returns the channel its input arrives on. Render is
// called from the Select goroutine for every effect, so implementations must
// hand drawing off to their own UI thread. Close dismisses the surface and is
// called exactly once after a successful Open.
type Surface interface {
	Open(ctx context.Context, hint string) (<-chan Event, error)
	Render(effect Effect)
	Close() error
}

// Select runs one modal selection session on s and blocks until it ends.
// Context cancellation and a closed event stream both count as a cancel signal.
func Select(ctx context.Context, s Surface) (Outcome, error) {
	events, err := s.Open(ctx, Instruction)
	if err != nil {
		return Cancelled(), fmt.Errorf("open selection surface: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Printf("selection: closing surface: %v", err)
		}
	}()

	m, _ := Run(ctx, events, s.Render)
	out := m.Outcome()
	if m.State() == StateCompleted && !out.Selected {
		log.Printf("selection: rectangle %+v too small, treating as cancelled", m.Rectangle())
	}
	return out, nil
}

// Run feeds events into a fresh Machine until it reaches a terminal state and
// returns that machine together with the number of events consumed.
func Run(ctx context.Context, events <-chan Event, render func(Effect)) (Machine, int) {
	var m Machine
	consumed := 0
	step := func(ev Event) {
		var eff Effect
		m, eff = Transition(m, ev)
		if render != nil && eff.Kind != EffectNone {
			render(eff)
		}
	}

	for !m.State().Terminal() {
		select {
		case <-ctx.Done():
			step(Cancel())
		case ev, ok := <-events:
			if !ok {
				step(Cancel())
				continue
			}
			consumed++
			step(ev)
		}
	}
	return m, consumed
}
