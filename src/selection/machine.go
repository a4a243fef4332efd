package selection

import (
	"fmt"

	"circle-search/src/geometry"
)

// State is the phase of one selection session.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further event can change the state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// EventKind identifies a pointer or keyboard input delivered by a Surface.
type EventKind int

const (
	EventPress EventKind = iota
	EventMove
	EventRelease
	EventCancel
)

func (k EventKind) String() string {
	switch k {
	case EventPress:
		return "press"
	case EventMove:
		return "move"
	case EventRelease:
		return "release"
	case EventCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Event is a single input. Pos is ignored for EventCancel.
type Event struct {
	Kind EventKind
	Pos  geometry.Point
}

func (e Event) String() string {
	if e.Kind == EventCancel {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s(%d,%d)", e.Kind, e.Pos.X, e.Pos.Y)
}

func Press(x, y int) Event { return Event{Kind: EventPress, Pos: geometry.Point{X: x, Y: y}} }
func Move(x, y int) Event { return Event{Kind: EventMove, Pos: geometry.Point{X: x, Y: y}} }
func Release(x, y int) Event { return Event{Kind: EventRelease, Pos: geometry.Point{X: x, Y: y}} }
func Cancel() Event { return Event{Kind: EventCancel} }

// EffectKind tells the surface what to draw after a transition.
type EffectKind int

const (
	// EffectNone leaves the surface untouched.
	EffectNone EffectKind = iota
	// EffectPreview replaces the live preview rectangle with Effect.Rect.
	EffectPreview
	// EffectErase removes the preview rectangle.
	EffectErase
	// EffectFinish ends the session; the surface should be dismissed.
	EffectFinish
)

// Effect is the rendering side effect of one transition.
type Effect struct {
	Kind EffectKind
	Rect geometry.Rectangle
}

// Machine is an immutable snapshot of the selection state machine.
// The zero value is an idle machine.
type Machine struct {
	state  State
	anchor geometry.Point
	rect   geometry.Rectangle
}

func (m Machine) State() State { return m.state }

func (m Machine) Anchor() geometry.Point { return m.anchor }

// Rectangle is the live preview while dragging and the final rectangle once completed.
func (m Machine) Rectangle() geometry.Rectangle { return m.rect }

// Transition is the only way a Machine changes. It never mutates m.
func Transition(m Machine, ev Event) (Machine, Effect) {
	switch m.state {
	case StateIdle:
		switch ev.Kind {
		case EventPress:
			rect := geometry.FromCorners(ev.Pos, ev.Pos)
			return Machine{state: StateDragging, anchor: ev.Pos, rect: rect}, Effect{Kind: EffectPreview, Rect: rect}
		case EventCancel:
			return Machine{state: StateCancelled}, Effect{Kind: EffectFinish}
		}
	case StateDragging:
		switch ev.Kind {
		case EventMove:
			rect := geometry.FromCorners(m.anchor, ev.Pos)
			return Machine{state: StateDragging, anchor: m.anchor, rect: rect}, Effect{Kind: EffectPreview, Rect: rect}
		case EventRelease:
			rect := geometry.FromCorners(m.anchor, ev.Pos)
			return Machine{state: StateCompleted, anchor: m.anchor, rect: rect}, Effect{Kind: EffectFinish, Rect: rect}
		case EventCancel:
			return Machine{state: StateCancelled}, Effect{Kind: EffectErase}
		}
	}
	return m, Effect{Kind: EffectNone}
}

// Outcome is Selected(rect) or Cancelled.
type Outcome struct {
	Rect     geometry.Rectangle
	Selected bool
}

func Selected(r geometry.Rectangle) Outcome { return Outcome{Rect: r, Selected: true} }
func Cancelled() Outcome { return Outcome{} }

func (o Outcome) String() string {
	if !o.Selected {
		return "Cancelled"
	}
	return fmt.Sprintf("Selected(%d,%d %dx%d)", o.Rect.Left, o.Rect.Top, o.Rect.Width, o.Rect.Height)
}

// Outcome maps a terminal machine to its result. A completed selection that
// fails the size rule is reported as cancelled, as is any non-terminal machine.
func (m Machine) Outcome() Outcome {
	if m.state == StateCompleted && m.rect.Valid() {
		return Selected(m.rect)
	}
	return Cancelled()
}
