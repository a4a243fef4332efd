package hotkey

import (
	"fmt"
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// Listener owns the global keyboard hook for one hotkey combination.
type Listener struct {
	combo   string
	matcher *matcher

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// New parses combo ("Home", "Ctrl+Alt+S", ...) without touching the OS hook.
func New(combo string) (*Listener, error) {
	m, err := newMatcher(combo)
	if err != nil {
		return nil, err
	}
	return &Listener{combo: combo, matcher: m, done: make(chan struct{})}, nil
}

// Combo returns the configured combination string.
func (l *Listener) Combo() string { return l.combo }

// Start installs the hook and calls callback every time the combination is
// completed. The callback runs on the hook goroutine and must not block.
func (l *Listener) Start(callback func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return fmt.Errorf("hotkey listener for %q already started", l.combo)
	}
	l.started = true

	log.Printf("Hotkey listener configured for: %s", l.combo)
	evChan := gohook.Start()
	if evChan == nil {
		return fmt.Errorf("gohook.Start returned nil channel")
	}

	go func() {
		defer close(l.done)
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()
		for ev := range evChan {
			var fired bool
			switch ev.Kind {
			case gohook.KeyDown:
				fired = l.matcher.keyDown(ev.Rawcode)
			case gohook.KeyUp:
				l.matcher.keyUp(ev.Rawcode)
			}
			if fired {
				log.Printf("Hotkey activated: %s", l.combo)
				if callback != nil {
					callback()
				}
			}
		}
		log.Printf("Hotkey event channel closed")
	}()
	return nil
}

// Stop removes the hook. It is safe to call on a listener that never started.
func (l *Listener) Stop() {
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()
	if !started {
		return
	}
	gohook.End()
}

// matcher tracks which keys of the combination are held down.
type matcher struct {
	mu   sync.Mutex
	keys []keyState
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

func newMatcher(combo string) (*matcher, error) {
	names := parseHotkey(combo)
	if len(names) == 0 {
		return nil, fmt.Errorf("empty hotkey")
	}
	m := &matcher{}
	for _, name := range names {
		rawcodes := keyNameToRawcodes(name)
		if len(rawcodes) == 0 {
			return nil, fmt.Errorf("unknown key %q in hotkey %q", name, combo)
		}
		m.keys = append(m.keys, keyState{name: name, rawcodes: rawcodes})
	}
	return m, nil
}

// keyDown records a press and reports whether it completed the combination.
// Only a released-to-pressed edge can fire, so auto-repeat while held does not.
func (m *matcher) keyDown(rawcode uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set(rawcode, true) {
		return false
	}
	for i := range m.keys {
		if !m.keys[i].pressed {
			return false
		}
	}
	return true
}

func (m *matcher) keyUp(rawcode uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(rawcode, false)
}

// set updates every key matching rawcode and reports whether any changed state.
func (m *matcher) set(rawcode uint16, pressed bool) bool {
	changed := false
	for i := range m.keys {
		for _, rc := range m.keys[i].rawcodes {
			if rc == rawcode {
				if m.keys[i].pressed != pressed {
					m.keys[i].pressed = pressed
					changed = true
				}
				break
			}
		}
	}
	return changed
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(combo string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(combo), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			part = "ctrl"
		case "win", "cmd", "super":
			part = "cmd"
		}
		keys = append(keys, part)
	}
	return keys
}

// Windows virtual key codes, which is what gohook reports as Rawcode there.
var namedKeys = map[string][]uint16{
	"ctrl":      {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":       {164, 165}, // VK_LMENU, VK_RMENU
	"shift":     {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":       {91, 92},   // VK_LWIN, VK_RWIN
	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},

	"printscreen": {44},
	"prtsc":       {44},
}

// keyNameToRawcodes maps a key name to its rawcodes. Modifiers map to both the
// left and right variants.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	if codes, ok := namedKeys[keyName]; ok {
		return codes
	}
	if len(keyName) == 1 {
		c := keyName[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48}
		}
	}
	var n int
	if _, err := fmt.Sscanf(keyName, "f%d", &n); err == nil && n >= 1 && n <= 24 && keyName == fmt.Sprintf("f%d", n) {
		return []uint16{uint16(111 + n)} // VK_F1 = 112
	}
	log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
	return nil
}
