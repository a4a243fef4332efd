package hotkey

import (
	"testing"
)

func TestKeyNameToRawcodes(t *testing.T) {
	tests := []struct {
		keyName  string
		expected []uint16
	}{
		// Modifier keys
		{"ctrl", []uint16{162, 163}},
		{"alt", []uint16{164, 165}},
		{"shift", []uint16{160, 161}},
		{"cmd", []uint16{91, 92}},

		// Letter keys
		{"a", []uint16{65}},
		{"q", []uint16{81}},
		{"z", []uint16{90}},

		// Number keys
		{"0", []uint16{48}},
		{"9", []uint16{57}},

		// Function keys
		{"f1", []uint16{112}},
		{"f12", []uint16{123}},
		{"f24", []uint16{135}},

		// Special keys
		{"home", []uint16{36}},
		{"Home", []uint16{36}},
		{"space", []uint16{32}},
		{"esc", []uint16{27}},
		{"printscreen", []uint16{44}},

		// Unknown key
		{"unknown", nil},
		{"f25", nil},
		{"f1x", nil},
	}

	for _, tt := range tests {
		t.Run(tt.keyName, func(t *testing.T) {
			result := keyNameToRawcodes(tt.keyName)
			if len(result) != len(tt.expected) {
				t.Errorf("keyNameToRawcodes(%q) returned %d rawcodes, expected %d",
					tt.keyName, len(result), len(tt.expected))
				return
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("keyNameToRawcodes(%q)[%d] = %d, expected %d",
						tt.keyName, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Home", []string{"home"}},
		{"Ctrl+Alt+Q", []string{"ctrl", "alt", "q"}},
		{"Control+Shift+S", []string{"ctrl", "shift", "s"}},
		{"Alt+F4", []string{"alt", "f4"}},
		{"Ctrl+Win+E", []string{"ctrl", "cmd", "e"}},
		{"Super + Alt + T", []string{"cmd", "alt", "t"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseHotkey(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("parseHotkey(%q) returned %d keys, expected %d",
					tt.input, len(result), len(tt.expected))
				return
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("parseHotkey(%q)[%d] = %q, expected %q",
						tt.input, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestNewRejectsUnknownKeys(t *testing.T) {
	if _, err := New("Ctrl+Banana"); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := New(""); err == nil {
		t.Error("expected error for empty hotkey")
	}
	l, err := New("Home")
	if err != nil {
		t.Fatalf("New(Home): %v", err)
	}
	if l.Combo() != "Home" {
		t.Errorf("Combo() = %q", l.Combo())
	}
	l.Stop()
}

func TestMatcherSingleKey(t *testing.T) {
	m, err := newMatcher("Home")
	if err != nil {
		t.Fatal(err)
	}
	if !m.keyDown(36) {
		t.Error("Home press should fire")
	}
	if m.keyDown(37) {
		t.Error("other key must not fire")
	}
}

func TestMatcherSingleKeyRepeat(t *testing.T) {
	m, err := newMatcher("Home")
	if err != nil {
		t.Fatal(err)
	}
	if !m.keyDown(36) {
		t.Fatal("first Home press should fire")
	}
	for i := 0; i < 5; i++ {
		if m.keyDown(36) {
			t.Fatalf("auto-repeat %d fired while Home is held", i+1)
		}
	}
	m.keyUp(36)
	if !m.keyDown(36) {
		t.Error("press after release should fire again")
	}
}

func TestMatcherCombination(t *testing.T) {
	m, err := newMatcher("Ctrl+Alt+S")
	if err != nil {
		t.Fatal(err)
	}
	if m.keyDown(162) {
		t.Fatal("ctrl alone fired")
	}
	if m.keyDown(165) {
		t.Fatal("ctrl+alt fired")
	}
	if !m.keyDown(83) {
		t.Fatal("ctrl+alt+s should fire")
	}
	// Auto-repeat of the last key while the combination is held.
	if m.keyDown(83) {
		t.Error("repeat while held must not fire")
	}
	m.keyUp(83)

	m.keyDown(163)
	m.keyDown(164)
	m.keyUp(164)
	if m.keyDown(83) {
		t.Error("released alt must not count")
	}
}
