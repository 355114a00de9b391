package hotkey

import (
	"fmt"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
	log "github.com/sirupsen/logrus"
)

const DefaultCombo = "Ctrl+Alt+Q"

// Listener fires a callback each time the configured key combination is fully pressed.
type Listener struct {
	combo    string
	callback func()
	state    *comboState

	mu      sync.Mutex
	stopped bool
}

// New parses combo. It fails when no key in it maps to a rawcode.
func New(combo string, callback func()) (*Listener, error) {
	if strings.TrimSpace(combo) == "" {
		combo = DefaultCombo
	}
	state, err := newComboState(parseHotkey(combo))
	if err != nil {
		return nil, fmt.Errorf("hotkey %q: %w", combo, err)
	}
	return &Listener{combo: combo, callback: callback, state: state}, nil
}

// Start hooks the keyboard in the background and returns immediately.
func (l *Listener) Start() {
	log.Printf("Hotkey listener configured for: %s", l.combo)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()

		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("ERROR: gohook.Start() returned nil channel")
			return
		}
		for ev := range evChan {
			l.handle(ev)
		}
		log.Debugf("hotkey: event channel closed")
	}()
}

// Stop unhooks the keyboard. Safe to call more than once.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	gohook.End()
}

func (l *Listener) handle(ev gohook.Event) {
	switch ev.Kind {
	case gohook.KeyDown:
		if l.state.press(ev.Rawcode) {
			log.Printf("Hotkey activated: %s", l.combo)
			if l.callback != nil {
				l.callback()
			}
		}
	case gohook.KeyUp:
		l.state.release(ev.Rawcode)
	}
}

// comboState tracks which keys of one combination are held.
type comboState struct {
	mu      sync.Mutex
	keys    []string
	codes   [][]uint16
	pressed []bool
}

func newComboState(keys []string) (*comboState, error) {
	s := &comboState{}
	for _, k := range keys {
		codes := keyNameToRawcodes(k)
		if len(codes) == 0 {
			log.Warnf("hotkey: cannot map key %q to rawcodes", k)
			continue
		}
		s.keys = append(s.keys, k)
		s.codes = append(s.codes, codes)
	}
	if len(s.keys) == 0 {
		return nil, fmt.Errorf("no valid keys")
	}
	s.pressed = make([]bool, len(s.keys))
	return s, nil
}

// press records a key down and reports whether the whole combination is now held.
// Completing the combination resets it so holding the keys fires once.
func (s *comboState) press(raw uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mark(raw, true)
	for _, p := range s.pressed {
		if !p {
			return false
		}
	}
	for i := range s.pressed {
		s.pressed[i] = false
	}
	return true
}

func (s *comboState) release(raw uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mark(raw, false)
}

func (s *comboState) mark(raw uint16, down bool) {
	for i, codes := range s.codes {
		for _, c := range codes {
			if c == raw {
				s.pressed[i] = down
			}
		}
	}
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	parts := strings.Split(strings.ToLower(hotkeyConfig), "+")
	var keys []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			part = "ctrl"
		case "option":
			part = "alt"
		case "win", "super":
			part = "cmd"
		}
		keys = append(keys, part)
	}
	return keys
}

// Windows virtual key codes, which gohook reports as rawcodes.
var rawcodes = func() map[string][]uint16 {
	m := map[string][]uint16{
		"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
		"alt":   {164, 165}, // VK_LMENU, VK_RMENU
		"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
		"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

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
	}
	m["win"] = m["cmd"]
	m["super"] = m["cmd"]
	for c := 'a'; c <= 'z'; c++ {
		m[string(c)] = []uint16{uint16('A' + c - 'a')}
	}
	for c := '0'; c <= '9'; c++ {
		m[string(c)] = []uint16{uint16(c)}
	}
	for n := 1; n <= 24; n++ {
		m[fmt.Sprintf("f%d", n)] = []uint16{uint16(111 + n)} // VK_F1 = 112
	}
	return m
}()

// keyNameToRawcodes maps a key name to its rawcodes, both sides for modifiers.
func keyNameToRawcodes(keyName string) []uint16 {
	codes, ok := rawcodes[strings.ToLower(strings.TrimSpace(keyName))]
	if !ok {
		return nil
	}
	return codes
}
