package hotkeys

import "sync"

// modifierBits covers Shift, Lock, Control and Mod1 through Mod5. Pointer
// button state in a key event's mask is ignored.
const modifierBits uint16 = 0x00ff

// Chord is a modifier mask plus a keycode.
type Chord struct {
	Mods    uint16
	Keycode uint8
}

// Table resolves key presses to command lines, treating lock modifiers as
// absent.
type Table struct {
	mu       sync.RWMutex
	locks    uint16
	bindings map[Chord]string
}

// NewTable returns an empty table that ignores the given lock mask.
func NewTable(locks uint16) *Table {
	return &Table{locks: locks, bindings: make(map[Chord]string)}
}

// Replace swaps in a new set of bindings.
func (t *Table) Replace(bindings map[Chord]string) {
	normalized := make(map[Chord]string, len(bindings))
	for c, line := range bindings {
		normalized[t.normalize(c)] = line
	}
	t.mu.Lock()
	t.bindings = normalized
	t.mu.Unlock()
}

// Lookup returns the command for a key press with the given state.
func (t *Table) Lookup(mods uint16, keycode uint8) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	line, ok := t.bindings[t.normalize(Chord{Mods: mods, Keycode: keycode})]
	return line, ok
}

// Len returns the number of bound chords.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.bindings)
}

func (t *Table) normalize(c Chord) Chord {
	c.Mods = c.Mods & modifierBits &^ t.locks
	return c
}
