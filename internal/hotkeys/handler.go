package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// x11Accessor is an optional interface for backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Handler grabs configured key chords on the root window and maps the
// resulting key presses back to command lines.
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	logger *slog.Logger
	table  *Table

	mu      sync.Mutex
	grabbed []Chord
}

var ignoreModsOnce sync.Once

// NewHandler creates a hotkey handler for an X11 backend. It returns an
// error when the backend does not expose an X connection.
func NewHandler(backend any, logger *slog.Logger) (*Handler, error) {
	accessor, ok := backend.(x11Accessor)
	if !ok || accessor.XUtil() == nil {
		return nil, errors.New("hotkeys need an X11 backend")
	}
	if logger == nil {
		logger = slog.Default()
	}
	xu := accessor.XUtil()

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:     xu,
		root:   accessor.RootWindow(),
		logger: logger,
		table:  NewTable(lockMask(xevent.IgnoreMods)),
	}, nil
}

// Bind replaces every grab with bindings, a map from chord strings such as
// "Mod4-Shift-j" to command lines. Chords that fail to parse are skipped and
// reported together; the rest stay bound.
func (h *Handler) Bind(bindings map[string]string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.grabbed {
		keybind.Ungrab(h.xu, h.root, c.Mods, xproto.Keycode(c.Keycode))
	}
	h.grabbed = h.grabbed[:0]

	chords := make([]string, 0, len(bindings))
	for chord := range bindings {
		chords = append(chords, chord)
	}
	sort.Strings(chords)

	next := make(map[Chord]string, len(bindings))
	var errs []error
	for _, chord := range chords {
		mods, keycodes, err := keybind.ParseString(h.xu, chord)
		if err != nil {
			errs = append(errs, fmt.Errorf("binding %q: %w", chord, err))
			continue
		}
		for _, kc := range keycodes {
			c := Chord{Mods: mods, Keycode: uint8(kc)}
			if prev, dup := next[c]; dup {
				h.logger.Warn("key chord bound twice", "chord", chord, "kept", prev)
				continue
			}
			keybind.Grab(h.xu, h.root, mods, kc)
			next[c] = bindings[chord]
			h.grabbed = append(h.grabbed, c)
		}
	}
	h.table.Replace(next)
	h.logger.Debug("key bindings grabbed", "chords", len(h.grabbed))
	return errors.Join(errs...)
}

// Lookup returns the command bound to a key press.
func (h *Handler) Lookup(mods uint16, keycode uint8) (string, bool) {
	return h.table.Lookup(mods, keycode)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	xevent.IgnoreMods = ignoreMasks(caps, numLock, scrollLock)
}

// ignoreMasks returns every combination of the lock masks, including none.
func ignoreMasks(caps, numLock, scrollLock uint16) []uint16 {
	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}
	sort.Slice(ignore, func(i, j int) bool { return ignore[i] < ignore[j] })
	return ignore
}

func lockMask(ignore []uint16) uint16 {
	var mask uint16
	for _, m := range ignore {
		mask |= m
	}
	return mask
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
