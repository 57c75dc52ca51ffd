package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xinerama"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xprop"
)

// ErrOtherWM is returned by BecomeWM when another client already redirects
// the root window's substructure.
var ErrOtherWM = errors.New("another window manager is running")

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	haveRandR    bool
	haveXinerama bool
}

// rootEventMask is what a window manager selects on the root window.
const rootEventMask = xproto.EventMaskSubstructureRedirect |
	xproto.EventMaskSubstructureNotify |
	xproto.EventMaskStructureNotify |
	xproto.EventMaskPropertyChange

// ClientEventMask is what the manager selects on a client. Crossing events
// are only wanted while focus follows the pointer.
func ClientEventMask(pointer bool) uint32 {
	mask := uint32(xproto.EventMaskPropertyChange)
	if pointer {
		mask |= xproto.EventMaskEnterWindow
	}
	return mask
}

// PointerBindings are the Control-button chords grabbed on every client:
// button 1 moves a window and button 3 resizes it.
var PointerBindings = []string{"Control-1", "Control-3"}

// NewConnection connects to display ("" means $DISPLAY) and initializes the
// extensions the manager uses.
func NewConnection(display string) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, err
	}

	// Initialize keybind module (required for global hotkeys)
	keybind.Initialize(xu)

	c := &Connection{XUtil: xu, Root: xu.RootWin()}
	c.haveRandR = randr.Init(xu.Conn()) == nil
	c.haveXinerama = xinerama.Init(xu.Conn()) == nil

	// Intern the atoms used on hot paths now so later requests never wait.
	for _, name := range []string{"WM_STATE", "WM_PROTOCOLS", "WM_DELETE_WINDOW", "WM_TAKE_FOCUS"} {
		if _, err := xprop.Atm(xu, name); err != nil {
			return nil, fmt.Errorf("failed to intern %s: %w", name, err)
		}
	}
	return c, nil
}

// BecomeWM selects substructure redirection on the root window. Only one
// client may hold it.
func (c *Connection) BecomeWM() error {
	err := xproto.ChangeWindowAttributesChecked(c.XUtil.Conn(), c.Root,
		xproto.CwEventMask, []uint32{rootEventMask}).Check()
	if err != nil {
		if _, ok := err.(xproto.AccessError); ok {
			return ErrOtherWM
		}
		return fmt.Errorf("failed to select root events: %w", err)
	}
	if c.haveRandR {
		randr.SelectInput(c.XUtil.Conn(), c.Root, randr.NotifyMaskScreenChange)
	}
	return nil
}

// HasRandR reports whether screen change notifications are available.
func (c *Connection) HasRandR() bool {
	return c.haveRandR
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
