package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/mousebind"
	"github.com/BurntSushi/xgbutil/xprop"
)

// Window kinds reported by Describe.
const (
	KindNormal = iota
	KindFloating
	KindUnmanaged
)

// WindowDetails is what the manager needs to know about a new client.
type WindowDetails struct {
	ID       xproto.Window
	X        int
	Y        int
	Width    int
	Height   int
	Class    string
	Kind     int
	Dock     bool
	Viewable bool
	// Protocols lists the WM_PROTOCOLS the client participates in.
	Protocols []string
}

// Supports reports whether the client listed protocol in WM_PROTOCOLS.
func (d WindowDetails) Supports(protocol string) bool {
	for _, p := range d.Protocols {
		if p == protocol {
			return true
		}
	}
	return false
}

// Describe queries a window's geometry, class, type and protocols.
func (c *Connection) Describe(win xproto.Window) (WindowDetails, error) {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), win).Reply()
	if err != nil {
		return WindowDetails{}, fmt.Errorf("failed to get attributes of 0x%x: %w", win, err)
	}
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return WindowDetails{}, fmt.Errorf("failed to get geometry of 0x%x: %w", win, err)
	}

	d := WindowDetails{
		ID:       win,
		X:        int(geom.X),
		Y:        int(geom.Y),
		Width:    int(geom.Width),
		Height:   int(geom.Height),
		Viewable: attrs.MapState == xproto.MapStateViewable,
		Class:    windowClass(c, win),
	}
	d.Protocols, _ = icccm.WmProtocolsGet(c.XUtil, win)

	if attrs.OverrideRedirect {
		d.Kind = KindUnmanaged
		return d, nil
	}

	types, _ := ewmh.WmWindowTypeGet(c.XUtil, win)
	d.Kind, d.Dock = classifyTypes(types)
	if d.Kind == KindNormal {
		if parent, err := icccm.WmTransientForGet(c.XUtil, win); err == nil && parent != 0 {
			d.Kind = KindFloating
		}
	}
	return d, nil
}

// classifyTypes maps _NET_WM_WINDOW_TYPE values to a kind. The first
// recognized type wins, following the EWMH preference order.
func classifyTypes(types []string) (kind int, dock bool) {
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_DOCK":
			return KindUnmanaged, true
		case "_NET_WM_WINDOW_TYPE_DESKTOP",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION",
			"_NET_WM_WINDOW_TYPE_TOOLTIP",
			"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU",
			"_NET_WM_WINDOW_TYPE_POPUP_MENU",
			"_NET_WM_WINDOW_TYPE_COMBO",
			"_NET_WM_WINDOW_TYPE_DND":
			return KindUnmanaged, false
		case "_NET_WM_WINDOW_TYPE_DIALOG",
			"_NET_WM_WINDOW_TYPE_UTILITY",
			"_NET_WM_WINDOW_TYPE_TOOLBAR",
			"_NET_WM_WINDOW_TYPE_MENU":
			return KindFloating, false
		case "_NET_WM_WINDOW_TYPE_NORMAL":
			return KindNormal, false
		}
	}
	return KindNormal, false
}

func windowClass(c *Connection, win xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, win)
	if err != nil || wmClass == nil {
		return ""
	}
	if wmClass.Class != "" {
		return wmClass.Class
	}
	return wmClass.Instance
}

// TopLevel lists the root window's children, bottom to top.
func (c *Connection) TopLevel() ([]xproto.Window, error) {
	tree, err := xproto.QueryTree(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query tree: %w", err)
	}
	return tree.Children, nil
}

// SelectClientEvents subscribes to property changes on win, and to pointer
// entry when pointer is set.
func (c *Connection) SelectClientEvents(win xproto.Window, pointer bool) {
	xproto.ChangeWindowAttributes(c.XUtil.Conn(), win, xproto.CwEventMask, []uint32{ClientEventMask(pointer)})
}

// GrabPointerBindings grabs PointerBindings on win. While a grabbed button
// is held, motion and release are reported against win.
func (c *Connection) GrabPointerBindings(win xproto.Window) error {
	for _, chord := range PointerBindings {
		mods, button, err := mousebind.ParseString(c.XUtil, chord)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", chord, err)
		}
		mousebind.Grab(c.XUtil, win, mods, button, false)
	}
	return nil
}

// Raise stacks win above its siblings.
func (c *Connection) Raise(win xproto.Window) {
	xproto.ConfigureWindow(c.XUtil.Conn(), win, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
}

// MoveResize sets a window's position and size.
func (c *Connection) MoveResize(win xproto.Window, x, y, width, height int) {
	mask := uint16(xproto.ConfigWindowX | xproto.ConfigWindowY |
		xproto.ConfigWindowWidth | xproto.ConfigWindowHeight | xproto.ConfigWindowBorderWidth)
	xproto.ConfigureWindow(c.XUtil.Conn(), win, mask, []uint32{
		uint32(int32(x)),
		uint32(int32(y)),
		uint32(max(width, 1)),
		uint32(max(height, 1)),
		0,
	})
}

// SendConfigureNotify tells a client its geometry is unchanged after a
// refused configure request.
func (c *Connection) SendConfigureNotify(win xproto.Window, x, y, width, height int) error {
	ev := xproto.ConfigureNotifyEvent{
		Event:            win,
		Window:           win,
		AboveSibling:     0,
		X:                int16(x),
		Y:                int16(y),
		Width:            uint16(max(width, 1)),
		Height:           uint16(max(height, 1)),
		BorderWidth:      0,
		OverrideRedirect: false,
	}
	xproto.SendEvent(c.XUtil.Conn(), false, win, xproto.EventMaskStructureNotify, string(ev.Bytes()))
	return nil
}

// Map maps win and records the ICCCM normal state.
func (c *Connection) Map(win xproto.Window) {
	xproto.MapWindow(c.XUtil.Conn(), win)
	_ = icccm.WmStateSet(c.XUtil, win, &icccm.WmState{State: icccm.StateNormal})
}

// Unmap unmaps win and records the ICCCM iconic state.
func (c *Connection) Unmap(win xproto.Window) {
	xproto.UnmapWindow(c.XUtil.Conn(), win)
	_ = icccm.WmStateSet(c.XUtil, win, &icccm.WmState{State: icccm.StateIconic})
}

// Focus gives win the input focus and publishes it as the active window.
// Clients that take focus themselves also get WM_TAKE_FOCUS.
func (c *Connection) Focus(win xproto.Window, takeFocus bool) error {
	xproto.SetInputFocus(c.XUtil.Conn(), xproto.InputFocusPointerRoot, win, xproto.TimeCurrentTime)
	if takeFocus {
		if err := c.sendProtocol(win, "WM_TAKE_FOCUS"); err != nil {
			return err
		}
	}
	return ewmh.ActiveWindowSet(c.XUtil, win)
}

// ClearFocus returns the input focus to the root window.
func (c *Connection) ClearFocus() error {
	xproto.SetInputFocus(c.XUtil.Conn(), xproto.InputFocusPointerRoot, xproto.InputFocusPointerRoot, xproto.TimeCurrentTime)
	return ewmh.ActiveWindowSet(c.XUtil, 0)
}

// RequestClose asks a client to close via WM_DELETE_WINDOW.
func (c *Connection) RequestClose(win xproto.Window) error {
	return c.sendProtocol(win, "WM_DELETE_WINDOW")
}

// Kill disconnects the client owning win.
func (c *Connection) Kill(win xproto.Window) {
	xproto.KillClient(c.XUtil.Conn(), uint32(win))
}

func (c *Connection) sendProtocol(win xproto.Window, name string) error {
	protocols, err := xprop.Atm(c.XUtil, "WM_PROTOCOLS")
	if err != nil {
		return err
	}
	atom, err := xprop.Atm(c.XUtil, name)
	if err != nil {
		return err
	}

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   protocols,
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			uint32(atom),
			uint32(xproto.TimeCurrentTime),
			0, 0, 0,
		}),
	}
	xproto.SendEvent(c.XUtil.Conn(), false, win, xproto.EventMaskNoEvent, string(ev.Bytes()))
	return nil
}
