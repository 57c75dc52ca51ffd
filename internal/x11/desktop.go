package x11

import (
	"fmt"
	"strconv"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// supportedHints are the EWMH root properties the manager maintains.
var supportedHints = []string{
	"_NET_SUPPORTED",
	"_NET_SUPPORTING_WM_CHECK",
	"_NET_WM_NAME",
	"_NET_CLIENT_LIST",
	"_NET_ACTIVE_WINDOW",
	"_NET_NUMBER_OF_DESKTOPS",
	"_NET_CURRENT_DESKTOP",
	"_NET_DESKTOP_NAMES",
	"_NET_WM_WINDOW_TYPE",
	"_NET_WM_STRUT",
	"_NET_WM_STRUT_PARTIAL",
}

// Advertise creates the _NET_SUPPORTING_WM_CHECK window and publishes the
// manager's name and supported hints.
func (c *Connection) Advertise(name string) error {
	conn := c.XUtil.Conn()
	check, err := xproto.NewWindowId(conn)
	if err != nil {
		return fmt.Errorf("failed to allocate check window: %w", err)
	}
	err = xproto.CreateWindowChecked(conn, 0, check, c.Root,
		-1, -1, 1, 1, 0,
		xproto.WindowClassInputOnly, 0, 0, nil).Check()
	if err != nil {
		return fmt.Errorf("failed to create check window: %w", err)
	}

	for _, win := range []xproto.Window{c.Root, check} {
		if err := ewmh.SupportingWmCheckSet(c.XUtil, win, check); err != nil {
			return fmt.Errorf("failed to set supporting wm check: %w", err)
		}
	}
	if err := ewmh.WmNameSet(c.XUtil, check, name); err != nil {
		return fmt.Errorf("failed to set wm name: %w", err)
	}
	if err := ewmh.SupportedSet(c.XUtil, supportedHints); err != nil {
		return fmt.Errorf("failed to set supported hints: %w", err)
	}
	return nil
}

// SetClientList publishes the managed windows in mapping order.
func (c *Connection) SetClientList(wins []xproto.Window) error {
	if err := ewmh.ClientListSet(c.XUtil, wins); err != nil {
		return fmt.Errorf("failed to set client list: %w", err)
	}
	return nil
}

// SetDesktops publishes the desktop count, their names and the current one.
// Desktop names are their 1-based numbers.
func (c *Connection) SetDesktops(count, current int) error {
	if err := ewmh.NumberOfDesktopsSet(c.XUtil, uint(count)); err != nil {
		return fmt.Errorf("failed to set desktop count: %w", err)
	}
	names := make([]string, count)
	for i := range names {
		names[i] = strconv.Itoa(i + 1)
	}
	if err := ewmh.DesktopNamesSet(c.XUtil, names); err != nil {
		return fmt.Errorf("failed to set desktop names: %w", err)
	}
	if err := ewmh.CurrentDesktopSet(c.XUtil, uint(current)); err != nil {
		return fmt.Errorf("failed to set current desktop: %w", err)
	}
	return nil
}
