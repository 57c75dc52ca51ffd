//go:build linux

package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/tilewm/internal/x11"
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// ErrDisplayClosed is reported in ConnectionLost when the server hangs up.
var ErrDisplayClosed = errors.New("display connection closed")

// LinuxBackend drives an X11 server as its window manager.
//
// The pump goroutine started by Start is the only reader of the connection.
// It performs the round trips needed to describe new windows and the
// monitor layout; the request methods called from the reactor only write.
type LinuxBackend struct {
	conn   *x11.Connection
	logger *slog.Logger

	mu sync.Mutex
	// pendingUnmaps counts unmaps we requested, so their notifications are
	// not mistaken for a client withdrawing its window.
	pendingUnmaps map[xproto.Window]int
	takeFocus     map[xproto.Window]bool
	canDelete     map[xproto.Window]bool
	docks         map[xproto.Window]bool

	// clients holds the windows whose events we select.
	clients      map[xproto.Window]bool
	pointerFocus bool

	closeOnce sync.Once
	stopping  chan struct{}
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend connects to display and takes over window management.
// It fails with x11.ErrOtherWM if another manager already runs.
func NewLinuxBackend(display string, logger *slog.Logger) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	if err := conn.BecomeWM(); err != nil {
		conn.Close()
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := conn.Advertise("tilewm"); err != nil {
		logger.Warn("failed to advertise EWMH support", "error", err)
	}
	return &LinuxBackend{
		conn:          conn,
		logger:        logger,
		pendingUnmaps: make(map[xproto.Window]int),
		takeFocus:     make(map[xproto.Window]bool),
		canDelete:     make(map[xproto.Window]bool),
		docks:         make(map[xproto.Window]bool),
		clients:       make(map[xproto.Window]bool),
		stopping:      make(chan struct{}),
	}, nil
}

// Disconnect closes the underlying X11 connection. The pump exits without
// reporting ConnectionLost.
func (b *LinuxBackend) Disconnect() {
	if b == nil || b.conn == nil {
		return
	}
	b.closeOnce.Do(func() {
		close(b.stopping)
		b.conn.Close()
	})
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// Start launches the event pump. Events reach emit in server order.
func (b *LinuxBackend) Start(ctx context.Context, emit func(Event)) error {
	go b.pump(ctx, emit)
	return nil
}

func (b *LinuxBackend) pump(ctx context.Context, emit func(Event)) {
	xc := b.conn.XUtil.Conn()
	for {
		ev, xerr := xc.WaitForEvent()
		if ev == nil && xerr == nil {
			select {
			case <-b.stopping:
			case <-ctx.Done():
			default:
				emit(ConnectionLost{Err: ErrDisplayClosed})
			}
			return
		}
		if xerr != nil {
			emit(translateError(xerr))
			continue
		}
		for _, out := range b.translate(ev) {
			emit(out)
		}
	}
}

func translateError(xerr xgb.Error) ProtocolError {
	var code uint8
	switch xerr.(type) {
	case xproto.ValueError:
		code = ErrCodeValue
	case xproto.WindowError:
		code = ErrCodeWindow
	case xproto.AtomError:
		code = ErrCodeAtom
	case xproto.MatchError:
		code = ErrCodeMatch
	case xproto.DrawableError:
		code = ErrCodeDrawable
	case xproto.AccessError:
		code = ErrCodeAccess
	}
	return ProtocolError{ID: WindowID(xerr.BadId()), Code: code}
}

func (b *LinuxBackend) translate(ev xgb.Event) []Event {
	switch e := ev.(type) {
	case xproto.MapRequestEvent:
		d, err := b.conn.Describe(e.Window)
		if err != nil {
			// The window vanished before we could look at it.
			b.logger.Debug("ignoring map request", "window", e.Window, "error", err)
			return nil
		}
		info := b.record(d)
		info.MapRequested = true
		out := []Event{WindowAppeared{Info: info}}
		if d.Dock {
			out = b.appendOutputs(out)
		}
		return out

	case xproto.UnmapNotifyEvent:
		if e.Event != b.conn.Root && e.Event != e.Window {
			return nil
		}
		if b.consumeUnmap(e.Window) {
			return nil
		}
		return []Event{WindowGone{ID: WindowID(e.Window)}}

	case xproto.DestroyNotifyEvent:
		out := []Event{WindowGone{ID: WindowID(e.Window)}}
		if b.forget(e.Window) {
			out = b.appendOutputs(out)
		}
		return out

	case xproto.ConfigureRequestEvent:
		return []Event{ConfigureRequest{
			ID: WindowID(e.Window),
			Request: Rect{
				X:      int(e.X),
				Y:      int(e.Y),
				Width:  int(e.Width),
				Height: int(e.Height),
			},
		}}

	case xproto.EnterNotifyEvent:
		if e.Mode != xproto.NotifyModeNormal || e.Event == b.conn.Root {
			return nil
		}
		return []Event{FocusHintFromPointer{ID: WindowID(e.Event)}}

	case xproto.KeyPressEvent:
		return []Event{KeyPressed{Mods: e.State, Keycode: uint8(e.Detail)}}

	case xproto.ButtonPressEvent:
		return []Event{ButtonPressed{
			ID:     WindowID(e.Event),
			Button: uint8(e.Detail),
			Mods:   e.State,
			RootX:  int(e.RootX),
			RootY:  int(e.RootY),
		}}

	case xproto.MotionNotifyEvent:
		return []Event{PointerDragged{ID: WindowID(e.Event), RootX: int(e.RootX), RootY: int(e.RootY)}}

	case xproto.ButtonReleaseEvent:
		return []Event{ButtonReleased{ID: WindowID(e.Event), Button: uint8(e.Detail)}}

	case randr.ScreenChangeNotifyEvent:
		return b.appendOutputs(nil)
	}
	return nil
}

func (b *LinuxBackend) appendOutputs(out []Event) []Event {
	displays, err := b.Outputs()
	if err != nil {
		b.logger.Warn("failed to re-read outputs", "error", err)
		return out
	}
	return append(out, OutputsChanged{Displays: displays})
}

// record remembers the protocol details of a described window and converts
// it for the manager.
func (b *LinuxBackend) record(d x11.WindowDetails) WindowInfo {
	b.mu.Lock()
	b.takeFocus[d.ID] = d.Supports("WM_TAKE_FOCUS")
	b.canDelete[d.ID] = d.Supports("WM_DELETE_WINDOW")
	if d.Dock {
		b.docks[d.ID] = true
	}
	managed := d.Kind != x11.KindUnmanaged
	if managed {
		b.clients[d.ID] = true
	}
	pointer := b.pointerFocus
	b.mu.Unlock()

	if managed {
		b.conn.SelectClientEvents(d.ID, pointer)
		if err := b.conn.GrabPointerBindings(d.ID); err != nil {
			b.logger.Warn("failed to grab pointer bindings", "window", d.ID, "error", err)
		}
	}
	return WindowInfo{
		ID:       WindowID(d.ID),
		Geometry: Rect{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height},
		Class:    d.Class,
		Kind:     kindOf(d.Kind),
	}
}

func kindOf(kind int) WindowKind {
	switch kind {
	case x11.KindFloating:
		return KindFloating
	case x11.KindUnmanaged:
		return KindUnmanaged
	default:
		return KindNormal
	}
}

func (b *LinuxBackend) consumeUnmap(win xproto.Window) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pendingUnmaps[win] == 0 {
		return false
	}
	b.pendingUnmaps[win]--
	if b.pendingUnmaps[win] == 0 {
		delete(b.pendingUnmaps, win)
	}
	return true
}

// forget drops everything known about win and reports whether it was a dock.
func (b *LinuxBackend) forget(win xproto.Window) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	dock := b.docks[win]
	delete(b.pendingUnmaps, win)
	delete(b.takeFocus, win)
	delete(b.canDelete, win)
	delete(b.docks, win)
	delete(b.clients, win)
	return dock
}

// Outputs returns all active displays with dock struts removed from their
// usable areas.
func (b *LinuxBackend) Outputs() ([]Display, error) {
	b.mu.Lock()
	docks := make([]xproto.Window, 0, len(b.docks))
	for win := range b.docks {
		docks = append(docks, win)
	}
	b.mu.Unlock()

	monitors, err := b.conn.GetMonitors(docks)
	if err != nil {
		return nil, err
	}
	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, Display{
			ID:     m.ID,
			Name:   m.Name,
			Bounds: rectOf(m.Bounds),
			Usable: rectOf(m.Usable),
		})
	}
	return displays, nil
}

func rectOf(a x11.Area) Rect {
	return Rect{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}
}

// Existing describes the viewable top-level windows present before startup.
func (b *LinuxBackend) Existing() ([]WindowInfo, error) {
	children, err := b.conn.TopLevel()
	if err != nil {
		return nil, err
	}
	var infos []WindowInfo
	for _, win := range children {
		d, err := b.conn.Describe(win)
		if err != nil || !d.Viewable {
			continue
		}
		infos = append(infos, b.record(d))
	}
	return infos, nil
}

// LiveWindows lists every top-level window the server still knows.
func (b *LinuxBackend) LiveWindows() ([]WindowID, error) {
	children, err := b.conn.TopLevel()
	if err != nil {
		return nil, err
	}
	ids := make([]WindowID, len(children))
	for i, win := range children {
		ids[i] = WindowID(win)
	}
	return ids, nil
}

// Apply sends one layout diff: geometry first, then unmaps, then maps, so
// newly shown windows appear at their final size.
func (b *LinuxBackend) Apply(diff Diff) error {
	for _, c := range diff.Configure {
		b.conn.MoveResize(xproto.Window(c.Window), c.Bounds.X, c.Bounds.Y, c.Bounds.Width, c.Bounds.Height)
	}
	for _, id := range diff.Unmap {
		b.unmap(xproto.Window(id))
	}
	for _, id := range diff.Map {
		b.conn.Map(xproto.Window(id))
	}
	return nil
}

func (b *LinuxBackend) Map(id WindowID) error {
	b.conn.Map(xproto.Window(id))
	return nil
}

func (b *LinuxBackend) Unmap(id WindowID) error {
	b.unmap(xproto.Window(id))
	return nil
}

// unmap hides win and expects the notification it causes.
func (b *LinuxBackend) unmap(win xproto.Window) {
	b.expectUnmap(win)
	b.conn.Unmap(win)
}

func (b *LinuxBackend) expectUnmap(win xproto.Window) {
	b.mu.Lock()
	b.pendingUnmaps[win]++
	b.mu.Unlock()
}

// Focus focuses a window, or clears the focus when id is zero.
func (b *LinuxBackend) Focus(id WindowID) error {
	if id == 0 {
		return b.conn.ClearFocus()
	}
	win := xproto.Window(id)
	b.mu.Lock()
	takeFocus := b.takeFocus[win]
	b.mu.Unlock()
	return b.conn.Focus(win, takeFocus)
}

// Raise stacks a window above its siblings.
func (b *LinuxBackend) Raise(id WindowID) error {
	b.conn.Raise(xproto.Window(id))
	return nil
}

// SetPointerFocus re-selects client events with or without pointer entry.
func (b *LinuxBackend) SetPointerFocus(enabled bool) error {
	b.mu.Lock()
	b.pointerFocus = enabled
	wins := make([]xproto.Window, 0, len(b.clients))
	for win := range b.clients {
		wins = append(wins, win)
	}
	b.mu.Unlock()
	for _, win := range wins {
		b.conn.SelectClientEvents(win, enabled)
	}
	return nil
}

// Close asks the client to close the window, killing it when it does not
// speak WM_DELETE_WINDOW.
func (b *LinuxBackend) Close(id WindowID) (bool, error) {
	win := xproto.Window(id)
	b.mu.Lock()
	canDelete := b.canDelete[win]
	b.mu.Unlock()
	if canDelete {
		return true, b.conn.RequestClose(win)
	}
	b.conn.Kill(win)
	return false, nil
}

// DestroyConfirm forcibly disconnects the window's client.
func (b *LinuxBackend) DestroyConfirm(id WindowID) error {
	b.conn.Kill(xproto.Window(id))
	return nil
}

func (b *LinuxBackend) Configure(id WindowID, bounds Rect) error {
	b.conn.MoveResize(xproto.Window(id), bounds.X, bounds.Y, bounds.Width, bounds.Height)
	return nil
}

func (b *LinuxBackend) ConfirmConfigure(id WindowID, bounds Rect) error {
	return b.conn.SendConfigureNotify(xproto.Window(id), bounds.X, bounds.Y, bounds.Width, bounds.Height)
}

func (b *LinuxBackend) SetClientList(ids []WindowID) error {
	wins := make([]xproto.Window, len(ids))
	for i, id := range ids {
		wins[i] = xproto.Window(id)
	}
	return b.conn.SetClientList(wins)
}

func (b *LinuxBackend) SetDesktops(count, current int) error {
	return b.conn.SetDesktops(count, current)
}
