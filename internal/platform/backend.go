package platform

import "context"

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Inset shrinks the rectangle by the given margins, never below zero size.
func (r Rect) Inset(top, bottom, left, right int) Rect {
	out := Rect{
		X:      r.X + left,
		Y:      r.Y + top,
		Width:  r.Width - left - right,
		Height: r.Height - top - bottom,
	}
	if out.Width < 0 {
		out.Width = 0
	}
	if out.Height < 0 {
		out.Height = 0
	}
	return out
}

// Display describes a physical display and its usable work area.
type Display struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Bounds Rect   `json:"bounds"`
	Usable Rect   `json:"usable"`
}

// WindowKind classifies a window as it first appears.
type WindowKind int

const (
	// KindNormal windows are tiled.
	KindNormal WindowKind = iota
	// KindFloating windows are managed but keep their own geometry (dialogs, transients).
	KindFloating
	// KindUnmanaged windows are mapped and otherwise left alone (docks, desktops, notifications).
	KindUnmanaged
)

func (k WindowKind) String() string {
	switch k {
	case KindFloating:
		return "floating"
	case KindUnmanaged:
		return "unmanaged"
	default:
		return "normal"
	}
}

// WindowInfo describes a window when it first becomes known.
type WindowInfo struct {
	ID           WindowID
	Geometry     Rect
	MapRequested bool
	Class        string
	Kind         WindowKind
}

// Change is one window's new geometry.
type Change struct {
	Window WindowID
	Bounds Rect
}

// Diff is the set of display requests produced by one layout recompute.
type Diff struct {
	Configure []Change
	Map       []WindowID
	Unmap     []WindowID
}

// Empty reports whether the diff carries no requests.
func (d Diff) Empty() bool {
	return len(d.Configure) == 0 && len(d.Map) == 0 && len(d.Unmap) == 0
}

// Merge appends other's requests to d.
func (d *Diff) Merge(other Diff) {
	d.Configure = append(d.Configure, other.Configure...)
	d.Map = append(d.Map, other.Map...)
	d.Unmap = append(d.Unmap, other.Unmap...)
}

// Backend abstracts the display connection the window manager drives.
//
// Start begins delivering translated events to emit, in arrival order, from a
// single goroutine. Every other method only writes requests; none of them
// waits for a reply from the display server.
//
// Close reports whether the client was only asked to close. Such a window
// stays until the client withdraws it; otherwise it is already gone.
// SetPointerFocus selects or drops pointer crossing events on every client,
// current and future.
type Backend interface {
	Start(ctx context.Context, emit func(Event)) error
	Outputs() ([]Display, error)
	Existing() ([]WindowInfo, error)
	LiveWindows() ([]WindowID, error)

	Apply(diff Diff) error
	Map(id WindowID) error
	Unmap(id WindowID) error
	Focus(id WindowID) error
	Raise(id WindowID) error
	Close(id WindowID) (asked bool, err error)
	DestroyConfirm(id WindowID) error
	Configure(id WindowID, bounds Rect) error
	ConfirmConfigure(id WindowID, bounds Rect) error
	SetPointerFocus(enabled bool) error

	SetClientList(ids []WindowID) error
	SetDesktops(count, current int) error
	Disconnect()
}
