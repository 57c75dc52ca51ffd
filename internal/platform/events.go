package platform

import "fmt"

// Event is one translated display-server event. The set of variants is closed.
type Event interface {
	isEvent()
}

// WindowAppeared is emitted for a map request or an adopted pre-existing window.
type WindowAppeared struct {
	Info WindowInfo
}

// WindowGone is emitted when a window is destroyed or withdrawn by its client.
type WindowGone struct {
	ID WindowID
}

// ConfigureRequest carries a client's requested geometry.
type ConfigureRequest struct {
	ID      WindowID
	Request Rect
}

// FocusHintFromPointer is emitted when the pointer enters a window.
type FocusHintFromPointer struct {
	ID WindowID
}

// ProtocolError is an asynchronous request error reported against a window.
type ProtocolError struct {
	ID   WindowID
	Code uint8
}

// KeyPressed is a grabbed key chord on the root window.
type KeyPressed struct {
	Mods    uint16
	Keycode uint8
}

// ButtonPressed is a grabbed pointer chord pressed over a client. The
// position is relative to the root window.
type ButtonPressed struct {
	ID     WindowID
	Button uint8
	Mods   uint16
	RootX  int
	RootY  int
}

// PointerDragged reports pointer motion while a grabbed button is held.
type PointerDragged struct {
	ID    WindowID
	RootX int
	RootY int
}

// ButtonReleased ends a pointer drag.
type ButtonReleased struct {
	ID     WindowID
	Button uint8
}

// OutputsChanged is emitted when the monitor layout changes.
type OutputsChanged struct {
	Displays []Display
}

// ConnectionLost is emitted once when the display connection closes.
type ConnectionLost struct {
	Err error
}

func (WindowAppeared) isEvent()       {}
func (WindowGone) isEvent()           {}
func (ConfigureRequest) isEvent()     {}
func (FocusHintFromPointer) isEvent() {}
func (ProtocolError) isEvent()        {}
func (KeyPressed) isEvent()           {}
func (ButtonPressed) isEvent()        {}
func (PointerDragged) isEvent()       {}
func (ButtonReleased) isEvent()       {}
func (OutputsChanged) isEvent()       {}
func (ConnectionLost) isEvent()       {}

// X11 core error codes reported in ProtocolError.Code.
const (
	ErrCodeValue    uint8 = 2
	ErrCodeWindow   uint8 = 3
	ErrCodeAtom     uint8 = 5
	ErrCodeMatch    uint8 = 8
	ErrCodeDrawable uint8 = 9
	ErrCodeAccess   uint8 = 10
)

// ErrorName returns a short name for a protocol error code.
func ErrorName(code uint8) string {
	switch code {
	case ErrCodeValue:
		return "BadValue"
	case ErrCodeWindow:
		return "BadWindow"
	case ErrCodeAtom:
		return "BadAtom"
	case ErrCodeMatch:
		return "BadMatch"
	case ErrCodeDrawable:
		return "BadDrawable"
	case ErrCodeAccess:
		return "BadAccess"
	default:
		return fmt.Sprintf("error(%d)", code)
	}
}
