// Package platformtest provides an in-memory Backend that records every
// request, for driving the window manager without a display server.
package platformtest

import (
	"context"
	"sync"

	"github.com/1broseidon/tilewm/internal/platform"
)

// Recorder is a platform.Backend that stores requests instead of sending
// them. It keeps the latest geometry and map state per window.
type Recorder struct {
	mu sync.Mutex

	Displays []platform.Display
	Initial  []platform.WindowInfo
	Live     []platform.WindowID

	Geometry map[platform.WindowID]platform.Rect
	Mapped   map[platform.WindowID]bool

	Configured []platform.Change
	Confirmed  []platform.Change
	MapCalls   []platform.WindowID
	UnmapCalls []platform.WindowID
	Focused    []platform.WindowID
	Raised     []platform.WindowID
	Closed     []platform.WindowID
	ClientList []platform.WindowID
	Desktops   [2]int

	// Deletable windows are asked to close instead of being killed.
	Deletable    map[platform.WindowID]bool
	PointerFocus []bool

	emit func(platform.Event)
}

// NewRecorder returns a recorder with one output of the given size.
func NewRecorder(width, height int) *Recorder {
	r := &Recorder{
		Geometry:  make(map[platform.WindowID]platform.Rect),
		Mapped:    make(map[platform.WindowID]bool),
		Deletable: make(map[platform.WindowID]bool),
	}
	bounds := platform.Rect{Width: width, Height: height}
	r.Displays = []platform.Display{{ID: 0, Name: "test-0", Bounds: bounds, Usable: bounds}}
	return r
}

// Reset forgets recorded requests but keeps window state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Configured = nil
	r.Confirmed = nil
	r.MapCalls = nil
	r.UnmapCalls = nil
	r.Focused = nil
	r.Raised = nil
	r.Closed = nil
}

// Emit delivers ev to the function passed to Start.
func (r *Recorder) Emit(ev platform.Event) {
	r.mu.Lock()
	emit := r.emit
	r.mu.Unlock()
	if emit != nil {
		emit(ev)
	}
}

// Started reports whether Start has been called.
func (r *Recorder) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.emit != nil
}

// LastFocus returns the most recently focused window.
func (r *Recorder) LastFocus() (platform.WindowID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Focused) == 0 {
		return 0, false
	}
	return r.Focused[len(r.Focused)-1], true
}

func (r *Recorder) Start(ctx context.Context, emit func(platform.Event)) error {
	r.mu.Lock()
	r.emit = emit
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Outputs() ([]platform.Display, error) { return r.Displays, nil }

func (r *Recorder) Existing() ([]platform.WindowInfo, error) { return r.Initial, nil }

func (r *Recorder) LiveWindows() ([]platform.WindowID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]platform.WindowID(nil), r.Live...), nil
}

func (r *Recorder) Apply(diff platform.Diff) error {
	for _, c := range diff.Configure {
		r.Configure(c.Window, c.Bounds)
	}
	for _, id := range diff.Unmap {
		r.Unmap(id)
	}
	for _, id := range diff.Map {
		r.Map(id)
	}
	return nil
}

func (r *Recorder) Map(id platform.WindowID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.MapCalls = append(r.MapCalls, id)
	r.Mapped[id] = true
	return nil
}

func (r *Recorder) Unmap(id platform.WindowID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UnmapCalls = append(r.UnmapCalls, id)
	r.Mapped[id] = false
	return nil
}

func (r *Recorder) Focus(id platform.WindowID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Focused = append(r.Focused, id)
	return nil
}

func (r *Recorder) Raise(id platform.WindowID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Raised = append(r.Raised, id)
	return nil
}

func (r *Recorder) Close(id platform.WindowID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed = append(r.Closed, id)
	return r.Deletable[id], nil
}

func (r *Recorder) DestroyConfirm(id platform.WindowID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed = append(r.Closed, id)
	return nil
}

func (r *Recorder) Configure(id platform.WindowID, bounds platform.Rect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Configured = append(r.Configured, platform.Change{Window: id, Bounds: bounds})
	r.Geometry[id] = bounds
	return nil
}

func (r *Recorder) ConfirmConfigure(id platform.WindowID, bounds platform.Rect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Confirmed = append(r.Confirmed, platform.Change{Window: id, Bounds: bounds})
	return nil
}

func (r *Recorder) SetClientList(ids []platform.WindowID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ClientList = append([]platform.WindowID(nil), ids...)
	return nil
}

func (r *Recorder) SetDesktops(count, current int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Desktops = [2]int{count, current}
	return nil
}

func (r *Recorder) SetPointerFocus(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.PointerFocus = append(r.PointerFocus, enabled)
	return nil
}

func (r *Recorder) Disconnect() {}

var _ platform.Backend = (*Recorder)(nil)
