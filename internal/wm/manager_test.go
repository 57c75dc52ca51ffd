package wm

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/1broseidon/tilewm/internal/command"
	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/ipc"
	"github.com/1broseidon/tilewm/internal/logging"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/platform/platformtest"
	"github.com/1broseidon/tilewm/internal/signals"
)

func newManager(t *testing.T, cfg *config.Config) (*Manager, *platformtest.Recorder) {
	t.Helper()
	rec := platformtest.NewRecorder(1920, 1080)
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	m := New(Options{Backend: rec, Config: cfg, Logger: logging.Discard()})
	if err := m.Bootstrap(rec.Displays, nil); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return m, rec
}

func appear(m *Manager, id platform.WindowID) {
	m.HandleDisplay(platform.WindowAppeared{Info: platform.WindowInfo{
		ID:           id,
		Geometry:     platform.Rect{X: 10, Y: 10, Width: 300, Height: 200},
		MapRequested: true,
	}})
}

func mustExec(t *testing.T, m *Manager, line string) string {
	t.Helper()
	payload, err := m.Execute(line)
	if err != nil {
		t.Fatalf("%s: %v", line, err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("invalid state after %q: %v", line, err)
	}
	return payload
}

func wantReason(t *testing.T, m *Manager, line string, reason command.Reason) {
	t.Helper()
	_, err := m.Execute(line)
	if err == nil {
		t.Fatalf("%s: expected %s", line, reason)
	}
	if got := command.ReasonOf(err); got != reason {
		t.Fatalf("%s: reason = %s (%v), want %s", line, got, err, reason)
	}
}

func width(rec *platformtest.Recorder, id platform.WindowID) int {
	return rec.Geometry[id].Width
}

func TestThreeWindowsThenCloseMiddle(t *testing.T) {
	m, rec := newManager(t, nil)
	for id := platform.WindowID(1); id <= 3; id++ {
		appear(m, id)
	}
	for id := platform.WindowID(1); id <= 3; id++ {
		if width(rec, id) != 640 || rec.Geometry[id].Height != 1080 {
			t.Fatalf("window %d geometry = %+v, want 640x1080", id, rec.Geometry[id])
		}
		if !rec.Mapped[id] {
			t.Fatalf("window %d not mapped", id)
		}
	}
	if rec.Geometry[3].X != 1280 {
		t.Fatalf("third window x = %d", rec.Geometry[3].X)
	}

	mustExec(t, m, "window focus-id 2")
	mustExec(t, m, "window close")

	if width(rec, 1) != 960 || width(rec, 3) != 960 {
		t.Fatalf("widths after close = %d, %d, want 960, 960", width(rec, 1), width(rec, 3))
	}
	if rec.Geometry[3].X != 960 {
		t.Fatalf("window 3 x = %d, want 960", rec.Geometry[3].X)
	}
	if len(rec.Closed) != 1 || rec.Closed[0] != 2 {
		t.Fatalf("closed = %v", rec.Closed)
	}
	if id, ok := m.Focused(); !ok || id != 3 {
		t.Fatalf("focus after close = %d, %v, want 3", id, ok)
	}
	if _, ok := m.NodeOf(2); ok {
		t.Fatalf("closed window still registered")
	}

	// The destroy notification that follows is ignored.
	m.HandleDisplay(platform.WindowGone{ID: 2})
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestCloseWaitsForDeletableClient(t *testing.T) {
	m, rec := newManager(t, nil)
	appear(m, 1)
	appear(m, 2)
	rec.Deletable[2] = true

	mustExec(t, m, "window close")
	if len(rec.Closed) != 1 || rec.Closed[0] != 2 {
		t.Fatalf("closed = %v", rec.Closed)
	}
	if _, ok := m.NodeOf(2); !ok {
		t.Fatalf("window removed before its client withdrew it")
	}
	if id, _ := m.Focused(); id != 2 || width(rec, 1) != 960 {
		t.Fatalf("close request changed state: focus=%d width 1=%d", id, width(rec, 1))
	}

	m.HandleDisplay(platform.WindowGone{ID: 2})
	if _, ok := m.NodeOf(2); ok {
		t.Fatalf("window kept after its client withdrew it")
	}
	if width(rec, 1) != 1920 {
		t.Fatalf("width after withdraw = %d", width(rec, 1))
	}
	if id, _ := m.Focused(); id != 1 {
		t.Fatalf("focus after withdraw = %d", id)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestToggleMonocleShowsActiveOnly(t *testing.T) {
	m, rec := newManager(t, nil)
	appear(m, 1)
	appear(m, 2)
	rec.Reset()

	mustExec(t, m, "window toggle-monocle")

	if len(rec.Configured) != 1 || rec.Configured[0].Window != 2 {
		t.Fatalf("configured = %+v, want only window 2", rec.Configured)
	}
	if got := rec.Configured[0].Bounds; got != (platform.Rect{Width: 1920, Height: 1080}) {
		t.Fatalf("active bounds = %+v", got)
	}
	if len(rec.UnmapCalls) != 1 || rec.UnmapCalls[0] != 1 {
		t.Fatalf("unmaps = %v, want [1]", rec.UnmapCalls)
	}
	if width(rec, 1) != 960 {
		t.Fatalf("hidden window geometry changed to %+v", rec.Geometry[1])
	}

	// Focusing the hidden window reveals it.
	rec.Reset()
	mustExec(t, m, "window focus next")
	if !rec.Mapped[1] || rec.Mapped[2] {
		t.Fatalf("mapped after focus: 1=%v 2=%v", rec.Mapped[1], rec.Mapped[2])
	}
	if width(rec, 1) != 1920 {
		t.Fatalf("revealed window width = %d", width(rec, 1))
	}

	mustExec(t, m, "window toggle-monocle")
	if width(rec, 1) != 960 || width(rec, 2) != 960 || !rec.Mapped[2] {
		t.Fatalf("split restored: %+v %+v", rec.Geometry[1], rec.Geometry[2])
	}
}

func TestFocusNextWraps(t *testing.T) {
	m, rec := newManager(t, nil)
	for id := platform.WindowID(1); id <= 3; id++ {
		appear(m, id)
	}
	if id, _ := m.Focused(); id != 3 {
		t.Fatalf("newest window should be focused, got %d", id)
	}
	mustExec(t, m, "window focus next")
	if id, _ := rec.LastFocus(); id != 1 {
		t.Fatalf("focus next from last = %d, want 1", id)
	}
	mustExec(t, m, "window focus prev")
	if id, _ := m.Focused(); id != 3 {
		t.Fatalf("focus prev from first = %d, want 3", id)
	}
}

func TestStaleProtocolErrorIsDropped(t *testing.T) {
	var buf bytes.Buffer
	rec := platformtest.NewRecorder(1920, 1080)
	m := New(Options{Backend: rec, Logger: logging.New(&buf, "debug")})
	if err := m.Bootstrap(rec.Displays, nil); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	appear(m, 1)
	rec.Reset()
	before := m.Windows()

	m.HandleDisplay(platform.ProtocolError{ID: 99, Code: platform.ErrCodeWindow})

	if len(rec.Configured)+len(rec.MapCalls)+len(rec.UnmapCalls)+len(rec.Focused) != 0 {
		t.Fatalf("stale error produced requests: %+v", rec)
	}
	after := m.Windows()
	if len(after) != len(before) || after[0] != before[0] {
		t.Fatalf("state changed: %+v -> %+v", before, after)
	}
	if !strings.Contains(buf.String(), "dropping stale protocol error") {
		t.Fatalf("stale error not logged: %q", buf.String())
	}
}

func TestProtocolErrorDegradesManagedWindow(t *testing.T) {
	m, rec := newManager(t, nil)
	appear(m, 1)
	appear(m, 2)

	m.HandleDisplay(platform.ProtocolError{ID: 2, Code: platform.ErrCodeMatch})
	if _, ok := m.NodeOf(2); ok {
		t.Fatalf("window 2 should no longer be tiled")
	}
	if width(rec, 1) != 1920 {
		t.Fatalf("window 1 width = %d, want 1920", width(rec, 1))
	}

	rec.Reset()
	m.HandleDisplay(platform.ConfigureRequest{ID: 2, Request: platform.Rect{X: 5, Y: 5, Width: 50, Height: 50}})
	if len(rec.Configured) != 1 || rec.Configured[0].Window != 2 {
		t.Fatalf("unmanaged configure should pass through, got %+v", rec.Configured)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestCapacitySoftFail(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxWindows = 1
	m, rec := newManager(t, cfg)
	appear(m, 1)
	appear(m, 2)

	if _, ok := m.NodeOf(2); ok {
		t.Fatalf("window over capacity was tiled")
	}
	if !rec.Mapped[2] {
		t.Fatalf("window over capacity should still be mapped")
	}
	if width(rec, 1) != 1920 {
		t.Fatalf("tiled window width = %d", width(rec, 1))
	}
	m.HandleDisplay(platform.WindowGone{ID: 2})
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestDuplicateAppearanceIgnored(t *testing.T) {
	m, _ := newManager(t, nil)
	appear(m, 1)
	appear(m, 1)
	if got := len(m.Windows()); got != 1 {
		t.Fatalf("windows = %d, want 1", got)
	}
}

func TestConfigureRequests(t *testing.T) {
	m, rec := newManager(t, nil)
	appear(m, 1)
	m.HandleDisplay(platform.WindowAppeared{Info: platform.WindowInfo{ID: 2, Class: "pinentry", MapRequested: true}})

	want := platform.Rect{X: 480, Y: 270, Width: 960, Height: 540}
	if rec.Geometry[2] != want {
		t.Fatalf("floating placement = %+v, want %+v", rec.Geometry[2], want)
	}
	if width(rec, 1) != 1920 {
		t.Fatalf("floating window took a tile: width = %d", width(rec, 1))
	}

	rec.Reset()
	m.HandleDisplay(platform.ConfigureRequest{ID: 1, Request: platform.Rect{Width: 10, Height: 10}})
	if len(rec.Configured) != 0 || len(rec.Confirmed) != 1 || rec.Confirmed[0].Bounds.Width != 1920 {
		t.Fatalf("tiled request: configured=%+v confirmed=%+v", rec.Configured, rec.Confirmed)
	}

	req := platform.Rect{X: 1, Y: 2, Width: 30, Height: 40}
	m.HandleDisplay(platform.ConfigureRequest{ID: 2, Request: req})
	if rec.Geometry[2] != req {
		t.Fatalf("floating request not honoured: %+v", rec.Geometry[2])
	}

	m.HandleDisplay(platform.ConfigureRequest{ID: 77, Request: req})
	if rec.Geometry[77] != req {
		t.Fatalf("unknown window request not passed through")
	}
}

func TestToggleFloating(t *testing.T) {
	m, rec := newManager(t, nil)
	appear(m, 1)
	appear(m, 2)

	mustExec(t, m, "window toggle-floating")
	if width(rec, 1) != 1920 {
		t.Fatalf("remaining tile width = %d", width(rec, 1))
	}
	mustExec(t, m, "window toggle-floating")
	if width(rec, 1) != 960 || width(rec, 2) != 960 {
		t.Fatalf("widths after unfloat = %d, %d", width(rec, 1), width(rec, 2))
	}
	wantReason(t, m, "window resize grow 200", command.BadArgument)
}

func TestSwapAndResize(t *testing.T) {
	m, rec := newManager(t, nil)
	appear(m, 1)
	appear(m, 2)

	mustExec(t, m, "window swap prev")
	if rec.Geometry[2].X != 0 || rec.Geometry[1].X != 960 {
		t.Fatalf("after swap: 1=%+v 2=%+v", rec.Geometry[1], rec.Geometry[2])
	}
	mustExec(t, m, "window resize grow 10")
	if !near(width(rec, 2), 1152) || width(rec, 1)+width(rec, 2) != 1920 {
		t.Fatalf("after resize: 1=%d 2=%d", width(rec, 1), width(rec, 2))
	}
	mustExec(t, m, "window resize shrink 10")
	if !near(width(rec, 2), 960) || width(rec, 1)+width(rec, 2) != 1920 {
		t.Fatalf("after shrink: 1=%d 2=%d", width(rec, 1), width(rec, 2))
	}
}

func TestSwapInsideMonocleKeepsFocusedShown(t *testing.T) {
	m, rec := newManager(t, nil)
	appear(m, 1)
	appear(m, 2)
	mustExec(t, m, "window toggle-monocle")

	mustExec(t, m, "window swap next")
	id, ok := m.Focused()
	if !ok || id != 2 {
		t.Fatalf("focus after swap = %d, %v, want 2", id, ok)
	}
	if !rec.Mapped[2] || rec.Mapped[1] {
		t.Fatalf("mapped after swap: 1=%v 2=%v", rec.Mapped[1], rec.Mapped[2])
	}
	if width(rec, 2) != 1920 {
		t.Fatalf("focused window width = %d", width(rec, 2))
	}

	mustExec(t, m, "window swap prev")
	if !rec.Mapped[2] || rec.Mapped[1] {
		t.Fatalf("mapped after swapping back: 1=%v 2=%v", rec.Mapped[1], rec.Mapped[2])
	}
}

func TestSplitNestsNewWindow(t *testing.T) {
	m, rec := newManager(t, nil)
	appear(m, 1)
	appear(m, 2)
	mustExec(t, m, "window split vertical")
	appear(m, 3)

	if width(rec, 1) != 960 {
		t.Fatalf("window 1 width = %d", width(rec, 1))
	}
	for _, id := range []platform.WindowID{2, 3} {
		g := rec.Geometry[id]
		if g.X != 960 || g.Width != 960 || g.Height != 540 {
			t.Fatalf("window %d geometry = %+v", id, g)
		}
	}
	if rec.Geometry[3].Y != 540 {
		t.Fatalf("window 3 y = %d", rec.Geometry[3].Y)
	}

	mustExec(t, m, "window focus parent")
	if id, _ := m.Focused(); id != 1 {
		t.Fatalf("focus parent = %d, want 1", id)
	}
}

func TestWorkspaces(t *testing.T) {
	m, rec := newManager(t, nil)
	appear(m, 1)
	appear(m, 2)

	mustExec(t, m, "window move-to-workspace 2")
	if rec.Mapped[2] {
		t.Fatalf("moved window still mapped")
	}
	if width(rec, 1) != 1920 {
		t.Fatalf("window 1 width = %d", width(rec, 1))
	}
	if id, _ := m.Focused(); id != 1 {
		t.Fatalf("focus after move = %d", id)
	}

	mustExec(t, m, "workspace switch 2")
	if rec.Mapped[1] || !rec.Mapped[2] {
		t.Fatalf("after switch: 1=%v 2=%v", rec.Mapped[1], rec.Mapped[2])
	}
	if width(rec, 2) != 1920 {
		t.Fatalf("window 2 width = %d", width(rec, 2))
	}
	if id, _ := m.Focused(); id != 2 {
		t.Fatalf("focus after switch = %d", id)
	}
	if rec.Desktops != [2]int{4, 1} {
		t.Fatalf("desktops = %v", rec.Desktops)
	}

	mustExec(t, m, "workspace switch 1")
	if id, _ := m.Focused(); id != 1 {
		t.Fatalf("focus restored = %d", id)
	}

	// A window gone from a hidden workspace does not map anything.
	rec.Reset()
	m.HandleDisplay(platform.WindowGone{ID: 2})
	if len(rec.MapCalls) != 0 {
		t.Fatalf("hidden removal mapped %v", rec.MapCalls)
	}

	wantReason(t, m, "workspace switch 9", command.NoSuchWorkspace)
	wantReason(t, m, "window move-to-workspace 0", command.NoSuchWorkspace)
	wantReason(t, m, "workspace switch x", command.BadArgument)
}

func TestCommandRejections(t *testing.T) {
	m, rec := newManager(t, nil)
	wantReason(t, m, "window close", command.NoFocus)
	wantReason(t, m, "window focus next", command.NoFocus)
	wantReason(t, m, "window dance", command.UnknownCommand)
	wantReason(t, m, "pane focus next", command.UnknownCommand)
	wantReason(t, m, "window focus sideways", command.BadArgument)
	wantReason(t, m, "window focus-id 42", command.NoSuchWindow)
	wantReason(t, m, "monitor focus 3", command.NoSuchMonitor)
	wantReason(t, m, `window "focus`, command.Malformed)

	appear(m, 1)
	root := m.Outputs()[0].ActiveWorkspace().Root
	rec.Reset()
	wantReason(t, m, "window focus-node "+strconv.Itoa(int(root)), command.NotALeaf)
	wantReason(t, m, "window focus-node 999", command.NotALeaf)
	if len(rec.Configured)+len(rec.Focused) != 0 {
		t.Fatalf("rejected commands issued requests")
	}
}

// near allows one pixel of float rounding in weight arithmetic.
func near(got, want int) bool {
	return got >= want-1 && got <= want+1
}

func TestListPayloads(t *testing.T) {
	m, _ := newManager(t, nil)
	appear(m, 1)
	appear(m, 2)

	var windows []ipc.WindowEntry
	if err := json.Unmarshal([]byte(mustExec(t, m, "window list")), &windows); err != nil {
		t.Fatalf("decode windows: %v", err)
	}
	if len(windows) != 2 || windows[0].ID != 1 || !windows[1].Focused || windows[0].Focused {
		t.Fatalf("windows = %+v", windows)
	}
	if windows[1].Geometry.X != 960 || windows[1].Workspace != 1 {
		t.Fatalf("second window = %+v", windows[1])
	}

	var workspaces []ipc.WorkspaceEntry
	if err := json.Unmarshal([]byte(mustExec(t, m, "workspace list")), &workspaces); err != nil {
		t.Fatalf("decode workspaces: %v", err)
	}
	if len(workspaces) != 4 || !workspaces[0].Active || workspaces[0].Windows != 2 || workspaces[0].Layout != "horizontal" {
		t.Fatalf("workspaces = %+v", workspaces)
	}

	var monitors []ipc.MonitorEntry
	if err := json.Unmarshal([]byte(mustExec(t, m, "monitor list")), &monitors); err != nil {
		t.Fatalf("decode monitors: %v", err)
	}
	if len(monitors) != 1 || !monitors[0].Focused || monitors[0].ActiveWorkspace != 1 {
		t.Fatalf("monitors = %+v", monitors)
	}
}

func TestOutputsChanged(t *testing.T) {
	m, rec := newManager(t, nil)
	appear(m, 1)

	second := platform.Display{ID: 1, Name: "test-1", Bounds: platform.Rect{X: 1920, Width: 1280, Height: 1024}}
	second.Usable = second.Bounds
	m.HandleDisplay(platform.OutputsChanged{Displays: []platform.Display{rec.Displays[0], second}})
	if len(m.Outputs()) != 2 {
		t.Fatalf("outputs = %d", len(m.Outputs()))
	}

	mustExec(t, m, "monitor focus next")
	if m.CurrentOutput() != 1 {
		t.Fatalf("current output = %d", m.CurrentOutput())
	}
	appear(m, 2)
	if g := rec.Geometry[2]; g.X != 1920 || g.Width != 1280 {
		t.Fatalf("window on second output = %+v", g)
	}

	m.HandleDisplay(platform.OutputsChanged{Displays: []platform.Display{rec.Displays[0]}})
	if len(m.Outputs()) != 1 || m.CurrentOutput() != 0 {
		t.Fatalf("outputs after removal = %d, current %d", len(m.Outputs()), m.CurrentOutput())
	}
	if got := len(m.Outputs()[0].Workspaces); got != 8 {
		t.Fatalf("first output workspaces = %d, want 8", got)
	}
	if rec.Mapped[2] {
		t.Fatalf("window from removed output should be hidden")
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	mustExec(t, m, "window focus-id 2")
	if !rec.Mapped[2] || width(rec, 2) != 1920 {
		t.Fatalf("focused orphan window: mapped=%v geometry=%+v", rec.Mapped[2], rec.Geometry[2])
	}
}

func TestPaddingShrinksViewport(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ScreenPadding = config.Margins{Top: 30, Left: 10, Right: 10}
	m, rec := newManager(t, cfg)
	appear(m, 1)
	want := platform.Rect{X: 10, Y: 30, Width: 1900, Height: 1050}
	if rec.Geometry[1] != want {
		t.Fatalf("geometry = %+v, want %+v", rec.Geometry[1], want)
	}
}

func TestPointerFocusFollowsPolicy(t *testing.T) {
	m, _ := newManager(t, nil)
	appear(m, 1)
	appear(m, 2)

	m.HandleDisplay(platform.FocusHintFromPointer{ID: 1})
	if id, _ := m.Focused(); id != 2 {
		t.Fatalf("pointer focus applied while disabled")
	}

	cfg := config.DefaultConfig()
	cfg.FocusFollowsMouse = true
	m.ApplyConfig(cfg)
	m.HandleDisplay(platform.FocusHintFromPointer{ID: 1})
	if id, _ := m.Focused(); id != 1 {
		t.Fatalf("pointer focus = %d, want 1", id)
	}
}

func TestPointerFocusAcrossOutputsPublishesDesktops(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.FocusFollowsMouse = true
	m, rec := newManager(t, cfg)
	second := platform.Display{ID: 1, Name: "test-1", Bounds: platform.Rect{X: 1920, Width: 1280, Height: 1024}}
	second.Usable = second.Bounds
	m.HandleDisplay(platform.OutputsChanged{Displays: []platform.Display{rec.Displays[0], second}})

	mustExec(t, m, "workspace switch 2")
	appear(m, 1)
	mustExec(t, m, "monitor focus next")
	appear(m, 2)
	if rec.Desktops != [2]int{4, 0} {
		t.Fatalf("desktops on second output = %v", rec.Desktops)
	}

	m.HandleDisplay(platform.FocusHintFromPointer{ID: 1})
	if m.CurrentOutput() != 0 {
		t.Fatalf("current output = %d, want 0", m.CurrentOutput())
	}
	if rec.Desktops != [2]int{4, 1} {
		t.Fatalf("desktops after pointer crossed outputs = %v, want [4 1]", rec.Desktops)
	}
}

type fakeKeys struct {
	bound map[string]string
	binds int
}

func (k *fakeKeys) Bind(b map[string]string) error {
	k.bound = b
	k.binds++
	return nil
}

func (k *fakeKeys) Lookup(mods uint16, keycode uint8) (string, bool) {
	if mods == 64 && keycode == 44 {
		return k.bound["Mod4-j"], true
	}
	return "", false
}

func TestKeyPressRunsBinding(t *testing.T) {
	rec := platformtest.NewRecorder(1920, 1080)
	keys := &fakeKeys{}
	m := New(Options{Backend: rec, Keys: keys, Logger: logging.Discard()})
	if err := m.Bootstrap(rec.Displays, nil); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	appear(m, 1)
	appear(m, 2)

	m.HandleDisplay(platform.KeyPressed{Mods: 64, Keycode: 44})
	if id, _ := m.Focused(); id != 1 {
		t.Fatalf("bound focus next = %d, want 1", id)
	}
	m.HandleDisplay(platform.KeyPressed{Mods: 0, Keycode: 44})
	if id, _ := m.Focused(); id != 1 {
		t.Fatalf("unbound key changed focus")
	}
	if keys.binds != 1 {
		t.Fatalf("binds = %d", keys.binds)
	}
}

type chordKeys map[uint8]string

func (k chordKeys) Bind(map[string]string) error { return nil }

func (k chordKeys) Lookup(mods uint16, keycode uint8) (string, bool) {
	line, ok := k[keycode]
	return line, ok
}

func TestKeyBindingsRefusedWhileDraining(t *testing.T) {
	rec := platformtest.NewRecorder(1920, 1080)
	keys := chordKeys{44: "window focus next", 45: "window close", 46: "window list"}
	m := New(Options{Backend: rec, Keys: keys, Logger: logging.Discard()})
	if err := m.Bootstrap(rec.Displays, nil); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	appear(m, 1)
	appear(m, 2)

	m.BeginDrain()
	rec.Reset()
	m.HandleDisplay(platform.KeyPressed{Keycode: 44})
	m.HandleDisplay(platform.KeyPressed{Keycode: 45})
	if id, _ := m.Focused(); id != 2 {
		t.Fatalf("focus moved to %d while draining", id)
	}
	if len(rec.Closed) != 0 || len(rec.Focused) != 0 {
		t.Fatalf("draining key presses reached the backend: closed=%v focused=%v", rec.Closed, rec.Focused)
	}

	// Queries stay available.
	m.HandleDisplay(platform.KeyPressed{Keycode: 46})
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestReloadAndReap(t *testing.T) {
	rec := platformtest.NewRecorder(1920, 1080)
	keys := &fakeKeys{}
	reaped := 0
	loaded := config.DefaultConfig()
	loaded.FocusFollowsMouse = true
	m := New(Options{
		Backend:    rec,
		Keys:       keys,
		Logger:     logging.Discard(),
		LoadConfig: func() (*config.Config, error) { return loaded, nil },
		Reap: func() []signals.Reaped {
			reaped++
			return []signals.Reaped{{PID: 42}}
		},
	})
	if err := m.Bootstrap(rec.Displays, nil); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	m.Reload()
	if keys.binds != 2 {
		t.Fatalf("reload should rebind keys, binds = %d", keys.binds)
	}
	appear(m, 1)
	appear(m, 2)
	m.HandleDisplay(platform.FocusHintFromPointer{ID: 1})
	if id, _ := m.Focused(); id != 1 {
		t.Fatalf("reloaded focus policy not applied")
	}
	m.ChildReaped()
	if reaped != 1 {
		t.Fatalf("reap calls = %d", reaped)
	}
}

func TestReconcileNeedsTwoMisses(t *testing.T) {
	m, rec := newManager(t, nil)
	appear(m, 1)
	appear(m, 2)

	m.Reconcile([]platform.WindowID{1})
	if _, ok := m.NodeOf(2); !ok {
		t.Fatalf("window removed after a single miss")
	}
	m.Reconcile([]platform.WindowID{1})
	if _, ok := m.NodeOf(2); ok {
		t.Fatalf("window 2 should be removed after two misses")
	}
	if width(rec, 1) != 1920 {
		t.Fatalf("window 1 width = %d", width(rec, 1))
	}
}

func TestAdoptsExistingWindows(t *testing.T) {
	rec := platformtest.NewRecorder(1920, 1080)
	existing := []platform.WindowInfo{
		{ID: 10, Geometry: platform.Rect{Width: 100, Height: 100}},
		{ID: 11, Geometry: platform.Rect{Width: 100, Height: 100}},
		{ID: 12, Kind: platform.KindUnmanaged},
	}
	m := New(Options{Backend: rec, Logger: logging.Discard()})
	if err := m.Bootstrap(rec.Displays, existing); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if len(rec.MapCalls) != 0 {
		t.Fatalf("already-viewable windows were mapped again: %v", rec.MapCalls)
	}
	if width(rec, 10) != 960 || width(rec, 11) != 960 {
		t.Fatalf("adopted widths = %d, %d", width(rec, 10), width(rec, 11))
	}
	if len(rec.ClientList) != 2 {
		t.Fatalf("client list = %v", rec.ClientList)
	}
	if err := m.Bootstrap(nil, nil); err == nil {
		t.Fatalf("bootstrap without outputs should fail")
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	script := []string{
		"window split vertical",
		"window focus prev",
		"window swap next",
		"window resize grow 15",
		"window toggle-monocle",
		"window focus next",
		"window move-to-workspace 3",
		"workspace switch 3",
		"window toggle-floating",
	}
	run := func() []ipc.WindowEntry {
		m, _ := newManager(t, nil)
		for id := platform.WindowID(1); id <= 4; id++ {
			appear(m, id)
		}
		for _, line := range script {
			mustExec(t, m, line)
		}
		return m.Windows()
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("replays differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("replays differ at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestFocusStaysInActiveWorkspace(t *testing.T) {
	m, _ := newManager(t, nil)
	for id := platform.WindowID(1); id <= 5; id++ {
		appear(m, id)
		if err := m.Validate(); err != nil {
			t.Fatalf("after insert %d: %v", id, err)
		}
	}
	for _, id := range []platform.WindowID{3, 5, 1, 2} {
		m.HandleDisplay(platform.WindowGone{ID: id})
		if err := m.Validate(); err != nil {
			t.Fatalf("after removing %d: %v", id, err)
		}
		focused, ok := m.Focused()
		if !ok {
			t.Fatalf("focus undefined after removing %d", id)
		}
		if _, managed := m.NodeOf(focused); !managed {
			t.Fatalf("focus on unmanaged window %d", focused)
		}
	}
	m.HandleDisplay(platform.WindowGone{ID: 4})
	if _, ok := m.Focused(); ok {
		t.Fatalf("empty workspace should have no focus")
	}
	if m.Tree().Len() != len(m.Outputs()[0].Workspaces) {
		t.Fatalf("tree should hold only workspace roots, has %d nodes", m.Tree().Len())
	}
}
