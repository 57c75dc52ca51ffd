// Package wm is the window manager state machine. It owns the layout tree,
// the window registry and focus, turns display events and commands into
// tree mutations, and sends the resulting geometry to the display backend.
//
// A Manager is not safe for concurrent use; the reactor goroutine is its
// only caller.
package wm

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/1broseidon/tilewm/internal/command"
	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/focus"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/registry"
	"github.com/1broseidon/tilewm/internal/signals"
	"github.com/1broseidon/tilewm/internal/tiling"
)

// Keys maps grabbed key chords to command lines.
type Keys interface {
	Bind(bindings map[string]string) error
	Lookup(mods uint16, keycode uint8) (string, bool)
}

// Output is one monitor and its workspaces.
type Output struct {
	Display    platform.Display
	Workspaces []*tiling.Workspace
	Active     int
}

// ActiveWorkspace returns the workspace currently shown on the output.
func (o *Output) ActiveWorkspace() *tiling.Workspace {
	return o.Workspaces[o.Active]
}

// Options wires a Manager.
type Options struct {
	Backend    platform.Backend
	Config     *config.Config
	Keys       Keys
	Logger     *slog.Logger
	LoadConfig func() (*config.Config, error)
	Reap       func() []signals.Reaped
}

// Manager is the state machine.
type Manager struct {
	backend    platform.Backend
	cfg        *config.Config
	keys       Keys
	logger     *slog.Logger
	loadConfig func() (*config.Config, error)
	reap       func() []signals.Reaped

	tree     *tiling.Tree
	registry *registry.Registry
	focus    *focus.Manager

	outputs []*Output
	current int

	unmanaged map[platform.WindowID]bool
	classes   map[platform.WindowID]string
	missing   map[platform.WindowID]bool

	drag     *drag
	draining bool
}

// New creates a Manager with no outputs. Call Bootstrap before use.
func New(opts Options) *Manager {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reap := opts.Reap
	if reap == nil {
		reap = signals.Reap
	}
	tree := tiling.NewTree()
	return &Manager{
		backend:    opts.Backend,
		cfg:        cfg,
		keys:       opts.Keys,
		logger:     logger,
		loadConfig: opts.LoadConfig,
		reap:       reap,
		tree:       tree,
		registry:   registry.New(cfg.MaxWindows),
		focus:      focus.NewManager(tree),
		unmanaged:  make(map[platform.WindowID]bool),
		classes:    make(map[platform.WindowID]string),
		missing:    make(map[platform.WindowID]bool),
	}
}

// Tree exposes the layout arena for inspection.
func (m *Manager) Tree() *tiling.Tree { return m.tree }

// Outputs returns the monitors in order.
func (m *Manager) Outputs() []*Output { return m.outputs }

// CurrentOutput returns the index of the focused output.
func (m *Manager) CurrentOutput() int { return m.current }

// Focused returns the window focused on the current output.
func (m *Manager) Focused() (platform.WindowID, bool) {
	leaf := m.focus.Focused(m.current)
	if leaf == tiling.NoNode {
		return 0, false
	}
	return m.registry.LookupNode(leaf)
}

// NodeOf returns the leaf managing window.
func (m *Manager) NodeOf(id platform.WindowID) (tiling.NodeID, bool) {
	return m.registry.LookupWindow(id)
}

// Bootstrap sets up outputs, adopts already-mapped windows and publishes
// the initial desktop state.
func (m *Manager) Bootstrap(displays []platform.Display, existing []platform.WindowInfo) error {
	if len(displays) == 0 {
		return errors.New("no outputs available")
	}
	if m.keys != nil {
		if err := m.keys.Bind(m.cfg.Bindings); err != nil {
			m.logger.Warn("failed to bind keys", "error", err)
		}
	}
	m.selectPointerFocus()
	m.SetOutputs(displays)
	for _, info := range existing {
		m.windowAppeared(info)
	}
	m.publishDesktops()
	m.publishClientList()
	m.logger.Info("window manager ready", "outputs", len(m.outputs), "adopted", m.registry.Len())
	return nil
}

func (m *Manager) orientation() tiling.Orientation {
	o, err := tiling.ParseOrientation(m.cfg.DefaultOrientation)
	if err != nil {
		return tiling.Horizontal
	}
	return o
}

func (m *Manager) viewport(d platform.Display) platform.Rect {
	pad := m.cfg.ScreenPadding
	area := d.Usable
	if area.Width == 0 || area.Height == 0 {
		area = d.Bounds
	}
	return area.Inset(pad.Top, pad.Bottom, pad.Left, pad.Right)
}

// HandleDisplay applies one display event.
func (m *Manager) HandleDisplay(ev platform.Event) {
	switch e := ev.(type) {
	case platform.WindowAppeared:
		m.windowAppeared(e.Info)
	case platform.WindowGone:
		m.windowGone(e.ID)
	case platform.ConfigureRequest:
		m.configureRequest(e.ID, e.Request)
	case platform.FocusHintFromPointer:
		m.pointerFocus(e.ID)
	case platform.ProtocolError:
		m.protocolError(e)
	case platform.KeyPressed:
		m.keyPressed(e)
	case platform.ButtonPressed:
		m.buttonPressed(e)
	case platform.PointerDragged:
		m.pointerDragged(e)
	case platform.ButtonReleased:
		m.buttonReleased(e)
	case platform.OutputsChanged:
		m.SetOutputs(e.Displays)
		m.publishDesktops()
	case platform.ConnectionLost:
		m.logger.Error("display connection lost", "error", e.Err)
	}
}

func (m *Manager) windowAppeared(info platform.WindowInfo) {
	id := info.ID
	if _, ok := m.registry.LookupWindow(id); ok {
		m.logger.Debug("window already managed", "window", id)
		return
	}
	if info.Kind == platform.KindUnmanaged || m.unmanaged[id] {
		m.adoptUnmanaged(id, info.MapRequested)
		return
	}
	if err := m.registry.Reserve(id); err != nil {
		m.logger.Warn("window not tiled", "window", id, "error", err)
		m.adoptUnmanaged(id, info.MapRequested)
		return
	}

	out := m.outputs[m.current]
	ws := out.ActiveWorkspace()
	floating := info.Kind == platform.KindFloating || m.cfg.IsFloatingClass(info.Class)
	geometry := info.Geometry
	if floating {
		geometry = placeFloating(geometry, ws.Viewport)
	}

	leaf, affected := m.tree.Insert(ws.Root, m.focus.Focused(m.current), id, geometry, !info.MapRequested, floating)
	if err := m.registry.Insert(id, leaf); err != nil {
		// Reserve succeeded on this goroutine, so only a node collision is possible.
		m.tree.Remove(leaf)
		m.logger.Error("registry insert failed", "window", id, "node", leaf, "error", err)
		m.adoptUnmanaged(id, info.MapRequested)
		return
	}
	if info.Class != "" {
		m.classes[id] = info.Class
	}
	delete(m.missing, id)

	m.refresh(affected)
	if floating {
		m.configure(id, geometry)
	}
	m.focusLeaf(m.current, leaf)
	m.publishClientList()
	m.logger.Debug("window managed", "window", id, "node", leaf, "floating", floating, "class", info.Class)
}

func (m *Manager) adoptUnmanaged(id platform.WindowID, mapRequested bool) {
	m.unmanaged[id] = true
	if mapRequested {
		if err := m.backend.Map(id); err != nil {
			m.logger.Warn("failed to map unmanaged window", "window", id, "error", err)
		}
	}
}

// placeFloating keeps a floating window's own geometry unless it is empty or
// entirely outside the viewport. Those are centred; empty ones get half the
// viewport.
func placeFloating(r, viewport platform.Rect) platform.Rect {
	outside := r.X >= viewport.X+viewport.Width || r.Y >= viewport.Y+viewport.Height ||
		r.X+r.Width <= viewport.X || r.Y+r.Height <= viewport.Y
	if r.Width <= 0 || r.Height <= 0 {
		r.Width, r.Height = viewport.Width/2, viewport.Height/2
		outside = true
	}
	if outside {
		r.X = viewport.X + (viewport.Width-r.Width)/2
		r.Y = viewport.Y + (viewport.Height-r.Height)/2
	}
	return r
}

func (m *Manager) windowGone(id platform.WindowID) {
	if m.unmanaged[id] {
		delete(m.unmanaged, id)
		return
	}
	leaf, ok := m.registry.LookupWindow(id)
	if !ok {
		m.logger.Debug("ignoring unknown window", "window", id)
		return
	}
	m.removeLeaf(leaf)
	m.logger.Debug("window released", "window", id, "node", leaf)
}

// removeLeaf unbinds leaf from the registry and the tree, handing focus to
// its successor first.
func (m *Manager) removeLeaf(leaf tiling.NodeID) {
	root := m.tree.RootOf(leaf)
	focusedOn := -1
	for i := range m.outputs {
		if m.focus.Focused(i) == leaf {
			focusedOn = i
		}
	}

	if m.drag != nil && m.drag.leaf == leaf {
		m.drag = nil
	}
	next := m.focus.OnLeafRemoved(leaf)
	id, _ := m.registry.RemoveByNode(leaf)
	delete(m.classes, id)
	delete(m.missing, id)

	affected, err := m.tree.Remove(leaf)
	if err != nil {
		m.logger.Error("failed to remove node", "node", leaf, "error", err)
		return
	}
	if m.shown(root) {
		m.refresh(affected)
	}
	if focusedOn >= 0 && next != tiling.NoNode {
		m.focusLeaf(focusedOn, next)
	}
	m.publishClientList()
}

func (m *Manager) configureRequest(id platform.WindowID, req platform.Rect) {
	leaf, managed := m.registry.LookupWindow(id)
	if !managed {
		m.configure(id, req)
		return
	}
	n := m.tree.Node(leaf)
	if n.Floating {
		m.tree.SetGeometry(leaf, req)
		m.configure(id, req)
		return
	}
	if err := m.backend.ConfirmConfigure(id, n.Geometry); err != nil {
		m.logger.Warn("failed to confirm geometry", "window", id, "error", err)
	}
}

func (m *Manager) configure(id platform.WindowID, r platform.Rect) {
	if err := m.backend.Configure(id, r); err != nil {
		m.logger.Warn("failed to configure window", "window", id, "error", err)
	}
}

func (m *Manager) protocolError(e platform.ProtocolError) {
	if m.unmanaged[e.ID] {
		m.logger.Debug("protocol error on unmanaged window", "window", e.ID, "error", platform.ErrorName(e.Code))
		return
	}
	leaf, ok := m.registry.LookupWindow(e.ID)
	if !ok {
		m.logger.Debug("dropping stale protocol error", "window", e.ID, "error", platform.ErrorName(e.Code))
		return
	}
	m.logger.Warn("degrading window to unmanaged", "window", e.ID, "error", platform.ErrorName(e.Code))
	m.removeLeaf(leaf)
	m.unmanaged[e.ID] = true
}

func (m *Manager) keyPressed(e platform.KeyPressed) {
	if m.keys == nil {
		return
	}
	line, ok := m.keys.Lookup(e.Mods, e.Keycode)
	if !ok {
		return
	}
	if m.draining {
		if cmd, err := command.Parse(line); err == nil && cmd.Mutates() {
			m.logger.Debug("key binding ignored while draining", "command", line)
			return
		}
	}
	if _, err := m.Execute(line); err != nil {
		m.logger.Info("key binding failed", "command", line, "error", err)
	}
}

// BeginDrain stops key bindings from mutating state during shutdown.
func (m *Manager) BeginDrain() {
	m.draining = true
}

// Reload re-reads the configuration and applies it.
func (m *Manager) Reload() {
	if m.loadConfig == nil {
		m.logger.Info("reload requested but no configuration source is set")
		return
	}
	cfg, err := m.loadConfig()
	if err != nil {
		m.logger.Error("failed to reload config", "error", err)
		return
	}
	m.ApplyConfig(cfg)
}

// ApplyConfig adopts a new configuration. Output and workspace layout keep
// their current shape; the rest takes effect immediately.
func (m *Manager) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.WorkspacesPerOutput != m.cfg.WorkspacesPerOutput {
		m.logger.Warn("workspaces_per_output changes apply after restart", "current", m.cfg.WorkspacesPerOutput, "configured", cfg.WorkspacesPerOutput)
	}
	padding := cfg.ScreenPadding != m.cfg.ScreenPadding
	pointer := cfg.FocusFollowsMouse != m.cfg.FocusFollowsMouse
	m.cfg = cfg
	m.registry.SetCapacity(cfg.MaxWindows)
	if m.keys != nil {
		if err := m.keys.Bind(cfg.Bindings); err != nil {
			m.logger.Warn("failed to bind keys", "error", err)
		}
	}
	if pointer {
		m.selectPointerFocus()
	}
	if padding {
		displays := make([]platform.Display, len(m.outputs))
		for i, o := range m.outputs {
			displays[i] = o.Display
		}
		m.SetOutputs(displays)
	}
	m.logger.Info("config applied", "bindings", len(cfg.Bindings), "focus_follows_mouse", cfg.FocusFollowsMouse)
}

func (m *Manager) selectPointerFocus() {
	if err := m.backend.SetPointerFocus(m.cfg.FocusFollowsMouse); err != nil {
		m.logger.Warn("failed to select pointer events", "error", err)
	}
}

// ChildReaped collects exited children.
func (m *Manager) ChildReaped() {
	for _, r := range m.reap() {
		m.logger.Debug("child reaped", "pid", r.PID, "status", r.Status.ExitStatus())
	}
}

// Reconcile drops managed windows absent from two consecutive live
// snapshots, covering destroy notifications the manager never saw.
func (m *Manager) Reconcile(live []platform.WindowID) {
	alive := make(map[platform.WindowID]bool, len(live))
	for _, id := range live {
		alive[id] = true
	}
	for id := range m.unmanaged {
		if !alive[id] {
			delete(m.unmanaged, id)
		}
	}
	removed := 0
	for _, id := range m.registry.Windows() {
		if alive[id] {
			delete(m.missing, id)
			continue
		}
		if !m.missing[id] {
			m.missing[id] = true
			continue
		}
		m.logger.Info("reconciler: removing vanished window", "window", id)
		m.windowGone(id)
		removed++
	}
	if removed > 0 {
		m.logger.Debug("reconcile complete", "removed", removed, "managed", m.registry.Len())
	}
}

// focusLeaf focuses leaf on output, revealing it inside monocles.
func (m *Manager) focusLeaf(output int, leaf tiling.NodeID) {
	if err := m.focus.Set(output, leaf); err != nil {
		m.logger.Error("failed to set focus", "node", leaf, "error", err)
		return
	}
	if changed := m.tree.Reveal(leaf); changed != tiling.NoNode {
		m.refresh(changed)
	}
	if output != m.current {
		return
	}
	id, ok := m.registry.LookupNode(leaf)
	if !ok {
		return
	}
	if err := m.backend.Focus(id); err != nil {
		m.logger.Warn("failed to focus window", "window", id, "error", err)
	}
}

// refresh recomputes id at its last rectangle when its workspace is shown.
func (m *Manager) refresh(id tiling.NodeID) {
	if !m.shown(m.tree.RootOf(id)) {
		return
	}
	m.apply(m.tree.Refresh(id))
}

func (m *Manager) apply(diff platform.Diff) {
	if diff.Empty() {
		return
	}
	if err := m.backend.Apply(diff); err != nil {
		m.logger.Warn("failed to apply layout", "error", err)
	}
}

// shown reports whether root is the active workspace of some output.
func (m *Manager) shown(root tiling.NodeID) bool {
	for _, o := range m.outputs {
		if o.ActiveWorkspace().Root == root {
			return true
		}
	}
	return false
}

// outputOf returns the output holding the workspace rooted at root, or -1.
func (m *Manager) outputOf(root tiling.NodeID) int {
	out, _ := m.locate(root)
	return out
}

func (m *Manager) locate(root tiling.NodeID) (int, int) {
	for i, o := range m.outputs {
		for j, ws := range o.Workspaces {
			if ws.Root == root {
				return i, j
			}
		}
	}
	return -1, -1
}

func (m *Manager) publishClientList() {
	if err := m.backend.SetClientList(m.registry.Windows()); err != nil {
		m.logger.Debug("failed to publish client list", "error", err)
	}
}

func (m *Manager) publishDesktops() {
	if len(m.outputs) == 0 {
		return
	}
	out := m.outputs[m.current]
	if err := m.backend.SetDesktops(len(out.Workspaces), out.Active); err != nil {
		m.logger.Debug("failed to publish desktops", "error", err)
	}
}

// Validate checks that the registry, tree and focus agree.
func (m *Manager) Validate() error {
	if err := m.tree.Validate(); err != nil {
		return err
	}
	for _, id := range m.registry.Windows() {
		leaf, _ := m.registry.LookupWindow(id)
		back, ok := m.registry.LookupNode(leaf)
		if !ok || back != id {
			return fmt.Errorf("registry: window %d maps to node %d which maps back to %d", id, leaf, back)
		}
		n := m.tree.Node(leaf)
		if n == nil || n.Kind != tiling.KindLeaf || n.Window != id {
			return fmt.Errorf("registry: window %d bound to invalid node %d", id, leaf)
		}
	}
	total := 0
	for i, o := range m.outputs {
		for _, ws := range o.Workspaces {
			total += len(m.tree.Leaves(ws.Root))
		}
		if leaf := m.focus.Focused(i); leaf != tiling.NoNode && m.tree.RootOf(leaf) != o.ActiveWorkspace().Root {
			return fmt.Errorf("focus: output %d focuses node %d outside its active workspace", i, leaf)
		}
	}
	if total != m.registry.Len() {
		return fmt.Errorf("tree holds %d leaves but registry %d windows", total, m.registry.Len())
	}
	return nil
}
