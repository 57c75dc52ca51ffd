package wm

import (
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/tiling"
)

// Buttons of the grabbed pointer chords.
const (
	moveButton   = 1
	resizeButton = 3
)

// drag is a pointer move or resize of a floating window in progress.
type drag struct {
	window platform.WindowID
	leaf   tiling.NodeID
	button uint8
	start  platform.Rect
	x, y   int
	// left and top name the quadrant grabbed for a resize.
	left, top bool
}

// pointerFocus follows the pointer into a window when the policy allows it.
func (m *Manager) pointerFocus(id platform.WindowID) {
	if !m.cfg.FocusFollowsMouse {
		return
	}
	leaf, ok := m.registry.LookupWindow(id)
	if !ok {
		return
	}
	out := m.outputOf(m.tree.RootOf(leaf))
	if out < 0 || !m.shown(m.tree.RootOf(leaf)) || (out == m.current && m.focus.Focused(out) == leaf) {
		return
	}
	m.focusOnOutput(out, leaf)
}

// focusOnOutput makes out current and focuses leaf there.
func (m *Manager) focusOnOutput(out int, leaf tiling.NodeID) {
	switched := out != m.current
	m.current = out
	m.focusLeaf(out, leaf)
	if switched {
		m.publishDesktops()
	}
}

// buttonPressed focuses and raises the clicked window. On a floating
// window it also starts a move or resize drag.
func (m *Manager) buttonPressed(e platform.ButtonPressed) {
	m.drag = nil
	leaf, ok := m.registry.LookupWindow(e.ID)
	if !ok {
		return
	}
	root := m.tree.RootOf(leaf)
	out := m.outputOf(root)
	if out < 0 || !m.shown(root) {
		return
	}
	if out != m.current || m.focus.Focused(out) != leaf {
		m.focusOnOutput(out, leaf)
	}
	if err := m.backend.Raise(e.ID); err != nil {
		m.logger.Warn("failed to raise window", "window", e.ID, "error", err)
	}

	n := m.tree.Node(leaf)
	if !n.Floating || (e.Button != moveButton && e.Button != resizeButton) {
		return
	}
	g := n.Geometry
	m.drag = &drag{
		window: e.ID,
		leaf:   leaf,
		button: e.Button,
		start:  g,
		x:      e.RootX,
		y:      e.RootY,
		left:   e.RootX < g.X+g.Width/2,
		top:    e.RootY < g.Y+g.Height/2,
	}
	m.logger.Debug("drag started", "window", e.ID, "button", e.Button, "mods", e.Mods)
}

func (m *Manager) pointerDragged(e platform.PointerDragged) {
	d := m.drag
	if d == nil || d.window != e.ID {
		return
	}
	if leaf, ok := m.registry.LookupWindow(e.ID); !ok || leaf != d.leaf || !m.tree.Node(leaf).Floating || !m.shown(m.tree.RootOf(leaf)) {
		m.drag = nil
		return
	}
	r := d.step(e.RootX, e.RootY)
	if r == m.tree.Node(d.leaf).Geometry {
		return
	}
	m.tree.SetGeometry(d.leaf, r)
	m.configure(e.ID, r)
}

func (m *Manager) buttonReleased(e platform.ButtonReleased) {
	if m.drag != nil && m.drag.window == e.ID {
		m.logger.Debug("drag finished", "window", e.ID, "geometry", m.tree.Node(m.drag.leaf).Geometry)
	}
	m.drag = nil
}

// step returns the window rectangle for the pointer at (x, y). A resize
// moves the grabbed corner and keeps the opposite one fixed.
func (d *drag) step(x, y int) platform.Rect {
	dx, dy := x-d.x, y-d.y
	r := d.start
	if d.button == moveButton {
		r.X += dx
		r.Y += dy
		return r
	}
	if d.left {
		r.Width = max(1, d.start.Width-dx)
		r.X = d.start.X + d.start.Width - r.Width
	} else {
		r.Width = max(1, d.start.Width+dx)
	}
	if d.top {
		r.Height = max(1, d.start.Height-dy)
		r.Y = d.start.Y + d.start.Height - r.Height
	} else {
		r.Height = max(1, d.start.Height+dy)
	}
	return r
}
