package wm

import (
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/tiling"
)

// SetOutputs reconciles the monitor list with displays, matched by position.
// Surviving outputs get new viewports; new outputs get fresh workspaces.
// Workspaces of removed outputs are appended, hidden, to the first output so
// no window is lost.
func (m *Manager) SetOutputs(displays []platform.Display) {
	if len(displays) == 0 {
		m.logger.Warn("ignoring empty output list")
		return
	}

	var orphans []*tiling.Workspace
	for i := len(displays); i < len(m.outputs); i++ {
		o := m.outputs[i]
		m.focus.Remember(i, o.ActiveWorkspace().Root)
		m.focus.Clear(i)
		orphans = append(orphans, o.Workspaces...)
		m.logger.Info("output removed", "output", i, "name", o.Display.Name, "workspaces", len(o.Workspaces))
	}
	if len(m.outputs) > len(displays) {
		m.outputs = m.outputs[:len(displays)]
	}

	for i, d := range displays {
		if i < len(m.outputs) {
			m.outputs[i].Display = d
			continue
		}
		o := &Output{Display: d}
		vp := m.viewport(d)
		for w := 0; w < m.cfg.WorkspacesPerOutput; w++ {
			o.Workspaces = append(o.Workspaces, tiling.NewWorkspace(m.tree, w+1, m.orientation(), vp))
		}
		m.outputs = append(m.outputs, o)
		m.logger.Info("output added", "output", i, "name", d.Name, "bounds", d.Bounds)
	}

	first := m.outputs[0]
	for _, ws := range orphans {
		m.apply(m.tree.Hide(ws.Root))
		ws.Index = len(first.Workspaces) + 1
		first.Workspaces = append(first.Workspaces, ws)
	}

	for _, o := range m.outputs {
		vp := m.viewport(o.Display)
		for j, ws := range o.Workspaces {
			if j == o.Active {
				m.apply(ws.Resize(m.tree, vp))
			} else {
				ws.Viewport = vp
			}
		}
	}

	if m.current >= len(m.outputs) {
		m.current = 0
		m.restoreFocus(0)
	}
}

// restoreFocus focuses the remembered leaf of output's active workspace.
func (m *Manager) restoreFocus(output int) {
	root := m.outputs[output].ActiveWorkspace().Root
	if leaf := m.focus.Restore(output, root); leaf != tiling.NoNode {
		m.focusLeaf(output, leaf)
	}
}

// switchWorkspace shows workspace index (0-based) on output.
func (m *Manager) switchWorkspace(output, index int) {
	o := m.outputs[output]
	if index == o.Active {
		return
	}
	old := o.ActiveWorkspace()
	m.focus.Remember(output, old.Root)
	m.apply(m.tree.Hide(old.Root))

	o.Active = index
	ws := o.ActiveWorkspace()
	m.apply(ws.Resize(m.tree, m.viewport(o.Display)))
	if leaf := m.focus.Restore(output, ws.Root); leaf != tiling.NoNode {
		m.focusLeaf(output, leaf)
	}
	if output == m.current {
		m.publishDesktops()
	}
	m.logger.Debug("workspace switched", "output", output, "workspace", ws.Index)
}
