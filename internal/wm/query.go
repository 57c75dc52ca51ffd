package wm

import (
	"encoding/json"

	"github.com/1broseidon/tilewm/internal/command"
	"github.com/1broseidon/tilewm/internal/ipc"
	"github.com/1broseidon/tilewm/internal/tiling"
)

func marshalPayload(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", command.Errorf(command.Internal, "encode reply: %v", err)
	}
	return string(data), nil
}

// Windows lists every managed window in output, workspace and document order.
func (m *Manager) Windows() []ipc.WindowEntry {
	entries := []ipc.WindowEntry{}
	for i, o := range m.outputs {
		focused := m.focus.Focused(i)
		for _, ws := range o.Workspaces {
			for _, leaf := range m.tree.Leaves(ws.Root) {
				n := m.tree.Node(leaf)
				entries = append(entries, ipc.WindowEntry{
					ID:        n.Window,
					Node:      int(leaf),
					Output:    o.Display.ID,
					Workspace: ws.Index,
					Geometry:  n.Geometry,
					Mapped:    n.Mapped,
					Floating:  n.Floating,
					Focused:   leaf == focused,
					Class:     m.classes[n.Window],
				})
			}
		}
	}
	return entries
}

// Workspaces lists every workspace of every output.
func (m *Manager) Workspaces() []ipc.WorkspaceEntry {
	entries := []ipc.WorkspaceEntry{}
	for _, o := range m.outputs {
		for j, ws := range o.Workspaces {
			root := m.tree.Node(ws.Root)
			layout := root.Kind.String()
			if root.Kind == tiling.KindSplit {
				layout = root.Orientation.String()
			}
			entries = append(entries, ipc.WorkspaceEntry{
				Output:   o.Display.ID,
				Index:    ws.Index,
				Active:   j == o.Active,
				Windows:  len(m.tree.Leaves(ws.Root)),
				Layout:   layout,
				Viewport: ws.Viewport,
			})
		}
	}
	return entries
}

// Monitors lists the outputs.
func (m *Manager) Monitors() []ipc.MonitorEntry {
	entries := make([]ipc.MonitorEntry, 0, len(m.outputs))
	for i, o := range m.outputs {
		entries = append(entries, ipc.MonitorEntry{
			ID:              o.Display.ID,
			Name:            o.Display.Name,
			Bounds:          o.Display.Bounds,
			Usable:          o.Display.Usable,
			ActiveWorkspace: o.ActiveWorkspace().Index,
			Focused:         i == m.current,
		})
	}
	return entries
}

func (m *Manager) listWindows() (string, error)    { return marshalPayload(m.Windows()) }
func (m *Manager) listWorkspaces() (string, error) { return marshalPayload(m.Workspaces()) }
func (m *Manager) listMonitors() (string, error)   { return marshalPayload(m.Monitors()) }
