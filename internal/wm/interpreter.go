package wm

import (
	"strconv"

	"github.com/1broseidon/tilewm/internal/command"
	"github.com/1broseidon/tilewm/internal/focus"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/tiling"
)

// Execute parses and applies one command line. It returns the reply payload
// or a *command.Error. Every precondition is checked before any mutation,
// so a rejected command leaves state untouched.
func (m *Manager) Execute(line string) (string, error) {
	cmd, err := command.Parse(line)
	if err != nil {
		return "", err
	}
	if len(m.outputs) == 0 {
		return "", command.Errorf(command.NoSuchMonitor, "no outputs")
	}
	switch cmd.Subject {
	case command.Window:
		return m.windowCommand(cmd)
	case command.Workspace:
		return m.workspaceCommand(cmd)
	case command.Monitor:
		return m.monitorCommand(cmd)
	}
	return "", command.Errorf(command.UnknownCommand, "%s", cmd)
}

func (m *Manager) windowCommand(cmd command.Command) (string, error) {
	switch cmd.Action {
	case "list":
		return m.listWindows()
	case "focus-id":
		return "", m.focusWindow(cmd.Arg(0))
	case "focus-node":
		return "", m.focusNode(cmd.Arg(0))
	}

	leaf := m.focus.Focused(m.current)
	if leaf == tiling.NoNode {
		return "", command.Errorf(command.NoFocus, "output %d", m.current)
	}

	switch cmd.Action {
	case "focus":
		dir, err := focus.ParseDirection(cmd.Arg(0))
		if err != nil {
			return "", command.Errorf(command.BadArgument, "%v", err)
		}
		target, err := m.focus.Target(m.current, dir)
		if err != nil {
			return "", command.Errorf(command.NoFocus, "%v", err)
		}
		m.focusLeaf(m.current, target)

	case "close":
		id, _ := m.registry.LookupNode(leaf)
		asked, err := m.backend.Close(id)
		if err != nil {
			m.logger.Warn("failed to close window", "window", id, "error", err)
			return "", nil
		}
		if asked {
			// The leaf goes when the client withdraws the window.
			m.logger.Debug("close requested", "window", id)
			return "", nil
		}
		m.removeLeaf(leaf)
		// The window stays known so its destroy notification is ignored quietly.
		m.unmanaged[id] = true

	case "swap":
		dir := focus.Next
		if cmd.Arg(0) == "prev" {
			dir = focus.Prev
		}
		target, err := m.focus.Target(m.current, dir)
		if err != nil {
			return "", command.Errorf(command.NoFocus, "%v", err)
		}
		if target == leaf {
			return "", nil
		}
		affected, err := m.tree.Swap(leaf, target)
		if err != nil {
			return "", command.Errorf(command.BadArgument, "%v", err)
		}
		m.refresh(affected)
		// A monocle keeps showing its active slot, so move it to follow leaf.
		m.focusLeaf(m.current, leaf)

	case "toggle-floating":
		n := m.tree.Node(leaf)
		affected, err := m.tree.SetFloating(leaf, !n.Floating, n.Geometry)
		if err != nil {
			return "", command.Errorf(command.NotALeaf, "%v", err)
		}
		m.refresh(affected)

	case "toggle-monocle":
		affected, err := m.tree.ToggleMonocle(leaf)
		if err != nil {
			return "", command.Errorf(command.BadArgument, "%v", err)
		}
		m.refresh(affected)

	case "split":
		o, err := tiling.ParseOrientation(cmd.Arg(0))
		if err != nil {
			return "", command.Errorf(command.BadArgument, "%v", err)
		}
		affected, err := m.tree.Split(leaf, o)
		if err != nil {
			return "", command.Errorf(command.BadArgument, "%v", err)
		}
		m.refresh(affected)

	case "resize":
		pct := m.cfg.ResizeStepPercent
		if s := cmd.Arg(1); s != "" {
			pct, _ = strconv.Atoi(s)
		}
		delta := float64(pct) / 100
		if cmd.Arg(0) == "shrink" {
			delta = -delta
		}
		if m.tree.Node(leaf).Floating {
			return "", command.Errorf(command.BadArgument, "floating windows are not resized by the layout")
		}
		affected, err := m.tree.Resize(leaf, delta)
		if err != nil {
			return "", command.Errorf(command.BadArgument, "%v", err)
		}
		m.refresh(affected)

	case "move-to-workspace":
		return "", m.moveToWorkspace(leaf, cmd.Arg(0))

	default:
		return "", command.Errorf(command.UnknownCommand, "%s", cmd)
	}
	return "", nil
}

func (m *Manager) focusWindow(arg string) error {
	raw, err := command.ParseWindowID(arg)
	if err != nil {
		return command.Errorf(command.BadArgument, "%q is not a window id", arg)
	}
	leaf, ok := m.registry.LookupWindow(platform.WindowID(raw))
	if !ok {
		return command.Errorf(command.NoSuchWindow, "%s", arg)
	}
	m.focusAnywhere(leaf)
	return nil
}

func (m *Manager) focusNode(arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return command.Errorf(command.BadArgument, "%q is not a node id", arg)
	}
	node := tiling.NodeID(n)
	if !m.tree.Exists(node) {
		return command.Errorf(command.NotALeaf, "node %d does not exist", n)
	}
	if !m.tree.IsLeaf(node) {
		return command.Errorf(command.NotALeaf, "node %d is a %s", n, m.tree.Node(node).Kind)
	}
	m.focusAnywhere(node)
	return nil
}

// focusAnywhere focuses leaf, switching output and workspace to show it.
func (m *Manager) focusAnywhere(leaf tiling.NodeID) {
	out, ws := m.locate(m.tree.RootOf(leaf))
	if out < 0 {
		return
	}
	m.current = out
	m.switchWorkspace(out, ws)
	m.focusLeaf(out, leaf)
	m.publishDesktops()
}

func (m *Manager) moveToWorkspace(leaf tiling.NodeID, arg string) error {
	o := m.outputs[m.current]
	index, err := m.workspaceIndex(o, arg)
	if err != nil {
		return err
	}
	if index == o.Active {
		return nil
	}
	target := o.Workspaces[index]

	next := m.focus.OnLeafRemoved(leaf)
	affected, err := m.tree.Detach(leaf)
	if err != nil {
		return command.Errorf(command.Internal, "%v", err)
	}
	m.apply(m.tree.Hide(leaf))
	if _, err := m.tree.Attach(target.Root, leaf); err != nil {
		return command.Errorf(command.Internal, "%v", err)
	}
	m.refresh(affected)
	m.focus.RememberLeaf(leaf)
	if next != tiling.NoNode {
		m.focusLeaf(m.current, next)
	}
	return nil
}

func (m *Manager) workspaceIndex(o *Output, arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, command.Errorf(command.BadArgument, "%q is not a workspace", arg)
	}
	if n < 1 || n > len(o.Workspaces) {
		return 0, command.Errorf(command.NoSuchWorkspace, "%d (have %d)", n, len(o.Workspaces))
	}
	return n - 1, nil
}

func (m *Manager) workspaceCommand(cmd command.Command) (string, error) {
	switch cmd.Action {
	case "list":
		return m.listWorkspaces()
	case "switch":
		index, err := m.workspaceIndex(m.outputs[m.current], cmd.Arg(0))
		if err != nil {
			return "", err
		}
		m.switchWorkspace(m.current, index)
		return "", nil
	}
	return "", command.Errorf(command.UnknownCommand, "%s", cmd)
}

func (m *Manager) monitorCommand(cmd command.Command) (string, error) {
	switch cmd.Action {
	case "list":
		return m.listMonitors()
	case "focus":
		out, err := m.monitorIndex(cmd.Arg(0))
		if err != nil {
			return "", err
		}
		if out == m.current {
			return "", nil
		}
		m.current = out
		if leaf := m.focus.Focused(out); leaf != tiling.NoNode {
			m.focusLeaf(out, leaf)
		} else {
			m.restoreFocus(out)
		}
		m.publishDesktops()
		return "", nil
	}
	return "", command.Errorf(command.UnknownCommand, "%s", cmd)
}

func (m *Manager) monitorIndex(arg string) (int, error) {
	n := len(m.outputs)
	switch arg {
	case "next":
		return (m.current + 1) % n, nil
	case "prev", "previous":
		return (m.current - 1 + n) % n, nil
	}
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, command.Errorf(command.BadArgument, "%q is not next, prev or an output index", arg)
	}
	for idx, o := range m.outputs {
		if o.Display.ID == i {
			return idx, nil
		}
	}
	if i < 0 || i >= n {
		return 0, command.Errorf(command.NoSuchMonitor, "%d", i)
	}
	return i, nil
}
