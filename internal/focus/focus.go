// Package focus tracks the focused leaf of every output.
package focus

import (
	"errors"
	"fmt"

	"github.com/1broseidon/tilewm/internal/tiling"
)

var (
	ErrNotALeaf = errors.New("node is not a leaf")
	ErrNoFocus  = errors.New("nothing is focused")
)

// Direction selects a navigation step.
type Direction int

const (
	Next Direction = iota
	Prev
	Parent
)

// ParseDirection accepts next, prev and parent.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "next":
		return Next, nil
	case "prev", "previous":
		return Prev, nil
	case "parent":
		return Parent, nil
	default:
		return Next, fmt.Errorf("invalid direction %q", s)
	}
}

// Manager holds one focused leaf per output and the last focused leaf of
// every workspace that is not shown.
type Manager struct {
	tree       *tiling.Tree
	focused    map[int]tiling.NodeID
	remembered map[tiling.NodeID]tiling.NodeID
}

func NewManager(tree *tiling.Tree) *Manager {
	return &Manager{
		tree:       tree,
		focused:    make(map[int]tiling.NodeID),
		remembered: make(map[tiling.NodeID]tiling.NodeID),
	}
}

// Focused returns the focused leaf of output, or NoNode.
func (m *Manager) Focused(output int) tiling.NodeID {
	id, ok := m.focused[output]
	if !ok || !m.tree.IsLeaf(id) {
		return tiling.NoNode
	}
	return id
}

// Set focuses node on output.
func (m *Manager) Set(output int, node tiling.NodeID) error {
	if !m.tree.IsLeaf(node) {
		return ErrNotALeaf
	}
	m.focused[output] = node
	return nil
}

// Clear drops output's focus.
func (m *Manager) Clear(output int) {
	delete(m.focused, output)
}

// Target returns the leaf a navigation step from output's focus would land
// on, without changing focus.
func (m *Manager) Target(output int, dir Direction) (tiling.NodeID, error) {
	cur := m.Focused(output)
	if cur == tiling.NoNode {
		return tiling.NoNode, ErrNoFocus
	}

	start := cur
	if dir == Parent {
		if p := m.tree.Parent(cur); p != tiling.NoNode && m.tree.Parent(p) != tiling.NoNode {
			start = p
		}
	}

	x := start
	for {
		p := m.tree.Parent(x)
		if p == tiling.NoNode {
			return cur, nil
		}
		if len(m.tree.Node(p).Children) > 1 {
			break
		}
		x = p
	}

	siblings := m.tree.Node(m.tree.Parent(x)).Children
	i := m.tree.IndexInParent(x)
	n := len(siblings)
	j := (i + 1) % n
	if dir == Prev {
		j = (i - 1 + n) % n
	}
	target := m.tree.Descend(siblings[j], dir == Prev)
	if target == tiling.NoNode {
		return cur, nil
	}
	return target, nil
}

// Navigate moves output's focus one step and returns the new focus.
func (m *Manager) Navigate(output int, dir Direction) (tiling.NodeID, error) {
	target, err := m.Target(output, dir)
	if err != nil {
		return tiling.NoNode, err
	}
	m.focused[output] = target
	return target, nil
}

// Successor returns the leaf that takes over when node is removed: its next
// sibling, else its parent's next sibling, else the first other leaf of the
// workspace. It must be called before node leaves the tree.
func (m *Manager) Successor(node tiling.NodeID) tiling.NodeID {
	if !m.tree.Exists(node) {
		return tiling.NoNode
	}
	for x := node; x != tiling.NoNode; x = m.tree.Parent(x) {
		p := m.tree.Parent(x)
		if p == tiling.NoNode {
			break
		}
		siblings := m.tree.Node(p).Children
		if i := m.tree.IndexInParent(x); i+1 < len(siblings) {
			if leaf := m.tree.Descend(siblings[i+1], false); leaf != tiling.NoNode && leaf != node {
				return leaf
			}
		}
		if x != node {
			break
		}
	}
	for _, leaf := range m.tree.Leaves(m.tree.RootOf(node)) {
		if leaf != node {
			return leaf
		}
	}
	return tiling.NoNode
}

// OnLeafRemoved reassigns every output and workspace pointing at node before
// the removal happens. It returns the successor, or NoNode if the workspace
// will be empty.
func (m *Manager) OnLeafRemoved(node tiling.NodeID) tiling.NodeID {
	next := m.Successor(node)
	for output, id := range m.focused {
		if id != node {
			continue
		}
		if next == tiling.NoNode {
			delete(m.focused, output)
		} else {
			m.focused[output] = next
		}
	}
	for root, id := range m.remembered {
		if id != node {
			continue
		}
		if next == tiling.NoNode {
			delete(m.remembered, root)
		} else {
			m.remembered[root] = next
		}
	}
	return next
}

// Remember stores output's focus for the workspace rooted at root.
func (m *Manager) Remember(output int, root tiling.NodeID) {
	if cur := m.Focused(output); cur != tiling.NoNode && m.tree.RootOf(cur) == root {
		m.remembered[root] = cur
	}
}

// RememberLeaf records leaf as the focus to restore for its workspace.
func (m *Manager) RememberLeaf(leaf tiling.NodeID) {
	if m.tree.IsLeaf(leaf) {
		m.remembered[m.tree.RootOf(leaf)] = leaf
	}
}

// Forget drops the remembered focus of the workspace rooted at root.
func (m *Manager) Forget(root tiling.NodeID) {
	delete(m.remembered, root)
}

// Restore focuses the leaf remembered for root on output, falling back to
// the workspace's first leaf. It returns the new focus or NoNode.
func (m *Manager) Restore(output int, root tiling.NodeID) tiling.NodeID {
	id, ok := m.remembered[root]
	if !ok || !m.tree.IsLeaf(id) || m.tree.RootOf(id) != root {
		id = m.tree.Descend(root, false)
	}
	if id == tiling.NoNode {
		delete(m.focused, output)
		return tiling.NoNode
	}
	m.focused[output] = id
	return id
}
