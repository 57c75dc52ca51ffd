package tiling

import (
	"errors"
	"fmt"

	"github.com/1broseidon/tilewm/internal/platform"
)

// NodeID indexes a node in the tree arena.
type NodeID int

// NoNode is the zero reference.
const NoNode NodeID = -1

// Kind is the node variant.
type Kind int

const (
	KindSplit Kind = iota
	KindMonocle
	KindLeaf
)

func (k Kind) String() string {
	switch k {
	case KindMonocle:
		return "monocle"
	case KindLeaf:
		return "leaf"
	default:
		return "split"
	}
}

// Orientation is the axis a split partitions along.
type Orientation int

const (
	// Horizontal places children side by side along the X axis.
	Horizontal Orientation = iota
	// Vertical stacks children along the Y axis.
	Vertical
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// ParseOrientation accepts "horizontal"/"h" and "vertical"/"v".
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "horizontal", "h":
		return Horizontal, nil
	case "vertical", "v":
		return Vertical, nil
	default:
		return Horizontal, fmt.Errorf("invalid orientation %q", s)
	}
}

// Node is one arena entry. Containers use Children/Weights/Orientation/Active;
// leaves use the window fields. Orientation and Weights survive a
// split<->monocle toggle.
type Node struct {
	Kind        Kind
	Parent      NodeID
	Children    []NodeID
	Weights     []float64
	Orientation Orientation
	Active      int
	Rect        platform.Rect

	Window   platform.WindowID
	Geometry platform.Rect
	Mapped   bool
	Floating bool

	live  bool
	tiled bool // participated in its parent's partition at the last recompute
}

var (
	ErrNoSuchNode    = errors.New("no such node")
	ErrNotContainer  = errors.New("node is not a container")
	ErrRootNode      = errors.New("operation not allowed on a workspace root")
	ErrAncestor      = errors.New("nodes are nested")
	ErrNoResizeSplit = errors.New("no split to resize in")
)

// minWeightShare keeps resized children visible.
const minWeightShare = 0.05

// Tree is an arena of nodes shared by every workspace. Each workspace owns
// one root container, which is never removed.
type Tree struct {
	nodes []Node
	free  []NodeID
}

// NewTree returns an empty arena.
func NewTree() *Tree {
	return &Tree{}
}

func (t *Tree) alloc(n Node) NodeID {
	n.live = true
	if len(t.free) > 0 {
		id := t.free[len(t.free)-1]
		t.free = t.free[:len(t.free)-1]
		t.nodes[id] = n
		return id
	}
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

func (t *Tree) release(id NodeID) {
	t.nodes[id] = Node{Parent: NoNode}
	t.free = append(t.free, id)
}

// NewRoot allocates a workspace root container.
func (t *Tree) NewRoot(o Orientation, viewport platform.Rect) NodeID {
	return t.alloc(Node{Kind: KindSplit, Parent: NoNode, Orientation: o, Rect: viewport})
}

// Node returns the live node for id, or nil.
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) || !t.nodes[id].live {
		return nil
	}
	return &t.nodes[id]
}

// Exists reports whether id references a live node.
func (t *Tree) Exists(id NodeID) bool {
	return t.Node(id) != nil
}

// IsLeaf reports whether id is a live leaf.
func (t *Tree) IsLeaf(id NodeID) bool {
	n := t.Node(id)
	return n != nil && n.Kind == KindLeaf
}

// Len returns the number of live nodes.
func (t *Tree) Len() int {
	return len(t.nodes) - len(t.free)
}

// Parent returns the parent of id, or NoNode.
func (t *Tree) Parent(id NodeID) NodeID {
	n := t.Node(id)
	if n == nil {
		return NoNode
	}
	return n.Parent
}

// RootOf walks up to the workspace root containing id.
func (t *Tree) RootOf(id NodeID) NodeID {
	if !t.Exists(id) {
		return NoNode
	}
	for t.nodes[id].Parent != NoNode {
		id = t.nodes[id].Parent
	}
	return id
}

// IndexInParent returns id's position among its siblings, or -1.
func (t *Tree) IndexInParent(id NodeID) int {
	p := t.Parent(id)
	if p == NoNode {
		return -1
	}
	for i, c := range t.nodes[p].Children {
		if c == id {
			return i
		}
	}
	return -1
}

// IsAncestor reports whether a is a strict ancestor of b.
func (t *Tree) IsAncestor(a, b NodeID) bool {
	for p := t.Parent(b); p != NoNode; p = t.nodes[p].Parent {
		if p == a {
			return true
		}
	}
	return false
}

// Leaves returns the leaves under id in document order.
func (t *Tree) Leaves(id NodeID) []NodeID {
	var out []NodeID
	t.walk(id, func(n NodeID) {
		if t.nodes[n].Kind == KindLeaf {
			out = append(out, n)
		}
	})
	return out
}

func (t *Tree) walk(id NodeID, fn func(NodeID)) {
	if !t.Exists(id) {
		return
	}
	fn(id)
	for _, c := range t.nodes[id].Children {
		t.walk(c, fn)
	}
}

// Descend resolves a node to a leaf: monocles follow their active child,
// splits their first (or last) child.
func (t *Tree) Descend(id NodeID, last bool) NodeID {
	for {
		n := t.Node(id)
		if n == nil {
			return NoNode
		}
		if n.Kind == KindLeaf {
			return id
		}
		if len(n.Children) == 0 {
			return NoNode
		}
		switch {
		case n.Kind == KindMonocle:
			id = n.Children[n.Active]
		case last:
			id = n.Children[len(n.Children)-1]
		default:
			id = n.Children[0]
		}
	}
}

// Insert adds a leaf for window after beside, or at the end of root when
// beside is not a node under root. The new weight is the mean of its
// siblings' weights; inside a monocle the new leaf becomes active. It returns
// the new leaf and the container to recompute.
func (t *Tree) Insert(root, beside NodeID, window platform.WindowID, geometry platform.Rect, mapped, floating bool) (NodeID, NodeID) {
	parent, index := root, len(t.nodes[root].Children)
	if beside != NoNode && beside != root && t.RootOf(beside) == root {
		parent = t.nodes[beside].Parent
		index = t.IndexInParent(beside) + 1
	}
	leaf := t.alloc(Node{
		Kind:     KindLeaf,
		Parent:   parent,
		Window:   window,
		Geometry: geometry,
		Mapped:   mapped,
		Floating: floating,
	})
	t.insertChild(parent, index, leaf, t.meanWeight(parent))
	if t.nodes[parent].Kind == KindMonocle {
		t.nodes[parent].Active = index
	}
	return leaf, t.affected(parent)
}

// Attach appends an existing detached subtree to container.
func (t *Tree) Attach(container, id NodeID) (NodeID, error) {
	c := t.Node(container)
	if c == nil || !t.Exists(id) {
		return NoNode, ErrNoSuchNode
	}
	if c.Kind == KindLeaf {
		return NoNode, ErrNotContainer
	}
	t.nodes[id].Parent = container
	index := len(c.Children)
	t.insertChild(container, index, id, t.meanWeight(container))
	if t.nodes[container].Kind == KindMonocle {
		t.nodes[container].Active = index
	}
	return t.affected(container), nil
}

func (t *Tree) meanWeight(container NodeID) float64 {
	ws := t.nodes[container].Weights
	if len(ws) == 0 {
		return 1
	}
	var sum float64
	for _, w := range ws {
		sum += w
	}
	return sum / float64(len(ws))
}

func (t *Tree) insertChild(container NodeID, index int, child NodeID, weight float64) {
	c := &t.nodes[container]
	c.Children = append(c.Children, NoNode)
	copy(c.Children[index+1:], c.Children[index:])
	c.Children[index] = child
	c.Weights = append(c.Weights, 0)
	copy(c.Weights[index+1:], c.Weights[index:])
	c.Weights[index] = weight
	if c.Kind == KindMonocle && index <= c.Active && len(c.Children) > 1 {
		c.Active++
	}
}

// Remove deletes a leaf and returns the container to recompute.
func (t *Tree) Remove(leaf NodeID) (NodeID, error) {
	if !t.IsLeaf(leaf) {
		return NoNode, ErrNoSuchNode
	}
	affected, err := t.Detach(leaf)
	if err != nil {
		return NoNode, err
	}
	t.release(leaf)
	return affected, nil
}

// Detach unlinks id from its parent without freeing it. Empty non-root
// containers are removed; single-child non-root containers collapse into
// their parent.
func (t *Tree) Detach(id NodeID) (NodeID, error) {
	n := t.Node(id)
	if n == nil {
		return NoNode, ErrNoSuchNode
	}
	if n.Parent == NoNode {
		return NoNode, ErrRootNode
	}
	parent := n.Parent
	t.unlink(parent, t.IndexInParent(id))
	n.Parent = NoNode
	return t.affected(t.normalize(parent)), nil
}

func (t *Tree) unlink(container NodeID, index int) {
	c := &t.nodes[container]
	c.Children = append(c.Children[:index], c.Children[index+1:]...)
	c.Weights = append(c.Weights[:index], c.Weights[index+1:]...)
	if c.Kind == KindMonocle {
		if index < c.Active {
			c.Active--
		}
		if c.Active >= len(c.Children) {
			c.Active = len(c.Children) - 1
		}
		if c.Active < 0 {
			c.Active = 0
		}
	}
}

// normalize prunes or collapses container after a child left it and returns
// the lowest container whose children changed.
func (t *Tree) normalize(container NodeID) NodeID {
	for {
		c := &t.nodes[container]
		if c.Parent == NoNode {
			return container
		}
		parent := c.Parent
		index := t.IndexInParent(container)
		switch len(c.Children) {
		case 0:
			t.unlink(parent, index)
			t.release(container)
			container = parent
			continue
		case 1:
			child := c.Children[0]
			t.nodes[parent].Children[index] = child
			t.nodes[child].Parent = parent
			t.release(container)
			return parent
		}
		return container
	}
}

// affected climbs from container while a node's share of its parent's
// partition changed since the last recompute.
func (t *Tree) affected(container NodeID) NodeID {
	for {
		n := &t.nodes[container]
		if n.Parent == NoNode || t.hasTiled(container) == n.tiled {
			return container
		}
		container = n.Parent
	}
}

func (t *Tree) hasTiled(id NodeID) bool {
	n := &t.nodes[id]
	if n.Kind == KindLeaf {
		return !n.Floating
	}
	for _, c := range n.Children {
		if t.hasTiled(c) {
			return true
		}
	}
	return false
}

// Swap exchanges the positions of two unrelated nodes. Weights stay with the
// positions. It returns the container to recompute.
func (t *Tree) Swap(a, b NodeID) (NodeID, error) {
	if !t.Exists(a) || !t.Exists(b) {
		return NoNode, ErrNoSuchNode
	}
	if a == b {
		return t.nodes[a].Parent, nil
	}
	if t.nodes[a].Parent == NoNode || t.nodes[b].Parent == NoNode {
		return NoNode, ErrRootNode
	}
	if t.IsAncestor(a, b) || t.IsAncestor(b, a) {
		return NoNode, ErrAncestor
	}
	pa, pb := t.nodes[a].Parent, t.nodes[b].Parent
	ia, ib := t.IndexInParent(a), t.IndexInParent(b)
	t.nodes[pa].Children[ia] = b
	t.nodes[pb].Children[ib] = a
	t.nodes[a].Parent, t.nodes[b].Parent = pb, pa
	return t.commonAncestor(pa, pb), nil
}

func (t *Tree) commonAncestor(a, b NodeID) NodeID {
	seen := map[NodeID]bool{}
	for n := a; n != NoNode; n = t.nodes[n].Parent {
		seen[n] = true
	}
	for n := b; n != NoNode; n = t.nodes[n].Parent {
		if seen[n] {
			return n
		}
	}
	return t.RootOf(a)
}

// ToggleMonocle flips the parent of id between split and monocle. A new
// monocle shows id. It returns the container to recompute.
func (t *Tree) ToggleMonocle(id NodeID) (NodeID, error) {
	if !t.Exists(id) {
		return NoNode, ErrNoSuchNode
	}
	parent := t.nodes[id].Parent
	if parent == NoNode {
		return NoNode, ErrRootNode
	}
	p := &t.nodes[parent]
	if p.Kind == KindMonocle {
		p.Kind = KindSplit
	} else {
		p.Kind = KindMonocle
		p.Active = t.IndexInParent(id)
	}
	return parent, nil
}

// Split prepares id for a nested split: the next leaf inserted beside id
// shares a new container of orientation o with it. If id is already the only
// child of a split, that split is reoriented instead.
func (t *Tree) Split(id NodeID, o Orientation) (NodeID, error) {
	n := t.Node(id)
	if n == nil {
		return NoNode, ErrNoSuchNode
	}
	parent := n.Parent
	if parent == NoNode {
		return NoNode, ErrRootNode
	}
	p := &t.nodes[parent]
	if len(p.Children) == 1 && p.Kind == KindSplit {
		p.Orientation = o
		return parent, nil
	}
	index := t.IndexInParent(id)
	rect := n.Rect
	if n.Kind == KindLeaf {
		rect = n.Geometry
	}
	c := t.alloc(Node{
		Kind:        KindSplit,
		Parent:      parent,
		Children:    []NodeID{id},
		Weights:     []float64{1},
		Orientation: o,
		Rect:        rect,
		tiled:       t.nodes[id].tiled,
	})
	t.nodes[parent].Children[index] = c
	t.nodes[id].Parent = c
	return parent, nil
}

// Resize moves delta (a fraction of the split's size) of weight from the
// next tiled sibling of id, or the previous one when id is last, in the
// nearest split ancestor with at least two tiled children. A negative delta
// shrinks.
func (t *Tree) Resize(id NodeID, delta float64) (NodeID, error) {
	if !t.Exists(id) {
		return NoNode, ErrNoSuchNode
	}
	for x := id; t.nodes[x].Parent != NoNode; x = t.nodes[x].Parent {
		parent := t.nodes[x].Parent
		p := &t.nodes[parent]
		if p.Kind != KindSplit {
			continue
		}
		var tiled []int
		self := -1
		for i, c := range p.Children {
			if t.hasTiled(c) {
				if c == x {
					self = len(tiled)
				}
				tiled = append(tiled, i)
			}
		}
		if self < 0 || len(tiled) < 2 {
			continue
		}
		other := self + 1
		if other == len(tiled) {
			other = self - 1
		}
		i, j := tiled[self], tiled[other]
		var sum float64
		for _, k := range tiled {
			sum += p.Weights[k]
		}
		floor := minWeightShare * sum
		dw := delta * sum
		if p.Weights[i]+dw < floor {
			dw = floor - p.Weights[i]
		}
		if p.Weights[j]-dw < floor {
			dw = p.Weights[j] - floor
		}
		p.Weights[i] += dw
		p.Weights[j] -= dw
		return parent, nil
	}
	return NoNode, ErrNoResizeSplit
}

// Reveal makes every monocle between id and its root show id. It returns the
// highest monocle changed, or NoNode if nothing changed.
func (t *Tree) Reveal(id NodeID) NodeID {
	changed := NoNode
	for x := id; t.Exists(x) && t.nodes[x].Parent != NoNode; x = t.nodes[x].Parent {
		p := &t.nodes[t.nodes[x].Parent]
		if p.Kind != KindMonocle {
			continue
		}
		if i := t.IndexInParent(x); p.Active != i {
			p.Active = i
			changed = t.nodes[x].Parent
		}
	}
	return changed
}

// SetFloating changes whether leaf takes part in tiling. Leaving tiling
// parks the window at rect. It returns the container to recompute.
func (t *Tree) SetFloating(leaf NodeID, floating bool, rect platform.Rect) (NodeID, error) {
	if !t.IsLeaf(leaf) {
		return NoNode, ErrNoSuchNode
	}
	n := &t.nodes[leaf]
	if n.Floating == floating {
		return n.Parent, nil
	}
	n.Floating = floating
	if floating {
		n.Geometry = rect
	}
	return t.affected(n.Parent), nil
}

// SetGeometry records a floating leaf's own geometry.
func (t *Tree) SetGeometry(leaf NodeID, rect platform.Rect) {
	if n := t.Node(leaf); n != nil && n.Kind == KindLeaf {
		n.Geometry = rect
	}
}

// Visible reports whether id is shown when its root is shown, i.e. no
// monocle on the path hides it.
func (t *Tree) Visible(id NodeID) bool {
	for x := id; t.Exists(x) && t.nodes[x].Parent != NoNode; x = t.nodes[x].Parent {
		p := &t.nodes[t.nodes[x].Parent]
		if p.Kind == KindMonocle && p.Children[p.Active] != x {
			return false
		}
	}
	return t.Exists(id)
}

// Validate checks the arena's structural invariants.
func (t *Tree) Validate() error {
	parents := map[NodeID]NodeID{}
	for i := range t.nodes {
		id := NodeID(i)
		n := &t.nodes[i]
		if !n.live {
			continue
		}
		if len(n.Children) != len(n.Weights) {
			return fmt.Errorf("node %d: %d children but %d weights", id, len(n.Children), len(n.Weights))
		}
		if n.Kind == KindLeaf && len(n.Children) > 0 {
			return fmt.Errorf("leaf %d has children", id)
		}
		if n.Kind == KindMonocle && len(n.Children) > 0 && (n.Active < 0 || n.Active >= len(n.Children)) {
			return fmt.Errorf("monocle %d: active %d out of range", id, n.Active)
		}
		for _, c := range n.Children {
			if !t.Exists(c) {
				return fmt.Errorf("node %d: child %d is not live", id, c)
			}
			if prev, ok := parents[c]; ok {
				return fmt.Errorf("node %d has parents %d and %d", c, prev, id)
			}
			parents[c] = id
			if t.nodes[c].Parent != id {
				return fmt.Errorf("node %d: parent is %d, listed under %d", c, t.nodes[c].Parent, id)
			}
		}
	}
	for i := range t.nodes {
		if !t.nodes[i].live {
			continue
		}
		steps := 0
		for x := NodeID(i); x != NoNode; x = t.nodes[x].Parent {
			if steps > len(t.nodes) {
				return fmt.Errorf("cycle through node %d", i)
			}
			steps++
		}
	}
	return nil
}
