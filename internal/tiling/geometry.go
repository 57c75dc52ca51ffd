package tiling

import (
	"math"

	"github.com/1broseidon/tilewm/internal/platform"
)

// Recompute assigns rect to id and partitions it among id's subtree. Leaves
// whose geometry or visibility changed are reported in the diff.
//
// A split divides its axis among the children that contain tiled leaves:
// each gets floor(size*weight/sum) and the last absorbs the remainder. A
// monocle gives its active child the full rect and hides the others.
// Floating leaves keep their own geometry and are only mapped.
func (t *Tree) Recompute(id NodeID, rect platform.Rect) platform.Diff {
	var diff platform.Diff
	if t.Exists(id) {
		t.layout(id, rect, &diff)
	}
	return diff
}

// Refresh recomputes id at the rectangle it was last given. Nodes hidden by
// a monocle produce no requests; they are laid out when revealed.
func (t *Tree) Refresh(id NodeID) platform.Diff {
	if !t.Exists(id) || !t.Visible(id) {
		return platform.Diff{}
	}
	return t.Recompute(id, t.nodes[id].Rect)
}

// Hide unmaps every mapped leaf under id.
func (t *Tree) Hide(id NodeID) platform.Diff {
	var diff platform.Diff
	if t.Exists(id) {
		t.hide(id, &diff)
	}
	return diff
}

func (t *Tree) layout(id NodeID, rect platform.Rect, diff *platform.Diff) {
	n := &t.nodes[id]
	n.Rect = rect
	n.tiled = t.hasTiled(id)

	switch n.Kind {
	case KindLeaf:
		if !n.Floating && n.Geometry != rect {
			n.Geometry = rect
			diff.Configure = append(diff.Configure, platform.Change{Window: n.Window, Bounds: rect})
		}
		if !n.Mapped {
			n.Mapped = true
			diff.Map = append(diff.Map, n.Window)
		}

	case KindMonocle:
		for i, c := range n.Children {
			if i == n.Active {
				t.layout(c, rect, diff)
			} else {
				t.hide(c, diff)
			}
		}

	case KindSplit:
		var tiled []int
		var sum float64
		for i, c := range n.Children {
			if t.hasTiled(c) {
				tiled = append(tiled, i)
				sum += n.Weights[i]
			} else {
				t.layout(c, rect, diff)
			}
		}
		if len(tiled) == 0 {
			return
		}

		size := rect.Width
		if n.Orientation == Vertical {
			size = rect.Height
		}
		if size < 0 {
			size = 0
		}

		offset := 0
		for k, i := range tiled {
			seg := size - offset
			if k < len(tiled)-1 {
				if sum > 0 {
					seg = int(math.Floor(float64(size) * n.Weights[i] / sum))
				} else {
					seg = size / len(tiled)
				}
			}
			child := rect
			if n.Orientation == Vertical {
				child.Y = rect.Y + offset
				child.Height = seg
			} else {
				child.X = rect.X + offset
				child.Width = seg
			}
			offset += seg
			t.layout(n.Children[i], child, diff)
		}
	}
}

func (t *Tree) hide(id NodeID, diff *platform.Diff) {
	t.walk(id, func(x NodeID) {
		n := &t.nodes[x]
		if n.Kind == KindLeaf && n.Mapped {
			n.Mapped = false
			diff.Unmap = append(diff.Unmap, n.Window)
		}
	})
}
