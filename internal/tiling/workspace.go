package tiling

import "github.com/1broseidon/tilewm/internal/platform"

// Workspace is one layout tree bound to a viewport.
type Workspace struct {
	Index    int
	Root     NodeID
	Viewport platform.Rect
}

// NewWorkspace allocates an empty workspace in t.
func NewWorkspace(t *Tree, index int, o Orientation, viewport platform.Rect) *Workspace {
	return &Workspace{Index: index, Root: t.NewRoot(o, viewport), Viewport: viewport}
}

// Layout recomputes the whole workspace at its viewport.
func (w *Workspace) Layout(t *Tree) platform.Diff {
	return t.Recompute(w.Root, w.Viewport)
}

// Resize moves the workspace to a new viewport and recomputes it.
func (w *Workspace) Resize(t *Tree, viewport platform.Rect) platform.Diff {
	w.Viewport = viewport
	return w.Layout(t)
}

// Empty reports whether the workspace holds no leaves.
func (w *Workspace) Empty(t *Tree) bool {
	return len(t.Leaves(w.Root)) == 0
}
