// Package registry maps display window ids to layout tree leaves.
package registry

import (
	"errors"
	"sort"

	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/tiling"
)

var (
	ErrDuplicateWindow = errors.New("window already managed")
	ErrDuplicateNode   = errors.New("node already bound to a window")
	ErrCapacity        = errors.New("registry at capacity")
)

// Registry keeps both directions of the window/node mapping in lockstep.
// It is the only writer of either map.
type Registry struct {
	byWindow map[platform.WindowID]tiling.NodeID
	byNode   map[tiling.NodeID]platform.WindowID
	capacity int
}

// New returns a registry holding at most capacity windows; 0 means unbounded.
func New(capacity int) *Registry {
	return &Registry{
		byWindow: make(map[platform.WindowID]tiling.NodeID),
		byNode:   make(map[tiling.NodeID]platform.WindowID),
		capacity: capacity,
	}
}

// SetCapacity changes the bound for future inserts.
func (r *Registry) SetCapacity(capacity int) {
	r.capacity = capacity
}

// Reserve reports whether a new window could be inserted.
func (r *Registry) Reserve(id platform.WindowID) error {
	if _, ok := r.byWindow[id]; ok {
		return ErrDuplicateWindow
	}
	if r.capacity > 0 && len(r.byWindow) >= r.capacity {
		return ErrCapacity
	}
	return nil
}

// Insert binds window to node.
func (r *Registry) Insert(id platform.WindowID, node tiling.NodeID) error {
	if err := r.Reserve(id); err != nil {
		return err
	}
	if _, ok := r.byNode[node]; ok {
		return ErrDuplicateNode
	}
	r.byWindow[id] = node
	r.byNode[node] = id
	return nil
}

// RemoveByWindow clears both directions for window.
func (r *Registry) RemoveByWindow(id platform.WindowID) (tiling.NodeID, bool) {
	node, ok := r.byWindow[id]
	if !ok {
		return tiling.NoNode, false
	}
	delete(r.byWindow, id)
	delete(r.byNode, node)
	return node, true
}

// RemoveByNode clears both directions for node.
func (r *Registry) RemoveByNode(node tiling.NodeID) (platform.WindowID, bool) {
	id, ok := r.byNode[node]
	if !ok {
		return 0, false
	}
	delete(r.byNode, node)
	delete(r.byWindow, id)
	return id, true
}

func (r *Registry) LookupWindow(id platform.WindowID) (tiling.NodeID, bool) {
	node, ok := r.byWindow[id]
	return node, ok
}

func (r *Registry) LookupNode(node tiling.NodeID) (platform.WindowID, bool) {
	id, ok := r.byNode[node]
	return id, ok
}

func (r *Registry) Len() int {
	return len(r.byWindow)
}

// Windows returns every managed window id in ascending order.
func (r *Registry) Windows() []platform.WindowID {
	out := make([]platform.WindowID, 0, len(r.byWindow))
	for id := range r.byWindow {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
