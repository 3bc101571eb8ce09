package gaze

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"quarkvr/quarkgl"
)

// Interactable is the capability a node gains by being registered. Every hook
// is optional.
type Interactable struct {
	// ActivationTime overrides the engine's dwell threshold when positive.
	ActivationTime time.Duration

	OnClick    func(hit quarkgl.Hit)
	OnHoverIn  func()
	OnHoverOut func()
}

// Registry maps scene nodes to their interaction capability. The application
// owns node lifetimes; unregister nodes it removes from the scene.
type Registry struct {
	mu sync.RWMutex
	m  map[uuid.UUID]*Interactable
}

func NewRegistry() *Registry {
	return &Registry{m: make(map[uuid.UUID]*Interactable)}
}

// Register marks n interactable, replacing any previous registration.
func (r *Registry) Register(n *quarkgl.Node, it Interactable) {
	if n == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[n.ID] = &it
}

func (r *Registry) Unregister(n *quarkgl.Node) {
	if n == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, n.ID)
}

// Lookup returns n's capability.
func (r *Registry) Lookup(n *quarkgl.Node) (*Interactable, bool) {
	if n == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.m[n.ID]
	return it, ok
}

// Resolve walks from n up its parent chain and returns the first registered node.
func (r *Registry) Resolve(n *quarkgl.Node) (*quarkgl.Node, *Interactable, bool) {
	for cur := n; cur != nil; cur = cur.Parent() {
		if it, ok := r.Lookup(cur); ok {
			return cur, it, true
		}
	}
	return nil, nil, false
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}
