package diff

import "sync"

// Known answers whether a signature has been seen before.
type Known interface {
	Contains(sig string) bool
}

// Registry is the append-only set of noise signatures shared by every probe
// of a run. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	items []string
	index map[string]struct{}
}

// NewRegistry returns a registry holding the given signatures.
func NewRegistry(initial ...string) *Registry {
	r := &Registry{index: make(map[string]struct{}, len(initial))}
	r.Add(initial...)
	return r
}

// Contains reports whether sig is already registered.
func (r *Registry) Contains(sig string) bool {
	r.mu.RLock()
	_, ok := r.index[sig]
	r.mu.RUnlock()
	return ok
}

// Add registers the signatures that are not known yet and returns how many were new.
func (r *Registry) Add(sigs ...string) int {
	if len(sigs) == 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	added := 0
	for _, sig := range sigs {
		if _, ok := r.index[sig]; ok {
			continue
		}
		r.index[sig] = struct{}{}
		r.items = append(r.items, sig)
		added++
	}
	return added
}

// Len returns the number of registered signatures.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// List returns the signatures in insertion order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.items...)
}

// Snapshot returns an independent copy, so later additions to r are not seen by it.
func (r *Registry) Snapshot() *Registry {
	return NewRegistry(r.List()...)
}

// union treats a signature as known when any member knows it.
type union []Known

func (u union) Contains(sig string) bool {
	for _, k := range u {
		if k != nil && k.Contains(sig) {
			return true
		}
	}
	return false
}

// Union combines several Known sets into one.
func Union(sets ...Known) Known {
	return union(sets)
}
