// Package registry tracks the entry files known to a watch session.
package registry

import (
	"sync"
)

// EntryRegistry is an insertion-ordered set of entry paths.
type EntryRegistry struct {
	paths []string
	index map[string]int
	mutex sync.RWMutex
}

// NewEntryRegistry creates an empty registry
func NewEntryRegistry() *EntryRegistry {
	return &EntryRegistry{
		index: make(map[string]int),
	}
}

// Add appends path unless it is already present. It reports whether the
// registry changed.
func (r *EntryRegistry) Add(path string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.index[path]; exists {
		return false
	}
	r.index[path] = len(r.paths)
	r.paths = append(r.paths, path)
	return true
}

// Remove deletes path, keeping the order of the remaining entries. It
// reports whether the registry changed.
func (r *EntryRegistry) Remove(path string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	i, exists := r.index[path]
	if !exists {
		return false
	}
	delete(r.index, path)
	r.paths = append(r.paths[:i], r.paths[i+1:]...)
	for j := i; j < len(r.paths); j++ {
		r.index[r.paths[j]] = j
	}
	return true
}

// Contains reports whether path is registered
func (r *EntryRegistry) Contains(path string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.index[path]
	return exists
}

// Clone returns an independent copy of the registry.
func (r *EntryRegistry) Clone() *EntryRegistry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	clone := &EntryRegistry{
		paths: make([]string, len(r.paths)),
		index: make(map[string]int, len(r.index)),
	}
	copy(clone.paths, r.paths)
	for path, i := range r.index {
		clone.index[path] = i
	}
	return clone
}

// Paths returns a snapshot of the registered paths in insertion order.
func (r *EntryRegistry) Paths() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]string, len(r.paths))
	copy(result, r.paths)
	return result
}

// Len returns the number of registered paths
func (r *EntryRegistry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.paths)
}
