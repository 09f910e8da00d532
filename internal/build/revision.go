package build

import (
	"sync"
)

// Revisions orders the writes of overlapping builds of the same output.
// Every build takes a revision when it starts; a write is committed only if
// its revision is newer than the last committed one for that path, so a slow
// older build can never overwrite the result of a newer one.
type Revisions struct {
	mu    sync.Mutex
	paths map[string]*pathRevision
}

type pathRevision struct {
	mu        sync.Mutex
	issued    uint64
	committed uint64
}

// NewRevisions returns an empty revision table.
func NewRevisions() *Revisions {
	return &Revisions{paths: make(map[string]*pathRevision)}
}

func (r *Revisions) get(path string) *pathRevision {
	r.mu.Lock()
	defer r.mu.Unlock()

	pr, ok := r.paths[path]
	if !ok {
		pr = &pathRevision{}
		r.paths[path] = pr
	}
	return pr
}

// Begin issues the next revision for path.
func (r *Revisions) Begin(path string) uint64 {
	pr := r.get(path)
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.issued++
	return pr.issued
}

// Commit runs write if rev is newer than the last committed revision of
// path. It reports whether the write happened. Writes to one path never run
// concurrently.
func (r *Revisions) Commit(path string, rev uint64, write func() error) (bool, error) {
	pr := r.get(path)
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if rev <= pr.committed {
		return false, nil
	}
	if err := write(); err != nil {
		return false, err
	}
	pr.committed = rev
	return true, nil
}

// Committed returns the last committed revision of path.
func (r *Revisions) Committed(path string) uint64 {
	pr := r.get(path)
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.committed
}
