package shutdown

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Func releases one resource.
type Func func(ctx context.Context) error

type entry struct {
	name     string
	fn       Func
	priority int // lower = earlier
}

// Registry runs release functions in priority order at the end of a run.
//
//	reg := NewRegistry()
//	reg.Register("progress", 0, board.Stop)
//	reg.Register("history", 10, ledger.Close)
//	err := reg.Shutdown(ctx)
type Registry struct {
	mu      sync.Mutex
	entries []entry
	closed  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds fn under name. Functions with equal priority run in
// registration order. Registering after Shutdown is a no-op.
func (r *Registry) Register(name string, priority int, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.entries = append(r.entries, entry{name: name, fn: fn, priority: priority})
}

// Shutdown calls every function once, even when some fail, and joins their
// errors. Later calls return nil.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sorted := r.sorted()
	r.mu.Unlock()

	var errs []error
	for _, e := range sorted {
		if err := e.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}

// Names returns the registered names in execution order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	for _, e := range r.sorted() {
		names = append(names, e.name)
	}
	return names
}

// IsClosed reports whether Shutdown has been called.
func (r *Registry) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// sorted must be called with r.mu held.
func (r *Registry) sorted() []entry {
	sorted := slices.Clone(r.entries)
	slices.SortStableFunc(sorted, func(a, b entry) int {
		return a.priority - b.priority
	})
	return sorted
}
