package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/martinsuchenak/camdash/internal/source"
)

var ErrSourceExists = errors.New("source already registered")

// Registry holds the inventory sources the server knows about, keyed by id
type Registry struct {
	mu      sync.RWMutex
	sources map[string]source.Source
}

// New creates an empty registry
func New() *Registry {
	return &Registry{sources: make(map[string]source.Source)}
}

// Register adds a source. Registering an id twice fails.
func (r *Registry) Register(src source.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[src.ID()]; exists {
		return ErrSourceExists
	}
	r.sources[src.ID()] = src
	return nil
}

// Unregister removes a source and reports whether it was present
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.sources[id]
	delete(r.sources, id)
	return exists
}

// Get returns a source by id
func (r *Registry) Get(id string) (source.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, exists := r.sources[id]
	return src, exists
}

// IDs returns the registered ids sorted
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns the registered sources ordered by id
func (r *Registry) List() []source.Source {
	ids := r.IDs()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]source.Source, 0, len(ids))
	for _, id := range ids {
		if src, ok := r.sources[id]; ok {
			out = append(out, src)
		}
	}
	return out
}

// Default picks the source a request without an explicit id reads: the
// Google Sheet if configured, otherwise the first id in order.
func (r *Registry) Default() (source.Source, bool) {
	if src, ok := r.Get(source.SheetSourceID); ok {
		return src, true
	}
	list := r.List()
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}
