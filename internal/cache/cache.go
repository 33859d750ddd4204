// Package cache holds the latest inventory snapshot of each source.
package cache

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/martinsuchenak/camdash/internal/model"
)

var ErrSourceNotFound = errors.New("source not found")

// Entry is a snapshot together with the time it was fetched.
type Entry struct {
	Snapshot    *model.Snapshot
	FetchedAt   time.Time
	Invalidated bool
}

// Cache is a thread-safe snapshot store keyed by source id. Entries older than
// the TTL are stale but still served until a newer snapshot replaces them.
type Cache struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Cache with the given TTL.
func New(ttl time.Duration) *Cache {
	return &Cache{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Put stores or replaces the snapshot for snap.Source. A zero FetchedAt is
// stamped with the current time. Callers must not modify snap after Put.
func (c *Cache) Put(snap *model.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fetched := snap.FetchedAt
	if fetched.IsZero() {
		fetched = c.now()
	}
	c.data[snap.Source] = &Entry{Snapshot: snap, FetchedAt: fetched}
}

// Get returns a copy of the entry for id.
func (c *Cache) Get(id string) (Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[id]
	if !ok {
		return Entry{}, ErrSourceNotFound
	}
	return *e, nil
}

// IsStale reports whether id needs fetching at now: it has no entry, was
// invalidated, or is at least TTL old.
func (c *Cache) IsStale(id string, now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[id]
	if !ok || e.Invalidated {
		return true
	}
	return !now.Before(e.FetchedAt.Add(c.ttl))
}

// Invalidate marks the entry for id stale. The snapshot stays readable until
// it is replaced.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.data[id]; ok {
		e.Invalidated = true
	}
}

// Delete removes the entry for id.
func (c *Cache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, id)
}

// List returns copies of all entries ordered by source id.
func (c *Cache) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.data))
	for _, e := range c.data {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Snapshot.Source < out[j].Snapshot.Source
	})
	return out
}
