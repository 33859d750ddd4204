package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/martinsuchenak/camdash/internal/cache"
	"github.com/martinsuchenak/camdash/internal/log"
	"github.com/martinsuchenak/camdash/internal/model"
	"github.com/martinsuchenak/camdash/internal/registry"
	"github.com/martinsuchenak/camdash/internal/source"
)

// Refresher keeps the snapshot cache filled. Reads load a stale source on
// demand; a cron schedule refreshes stale sources in the background through
// the worker pool.
type Refresher struct {
	registry *registry.Registry
	cache    *cache.Cache
	pool     *WorkerPool
	now      func() time.Time // injectable for deterministic tests

	// watchDelay is how long Watch waits for a burst of file events to
	// settle before reloading once.
	watchDelay time.Duration

	loads singleflight.Group

	mu      sync.Mutex
	cron    *cron.Cron
	lastErr map[string]error
}

// NewRefresher creates a refresher over the given sources and cache
func NewRefresher(reg *registry.Registry, c *cache.Cache, pool *WorkerPool) *Refresher {
	return &Refresher{
		registry:   reg,
		cache:      c,
		pool:       pool,
		now:        time.Now,
		watchDelay: DefaultWatchDelay,
		lastErr:    make(map[string]error),
	}
}

// Registry returns the source registry
func (r *Refresher) Registry() *registry.Registry {
	return r.registry
}

// Now returns the refresher's clock reading
func (r *Refresher) Now() time.Time {
	return r.now()
}

// Start schedules background refreshes with a cron spec such as
// "@every 60s" and refreshes stale sources once immediately.
func (r *Refresher) Start(schedule string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, r.RefreshStale); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	r.pool.Start()
	c.Start()
	r.cron = c

	log.Info("Starting background refresh", "schedule", schedule, "sources", len(r.registry.IDs()))
	go r.RefreshStale()
	return nil
}

// Stop stops the schedule and waits for a running refresh round to finish
func (r *Refresher) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c == nil {
		return
	}
	log.Info("Stopping background refresh")
	<-c.Stop().Done()
	r.pool.Stop()
}

// Resolve maps an empty id to the default source and checks the id is
// registered.
func (r *Refresher) Resolve(id string) (source.Source, error) {
	if id == "" {
		src, ok := r.registry.Default()
		if !ok {
			return nil, cache.ErrSourceNotFound
		}
		return src, nil
	}
	src, ok := r.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", cache.ErrSourceNotFound, id)
	}
	return src, nil
}

// Snapshot returns the cached snapshot for id, loading it first when missing
// or stale. If a reload fails but an older snapshot exists, the older one is
// returned and the failure is logged.
func (r *Refresher) Snapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	src, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}

	if !r.cache.IsStale(src.ID(), r.now()) {
		if e, err := r.cache.Get(src.ID()); err == nil {
			return e.Snapshot, nil
		}
	}

	snap, err := r.load(ctx, src)
	if err != nil {
		if e, cerr := r.cache.Get(src.ID()); cerr == nil {
			log.Warn("Refresh failed, serving previous snapshot", "source", src.ID(), "error", err)
			return e.Snapshot, nil
		}
		return nil, err
	}
	return snap, nil
}

// Refresh invalidates id and loads it again. Unlike Snapshot it reports a
// failed load even when an older snapshot is still cached.
func (r *Refresher) Refresh(ctx context.Context, id string) (*model.Snapshot, error) {
	src, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}
	r.cache.Invalidate(src.ID())
	return r.load(ctx, src)
}

// RefreshStale queues a load for every stale source. Failures are logged.
func (r *Refresher) RefreshStale() {
	now := r.now()
	for _, src := range r.registry.List() {
		if !r.cache.IsStale(src.ID(), now) {
			continue
		}
		src := src
		job := Job{
			ID: "refresh-" + src.ID(),
			Handler: func(ctx context.Context) error {
				_, err := r.load(ctx, src)
				return err
			},
		}
		if err := r.pool.Submit(job); err != nil {
			log.Warn("Failed to queue refresh", "source", src.ID(), "error", err)
		}
	}
}

// Add registers a source and drops any snapshot cached under its id
func (r *Refresher) Add(src source.Source) error {
	if err := r.registry.Register(src); err != nil {
		return err
	}
	r.cache.Delete(src.ID())
	return nil
}

// Remove unregisters a source and forgets its snapshot
func (r *Refresher) Remove(id string) bool {
	removed := r.registry.Unregister(id)
	r.cache.Delete(id)

	r.mu.Lock()
	delete(r.lastErr, id)
	r.mu.Unlock()
	return removed
}

// Status lists every registered source with its cache state
func (r *Refresher) Status() []model.SourceStatus {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	sources := r.registry.List()
	out := make([]model.SourceStatus, 0, len(sources))
	for _, src := range sources {
		st := model.SourceStatus{
			ID:    src.ID(),
			Kind:  src.Kind(),
			Stale: r.cache.IsStale(src.ID(), now),
		}
		if e, err := r.cache.Get(src.ID()); err == nil {
			fetched := e.FetchedAt
			st.FetchedAt = &fetched
			st.Devices = len(e.Snapshot.Devices)
			st.Missing = e.Snapshot.Missing
		}
		if err := r.lastErr[src.ID()]; err != nil {
			st.LastError = err.Error()
		}
		out = append(out, st)
	}
	return out
}

// load fetches src once even when several callers ask at the same time
func (r *Refresher) load(ctx context.Context, src source.Source) (*model.Snapshot, error) {
	v, err, _ := r.loads.Do(src.ID(), func() (any, error) {
		start := r.now()
		snap, err := source.Load(ctx, src, start)

		r.mu.Lock()
		r.lastErr[src.ID()] = err
		r.mu.Unlock()

		if err != nil {
			log.Error("Snapshot refresh failed", "source", src.ID(), "error", err)
			return nil, err
		}

		// A source removed while loading must not come back through the cache.
		if _, ok := r.registry.Get(src.ID()); !ok {
			return snap, nil
		}
		r.cache.Put(snap)
		log.Info("Snapshot refreshed", "source", src.ID(), "devices", len(snap.Devices), "missing", len(snap.Missing))
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Snapshot), nil
}

// IsNotFound reports whether err means the source is unknown
func IsNotFound(err error) bool {
	return errors.Is(err, cache.ErrSourceNotFound)
}
