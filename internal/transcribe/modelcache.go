package transcribe

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ModelCache amortizes model load time across runs. It is an explicitly
// constructed, injected object: Get for an uncached identifier runs at most
// one load (concurrent callers share its outcome), cached identifiers return
// immediately without blocking on unrelated in-flight loads, and failures
// are never cached.
type ModelCache struct {
	backend Backend
	max     int // 0 = unbounded; otherwise evict least-recently-used
	log     zerolog.Logger

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	handle   *ModelHandle
	lastUsed time.Time
}

// NewModelCache creates a cache backed by the given backend's loader.
// maxEntries bounds the cache (least-recently-used eviction); 0 disables
// eviction and entries live for the process lifetime.
func NewModelCache(backend Backend, maxEntries int, log zerolog.Logger) *ModelCache {
	return &ModelCache{
		backend: backend,
		max:     maxEntries,
		log:     log.With().Str("component", "modelcache").Logger(),
		entries: make(map[string]*cacheEntry),
	}
}

// Get returns the cached handle for model, loading it on first use.
func (c *ModelCache) Get(ctx context.Context, model string) (*ModelHandle, error) {
	if h := c.lookup(model); h != nil {
		return h, nil
	}

	v, err, shared := c.group.Do(model, func() (any, error) {
		// A racing caller may have finished the load between our lookup
		// and joining the flight.
		if h := c.lookup(model); h != nil {
			return h, nil
		}

		start := time.Now()
		h, err := c.backend.LoadModel(ctx, model)
		if err != nil {
			return nil, &ModelLoadError{Model: model, Err: err}
		}
		c.store(model, h)
		c.log.Info().
			Str("model", model).
			Str("device", h.Device.Name).
			Str("compute", h.Device.Compute).
			Dur("load_time", time.Since(start)).
			Msg("model loaded")
		return h, nil
	})
	if err != nil {
		// Nothing was stored; the next Get retries the load.
		return nil, err
	}
	if shared {
		c.touch(model)
	}
	return v.(*ModelHandle), nil
}

// Size returns the number of cached handles.
func (c *ModelCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ModelCache) lookup(model string) *ModelHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[model]
	if !ok {
		return nil
	}
	e.lastUsed = time.Now()
	return e.handle
}

func (c *ModelCache) touch(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[model]; ok {
		e.lastUsed = time.Now()
	}
}

func (c *ModelCache) store(model string, h *ModelHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[model] = &cacheEntry{handle: h, lastUsed: time.Now()}

	if c.max <= 0 {
		return
	}
	for len(c.entries) > c.max {
		oldest := ""
		var oldestAt time.Time
		for name, e := range c.entries {
			if name == model {
				continue
			}
			if oldest == "" || e.lastUsed.Before(oldestAt) {
				oldest = name
				oldestAt = e.lastUsed
			}
		}
		if oldest == "" {
			return
		}
		delete(c.entries, oldest)
		c.log.Info().Str("model", oldest).Msg("model evicted from cache")
	}
}
