// Package catalog provides the single-slot snapshot cache used by the
// venue catalog fetch engines. Catalog data is public, so the cache has no
// per-credential partitioning.
package catalog

import (
	"sync"
	"time"
)

// DefaultTTL is the catalog freshness window.
const DefaultTTL = 5 * time.Minute

// Cache memoizes one raw fetch result for a fixed freshness window. It is
// an explicit, constructible object with an injectable clock so tests can
// control expiry deterministically.
type Cache[T any] struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	value     T
	fetchedAt time.Time
	populated bool
}

// Option configures a Cache.
type Option[T any] func(*Cache[T])

// WithClock overrides the cache's time source.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Cache[T]) { c.now = now }
}

// New creates a cache with the given TTL. A non-positive ttl falls back to
// DefaultTTL.
func New[T any](ttl time.Duration, opts ...Option[T]) *Cache[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache[T]{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value and true when the slot is populated and
// younger than the freshness window.
func (c *Cache[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.populated || c.now().Sub(c.fetchedAt) >= c.ttl {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Put replaces the slot with a fresh value stamped at the current time.
// Concurrent misses may both fetch and Put; the last writer wins, which is
// acceptable because both writes are idempotent refreshes of the same data.
func (c *Cache[T]) Put(v T) {
	c.mu.Lock()
	c.value = v
	c.fetchedAt = c.now()
	c.populated = true
	c.mu.Unlock()
}

// Reset clears the slot unconditionally, forcing the next read to fetch.
func (c *Cache[T]) Reset() {
	c.mu.Lock()
	var zero T
	c.value = zero
	c.populated = false
	c.mu.Unlock()
}
