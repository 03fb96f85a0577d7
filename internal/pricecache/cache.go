// Package pricecache provides a time-bounded in-memory store of the latest
// observed price per (venue, pair). Reads are TTL-checked: an entry older
// than the TTL is logically absent. A single logical writer (the packet
// pipeline) updates the cache while the API layer reads concurrently, so an
// RWMutex is sufficient.
package pricecache

import (
	"sort"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long a price observation stays valid.
	DefaultTTL = 60 * time.Second

	// DefaultMaxPerVenue bounds the number of pairs tracked per venue;
	// exceeding it evicts the oldest entries for that venue.
	DefaultMaxPerVenue = 64
)

// Key identifies one cached price observation.
type Key struct {
	Venue string
	Pair  string
}

// Entry is a single price observation.
type Entry struct {
	Price      float64
	ObservedAt time.Time
}

// Cache is a TTL-bounded (venue, pair) -> (price, observedAt) store.
type Cache struct {
	mu          sync.RWMutex
	entries     map[Key]Entry
	ttl         time.Duration
	maxPerVenue int
	now         func() time.Time
}

// Option customizes a Cache.
type Option func(*Cache)

// WithTTL overrides the entry time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithMaxPerVenue overrides the per-venue capacity.
func WithMaxPerVenue(n int) Option {
	return func(c *Cache) { c.maxPerVenue = n }
}

// WithClock overrides the time source. Tests use this to step through TTL
// boundaries deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty Cache with the default TTL and capacity.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:     make(map[Key]Entry),
		ttl:         DefaultTTL,
		maxPerVenue: DefaultMaxPerVenue,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Set records a price observation at the current time, overwriting any prior
// entry for the same key. If the venue exceeds its capacity the oldest
// entries for that venue are evicted.
func (c *Cache) Set(venue, pair string, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[Key{Venue: venue, Pair: pair}] = Entry{Price: price, ObservedAt: now}
	c.evictLocked(venue)
}

// Get returns the cached price for (venue, pair) if present and younger than
// the TTL. Expired entries are reported absent and removed lazily.
func (c *Cache) Get(venue, pair string) (Entry, bool) {
	key := Key{Venue: venue, Pair: pair}

	c.mu.RLock()
	e, ok := c.entries[key]
	now := c.now()
	c.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	if now.Sub(e.ObservedAt) > c.ttl {
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur.ObservedAt.Equal(e.ObservedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return Entry{}, false
	}
	return e, true
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Prune removes all entries older than the TTL and returns how many were
// dropped. Callers run this periodically to bound memory between reads.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.ObservedAt) > c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// evictLocked enforces the per-venue capacity by dropping the oldest entries
// for the venue. The caller must hold the write lock.
func (c *Cache) evictLocked(venue string) {
	type aged struct {
		key Key
		at  time.Time
	}
	var own []aged
	for k, e := range c.entries {
		if k.Venue == venue {
			own = append(own, aged{key: k, at: e.ObservedAt})
		}
	}
	if len(own) <= c.maxPerVenue {
		return
	}
	sort.Slice(own, func(i, j int) bool { return own[i].at.Before(own[j].at) })
	for _, a := range own[:len(own)-c.maxPerVenue] {
		delete(c.entries, a.key)
	}
}
