// Package cache memoizes crawler instances for a fixed time window so
// repeated operations against the same comic reuse one parsed index.
package cache

import (
	"sync"
	"time"

	"github.com/comicdl/comicdl/internal/comic"
)

// Key identifies one cached crawler. An empty ComicID is a distinct,
// valid key used for site-level operations (search, latest, tags) that
// need no specific comic.
type Key struct {
	Site    string
	ComicID string
}

type entry struct {
	crawler  comic.Crawler
	expireAt time.Time
}

// Cache is a TTL-bounded map of Key to crawler instance. Expiry is
// time-based only; there is no explicit invalidation in the core.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   comic.Clock
	entries map[Key]entry
}

// New builds a Cache. TTL defaults to 600 seconds.
func New(ttl time.Duration, clock comic.Clock) *Cache {
	if ttl <= 0 {
		ttl = 600 * time.Second
	}
	return &Cache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[Key]entry),
	}
}

// GetOrCreate returns the cached crawler for key, constructing and caching
// a new one via build when the entry is missing or expired. Construction
// errors are not cached.
func (c *Cache) GetOrCreate(key Key, build func() (comic.Crawler, error)) (comic.Crawler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if e, ok := c.entries[key]; ok && now.Before(e.expireAt) {
		return e.crawler, nil
	}

	crawler, err := build()
	if err != nil {
		return nil, err
	}
	c.entries[key] = entry{crawler: crawler, expireAt: now.Add(c.ttl)}
	c.sweepLocked(now)
	return crawler, nil
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweepLocked drops expired entries so the map does not grow without
// bound. Called with c.mu held.
func (c *Cache) sweepLocked(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expireAt) {
			delete(c.entries, k)
		}
	}
}
