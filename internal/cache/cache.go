// Package cache implements the bounded in-memory TTL cache backing the
// ir.CacheNode/@cache evaluation semantics (spec.md §4.4 "Cache(ir, ttl)
// fingerprints the rendered request", §4.1 "CachePolicy").
//
// Grounded on github.com/hashicorp/golang-lru/v2, already part of the
// teacher's stack (listed in go.mod); entries carry an explicit expiry
// checked on Get since each @cache site has its own MaxAgeMS rather than
// one fixed TTL for the whole cache, which the library's plain Cache (as
// opposed to its fixed-TTL expirable variant) does not enforce on its own.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tailcall-gateway/engine/internal/value"
)

type entry struct {
	value     value.Value
	expiresAt time.Time
}

// Cache is a fixed-capacity, per-entry-TTL cache of rendered IO results,
// keyed by the fingerprint of (cache site, scope).
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, entry]
}

// New returns a Cache holding up to size entries. A size of 0 or less
// selects a default capacity of 10000 entries; past the capacity the least
// recently used entry is evicted, whatever its TTL.
func New(size int) *Cache {
	if size <= 0 {
		size = 10000
	}
	l, _ := lru.New[string, entry](size)
	return &Cache{lru: l}
}

// Get returns the cached value for key if present and not expired.
func (c *Cache) Get(key string) (value.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lru.Get(key)
	if !ok {
		return value.Null, false
	}
	if time.Now().After(e.expiresAt) {
		c.lru.Remove(key)
		return value.Null, false
	}
	return e.value, true
}

// Set stores v under key with the given time-to-live.
func (c *Cache) Set(key string, v value.Value, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry{value: v, expiresAt: time.Now().Add(ttl)})
}
