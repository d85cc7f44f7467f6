// Package cache holds detail-page results for the duration of a run, so a
// listing that shows up under several search terms is visited once.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"strings"
	"sync"
	"time"
)

// entry holds cached detail fields with their creation timestamp.
type entry struct {
	fields    map[string]string
	createdAt time.Time
}

// Cache is an in-memory detail cache. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// New creates a Cache bounded to maxEntries. Entries older than ttl are
// treated as misses; ttl <= 0 disables expiry.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Key hashes the canonical listing URL.
func Key(url string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(url))))
	return hex.EncodeToString(sum[:])
}

// Get returns a copy of the cached fields for url.
func (c *Cache) Get(url string) (map[string]string, bool) {
	k := Key(url)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.createdAt) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return nil, false
	}
	return maps.Clone(e.fields), true
}

// Set stores a copy of fields. At capacity, one arbitrary entry is evicted.
func (c *Cache) Set(url string, fields map[string]string) {
	k := Key(url)
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[k]; !exists && len(c.store) >= c.maxEntries {
		// map iteration order is random
		for old := range c.store {
			delete(c.store, old)
			break
		}
	}
	c.store[k] = &entry{fields: maps.Clone(fields), createdAt: c.now()}
}

// Len reports the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}
