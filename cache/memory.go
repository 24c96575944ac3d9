// Package cache provides read caches for the preference store: an in-memory
// map with TTLs and a Redis-backed cache.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/CreativeUnicorns/morestickers"
)

var _ morestickers.Cache = (*MemoryCache)(nil)

const gcInterval = time.Minute

type item struct {
	value      interface{}
	expiration time.Time
}

func (it item) expired(now time.Time) bool {
	return !it.expiration.IsZero() && now.After(it.expiration)
}

// MemoryCache implements the Cache interface using an in-memory store.
type MemoryCache struct {
	mu     sync.RWMutex
	items  map[string]item
	stop   chan struct{}
	closed bool
}

// NewMemoryCache initializes a new MemoryCache and starts a goroutine that
// evicts expired items until Close is called.
func NewMemoryCache() *MemoryCache {
	cache := &MemoryCache{
		items: make(map[string]item),
		stop:  make(chan struct{}),
	}
	go cache.gc(gcInterval)
	return cache
}

// Get returns morestickers.ErrNotFound for missing and expired keys.
func (c *MemoryCache) Get(_ context.Context, key string) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, morestickers.ErrCacheUnavailable
	}

	it, exists := c.items[key]
	if !exists || it.expired(time.Now()) {
		return nil, morestickers.ErrNotFound
	}

	return it.value, nil
}

// Set stores a value. A ttl of zero or less never expires.
func (c *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return morestickers.ErrCacheUnavailable
	}

	var expiration time.Time
	if ttl > 0 {
		expiration = time.Now().Add(ttl)
	}

	c.items[key] = item{
		value:      value,
		expiration: expiration,
	}

	return nil
}

// Delete removes a key from the memory cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// Close stops the eviction goroutine and drops all items. It is safe to call
// more than once.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.stop)

	c.items = make(map[string]item)
	return nil
}

func (c *MemoryCache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, it := range c.items {
		if it.expired(now) {
			delete(c.items, key)
		}
	}
}

func (c *MemoryCache) gc(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.evictExpired()
		case <-c.stop:
			return
		}
	}
}
