package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memoryCache is a map guarded by a mutex. Expired entries are dropped when
// they are looked up or when the cache is measured.
type memoryCache struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemory returns an in-process backend. Entries without an explicit expiry
// live for ttl.
func NewMemory(ttl time.Duration) Backend {
	return newMemory(ttl, time.Now)
}

func newMemory(ttl time.Duration, clock func() time.Time) *memoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &memoryCache{ttl: ttl, clock: clock, entries: map[string]Entry{}}
}

func (c *memoryCache) live(entry Entry) bool {
	return !c.clock().After(entry.ExpiresAt)
}

func (c *memoryCache) Lookup(_ context.Context, key string) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	switch {
	case !ok:
		return Entry{}, false, nil
	case !c.live(entry):
		delete(c.entries, key)
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (c *memoryCache) Store(_ context.Context, key string, entry Entry) error {
	entry = entry.stamped(c.clock(), c.ttl)
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) DeletePrefix(_ context.Context, prefix string) error {
	if prefix == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// Size counts live entries, purging the rest.
func (c *memoryCache) Size(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if !c.live(entry) {
			delete(c.entries, key)
		}
	}
	return int64(len(c.entries)), nil
}

func (c *memoryCache) Close(context.Context) error {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
	return nil
}
