// Package cache stores fetched VOD pages so that repeat views and refresh
// failures can be served without the upstream API.
package cache

import (
	"context"
	"sync"
	"time"

	"vodgallery/internal/models"
)

// Entry is a cached page together with the time it was fetched upstream.
type Entry struct {
	FetchedAt time.Time      `json:"fetched_at"`
	Page      models.VODPage `json:"page"`
}

// PageCache stores page entries by key.
type PageCache interface {
	// Get returns the entry for key. Missing and expired entries report false.
	Get(ctx context.Context, key string) (Entry, bool)
	// Set stores e under key until ttl elapses.
	Set(ctx context.Context, key string, e Entry, ttl time.Duration)
	// Stats returns hit/miss counters.
	Stats() Stats
}

// Stats holds cache counters.
type Stats struct {
	Hits   int64
	Misses int64
	Sets   int64
}

type memoryEntry struct {
	entry      Entry
	expiration time.Time
}

// memoryCache is an in-process PageCache used when redis is not configured.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	stats   Stats
	now     func() time.Time
}

func NewMemoryCache() PageCache {
	return &memoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *memoryCache) Get(_ context.Context, key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return Entry{}, false
	}
	if c.now().After(e.expiration) {
		delete(c.entries, key)
		c.stats.Misses++
		return Entry{}, false
	}
	c.stats.Hits++
	return e.entry, true
}

func (c *memoryCache) Set(_ context.Context, key string, e Entry, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{entry: e, expiration: c.now().Add(ttl)}
	c.stats.Sets++
}

func (c *memoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
