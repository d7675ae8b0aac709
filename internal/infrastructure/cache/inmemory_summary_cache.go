package cache

import (
	"context"
	"sync"
	"time"

	"github.com/karkhana-erp/backend/internal/domain/shared"
)

// cacheEntry represents a cached payload with expiration
type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// InMemorySummaryCache implements SummaryCache using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemorySummaryCache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	defaultTTL time.Duration
	stopChan   chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// NewInMemorySummaryCache creates a new in-memory summary cache.
// It starts a background goroutine to clean up expired entries.
func NewInMemorySummaryCache(defaultTTL time.Duration) *InMemorySummaryCache {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}

	cache := &InMemorySummaryCache{
		entries:    make(map[string]cacheEntry),
		defaultTTL: defaultTTL,
		stopChan:   make(chan struct{}),
	}

	cache.wg.Add(1)
	go cache.cleanupLoop()

	return cache
}

// Get retrieves a cached payload. A miss is not an error.
func (c *InMemorySummaryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[key]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}

	// Return a copy so callers cannot mutate the cached payload
	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, true, nil
}

// Set stores a payload with the given TTL. A ttl of 0 uses the default.
func (c *InMemorySummaryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		value:     stored,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Invalidate removes the given keys. Missing keys are ignored.
func (c *InMemorySummaryCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemorySummaryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (c *InMemorySummaryCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired entries from the cache
func (c *InMemorySummaryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Size returns the number of entries in the cache (for testing/monitoring)
func (c *InMemorySummaryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemorySummaryCache implements SummaryCache
var _ shared.SummaryCache = (*InMemorySummaryCache)(nil)
