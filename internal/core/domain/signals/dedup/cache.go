// internal/core/domain/signals/dedup/cache.go
package dedup

import (
	"context"
	"sync"
	"time"
)

// RecencyCache - ключ → время последнего сигнала, с TTL
type RecencyCache interface {
	Get(ctx context.Context, key string) (time.Time, bool, error)
	Set(ctx context.Context, key string, at time.Time, ttl time.Duration) error
}

type cacheEntry struct {
	at        time.Time
	expiresAt time.Time
}

// MemoryCache - процессный RecencyCache
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewMemoryCache создает пустой кэш
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (time.Time, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return time.Time{}, false, nil
	}
	return e.at, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, at time.Time, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{at: at, expiresAt: at.Add(ttl)}
	return nil
}

// Cleanup удаляет истекшие записи, возвращает их число
func (c *MemoryCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len - размер кэша, включая еще не вычищенные записи
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
