package cache

import (
	"sync"
	"time"

	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/analysis"
)

// Metrics receives cache hit/miss notifications
type Metrics interface {
	IncrementCacheHit()
	IncrementCacheMiss()
}

// BuildFunc produces a model for a dataset key. ok=false means no model
// is available and nothing is cached.
type BuildFunc func() (analysis.Model, bool, error)

// CacheItem represents a cached model with expiration
type CacheItem struct {
	Model     analysis.Model `json:"model"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// IsExpired checks if the cache item has expired
func (c *CacheItem) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// ModelCache provides thread-safe caching of built models with TTL
type ModelCache struct {
	mu      sync.RWMutex
	buildMu sync.Mutex
	items   map[string]*CacheItem
	ttl     time.Duration
	metrics Metrics
}

// NewModelCache creates a new cache with the specified TTL. A non-positive
// TTL keeps entries until they are invalidated.
func NewModelCache(ttl time.Duration, metrics Metrics) *ModelCache {
	return &ModelCache{
		items:   make(map[string]*CacheItem),
		ttl:     ttl,
		metrics: metrics,
	}
}

// Get retrieves a model from the cache
func (c *ModelCache) Get(key string) (analysis.Model, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return analysis.Model{}, false
	}
	if c.ttl > 0 && item.IsExpired() {
		c.Delete(key)
		return analysis.Model{}, false
	}
	return item.Model, true
}

// Set stores a model in the cache
func (c *ModelCache) Set(key string, model analysis.Model) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &CacheItem{
		Model:     model,
		ExpiresAt: time.Now().Add(c.ttl),
	}
}

// GetOrBuild returns the cached model for key, building and caching it on
// a miss. Concurrent misses run build once.
func (c *ModelCache) GetOrBuild(key string, build BuildFunc) (analysis.Model, bool, error) {
	if model, ok := c.Get(key); ok {
		c.recordHit()
		return model, true, nil
	}

	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	// another caller may have built it while we waited
	if model, ok := c.Get(key); ok {
		c.recordHit()
		return model, true, nil
	}
	c.recordMiss()

	model, ok, err := build()
	if err != nil || !ok {
		return analysis.Model{}, false, err
	}

	c.Set(key, model)
	return model, true, nil
}

// Delete removes an item from the cache
func (c *ModelCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *ModelCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*CacheItem)
}

// Size returns the number of items in the cache
func (c *ModelCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Stats returns cache statistics
func (c *ModelCache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	totalItems := len(c.items)
	expiredItems := 0

	if c.ttl > 0 {
		for _, item := range c.items {
			if item.IsExpired() {
				expiredItems++
			}
		}
	}

	return map[string]interface{}{
		"total_items":   totalItems,
		"expired_items": expiredItems,
		"active_items":  totalItems - expiredItems,
		"ttl_seconds":   c.ttl.Seconds(),
	}
}

func (c *ModelCache) recordHit() {
	if c.metrics != nil {
		c.metrics.IncrementCacheHit()
	}
}

func (c *ModelCache) recordMiss() {
	if c.metrics != nil {
		c.metrics.IncrementCacheMiss()
	}
}
