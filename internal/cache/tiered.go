package cache

import (
	"errors"
	"sync"
)

// Store is a byte cache keyed by GenerateCacheKey.
type Store interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Stats() CacheStats
	Close() error
}

// DefaultMemoryCapacity bounds the in-memory layer of a TieredCache.
const DefaultMemoryCapacity = 32 * 1024 * 1024

// TieredCache checks an in-memory LRU before the disk cache and promotes
// disk hits into memory. Writes go to both levels.
type TieredCache struct {
	l1 *MemoryCache
	l2 *DiskCache

	mu     sync.Mutex
	l1Hits int64
	l2Hits int64
	misses int64
}

// NewTieredCache opens the disk cache described by cfg behind a memory
// cache of memCapacity bytes.
func NewTieredCache(cfg CacheConfig, memCapacity int64) (*TieredCache, error) {
	l2, err := NewDiskCache(cfg)
	if err != nil {
		return nil, err
	}
	if memCapacity <= 0 {
		memCapacity = DefaultMemoryCapacity
	}
	return &TieredCache{l1: NewMemoryCache(memCapacity), l2: l2}, nil
}

// Get looks in memory, then on disk.
func (t *TieredCache) Get(key string) ([]byte, bool) {
	if data, ok := t.l1.Get(key); ok {
		t.count(&t.l1Hits)
		return data, true
	}
	if data, ok := t.l2.Get(key); ok {
		t.count(&t.l2Hits)
		_ = t.l1.Put(key, data) // too large for memory is fine
		return data, true
	}
	t.count(&t.misses)
	return nil, false
}

// Put writes to both levels. Only a disk failure is reported.
func (t *TieredCache) Put(key string, value []byte) error {
	if err := t.l1.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return err
	}
	return t.l2.Put(key, value)
}

// Stats returns disk usage with hit counters across both levels.
func (t *TieredCache) Stats() CacheStats {
	stats := t.l2.Stats()

	t.mu.Lock()
	defer t.mu.Unlock()
	stats.Hits = t.l1Hits + t.l2Hits
	stats.Misses = t.misses
	stats.HitRate = 0
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// Levels returns hits served from memory and from disk.
func (t *TieredCache) Levels() (memory, disk int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.l1Hits, t.l2Hits
}

// Close persists the disk index.
func (t *TieredCache) Close() error {
	_ = t.l1.Close()
	return t.l2.Close()
}

func (t *TieredCache) count(n *int64) {
	t.mu.Lock()
	*n++
	t.mu.Unlock()
}

var (
	_ Store = (*MemoryCache)(nil)
	_ Store = (*DiskCache)(nil)
	_ Store = (*TieredCache)(nil)
)
