// Package cache provides the caches used while compiling a scene: an
// in-memory interning map that hands out one shared value per key, and a
// content-addressed on-disk file store.
package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// shardCount is the number of shards for reduced lock contention.
// Must be a power of 2 for fast modulo via bitwise AND.
const (
	shardCount = 16
	shardMask  = shardCount - 1
)

// Hasher is a function that computes a hash for a key.
// Used by Interner for shard selection.
type Hasher[K any] func(K) uint64

// StringHasher computes FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// Uint32Hasher mixes a 32-bit key so that keys differing only in their
// high bytes (e.g. packed RGBA constants differing in alpha) still spread
// over all shards.
func Uint32Hasher(u uint32) uint64 {
	x := uint64(u)
	x ^= x >> 16
	x *= 0x45d9f3b
	x ^= x >> 16
	return x
}

// Interner is a thread-safe, sharded insert-if-absent map.
//
// Unlike an LRU cache it never evicts: once a value is stored for a key,
// every later GetOrCreate for that key returns that same value. This is
// what makes identity (not just equality) sharing possible across
// goroutines racing to create the same entry.
type Interner[K comparable, V any] struct {
	shards [shardCount]*internShard[K, V]
	hasher Hasher[K]

	hits   atomic.Uint64
	misses atomic.Uint64
}

type internShard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// NewInterner creates an empty Interner using hasher for shard selection.
func NewInterner[K comparable, V any](hasher Hasher[K]) *Interner[K, V] {
	c := &Interner[K, V]{hasher: hasher}
	for i := range c.shards {
		c.shards[i] = &internShard[K, V]{entries: make(map[K]V)}
	}
	return c
}

func (c *Interner[K, V]) getShard(key K) *internShard[K, V] {
	return c.shards[c.hasher(key)&shardMask]
}

// Get retrieves the value stored for key.
func (c *Interner[K, V]) Get(key K) (V, bool) {
	shard := c.getShard(key)
	shard.mu.RLock()
	v, ok := shard.entries[key]
	shard.mu.RUnlock()
	return v, ok
}

// GetOrCreate returns the value stored for key, creating it with create
// if absent. create runs at most once per key, with the shard lock held,
// so it must be fast and must not call back into the Interner.
func (c *Interner[K, V]) GetOrCreate(key K, create func() V) V {
	shard := c.getShard(key)

	shard.mu.RLock()
	v, ok := shard.entries[key]
	shard.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return v
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()

	// Re-check after acquiring write lock
	if v, ok := shard.entries[key]; ok {
		c.hits.Add(1)
		return v
	}
	c.misses.Add(1)
	v = create()
	shard.entries[key] = v
	return v
}

// Len returns the total number of entries across all shards.
func (c *Interner[K, V]) Len() int {
	total := 0
	for _, shard := range c.shards {
		shard.mu.RLock()
		total += len(shard.entries)
		shard.mu.RUnlock()
	}
	return total
}

// Stats returns the number of GetOrCreate calls that found an existing
// entry (hits) and that created one (misses).
func (c *Interner[K, V]) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
