// Package memory implements in-process caches: a byte-bounded LRU for
// decoded entries and a block cache for slow containers.
package memory

import (
	"errors"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/opencontainers/go-digest"
)

// DefaultMaxEntries is the default entry count limit of a Cache.
const DefaultMaxEntries = 1024

// Cache implements cache.SizedCache in memory, evicting the least
// recently used entries first. It is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex // serializes accounting across add and evict
	entries  *lru.Cache[digest.Digest, []byte]
	maxBytes int64
	bytes    atomic.Int64
}

// Option configures a memory cache.
type Option func(*Cache)

// WithMaxBytes bounds the total size of cached content.
// Use 0 to bound only the entry count.
func WithMaxBytes(n int64) Option {
	return func(c *Cache) {
		c.maxBytes = n
	}
}

// New creates a cache holding at most maxEntries entries.
func New(maxEntries int, opts ...Option) (*Cache, error) {
	if maxEntries <= 0 {
		return nil, errors.New("max entries must be > 0")
	}
	c := &Cache{}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxBytes < 0 {
		return nil, errors.New("max bytes must be >= 0")
	}
	entries, err := lru.NewWithEvict(maxEntries, func(_ digest.Digest, content []byte) {
		c.bytes.Add(-int64(len(content)))
	})
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

// Get returns the content stored under key and marks it recently used.
// The returned slice is shared and must not be modified.
func (c *Cache) Get(key digest.Digest) ([]byte, bool) {
	return c.entries.Get(key)
}

// Put stores content under key. Content larger than the byte limit is
// skipped.
func (c *Cache) Put(key digest.Digest, content []byte) error {
	size := int64(len(content))
	if c.maxBytes > 0 && size > c.maxBytes {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries.Contains(key) {
		return nil
	}
	c.entries.Add(key, content)
	c.bytes.Add(size)
	if c.maxBytes > 0 {
		c.pruneLocked(c.maxBytes)
	}
	return nil
}

// Delete removes cached content for key.
func (c *Cache) Delete(key digest.Digest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(key)
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// MaxBytes returns the configured byte limit (0 = unlimited).
func (c *Cache) MaxBytes() int64 {
	return c.maxBytes
}

// SizeBytes returns the current size of cached content.
func (c *Cache) SizeBytes() int64 {
	return c.bytes.Load()
}

// Prune evicts least recently used entries until the cache is at or
// below targetBytes.
func (c *Cache) Prune(targetBytes int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pruneLocked(max(targetBytes, 0)), nil
}

func (c *Cache) pruneLocked(targetBytes int64) int64 {
	before := c.bytes.Load()
	for c.bytes.Load() > targetBytes {
		if _, _, ok := c.entries.RemoveOldest(); !ok {
			break
		}
	}
	return before - c.bytes.Load()
}
