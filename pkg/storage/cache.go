package storage

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter/v2"
)

// Cache is a bounded string-keyed in-memory cache. Entries past the size bound
// are evicted by otter; a ttl > 0 expires entries that were not accessed for that long.
type Cache[T any] struct {
	outer *otter.Cache[string, T]

	ttl      atomic.Int64
	capacity int

	onEvict func(key string, val T)
}

func NewCache[T any](capacity int, ttl time.Duration) *Cache[T] {
	c := &Cache[T]{capacity: capacity}

	opts := &otter.Options[string, T]{
		OnDeletion: func(e otter.DeletionEvent[string, T]) {
			if e.WasEvicted() && c.onEvict != nil {
				c.onEvict(e.Key, e.Value)
			}
		},
	}
	if capacity > 0 {
		opts.MaximumSize = capacity
	}
	if ttl > 0 {
		opts.ExpiryCalculator = otter.ExpiryAccessing[string, T](ttl)
	}

	c.outer = otter.Must(opts)
	c.ttl.Store(ttl.Nanoseconds())

	return c
}

// OnEvict registers a callback for size or ttl evictions. Explicit deletions do not fire it.
func (c *Cache[T]) OnEvict(fn func(key string, val T)) {
	c.onEvict = fn
}

func (c *Cache[T]) Set(key string, val T) {
	c.outer.Set(key, val)
}

func (c *Cache[T]) Get(key string) (T, bool) {
	return c.outer.GetIfPresent(key)
}

func (c *Cache[T]) ClearKey(key string) {
	c.outer.Invalidate(key)
}

// ClearPrefix drops every key starting with prefix.
func (c *Cache[T]) ClearPrefix(prefix string) {
	var keys []string
	for k := range c.outer.All() {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}

	for _, k := range keys {
		c.outer.Invalidate(k)
	}
}

func (c *Cache[T]) ClearAll() {
	c.outer.InvalidateAll()
}

// Range calls fn for each entry whose key starts with prefix until fn returns false.
func (c *Cache[T]) Range(prefix string, fn func(key string, val T) bool) {
	for k, v := range c.outer.All() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if !fn(k, v) {
			return
		}
	}
}

func (c *Cache[T]) Len() int {
	n := 0
	for range c.outer.All() {
		n++
	}
	return n
}

func (c *Cache[T]) TTL() time.Duration {
	return time.Duration(c.ttl.Load())
}
