/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package resultcache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultTTL is used when Options.TTL is not specified.
const DefaultTTL = 5 * time.Minute

type cacheEntry[K comparable, V any] struct {
	key       K
	value     V
	createdAt time.Time
}

// Cache maps keys to previously computed results.
// Entries expire after the cache TTL and the oldest inserted entry is evicted when the cache is full.
type Cache[K comparable, V any] struct {
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	mu        sync.Mutex
	fifoList  *list.List          // front is the most recently inserted entry
	entries   map[K]*list.Element // value is a fifoList element
	collector MetricsCollector
}

// Options represents options for the cache.
type Options struct {
	// TTL is the time-to-live for all cache entries.
	// Expired entries are removed when they are accessed or during periodic cleanup (see RunPeriodicCleanup).
	// By default, DefaultTTL is used.
	TTL time.Duration

	// MetricsCollector is used to collect statistics about cache usage.
	// It can be nil, in this case, metrics will be disabled.
	MetricsCollector MetricsCollector
}

// New creates a new Cache with the provided maximum number of entries and default options.
func New[K comparable, V any](maxEntries int) (*Cache[K, V], error) {
	return NewWithOpts[K, V](maxEntries, Options{})
}

// NewWithOpts creates a new Cache with the provided maximum number of entries and options.
func NewWithOpts[K comparable, V any](maxEntries int, opts Options) (*Cache[K, V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("maxEntries must be greater than 0")
	}
	if opts.TTL < 0 {
		return nil, fmt.Errorf("TTL must not be negative")
	}
	if opts.TTL == 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	return &Cache[K, V]{
		maxEntries: maxEntries,
		ttl:        opts.TTL,
		now:        time.Now,
		fifoList:   list.New(),
		entries:    make(map[K]*list.Element),
		collector:  opts.MetricsCollector,
	}, nil
}

// TTL returns the time-to-live of the cache entries.
func (c *Cache[K, V]) TTL() time.Duration {
	return c.ttl
}

// Get returns a value from the cache by the provided key.
// An expired entry is removed and reported as absent.
func (c *Cache[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, hit := c.entries[key]
	if !hit {
		c.collector.IncMisses()
		return value, false
	}
	entry := elem.Value.(*cacheEntry[K, V])
	if c.expired(entry, c.now()) {
		c.removeElement(elem)
		c.collector.SetAmount(len(c.entries))
		c.collector.IncMisses()
		return value, false
	}
	c.collector.IncHits()
	return entry.value, true
}

// Put adds a value to the cache with the provided key.
// Putting an existing key replaces its value and restarts its TTL.
// If the cache is full, the oldest inserted entry is evicted.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeElement(elem)
	}
	c.entries[key] = c.fifoList.PushFront(&cacheEntry[K, V]{key: key, value: value, createdAt: c.now()})
	if len(c.entries) > c.maxEntries {
		c.removeElement(c.fifoList.Back())
		c.collector.AddEvictions(1)
	}
	c.collector.SetAmount(len(c.entries))
}

// Remove removes a value from the cache by the provided key.
func (c *Cache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeElement(elem)
	c.collector.SetAmount(len(c.entries))
	return true
}

// Purge clears the cache.
// Removed entries are not counted as evictions.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*list.Element)
	c.fifoList.Init()
	c.collector.SetAmount(0)
}

// Len returns the number of entries in the cache, including expired ones that haven't been removed yet.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RunPeriodicCleanup runs a cycle of periodic cleanup of expired entries.
// It's supposed to be run in a separate goroutine.
func (c *Cache[K, V]) RunPeriodicCleanup(ctx context.Context, cleanupInterval time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache[K, V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	// Entries are ordered by creation time, so the scan stops at the first fresh one.
	for elem := c.fifoList.Back(); elem != nil; {
		entry := elem.Value.(*cacheEntry[K, V])
		if !c.expired(entry, now) {
			break
		}
		prev := elem.Prev()
		c.removeElement(elem)
		elem = prev
	}
	c.collector.SetAmount(len(c.entries))
}

func (c *Cache[K, V]) expired(entry *cacheEntry[K, V], now time.Time) bool {
	return now.Sub(entry.createdAt) >= c.ttl
}

func (c *Cache[K, V]) removeElement(elem *list.Element) {
	c.fifoList.Remove(elem)
	delete(c.entries, elem.Value.(*cacheEntry[K, V]).key)
}
