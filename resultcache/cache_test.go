/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package resultcache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCache(t *testing.T, maxEntries int, ttl time.Duration) (*Cache[string, int], *fakeClock, *PrometheusMetrics) {
	t.Helper()
	metrics := NewPrometheusMetrics()
	cache, err := NewWithOpts[string, int](maxEntries, Options{TTL: ttl, MetricsCollector: metrics})
	require.NoError(t, err)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache.now = clock.Now
	return cache, clock, metrics
}

func TestNewWithOpts(t *testing.T) {
	_, err := New[string, int](0)
	require.EqualError(t, err, "maxEntries must be greater than 0")

	_, err = NewWithOpts[string, int](10, Options{TTL: -time.Second})
	require.EqualError(t, err, "TTL must not be negative")

	cache, err := New[string, int](10)
	require.NoError(t, err)
	require.Equal(t, DefaultTTL, cache.TTL())
}

func TestCache_PutGetRoundTrip(t *testing.T) {
	cache, clock, metrics := newTestCache(t, 10, time.Minute)

	_, found := cache.Get("match:42")
	require.False(t, found)

	cache.Put("match:42", 42)
	val, found := cache.Get("match:42")
	require.True(t, found)
	require.Equal(t, 42, val)

	// Reads without an intervening put are idempotent within TTL.
	clock.Advance(59 * time.Second)
	val2, found := cache.Get("match:42")
	require.True(t, found)
	require.Equal(t, val, val2)

	clock.Advance(time.Second)
	_, found = cache.Get("match:42")
	require.False(t, found, "entry must be absent once TTL has elapsed")
	require.Equal(t, 0, cache.Len(), "expired entry must be removed on read")

	require.Equal(t, 2, int(testutil.ToFloat64(metrics.HitsTotal)))
	require.Equal(t, 2, int(testutil.ToFloat64(metrics.MissesTotal)))
	require.Equal(t, 0, int(testutil.ToFloat64(metrics.EntriesAmount)))
}

func TestCache_PutRestartsTTL(t *testing.T) {
	cache, clock, _ := newTestCache(t, 10, time.Minute)

	cache.Put("summoner:1", 1)
	clock.Advance(40 * time.Second)
	cache.Put("summoner:1", 2)
	clock.Advance(40 * time.Second)

	val, found := cache.Get("summoner:1")
	require.True(t, found)
	require.Equal(t, 2, val)
	require.Equal(t, 1, cache.Len())
}

func TestCache_FIFOEviction(t *testing.T) {
	cache, _, metrics := newTestCache(t, 3, time.Minute)

	for i, key := range []string{"a", "b", "c"} {
		cache.Put(key, i)
	}
	// Reads don't change the eviction order.
	_, found := cache.Get("a")
	require.True(t, found)

	cache.Put("d", 3)
	require.Equal(t, 3, cache.Len())
	_, found = cache.Get("a")
	require.False(t, found, "the oldest inserted entry must be evicted")
	for _, key := range []string{"b", "c", "d"} {
		_, found = cache.Get(key)
		require.True(t, found, key)
	}
	require.Equal(t, 1, int(testutil.ToFloat64(metrics.EvictionsTotal)))
	require.Equal(t, 3, int(testutil.ToFloat64(metrics.EntriesAmount)))
}

func TestCache_RemoveAndPurge(t *testing.T) {
	cache, _, metrics := newTestCache(t, 10, time.Minute)

	cache.Put("a", 1)
	cache.Put("b", 2)
	require.True(t, cache.Remove("a"))
	require.False(t, cache.Remove("a"))
	require.Equal(t, 1, cache.Len())

	cache.Purge()
	require.Equal(t, 0, cache.Len())
	require.Equal(t, 0, int(testutil.ToFloat64(metrics.EntriesAmount)))
	require.Equal(t, 0, int(testutil.ToFloat64(metrics.EvictionsTotal)))
}

func TestCache_RemoveExpired(t *testing.T) {
	cache, clock, _ := newTestCache(t, 10, time.Minute)

	cache.Put("old-1", 1)
	cache.Put("old-2", 2)
	clock.Advance(30 * time.Second)
	cache.Put("fresh", 3)
	clock.Advance(31 * time.Second)

	cache.removeExpired()
	require.Equal(t, 1, cache.Len())
	val, found := cache.Get("fresh")
	require.True(t, found)
	require.Equal(t, 3, val)
}

func TestCache_RunPeriodicCleanup(t *testing.T) {
	cache, err := NewWithOpts[string, int](10, Options{TTL: 10 * time.Millisecond})
	require.NoError(t, err)
	cache.Put("a", 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		cache.RunPeriodicCleanup(ctx, 5*time.Millisecond)
	}()

	require.Eventually(t, func() bool { return cache.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
