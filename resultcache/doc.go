/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package resultcache provides an in-memory cache of completed request results
// with a single time-to-live for all entries, bounded size with FIFO eviction, and Prometheus metrics.
//
// An entry read after its time-to-live has elapsed is treated as absent and removed.
// The cache stores only results of completed requests, it doesn't deduplicate requests that are still in flight.
package resultcache
