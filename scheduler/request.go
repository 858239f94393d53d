/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package scheduler

import (
	"context"
	"strconv"
	"time"
)

// Operation is an outbound call executed by the scheduler.
// ctx is cancelled when the request timeout expires.
type Operation func(ctx context.Context) (interface{}, error)

// Priority is a dispatch tier. Requests of a higher tier are always dispatched first.
type Priority int

// Priority tiers.
const (
	PriorityLow      Priority = 1
	PriorityNormal   Priority = 2
	PriorityHigh     Priority = 3
	PriorityCritical Priority = 4
)

const (
	minPriority   = PriorityLow
	maxPriority   = PriorityCritical
	numPriorities = int(maxPriority-minPriority) + 1
)

// Priorities lists all tiers from the highest to the lowest.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow}

// Valid reports whether p is one of the defined tiers.
func (p Priority) Valid() bool {
	return p >= minPriority && p <= maxPriority
}

// String returns the tier number as a string.
func (p Priority) String() string {
	return strconv.Itoa(int(p))
}

// SubmitOpts represents options for submitting a request.
type SubmitOpts struct {
	// Priority is the dispatch tier (1..4, 4 is the highest). Zero means PriorityLow.
	Priority Priority

	// CacheKey enables result caching. A request with a key that has a fresh cached result
	// completes immediately without being executed.
	CacheKey string

	// Timeout limits a single execution attempt. Zero means Config.DefaultTimeout.
	Timeout time.Duration
}

type queuedRequest struct {
	seq        uint64
	op         Operation
	priority   Priority
	cacheKey   string
	timeout    time.Duration
	enqueuedAt time.Time
	retries    int
	future     *Future
}
