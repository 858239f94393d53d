/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package scheduler

import (
	"sync"
	"time"
)

// MetricsSnapshot is a point-in-time copy of the scheduler counters.
type MetricsSnapshot struct {
	// TotalRequests is the number of accepted submissions, including cache hits.
	TotalRequests uint64 `json:"totalRequests"`
	// SuccessfulRequests is the number of executed requests that completed with a value.
	SuccessfulRequests uint64 `json:"successfulRequests"`
	// FailedRequests is the number of requests that completed with an error.
	FailedRequests uint64 `json:"failedRequests"`
	// ThrottledRequests is the number of execution attempts rejected by the provider because of rate limiting.
	ThrottledRequests uint64 `json:"throttledRequests"`
	// CacheHits is the number of submissions completed from the result cache.
	CacheHits uint64 `json:"cacheHits"`
	// AverageResponseTime is the mean duration of execution attempts.
	AverageResponseTime time.Duration `json:"averageResponseTime"`
	StartTime           time.Time     `json:"startTime"`
	CapturedAt          time.Time     `json:"capturedAt"`
}

// SuccessRate returns the share of successful requests among completed executions, in [0, 1].
func (m MetricsSnapshot) SuccessRate() float64 {
	completed := m.SuccessfulRequests + m.FailedRequests
	if completed == 0 {
		return 0
	}
	return float64(m.SuccessfulRequests) / float64(completed)
}

// CacheHitRate returns the share of submissions served from the cache, in [0, 1].
func (m MetricsSnapshot) CacheHitRate() float64 {
	if m.TotalRequests == 0 {
		return 0
	}
	return float64(m.CacheHits) / float64(m.TotalRequests)
}

// Uptime returns the time elapsed since the scheduler was created.
func (m MetricsSnapshot) Uptime() time.Duration {
	return m.CapturedAt.Sub(m.StartTime)
}

// ThroughputPerMinute returns the number of completed requests per minute of uptime.
func (m MetricsSnapshot) ThroughputPerMinute() float64 {
	minutes := m.Uptime().Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(m.SuccessfulRequests+m.FailedRequests) / minutes
}

// stats accumulates in-process counters.
type stats struct {
	mu            sync.Mutex
	startTime     time.Time
	total         uint64
	succeeded     uint64
	failed        uint64
	throttled     uint64
	cacheHits     uint64
	executions    uint64
	execTimeTotal time.Duration
}

func newStats() *stats {
	return &stats{startTime: time.Now()}
}

func (s *stats) incTotal() {
	s.mu.Lock()
	s.total++
	s.mu.Unlock()
}

func (s *stats) incSucceeded() {
	s.mu.Lock()
	s.succeeded++
	s.mu.Unlock()
}

func (s *stats) addFailed(n int) {
	s.mu.Lock()
	s.failed += uint64(n)
	s.mu.Unlock()
}

func (s *stats) incThrottled() {
	s.mu.Lock()
	s.throttled++
	s.mu.Unlock()
}

func (s *stats) incCacheHits() {
	s.mu.Lock()
	s.cacheHits++
	s.mu.Unlock()
}

func (s *stats) observeExecution(d time.Duration) {
	s.mu.Lock()
	s.executions++
	s.execTimeTotal += d
	s.mu.Unlock()
}

func (s *stats) snapshot() MetricsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var avg time.Duration
	if s.executions > 0 {
		avg = s.execTimeTotal / time.Duration(s.executions)
	}
	return MetricsSnapshot{
		TotalRequests:       s.total,
		SuccessfulRequests:  s.succeeded,
		FailedRequests:      s.failed,
		ThrottledRequests:   s.throttled,
		CacheHits:           s.cacheHits,
		AverageResponseTime: avg,
		StartTime:           s.startTime,
		CapturedAt:          time.Now(),
	}
}
