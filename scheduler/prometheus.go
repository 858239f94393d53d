/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes used as the "outcome" label value.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeTimeout   = "timeout"
	OutcomeThrottled = "throttled"
	OutcomeDropped   = "dropped"
)

// Admission window names used as the "window" label value.
const (
	WindowShort = "short"
	WindowLong  = "long"
)

// MetricsCollector represents a collector of scheduler metrics.
type MetricsCollector interface {
	// IncRequests increments the number of requests completed with the given outcome.
	IncRequests(outcome string, n int)

	// IncThrottled increments the number of throttled execution attempts.
	IncThrottled()

	// IncCacheHits increments the number of submissions served from the cache.
	IncCacheHits()

	// SetQueueLength sets the number of requests waiting in the tier.
	SetQueueLength(priority Priority, n int)

	// SetWindowCapacity sets the effective capacity of the admission window.
	SetWindowCapacity(window string, capacity int)

	// ObserveExecution observes the duration of an execution attempt.
	ObserveExecution(outcome string, d time.Duration)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// DurationBuckets is a list of buckets for the execution duration histogram.
	DurationBuckets []float64
}

// PrometheusMetrics represents Prometheus metrics for the scheduler.
type PrometheusMetrics struct {
	RequestsTotal      *prometheus.CounterVec
	ThrottledTotal     prometheus.Counter
	CacheHitsTotal     prometheus.Counter
	QueueLength        *prometheus.GaugeVec
	WindowCapacity     *prometheus.GaugeVec
	ExecutionDurations *prometheus.HistogramVec
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// DefaultDurationBuckets is the default list of buckets for the execution duration histogram.
var DefaultDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.DurationBuckets
	if buckets == nil {
		buckets = DefaultDurationBuckets
	}
	return &PrometheusMetrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "scheduler_requests_total",
			Help:        "Number of completed requests by outcome.",
			ConstLabels: opts.ConstLabels,
		}, []string{"outcome"}),
		ThrottledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "scheduler_throttled_total",
			Help:        "Number of execution attempts throttled by the provider.",
			ConstLabels: opts.ConstLabels,
		}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "scheduler_cache_hits_total",
			Help:        "Number of submissions served from the result cache.",
			ConstLabels: opts.ConstLabels,
		}),
		QueueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "scheduler_queue_length",
			Help:        "Number of requests waiting for dispatch by priority.",
			ConstLabels: opts.ConstLabels,
		}, []string{"priority"}),
		WindowCapacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "scheduler_window_capacity",
			Help:        "Effective capacity of the admission window.",
			ConstLabels: opts.ConstLabels,
		}, []string{"window"}),
		ExecutionDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "scheduler_execution_duration_seconds",
			Help:        "A histogram of the request execution durations.",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		}, []string{"outcome"}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.RequestsTotal,
		pm.ThrottledTotal,
		pm.CacheHitsTotal,
		pm.QueueLength,
		pm.WindowCapacity,
		pm.ExecutionDurations,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.RequestsTotal)
	prometheus.Unregister(pm.ThrottledTotal)
	prometheus.Unregister(pm.CacheHitsTotal)
	prometheus.Unregister(pm.QueueLength)
	prometheus.Unregister(pm.WindowCapacity)
	prometheus.Unregister(pm.ExecutionDurations)
}

// IncRequests increments the number of requests completed with the given outcome.
func (pm *PrometheusMetrics) IncRequests(outcome string, n int) {
	pm.RequestsTotal.WithLabelValues(outcome).Add(float64(n))
}

// IncThrottled increments the number of throttled execution attempts.
func (pm *PrometheusMetrics) IncThrottled() {
	pm.ThrottledTotal.Inc()
}

// IncCacheHits increments the number of submissions served from the cache.
func (pm *PrometheusMetrics) IncCacheHits() {
	pm.CacheHitsTotal.Inc()
}

// SetQueueLength sets the number of requests waiting in the tier.
func (pm *PrometheusMetrics) SetQueueLength(priority Priority, n int) {
	pm.QueueLength.WithLabelValues(priority.String()).Set(float64(n))
}

// SetWindowCapacity sets the effective capacity of the admission window.
func (pm *PrometheusMetrics) SetWindowCapacity(window string, capacity int) {
	pm.WindowCapacity.WithLabelValues(window).Set(float64(capacity))
}

// ObserveExecution observes the duration of an execution attempt.
func (pm *PrometheusMetrics) ObserveExecution(outcome string, d time.Duration) {
	pm.ExecutionDurations.WithLabelValues(outcome).Observe(d.Seconds())
}

type disabledMetrics struct{}

func (disabledMetrics) IncRequests(string, int)                {}
func (disabledMetrics) IncThrottled()                          {}
func (disabledMetrics) IncCacheHits()                          {}
func (disabledMetrics) SetQueueLength(Priority, int)           {}
func (disabledMetrics) SetWindowCapacity(string, int)          {}
func (disabledMetrics) ObserveExecution(string, time.Duration) {}
