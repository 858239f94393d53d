/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/statwatch/apisched/internal/admission"
	"github.com/statwatch/apisched/internal/recovery"
	"github.com/statwatch/apisched/log"
	"github.com/statwatch/apisched/resultcache"
)

// Opts represents options for the Scheduler.
type Opts struct {
	// MetricsCollector receives scheduler metrics. Nil disables them.
	MetricsCollector MetricsCollector

	// CacheMetricsCollector receives result cache metrics. Nil disables them.
	CacheMetricsCollector resultcache.MetricsCollector
}

// Scheduler dispatches submitted operations one at a time in strict priority order,
// keeping the outbound rate within two sliding windows and backing off when the provider throttles.
type Scheduler struct {
	cfg       *Config
	logger    log.FieldLogger
	collector MetricsCollector

	admission *admission.Controller
	recovery  *recovery.Manager
	cache     *resultcache.Cache[string, interface{}]
	stats     *stats

	seq       atomic.Uint64
	running   atomic.Bool
	executing atomic.Bool
	wakeCh    chan struct{}

	// waitLogSampler limits debug logging of admission waits.
	waitLogSampler rate.Sometimes

	mu      sync.Mutex
	queues  *priorityQueues
	retries retryHeap
	stopped bool
}

// New creates a new Scheduler with the given configuration.
func New(cfg *Config, logger log.FieldLogger) (*Scheduler, error) {
	return NewWithOpts(cfg, logger, Opts{})
}

// NewWithOpts creates a new Scheduler with the given configuration and options.
func NewWithOpts(cfg *Config, logger log.FieldLogger, opts Opts) (*Scheduler, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheduler config: %w", err)
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	collector := opts.MetricsCollector
	if collector == nil {
		collector = disabledMetrics{}
	}

	admissionCtrl, err := admission.NewController(
		admission.Rate{Count: cfg.ShortWindow.Limit, Duration: cfg.ShortWindow.Duration},
		admission.Rate{Count: cfg.LongWindow.Limit, Duration: cfg.LongWindow.Duration},
	)
	if err != nil {
		return nil, fmt.Errorf("create admission controller: %w", err)
	}

	recoveryMgr, err := recovery.NewManager(recovery.Opts{
		Nominal:        recovery.Capacities{Short: cfg.ShortWindow.Limit, Long: cfg.LongWindow.Limit},
		Floor:          recovery.Capacities{Short: cfg.ShortWindow.Floor, Long: cfg.LongWindow.Floor},
		ShrinkStep:     recovery.Capacities{Short: cfg.ShortWindow.ShrinkStep, Long: cfg.LongWindow.ShrinkStep},
		GrowStep:       recovery.Capacities{Short: cfg.ShortWindow.GrowStep, Long: cfg.LongWindow.GrowStep},
		BaseDelay:      cfg.Retry.BaseDelay,
		MaxDelay:       cfg.Retry.MaxDelay,
		ErrorThreshold: cfg.Retry.ErrorThreshold,
		Adjuster: recovery.CapacityAdjusterFunc(func(short, long int) {
			admissionCtrl.SetEffectiveCapacities(admission.Capacities{Short: short, Long: long})
			collector.SetWindowCapacity(WindowShort, short)
			collector.SetWindowCapacity(WindowLong, long)
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("create recovery manager: %w", err)
	}

	cache, err := resultcache.NewWithOpts[string, interface{}](cfg.Cache.MaxEntries, resultcache.Options{
		TTL:              cfg.Cache.TTL,
		MetricsCollector: opts.CacheMetricsCollector,
	})
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}

	return &Scheduler{
		cfg:            cfg,
		logger:         logger,
		collector:      collector,
		admission:      admissionCtrl,
		recovery:       recoveryMgr,
		cache:          cache,
		stats:          newStats(),
		wakeCh:         make(chan struct{}, 1),
		waitLogSampler: rate.Sometimes{Interval: time.Second},
		queues:         newPriorityQueues(),
	}, nil
}

// Submit enqueues the operation with the lowest priority and the default timeout.
func (s *Scheduler) Submit(op Operation) *Future {
	return s.SubmitWithOpts(op, SubmitOpts{})
}

// SubmitWithOpts enqueues the operation and returns a Future for its result.
// It never blocks. If opts.CacheKey has a fresh cached result, the Future is completed immediately.
func (s *Scheduler) SubmitWithOpts(op Operation, opts SubmitOpts) *Future {
	future := newFuture()

	if op == nil {
		future.reject(ErrNilOperation)
		return future
	}
	if opts.Priority == 0 {
		opts.Priority = PriorityLow
	}
	if !opts.Priority.Valid() {
		future.reject(fmt.Errorf("%w: %d, should be in range [%d, %d]",
			ErrInvalidPriority, opts.Priority, minPriority, maxPriority))
		return future
	}
	if opts.Timeout <= 0 {
		opts.Timeout = s.cfg.DefaultTimeout
	}

	s.stats.incTotal()

	if opts.CacheKey != "" {
		if value, ok := s.cache.Get(opts.CacheKey); ok {
			s.stats.incCacheHits()
			s.collector.IncCacheHits()
			future.resolve(value)
			return future
		}
	}

	req := &queuedRequest{
		seq:        s.seq.Inc(),
		op:         op,
		priority:   opts.Priority,
		cacheKey:   opts.CacheKey,
		timeout:    opts.Timeout,
		enqueuedAt: time.Now(),
		future:     future,
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.dropRequests([]*queuedRequest{req}, ErrSchedulerStopped)
		return future
	}
	s.queues.enqueue(req)
	s.collector.SetQueueLength(req.priority, s.queues.len(req.priority))
	s.mu.Unlock()

	s.wake()
	return future
}

// Do submits op and waits for its typed result.
// Cancelling ctx stops waiting only, the request keeps its place in the queue.
func Do[T any](ctx context.Context, s *Scheduler, op func(ctx context.Context) (T, error), opts SubmitOpts) (T, error) {
	var zero T
	if op == nil {
		return zero, ErrNilOperation
	}
	future := s.SubmitWithOpts(func(ctx context.Context) (interface{}, error) {
		return op(ctx)
	}, opts)
	value, err := future.Wait(ctx)
	if err != nil {
		return zero, err
	}
	if value == nil {
		return zero, nil
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected result type %T, want %T", value, zero)
	}
	return typed, nil
}

// Status represents the current state of the scheduler.
type Status struct {
	Running                 bool             `json:"running"`
	Executing               bool             `json:"executing"`
	QueueLengths            map[Priority]int `json:"queueLengths"`
	QueuedTotal             int              `json:"queuedTotal"`
	PendingRetries          int              `json:"pendingRetries"`
	ShortWindowCount        int              `json:"shortWindowCount"`
	LongWindowCount         int              `json:"longWindowCount"`
	ShortWindowLimit        int              `json:"shortWindowLimit"`
	LongWindowLimit         int              `json:"longWindowLimit"`
	ShortWindowLimitNominal int              `json:"shortWindowLimitNominal"`
	LongWindowLimitNominal  int              `json:"longWindowLimitNominal"`
	ConsecutiveErrors       int              `json:"consecutiveErrors"`
	LastErrorAt             time.Time        `json:"lastErrorAt"`
	BackoffMultiplier       float64          `json:"backoffMultiplier"`
	CacheSize               int              `json:"cacheSize"`
}

// Status returns the current state of the scheduler.
func (s *Scheduler) Status() Status {
	now := time.Now()
	st := Status{
		Running:      s.running.Load(),
		Executing:    s.executing.Load(),
		QueueLengths: make(map[Priority]int, numPriorities),
		CacheSize:    s.cache.Len(),
	}

	s.mu.Lock()
	for _, p := range Priorities {
		st.QueueLengths[p] = s.queues.len(p)
	}
	st.QueuedTotal = s.queues.total()
	st.PendingRetries = s.retries.Len()
	s.mu.Unlock()

	counts := s.admission.Counts(now)
	st.ShortWindowCount, st.LongWindowCount = counts.Short, counts.Long
	capacities := s.admission.Capacities()
	st.ShortWindowLimit, st.LongWindowLimit = capacities.Short, capacities.Long
	nominal := s.admission.NominalCapacities()
	st.ShortWindowLimitNominal, st.LongWindowLimitNominal = nominal.Short, nominal.Long

	errState := s.recovery.State()
	st.ConsecutiveErrors = errState.ConsecutiveErrors
	st.LastErrorAt = errState.LastErrorAt
	st.BackoffMultiplier = errState.BackoffMultiplier
	return st
}

// Metrics returns a snapshot of the scheduler counters.
func (s *Scheduler) Metrics() MetricsSnapshot {
	return s.stats.snapshot()
}

// Reset drops all queued and delayed requests, clears admission history, error state and the result cache.
// Dropped requests are completed with ErrSchedulerReset. A request that is being executed is not affected.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	dropped := append(s.queues.drain(), s.retries.drain()...)
	s.updateQueueLengthsLocked()
	s.mu.Unlock()

	s.admission.Reset()
	s.recovery.Reset()
	s.cache.Purge()
	s.dropRequests(dropped, ErrSchedulerReset)

	s.logger.Info("request scheduler reset", log.Int("dropped_requests", len(dropped)))
	s.wake()
}

// Run runs the dispatch loop until ctx is done.
// After that, queued and delayed requests are completed with ErrSchedulerStopped
// and new submissions are rejected. Run can be called only once.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return ErrSchedulerStopped
	}

	s.logger.Info("request scheduler started",
		log.Int("short_window_limit", s.cfg.ShortWindow.Limit),
		log.Duration("short_window_duration", s.cfg.ShortWindow.Duration),
		log.Int("long_window_limit", s.cfg.LongWindow.Limit),
		log.Duration("long_window_duration", s.cfg.LongWindow.Duration),
	)
	defer s.stop()

	cleanupCtx, cancelCleanup := context.WithCancel(ctx)
	cleanupDone := make(chan struct{})
	go func() {
		defer close(cleanupDone)
		s.cache.RunPeriodicCleanup(cleanupCtx, s.cfg.Cache.CleanupInterval)
	}()
	defer func() {
		cancelCleanup()
		<-cleanupDone
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		req, wakeAt := s.next(time.Now())
		if req != nil {
			s.execute(ctx, req)
			continue
		}
		if !s.waitUntil(ctx, wakeAt) {
			return nil
		}
	}
}

// next promotes due retries and returns an admitted request if there is one.
// Otherwise, it returns the time when the loop should check again (zero time means "on wake up").
func (s *Scheduler) next(now time.Time) (*queuedRequest, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if due := s.retries.popDue(now); len(due) != 0 {
		// The earliest due retry ends up at the head of its tier.
		for i := len(due) - 1; i >= 0; i-- {
			s.queues.pushFront(due[i])
		}
		s.updateQueueLengthsLocked()
	}

	if s.queues.total() == 0 {
		return nil, s.retries.nextDue()
	}

	if !s.admission.TryAdmit(now) {
		availableAt := s.admission.NextAvailableAt(now)
		s.waitLogSampler.Do(func() {
			s.logger.Debug("waiting for admission capacity",
				log.Duration("wait", availableAt.Sub(now)),
				log.Int("queued_requests", s.queues.total()),
			)
		})
		return nil, availableAt
	}

	req := s.queues.dequeueNext()
	s.collector.SetQueueLength(req.priority, s.queues.len(req.priority))
	return req, time.Time{}
}

func (s *Scheduler) waitUntil(ctx context.Context, wakeAt time.Time) bool {
	var timerCh <-chan time.Time
	if !wakeAt.IsZero() {
		timer := time.NewTimer(time.Until(wakeAt))
		defer timer.Stop()
		timerCh = timer.C
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.wakeCh:
		return true
	case <-timerCh:
		return true
	}
}

func (s *Scheduler) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) scheduleRetry(req *queuedRequest, due time.Time) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.dropRequests([]*queuedRequest{req}, ErrSchedulerStopped)
		return
	}
	s.retries.schedule(req, due)
	s.mu.Unlock()
}

func (s *Scheduler) stop() {
	s.mu.Lock()
	s.stopped = true
	dropped := append(s.queues.drain(), s.retries.drain()...)
	s.updateQueueLengthsLocked()
	s.mu.Unlock()

	s.dropRequests(dropped, ErrSchedulerStopped)
	s.logger.Info("request scheduler stopped", log.Int("dropped_requests", len(dropped)))
}

func (s *Scheduler) dropRequests(reqs []*queuedRequest, err error) {
	if len(reqs) == 0 {
		return
	}
	s.stats.addFailed(len(reqs))
	s.collector.IncRequests(OutcomeDropped, len(reqs))
	for _, req := range reqs {
		req.future.reject(err)
	}
}

func (s *Scheduler) updateQueueLengthsLocked() {
	for _, p := range Priorities {
		s.collector.SetQueueLength(p, s.queues.len(p))
	}
}
