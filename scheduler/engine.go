/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/statwatch/apisched/log"
)

type opResult struct {
	value interface{}
	err   error
}

// execute runs an admitted request and settles it.
// Retries of throttled requests are scheduled, all other outcomes complete the request's Future.
func (s *Scheduler) execute(ctx context.Context, req *queuedRequest) {
	s.executing.Store(true)
	defer s.executing.Store(false)

	startTime := time.Now()
	value, err := runOperation(context.WithoutCancel(ctx), req.op, req.timeout)
	elapsed := time.Since(startTime)
	s.stats.observeExecution(elapsed)

	if err == nil {
		s.collector.ObserveExecution(OutcomeSuccess, elapsed)
		s.handleSuccess(req, value)
		return
	}

	var throttlingErr *ThrottlingError
	if errors.As(err, &throttlingErr) {
		s.collector.ObserveExecution(OutcomeThrottled, elapsed)
		s.handleThrottling(req, err, throttlingErr)
		return
	}

	outcome := OutcomeError
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		outcome = OutcomeTimeout
	}
	s.collector.ObserveExecution(outcome, elapsed)
	s.handleFailure(req, err, outcome)
}

// runOperation runs op racing against the timeout. Panics are converted to *PanicError.
func runOperation(ctx context.Context, op Operation, timeout time.Duration) (interface{}, error) {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultCh := make(chan opResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- opResult{err: &PanicError{Value: r}}
			}
		}()
		value, err := op(opCtx)
		resultCh <- opResult{value: value, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Timeout: timeout}
		}
		return res.value, res.err
	case <-opCtx.Done():
		return nil, &TimeoutError{Timeout: timeout}
	}
}

func (s *Scheduler) handleSuccess(req *queuedRequest, value interface{}) {
	if req.cacheKey != "" {
		s.cache.Put(req.cacheKey, value)
	}
	s.stats.incSucceeded()
	s.collector.IncRequests(OutcomeSuccess, 1)
	s.restoreCapacities()
	req.future.resolve(value)
}

func (s *Scheduler) handleFailure(req *queuedRequest, err error, outcome string) {
	s.stats.addFailed(1)
	s.collector.IncRequests(outcome, 1)
	// Only throttling counts against the adaptive limits.
	s.restoreCapacities()
	s.logger.Warn("request failed",
		log.Uint64("request_seq", req.seq),
		log.Int("priority", int(req.priority)),
		log.String("outcome", outcome),
		log.Error(err),
	)
	req.future.reject(err)
}

func (s *Scheduler) handleThrottling(req *queuedRequest, err error, throttlingErr *ThrottlingError) {
	s.stats.incThrottled()
	s.collector.IncThrottled()

	decision := s.recovery.OnThrottle(throttlingErr.RetryAfter)
	if decision.Shrunk {
		s.logger.Info("admission capacities reduced",
			log.Int("consecutive_errors", decision.ConsecutiveErrors),
			log.Int("short_window_limit", decision.Capacities.Short),
			log.Int("long_window_limit", decision.Capacities.Long),
		)
	}

	if req.retries < s.cfg.Retry.MaxAttempts {
		req.retries++
		s.logger.Warn("request throttled, retry scheduled",
			log.Uint64("request_seq", req.seq),
			log.Int("priority", int(req.priority)),
			log.Int("attempt", req.retries),
			log.Duration("delay", decision.Delay),
			log.Duration("retry_after", throttlingErr.RetryAfter),
		)
		s.scheduleRetry(req, time.Now().Add(decision.Delay))
		return
	}

	s.stats.addFailed(1)
	s.collector.IncRequests(OutcomeThrottled, 1)
	s.logger.Error("request throttled, retries exhausted",
		log.Uint64("request_seq", req.seq),
		log.Int("priority", int(req.priority)),
		log.Int("retries", req.retries),
		log.Error(err),
	)
	req.future.reject(err)
}

func (s *Scheduler) restoreCapacities() {
	if !s.recovery.OnSuccess() {
		return
	}
	capacities := s.recovery.State().Capacities
	s.logger.Debug("admission capacities restored",
		log.Int("short_window_limit", capacities.Short),
		log.Int("long_window_limit", capacities.Long),
	)
}
