/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidPriority is returned when a request is submitted with a priority outside [1, 4].
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrNilOperation is returned when a nil operation is submitted.
	ErrNilOperation = errors.New("nil operation")

	// ErrSchedulerStopped is returned for requests that were queued or submitted after the dispatch loop stopped.
	ErrSchedulerStopped = errors.New("scheduler is stopped")

	// ErrSchedulerReset is returned for requests that were dropped by Scheduler.Reset.
	ErrSchedulerReset = errors.New("request dropped by scheduler reset")

	// ErrAlreadyRunning is returned by Scheduler.Run when the dispatch loop is already running.
	ErrAlreadyRunning = errors.New("scheduler is already running")
)

// ThrottlingError signals that the provider rejected the request because of rate limiting.
// Operations return it (or an error wrapping it) to make the scheduler back off and retry.
type ThrottlingError struct {
	// RetryAfter is the provider-suggested delay before the next attempt. Zero if absent.
	RetryAfter time.Duration
	Err        error
}

// Error returns a string representation of the throttling error.
func (e *ThrottlingError) Error() string {
	msg := "request throttled by provider"
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ThrottlingError) Unwrap() error {
	return e.Err
}

// IsThrottling reports whether any error in err's chain is a *ThrottlingError.
func IsThrottling(err error) bool {
	var throttlingErr *ThrottlingError
	return errors.As(err, &throttlingErr)
}

// TimeoutError is returned when an operation does not complete within its timeout.
type TimeoutError struct {
	Timeout time.Duration
}

// Error returns a string representation of the timeout error.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %s", e.Timeout)
}

// Unwrap allows errors.Is(err, context.DeadlineExceeded) checks.
func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// PanicError is returned when an operation panics.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("operation panicked: %v", e.Value)
}
