/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package scheduler

import (
	"context"
	"sync"
)

// Future is a handle to the eventual result of a submitted request.
// It is completed exactly once, either with a value or with an error.
type Future struct {
	once  sync.Once
	done  chan struct{}
	value interface{}
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Done returns a channel that is closed when the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the value and the error of the completed request.
// It must be called only after Done is closed, otherwise it returns zero values.
func (f *Future) Result() (interface{}, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
		return nil, nil
	}
}

// Wait blocks until the result is available or ctx is done.
// Cancelling ctx stops waiting only, the request itself is not cancelled.
func (f *Future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Future) resolve(value interface{}) bool {
	return f.complete(value, nil)
}

func (f *Future) reject(err error) bool {
	return f.complete(nil, err)
}

func (f *Future) complete(value interface{}, err error) bool {
	completed := false
	f.once.Do(func() {
		f.value, f.err = value, err
		close(f.done)
		completed = true
	})
	return completed
}
