/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/statwatch/apisched/log/logtest"
)

type mockUnit struct {
	startErr     error
	stopErr      error
	started      atomic.Bool
	stopped      atomic.Bool
	gracefully   atomic.Bool
	registered   atomic.Int32
	unregistered atomic.Int32
	stopCh       chan struct{}
}

func newMockUnit() *mockUnit {
	return &mockUnit{stopCh: make(chan struct{})}
}

func (u *mockUnit) Start(fatalErr chan<- error) {
	u.started.Store(true)
	if u.startErr != nil {
		fatalErr <- u.startErr
		return
	}
	<-u.stopCh
}

func (u *mockUnit) Stop(gracefully bool) error {
	if u.stopped.CompareAndSwap(false, true) {
		u.gracefully.Store(gracefully)
		close(u.stopCh)
	}
	return u.stopErr
}

func (u *mockUnit) MustRegisterMetrics() { u.registered.Inc() }

func (u *mockUnit) UnregisterMetrics() { u.unregistered.Inc() }

func TestService_StopOnContextCancel(t *testing.T) {
	unit := newMockUnit()
	logRecorder := logtest.NewRecorder()
	svc := NewWithOpts(logRecorder, unit, Opts{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.StartContext(ctx) }()

	require.Eventually(t, unit.started.Load, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("service was not stopped")
	}
	require.True(t, unit.stopped.Load())
	require.True(t, unit.gracefully.Load())
	require.Equal(t, int32(1), unit.registered.Load())
	require.Equal(t, int32(1), unit.unregistered.Load())
	_, found := logRecorder.FindEntry("context is canceled, service will be stopped")
	require.True(t, found)
}

func TestService_StopOnSignal(t *testing.T) {
	unit := newMockUnit()
	logRecorder := logtest.NewRecorder()
	svc := NewWithOpts(logRecorder, unit, Opts{})

	done := make(chan error, 1)
	go func() { done <- svc.Start() }()

	require.Eventually(t, unit.started.Load, time.Second, 10*time.Millisecond)
	svc.Signals <- syscall.SIGTERM

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("service was not stopped")
	}
	entry, found := logRecorder.FindEntry("service got signal")
	require.True(t, found)
	sigField, found := entry.FindField("signal")
	require.True(t, found)
	require.Equal(t, syscall.SIGTERM.String(), string(sigField.Bytes))
}

func TestService_FatalError(t *testing.T) {
	unit := newMockUnit()
	unit.startErr = errors.New("listen tcp :8080: address already in use")
	svc := NewWithOpts(logtest.NewRecorder(), unit, Opts{})

	err := svc.StartContext(context.Background())
	require.ErrorIs(t, err, unit.startErr)
	require.False(t, unit.stopped.Load())
}

func TestService_StopError(t *testing.T) {
	unit := newMockUnit()
	unit.stopErr = errors.New("close failed")
	svc := NewWithOpts(logtest.NewRecorder(), unit, Opts{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.StartContext(ctx)
	require.ErrorIs(t, err, unit.stopErr)
}
