/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package recovery implements adaptive backoff for provider-side throttling.
//
// Manager keeps process-wide error state: the number of consecutive throttling failures,
// a backoff multiplier and the effective capacities of the admission windows.
// Capacities ratchet down after a threshold of consecutive throttling failures
// and ratchet back up one step per success, never exceeding the nominal values.
package recovery

import (
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default parameter values for Manager.
const (
	DefaultBaseDelay        = time.Second
	DefaultMaxDelay         = 30 * time.Second
	DefaultErrorThreshold   = 2
	DefaultMultiplierGrowth = 1.5
	DefaultMaxMultiplier    = 4.0
)

// Capacities represents capacities of the short and long admission windows.
type Capacities struct {
	Short int
	Long  int
}

// CapacityAdjuster is an object that applies effective window capacities (usually an admission controller).
type CapacityAdjuster interface {
	SetEffectiveCapacities(short, long int)
}

// CapacityAdjusterFunc is an adapter to allow the use of ordinary functions as CapacityAdjuster.
type CapacityAdjusterFunc func(short, long int)

// SetEffectiveCapacities implements CapacityAdjuster.
func (f CapacityAdjusterFunc) SetEffectiveCapacities(short, long int) {
	f(short, long)
}

// Opts represents options for Manager.
type Opts struct {
	// Nominal capacities are the upper bound for effective capacities.
	Nominal Capacities
	// Floor capacities are the lower bound for effective capacities.
	Floor Capacities
	// ShrinkStep is subtracted from effective capacities on every throttling failure above ErrorThreshold.
	ShrinkStep Capacities
	// GrowStep is added to effective capacities on every success.
	GrowStep Capacities

	// BaseDelay is the base of the exponential delay (BaseDelay * 2^consecutiveErrors).
	// By default, DefaultBaseDelay is used.
	BaseDelay time.Duration
	// MaxDelay is the ceiling for the computed delay. By default, DefaultMaxDelay is used.
	MaxDelay time.Duration
	// ErrorThreshold is the number of consecutive throttling failures tolerated before capacities are shrunk.
	// Zero shrinks capacities on the first throttling failure. A negative value selects DefaultErrorThreshold.
	ErrorThreshold int

	// MultiplierGrowth is applied to the backoff multiplier on every throttling failure above ErrorThreshold.
	// By default, DefaultMultiplierGrowth is used.
	MultiplierGrowth float64
	// MaxMultiplier caps the backoff multiplier. By default, DefaultMaxMultiplier is used.
	MaxMultiplier float64

	// Adjuster receives new effective capacities every time they change.
	Adjuster CapacityAdjuster
}

// ErrorState is a point-in-time copy of the Manager state.
type ErrorState struct {
	ConsecutiveErrors int
	LastErrorAt       time.Time
	BackoffMultiplier float64
	Capacities        Capacities
}

// Decision is the outcome of handling one throttling failure.
type Decision struct {
	// Delay is the time to wait before the throttled request may be attempted again.
	Delay time.Duration
	// ConsecutiveErrors is the updated number of consecutive throttling failures.
	ConsecutiveErrors int
	// Shrunk is true if effective capacities were reduced.
	Shrunk bool
	// Capacities are effective capacities after the failure was handled.
	Capacities Capacities
}

// Manager computes retry delays for throttled requests and adapts admission capacities.
// Manager is safe for concurrent use.
type Manager struct {
	opts Opts

	mu          sync.Mutex
	expBackoff  *backoff.ExponentialBackOff
	consecutive int
	lastErrorAt time.Time
	multiplier  float64
	capacities  Capacities
}

// NewManager creates a new Manager.
func NewManager(opts Opts) (*Manager, error) {
	if opts.Nominal.Short <= 0 || opts.Nominal.Long <= 0 {
		return nil, fmt.Errorf("nominal capacities must be positive, got %+v", opts.Nominal)
	}
	if opts.Floor.Short <= 0 || opts.Floor.Long <= 0 {
		return nil, fmt.Errorf("floor capacities must be positive, got %+v", opts.Floor)
	}
	if opts.Floor.Short > opts.Nominal.Short || opts.Floor.Long > opts.Nominal.Long {
		return nil, fmt.Errorf("floor capacities %+v must not exceed nominal capacities %+v", opts.Floor, opts.Nominal)
	}
	if opts.ShrinkStep.Short < 0 || opts.ShrinkStep.Long < 0 || opts.GrowStep.Short < 0 || opts.GrowStep.Long < 0 {
		return nil, fmt.Errorf("capacity steps must not be negative")
	}
	if opts.BaseDelay < 0 || opts.MaxDelay < 0 {
		return nil, fmt.Errorf("delays must not be negative")
	}
	if opts.BaseDelay == 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxDelay == 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.ErrorThreshold < 0 {
		opts.ErrorThreshold = DefaultErrorThreshold
	}
	if opts.MultiplierGrowth < 1 {
		opts.MultiplierGrowth = DefaultMultiplierGrowth
	}
	if opts.MaxMultiplier < 1 {
		opts.MaxMultiplier = DefaultMaxMultiplier
	}
	m := &Manager{opts: opts}
	m.expBackoff = newExponentialBackOff(opts.BaseDelay, opts.MaxDelay)
	m.resetLocked()
	return m, nil
}

// newExponentialBackOff returns a backoff producing BaseDelay*2^n on the n-th consecutive call.
func newExponentialBackOff(baseDelay, maxDelay time.Duration) *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 2 * baseDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = maxDelay
	eb.MaxElapsedTime = 0 // Never stop, retry ceiling is enforced by the caller.
	eb.Reset()
	return eb
}

// OnThrottle registers a throttling failure and returns the delay before the next attempt.
// suggestedDelay is the provider-suggested delay (0 if absent), it takes precedence when it's longer.
func (m *Manager) OnThrottle(suggestedDelay time.Duration) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.consecutive++
	m.lastErrorAt = time.Now()

	delay := time.Duration(float64(m.expBackoff.NextBackOff()) * m.multiplier)
	if suggestedDelay > delay {
		delay = suggestedDelay
	}
	if delay > m.opts.MaxDelay {
		delay = m.opts.MaxDelay
	}

	shrunk := false
	if m.consecutive > m.opts.ErrorThreshold {
		m.multiplier *= m.opts.MultiplierGrowth
		if m.multiplier > m.opts.MaxMultiplier {
			m.multiplier = m.opts.MaxMultiplier
		}
		shrunk = m.setCapacitiesLocked(Capacities{
			Short: max(m.opts.Floor.Short, m.capacities.Short-m.opts.ShrinkStep.Short),
			Long:  max(m.opts.Floor.Long, m.capacities.Long-m.opts.ShrinkStep.Long),
		})
	}

	return Decision{Delay: delay, ConsecutiveErrors: m.consecutive, Shrunk: shrunk, Capacities: m.capacities}
}

// OnSuccess resets the consecutive error counter, decays the backoff multiplier toward 1,
// and grows effective capacities by one step (never above nominal).
// It returns true if capacities were changed.
func (m *Manager) OnSuccess() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.consecutive = 0
	m.expBackoff.Reset()
	m.multiplier = 1 + (m.multiplier-1)/2
	if m.multiplier < 1.01 {
		m.multiplier = 1
	}
	return m.setCapacitiesLocked(Capacities{
		Short: min(m.opts.Nominal.Short, m.capacities.Short+m.opts.GrowStep.Short),
		Long:  min(m.opts.Nominal.Long, m.capacities.Long+m.opts.GrowStep.Long),
	})
}

// State returns a copy of the current error state.
func (m *Manager) State() ErrorState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return ErrorState{
		ConsecutiveErrors: m.consecutive,
		LastErrorAt:       m.lastErrorAt,
		BackoffMultiplier: m.multiplier,
		Capacities:        m.capacities,
	}
}

// Reset restores the baseline state: no errors, multiplier 1 and nominal capacities.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetLocked()
}

func (m *Manager) resetLocked() {
	m.consecutive = 0
	m.lastErrorAt = time.Time{}
	m.multiplier = 1
	m.expBackoff.Reset()
	m.capacities = Capacities{}
	m.setCapacitiesLocked(m.opts.Nominal)
}

func (m *Manager) setCapacitiesLocked(capacities Capacities) (changed bool) {
	if capacities == m.capacities {
		return false
	}
	m.capacities = capacities
	if m.opts.Adjuster != nil {
		m.opts.Adjuster.SetEffectiveCapacities(capacities.Short, capacities.Long)
	}
	return true
}
