/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package admission

import (
	"fmt"
	"time"
)

// Rate describes the frequency of admissions.
type Rate struct {
	Count    int
	Duration time.Duration
}

// Window is a sliding log of admission timestamps.
// It's not safe for concurrent use, Controller serializes access to its windows.
type Window struct {
	duration          time.Duration
	nominalCapacity   int
	effectiveCapacity int
	times             []time.Time // ordered, oldest first
}

// NewWindow creates a new Window that allows at most rate.Count admissions per rate.Duration.
func NewWindow(rate Rate) (*Window, error) {
	if rate.Count <= 0 {
		return nil, fmt.Errorf("window capacity must be positive, got %d", rate.Count)
	}
	if rate.Duration <= 0 {
		return nil, fmt.Errorf("window duration must be positive, got %s", rate.Duration)
	}
	return &Window{
		duration:          rate.Duration,
		nominalCapacity:   rate.Count,
		effectiveCapacity: rate.Count,
		times:             make([]time.Time, 0, rate.Count),
	}, nil
}

// Duration returns the window duration.
func (w *Window) Duration() time.Duration {
	return w.duration
}

// NominalCapacity returns the configured capacity.
func (w *Window) NominalCapacity() int {
	return w.nominalCapacity
}

// EffectiveCapacity returns the capacity currently used for admission decisions.
func (w *Window) EffectiveCapacity() int {
	return w.effectiveCapacity
}

// SetEffectiveCapacity changes the capacity used for admission decisions.
// The value is clamped to [1, nominal capacity].
func (w *Window) SetEffectiveCapacity(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	if capacity > w.nominalCapacity {
		capacity = w.nominalCapacity
	}
	w.effectiveCapacity = capacity
}

// Count returns the number of admissions newer than (now - duration).
func (w *Window) Count(now time.Time) int {
	w.prune(now)
	return len(w.times)
}

// HasCapacity reports whether one more admission fits into the window at the given moment.
func (w *Window) HasCapacity(now time.Time) bool {
	return w.Count(now) < w.effectiveCapacity
}

// Record registers an admission at the given moment.
// Callers are expected to check HasCapacity before.
func (w *Window) Record(now time.Time) {
	w.times = append(w.times, now)
}

// AvailableAt returns the earliest instant the window is projected to have capacity for one more admission.
// If the window is not full, now is returned.
func (w *Window) AvailableAt(now time.Time) time.Time {
	w.prune(now)
	excess := len(w.times) - w.effectiveCapacity
	if excess < 0 {
		return now
	}
	// The window has capacity again when the (excess+1)-th oldest timestamp ages out.
	return w.times[excess].Add(w.duration)
}

// Reset drops the admission history and restores nominal capacity.
func (w *Window) Reset() {
	w.times = w.times[:0]
	w.effectiveCapacity = w.nominalCapacity
}

// prune drops timestamps that are not newer than (now - duration).
func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.duration)
	stale := 0
	for stale < len(w.times) && !w.times[stale].After(cutoff) {
		stale++
	}
	if stale == 0 {
		return
	}
	w.times = append(w.times[:0], w.times[stale:]...)
}
