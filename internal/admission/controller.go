/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package admission

import (
	"fmt"
	"sync"
	"time"
)

// Counts holds the number of admissions recorded within each window.
type Counts struct {
	Short int
	Long  int
}

// Capacities holds the effective capacities of both windows.
type Capacities struct {
	Short int
	Long  int
}

// Controller decides whether a new dispatch is allowed right now.
// It tracks two independent windows (short and long), and an admission is granted only when both of them have capacity.
// Controller is safe for concurrent use.
type Controller struct {
	mu    sync.Mutex
	short *Window
	long  *Window
}

// NewController creates a new Controller with the given short and long window rates.
func NewController(shortRate, longRate Rate) (*Controller, error) {
	short, err := NewWindow(shortRate)
	if err != nil {
		return nil, fmt.Errorf("short window: %w", err)
	}
	long, err := NewWindow(longRate)
	if err != nil {
		return nil, fmt.Errorf("long window: %w", err)
	}
	return &Controller{short: short, long: long}, nil
}

// TryAdmit records an admission in both windows and returns true
// if the number of admissions in each window is strictly below its effective capacity.
// Otherwise, it returns false and records nothing.
func (c *Controller) TryAdmit(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.short.HasCapacity(now) || !c.long.HasCapacity(now) {
		return false
	}
	c.short.Record(now)
	c.long.Record(now)
	return true
}

// NextAvailableAt returns the earliest instant both windows are projected to have capacity.
// It's used by the dispatch loop to sleep instead of busy-polling.
func (c *Controller) NextAvailableAt(now time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	at := c.short.AvailableAt(now)
	if longAt := c.long.AvailableAt(now); longAt.After(at) {
		at = longAt
	}
	return at
}

// SetEffectiveCapacities changes effective capacities of both windows.
// Values are clamped to [1, nominal capacity] of the corresponding window.
func (c *Controller) SetEffectiveCapacities(capacities Capacities) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.short.SetEffectiveCapacity(capacities.Short)
	c.long.SetEffectiveCapacity(capacities.Long)
}

// Capacities returns effective capacities of both windows.
func (c *Controller) Capacities() Capacities {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Capacities{Short: c.short.EffectiveCapacity(), Long: c.long.EffectiveCapacity()}
}

// NominalCapacities returns configured capacities of both windows.
func (c *Controller) NominalCapacities() Capacities {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Capacities{Short: c.short.NominalCapacity(), Long: c.long.NominalCapacity()}
}

// Counts returns the number of admissions currently recorded within each window.
func (c *Controller) Counts(now time.Time) Counts {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Counts{Short: c.short.Count(now), Long: c.long.Count(now)}
}

// Reset clears admission history of both windows and restores their nominal capacities.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.short.Reset()
	c.long.Reset()
}
