/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package service runs the components of the process (units) and stops them gracefully on OS signals.
package service

// Unit represents a service unit that can be started and stopped.
type Unit interface {
	// Start begins the unit's operation. It may return immediately or block for the unit's lifetime.
	// A failed unit writes the error to fatalErr before returning.
	// The channel must not be used after Start has returned.
	Start(fatalErr chan<- error)

	// Stop halts the unit. It may be called even if Start has failed or was never called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is an interface for objects that can register its own metrics.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}

// MetricsRegistererFuncs is an adapter to allow the use of ordinary functions as MetricsRegisterer.
type MetricsRegistererFuncs struct {
	Register   func()
	Unregister func()
}

// MustRegisterMetrics calls the Register function.
func (f MetricsRegistererFuncs) MustRegisterMetrics() {
	if f.Register != nil {
		f.Register()
	}
}

// UnregisterMetrics calls the Unregister function.
func (f MetricsRegistererFuncs) UnregisterMetrics() {
	if f.Unregister != nil {
		f.Unregister()
	}
}
