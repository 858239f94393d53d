/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package admission provides the admission control used by the request scheduler
// to stay within the provider's quota.
//
// The package keeps an exact log of admission timestamps per window (a sliding log, not
// an approximated counter), so the number of admissions recorded within a window duration
// never exceeds the window's effective capacity at the moment of admission.
// Effective capacity may be lowered below the nominal one at runtime (see Controller.SetEffectiveCapacities)
// when the provider starts throttling, and raised back later.
//
// Key features:
//   - Two independent windows (short and long) checked atomically on every admission
//   - Lazy pruning of stale timestamps, no background goroutines
//   - Projection of the earliest instant when admission becomes possible again
package admission
