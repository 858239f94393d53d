/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package scheduler provides an adaptive rate-limited request scheduler for calls to a third-party API.
//
// Submitted operations are kept in four priority tiers and dispatched one at a time by the loop started with Run.
// Every dispatch must be admitted by two sliding windows (short and long). When an operation reports
// provider-side throttling with *ThrottlingError, the request is re-inserted at the head of its tier
// after an exponential delay, and sustained throttling shrinks the windows' effective capacities.
// Successful results can be cached by key, so identical near-term calls don't hit the provider at all.
//
// Lower tiers are served only when all higher tiers are empty, so low-priority requests may wait
// indefinitely under sustained high-priority load.
package scheduler
