/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides an in-memory log.FieldLogger for asserting on what the scheduler logs.
package logtest
