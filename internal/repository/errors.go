// Package repository persists ponds, bookings, check-ins and rod tags.
// Two stores are provided: MySQLStore for production and MemoryStore for
// local runs and tests.  Both honour the same atomicity contract and
// report failures with the sentinel errors below so that services can
// translate them without knowing which backend is in use.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would violate a uniqueness rule,
// such as a second open check-in for the same seat.  Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrStaleState is returned when a row exists but is no longer in a state
// that allows the requested transition.
var ErrStaleState = errors.New("stale state")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")
