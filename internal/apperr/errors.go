// Package apperr defines the sentinel errors shared across the engine.
package apperr

import "errors"

var (
	// ErrValidation marks malformed input: bad id format, missing required
	// field, invalid enum value, empty query. Rejected before any mutation.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a reference to an unknown record id. No side effects.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists marks an idempotent duplicate, e.g. re-creating an
	// existing graph edge.
	ErrAlreadyExists = errors.New("already exists")

	// ErrScopeUnavailable marks a disabled or misconfigured storage tier.
	// The wrapped message names the missing prerequisite.
	ErrScopeUnavailable = errors.New("scope unavailable")
)
