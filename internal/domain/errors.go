package domain

import "errors"

// Error classes. Specific errors wrap one of these so callers can branch with
// errors.Is on the class rather than on every individual failure.
var (
	// ErrInvalidArgument marks malformed coordinates, negative distances and
	// other contract violations of pure computations.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDegraded marks an external dependency that is unavailable or slow and
	// has been replaced by a fallback.
	ErrDegraded = errors.New("degraded")

	// ErrInvalidState marks lifecycle misuse, e.g. stopping a tracker that was
	// never started.
	ErrInvalidState = errors.New("invalid state")

	// ErrTransient marks failures that are retried on the next natural cycle.
	ErrTransient = errors.New("transient failure")
)
