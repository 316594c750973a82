package tsh

import "errors"

// Sentinel errors for subprocess and parse failures. They are wrapped in
// humane errors before leaving this package so callers can dispatch with
// errors.Is while still rendering advice for the operator.
var (
	// ErrNotFound indicates the tsh binary is absent from the search path.
	ErrNotFound = errors.New("tsh binary not found")

	// ErrTimeout indicates a subprocess exceeded its deadline and was killed.
	ErrTimeout = errors.New("tsh command timed out")

	// ErrNonZeroExit indicates tsh ran but reported failure.
	ErrNonZeroExit = errors.New("tsh exited with a non-zero status")

	// ErrMalformedEntry indicates a resource record was missing a required field.
	ErrMalformedEntry = errors.New("malformed resource entry")

	// ErrCancelled indicates the operator aborted an interactive flow.
	ErrCancelled = errors.New("cancelled")
)
