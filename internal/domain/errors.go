package domain

import "errors"

// Error taxonomy for ledger operations. Every failure is reported
// synchronously and leaves state exactly as it was before the operation.
var (
	// ErrInvalidInput is returned for zero/negative amounts, malformed
	// addresses and out-of-range basis points.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidState is returned when the lifecycle stage does not permit
	// the requested operation (e.g. invest after funding completed).
	ErrInvalidState = errors.New("invalid state")

	// ErrUnauthorized is returned when the caller lacks the required role.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyDone is returned for repeated one-shot operations:
	// double-claim, re-closing a closed tranche, re-activating an active one.
	ErrAlreadyDone = errors.New("already done")

	// ErrDeadlineExceeded is returned when the claim window has passed.
	ErrDeadlineExceeded = errors.New("deadline exceeded")

	// ErrInsufficientEffect is returned when a computed share rounds to zero.
	ErrInsufficientEffect = errors.New("insufficient effect")

	// ErrNotFound is returned when a referenced tranche or distribution
	// does not exist.
	ErrNotFound = errors.New("not found")
)
