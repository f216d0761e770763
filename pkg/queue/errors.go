package queue

import "errors"

// Common errors
var (
	// ErrRepositoryNil is returned when a nil repository is provided
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrInvalidKind is returned when a kind is not in the registry.
	// This is a programming or configuration error, never retried.
	ErrInvalidKind = errors.New("job kind is not registered")

	// ErrMissingIdempotencyKey is returned when a producer submits without a key
	ErrMissingIdempotencyKey = errors.New("idempotency key is required")

	// ErrPayloadNil is returned when attempting to submit a nil payload
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrNoMessageToLease signals an empty queue. This is the normal idle
	// case for a polling consumer, not a failure.
	ErrNoMessageToLease = errors.New("no message available to lease")

	// ErrLeaseConflict is returned when a lease acquisition loses a race.
	// Transient; callers should simply poll again.
	ErrLeaseConflict = errors.New("lease acquisition conflict")

	// ErrMaxAttemptsExceeded marks a message that exhausted its attempt
	// budget and moved to the dead-letter state.
	ErrMaxAttemptsExceeded = errors.New("max attempts exceeded")

	// ErrNoHandlers is returned when a worker is started with no handlers registered
	ErrNoHandlers = errors.New("no job handlers registered")

	// ErrMessageCreate is returned when message creation in storage fails
	ErrMessageCreate = errors.New("failed to create message in storage")
)
