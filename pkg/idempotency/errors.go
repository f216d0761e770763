package idempotency

import "errors"

// Common errors
var (
	// ErrClientNil is returned when a nil redis client is provided
	ErrClientNil = errors.New("redis client cannot be nil")

	// ErrKeyRequired is returned when an empty key is used
	ErrKeyRequired = errors.New("idempotency key is required")
)
