package heartbeat

import "errors"

// Common errors
var (
	// ErrRepositoryNil is returned when a nil repository is provided
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrWorkerIDRequired is returned when a heartbeat carries no worker identity
	ErrWorkerIDRequired = errors.New("worker id is required")

	// ErrWorkerTypeRequired is returned when a heartbeat carries no worker type
	ErrWorkerTypeRequired = errors.New("worker type is required")

	// ErrInvalidStatus is returned for statuses outside running/stopped/error
	ErrInvalidStatus = errors.New("invalid worker status")
)
