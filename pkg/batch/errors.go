package batch

import "errors"

// Common errors
var (
	// ErrRepositoryNil is returned when a nil repository is provided
	ErrRepositoryNil = errors.New("batch repository cannot be nil")

	// ErrRouterNil is returned when a nil queue router is provided
	ErrRouterNil = errors.New("queue router cannot be nil")

	// ErrSourceRequired is returned when a batch has no source name
	ErrSourceRequired = errors.New("batch source is required")

	// ErrEmptyFile is returned when the uploaded file contains no data rows
	ErrEmptyFile = errors.New("batch file contains no rows")

	// ErrDuplicateBatch is returned when a file with an identical content
	// hash was already ingested
	ErrDuplicateBatch = errors.New("duplicate batch: identical file already ingested")

	// ErrBatchRejected is returned when the invalid-row share exceeds the
	// error threshold and the whole batch is refused
	ErrBatchRejected = errors.New("batch rejected: error threshold exceeded")

	// ErrOutcomeNotFound is returned when no outcome exists for the given id
	ErrOutcomeNotFound = errors.New("batch outcome not found")
)
