package queue

import (
	"log/slog"
	"time"
)

// WorkerOption is a functional option for configuring a worker
type WorkerOption func(*workerOptions)

type workerOptions struct {
	pollInterval  time.Duration
	maxConcurrent int
	guard         IdempotencyGuard
	logger        *slog.Logger
}

// WithPollInterval sets how often the worker checks for new jobs
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMaxConcurrent sets the maximum number of jobs processed in parallel
func WithMaxConcurrent(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

// WithIdempotencyGuard enables duplicate-delivery suppression keyed by the
// message's idempotency key
func WithIdempotencyGuard(guard IdempotencyGuard) WorkerOption {
	return func(o *workerOptions) {
		if guard != nil {
			o.guard = guard
		}
	}
}

// WithWorkerLogger sets the logger for the worker
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
