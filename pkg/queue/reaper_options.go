package queue

import (
	"log/slog"
	"time"
)

// ReaperOption is a functional option for configuring a Reaper
type ReaperOption func(*reaperOptions)

type reaperOptions struct {
	interval     time.Duration
	timeout      time.Duration
	policy       RetryPolicy
	failedWindow time.Duration
	logger       *slog.Logger
}

// WithReapInterval sets how often the reaper sweeps for expired leases
func WithReapInterval(d time.Duration) ReaperOption {
	return func(o *reaperOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithReapTimeout sets how long a message may sit in processing before a
// sweep considers its worker dead
func WithReapTimeout(d time.Duration) ReaperOption {
	return func(o *reaperOptions) {
		if d >= 0 {
			o.timeout = d
		}
	}
}

// WithRetryPolicy sets the requeue backoff policy
func WithRetryPolicy(p RetryPolicy) ReaperOption {
	return func(o *reaperOptions) {
		if p.BackoffBase > 0 && p.BackoffMax >= p.BackoffBase {
			o.policy = p
		}
	}
}

// WithFailedWindow sets how far back Stats counts dead-lettered messages
func WithFailedWindow(d time.Duration) ReaperOption {
	return func(o *reaperOptions) {
		if d > 0 {
			o.failedWindow = d
		}
	}
}

// WithReaperLogger sets the logger for the reaper
func WithReaperLogger(logger *slog.Logger) ReaperOption {
	return func(o *reaperOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
