package queue

import "time"

// RouterOption is a functional option for configuring a Router
type RouterOption func(*routerOptions)

type routerOptions struct {
	leaseDuration      time.Duration
	defaultMaxAttempts int
}

// WithLeaseDuration sets the visibility timeout applied on Receive
func WithLeaseDuration(d time.Duration) RouterOption {
	return func(o *routerOptions) {
		if d > 0 {
			o.leaseDuration = d
		}
	}
}

// WithDefaultMaxAttempts sets the attempt budget applied when a submit
// does not override it
func WithDefaultMaxAttempts(n int) RouterOption {
	return func(o *routerOptions) {
		if n > 0 {
			o.defaultMaxAttempts = n
		}
	}
}

// SubmitOption is a functional option for the Submit method
type SubmitOption func(*submitOptions)

type submitOptions struct {
	maxAttempts int
	delay       time.Duration
}

// WithMaxAttempts overrides the attempt budget for a single message (1-10).
// Capped to prevent unbounded retry loops on persistent failures.
func WithMaxAttempts(n int) SubmitOption {
	return func(o *submitOptions) {
		if n >= 1 && n <= 10 {
			o.maxAttempts = n
		}
	}
}

// WithDelay postpones the message's first visibility
func WithDelay(d time.Duration) SubmitOption {
	return func(o *submitOptions) {
		if d > 0 {
			o.delay = d
		}
	}
}
