package queue

import "time"

// RetryPolicy controls how far into the future a reaped message becomes
// visible again: min(base * 2^attempts, max). Capped exponential spacing
// keeps repeatedly-failing jobs from hot-looping through the queue.
type RetryPolicy struct {
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// DefaultRetryPolicy uses a 30s base, so requeues wait 1m, 2m, 4m, ...
// (the reaper computes the delay from the already-incremented attempt
// count), capped at 30 minutes.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BackoffBase: 30 * time.Second,
		BackoffMax:  30 * time.Minute,
	}
}

// Backoff returns the delay before the given attempt becomes visible again.
// Monotonically non-decreasing in attempts, strictly increasing until the cap.
func (p RetryPolicy) Backoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	// Shifting past 32 would overflow long before any realistic cap.
	if attempts > 32 {
		return p.BackoffMax
	}
	d := p.BackoffBase << uint(attempts)
	if d <= 0 || d > p.BackoffMax {
		return p.BackoffMax
	}
	return d
}
