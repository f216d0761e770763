package idempotency

import "time"

// GuardOption is a functional option for configuring a Guard
type GuardOption func(*guardOptions)

type guardOptions struct {
	prefix    string
	claimTTL  time.Duration
	commitTTL time.Duration
}

// WithPrefix sets the Redis key prefix
func WithPrefix(prefix string) GuardOption {
	return func(o *guardOptions) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithClaimTTL bounds how long an in-flight claim survives a crashed consumer
func WithClaimTTL(d time.Duration) GuardOption {
	return func(o *guardOptions) {
		if d > 0 {
			o.claimTTL = d
		}
	}
}

// WithCommitTTL sets how long a committed key suppresses redelivery
func WithCommitTTL(d time.Duration) GuardOption {
	return func(o *guardOptions) {
		if d > 0 {
			o.commitTTL = d
		}
	}
}
