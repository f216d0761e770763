package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stateInProgress = "in_progress"
	stateDone       = "done"
)

// Guard is a Redis-backed idempotency claim store. All operations are
// single-key and atomic on the Redis side.
type Guard struct {
	client    redis.Cmdable
	prefix    string
	claimTTL  time.Duration
	commitTTL time.Duration
}

// NewGuard creates a guard over a Redis client.
func NewGuard(client redis.Cmdable, opts ...GuardOption) (*Guard, error) {
	if client == nil {
		return nil, ErrClientNil
	}

	options := &guardOptions{
		prefix:    "idem:",
		claimTTL:  10 * time.Minute,
		commitTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Guard{
		client:    client,
		prefix:    options.prefix,
		claimTTL:  options.claimTTL,
		commitTTL: options.commitTTL,
	}, nil
}

// Acquire claims the key for this delivery. Returns false without error when
// the key is already claimed or committed; callers distinguish the two via
// Done.
func (g *Guard) Acquire(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyRequired
	}

	ok, err := g.client.SetNX(ctx, g.prefix+key, stateInProgress, g.claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key %q: %w", key, err)
	}
	return ok, nil
}

// Commit marks the key's side effect as done for the commit TTL.
func (g *Guard) Commit(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}

	if err := g.client.Set(ctx, g.prefix+key, stateDone, g.commitTTL).Err(); err != nil {
		return fmt.Errorf("failed to commit idempotency key %q: %w", key, err)
	}
	return nil
}

// Release frees a claimed key after a failed attempt so a later delivery
// can retry the side effect.
func (g *Guard) Release(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}

	if err := g.client.Del(ctx, g.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key %q: %w", key, err)
	}
	return nil
}

// Done reports whether the key's side effect already completed.
func (g *Guard) Done(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyRequired
	}

	val, err := g.client.Get(ctx, g.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check idempotency key %q: %w", key, err)
	}
	return val == stateDone, nil
}
