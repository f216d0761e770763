package idempotency_test

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/docket/pkg/idempotency"
)

func TestNewGuard(t *testing.T) {
	t.Parallel()

	t.Run("successful creation", func(t *testing.T) {
		t.Parallel()

		guard, err := idempotency.NewGuard(redis.NewClient(&redis.Options{}))
		require.NoError(t, err)
		require.NotNil(t, guard)
	})

	t.Run("nil client error", func(t *testing.T) {
		t.Parallel()

		guard, err := idempotency.NewGuard(nil)
		assert.ErrorIs(t, err, idempotency.ErrClientNil)
		assert.Nil(t, guard)
	})
}

func TestGuard_KeyValidation(t *testing.T) {
	t.Parallel()

	// The client is never dialed: every operation rejects the empty key
	// before issuing a command.
	guard, err := idempotency.NewGuard(redis.NewClient(&redis.Options{}))
	require.NoError(t, err)

	ctx := context.Background()

	_, err = guard.Acquire(ctx, "")
	assert.ErrorIs(t, err, idempotency.ErrKeyRequired)

	assert.ErrorIs(t, guard.Commit(ctx, ""), idempotency.ErrKeyRequired)
	assert.ErrorIs(t, guard.Release(ctx, ""), idempotency.ErrKeyRequired)

	_, err = guard.Done(ctx, "")
	assert.ErrorIs(t, err, idempotency.ErrKeyRequired)
}
