package queue_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/docket/pkg/queue"
)

// memoryGuard is a test IdempotencyGuard with the same claim semantics as
// the redis-backed one.
type memoryGuard struct {
	claimed atomic.Int64
	done    atomic.Int64
	state   map[string]string
	mu      chan struct{} // buffered(1) used as a mutex to keep the struct tiny
}

func newMemoryGuard() *memoryGuard {
	g := &memoryGuard{state: make(map[string]string), mu: make(chan struct{}, 1)}
	g.mu <- struct{}{}
	return g
}

func (g *memoryGuard) Acquire(ctx context.Context, key string) (bool, error) {
	<-g.mu
	defer func() { g.mu <- struct{}{} }()
	if _, exists := g.state[key]; exists {
		return false, nil
	}
	g.state[key] = "in_progress"
	g.claimed.Add(1)
	return true, nil
}

func (g *memoryGuard) Commit(ctx context.Context, key string) error {
	<-g.mu
	defer func() { g.mu <- struct{}{} }()
	g.state[key] = "done"
	g.done.Add(1)
	return nil
}

func (g *memoryGuard) Release(ctx context.Context, key string) error {
	<-g.mu
	defer func() { g.mu <- struct{}{} }()
	delete(g.state, key)
	return nil
}

func (g *memoryGuard) Done(ctx context.Context, key string) (bool, error) {
	<-g.mu
	defer func() { g.mu <- struct{}{} }()
	return g.state[key] == "done", nil
}

func newTestRouter(t *testing.T) (*queue.Router, *queue.MemoryStorage) {
	t.Helper()
	storage := queue.NewMemoryStorage()
	router, err := queue.NewRouter(storage, queue.WithLeaseDuration(time.Minute))
	require.NoError(t, err)
	return router, storage
}

func TestNewWorker(t *testing.T) {
	t.Parallel()

	t.Run("successful creation", func(t *testing.T) {
		t.Parallel()

		router, _ := newTestRouter(t)
		worker, err := queue.NewWorker(router)
		require.NoError(t, err)
		require.NotNil(t, worker)
	})

	t.Run("nil router error", func(t *testing.T) {
		t.Parallel()

		worker, err := queue.NewWorker(nil)
		assert.ErrorIs(t, err, queue.ErrRepositoryNil)
		assert.Nil(t, worker)
	})
}

func TestWorker_RegisterHandler(t *testing.T) {
	t.Parallel()

	t.Run("rejects handler for unregistered kind", func(t *testing.T) {
		t.Parallel()

		router, _ := newTestRouter(t)
		worker, err := queue.NewWorker(router)
		require.NoError(t, err)

		err = worker.RegisterHandler(queue.NewHandler(queue.Kind("send_fax"),
			func(ctx context.Context, payload scorePayload) error { return nil }))
		assert.ErrorIs(t, err, queue.ErrInvalidKind)
	})

	t.Run("nil handler is ignored", func(t *testing.T) {
		t.Parallel()

		router, _ := newTestRouter(t)
		worker, err := queue.NewWorker(router)
		require.NoError(t, err)

		assert.NoError(t, worker.RegisterHandler(nil))
	})

	t.Run("start fails with no handlers", func(t *testing.T) {
		t.Parallel()

		router, _ := newTestRouter(t)
		worker, err := queue.NewWorker(router)
		require.NoError(t, err)

		assert.ErrorIs(t, worker.Start(context.Background()), queue.ErrNoHandlers)
	})
}

func TestWorker_Processing(t *testing.T) {
	t.Parallel()

	t.Run("processes and acks a job", func(t *testing.T) {
		t.Parallel()

		router, storage := newTestRouter(t)

		var got atomic.Int64
		worker, err := queue.NewWorker(router, queue.WithPollInterval(5*time.Millisecond))
		require.NoError(t, err)
		require.NoError(t, worker.RegisterHandler(queue.NewHandler(queue.KindScore,
			func(ctx context.Context, payload scorePayload) error {
				got.Store(payload.CaseID)
				return nil
			})))

		id, err := router.Submit(context.Background(), queue.KindScore, "score:case:42", scorePayload{CaseID: 42})
		require.NoError(t, err)

		require.NoError(t, worker.Start(context.Background()))
		t.Cleanup(func() { _ = worker.Stop() })

		require.Eventually(t, func() bool {
			msg := storage.GetMessage(id)
			return msg != nil && msg.Status == queue.MessageStatusCompleted
		}, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, int64(42), got.Load())
	})

	t.Run("failed job is never acked", func(t *testing.T) {
		t.Parallel()

		router, storage := newTestRouter(t)

		worker, err := queue.NewWorker(router, queue.WithPollInterval(5*time.Millisecond))
		require.NoError(t, err)
		require.NoError(t, worker.RegisterHandler(queue.NewHandler(queue.KindEnforce,
			func(ctx context.Context, payload scorePayload) error {
				return errors.New("boom")
			})))

		id, err := router.Submit(context.Background(), queue.KindEnforce, "enforce:case:1", scorePayload{CaseID: 1})
		require.NoError(t, err)

		require.NoError(t, worker.Start(context.Background()))
		t.Cleanup(func() { _ = worker.Stop() })

		// The message stays leased; only lease expiry and the reaper can
		// make it deliverable again.
		require.Eventually(t, func() bool {
			msg := storage.GetMessage(id)
			return msg != nil && msg.Status == queue.MessageStatusProcessing
		}, 2*time.Second, 5*time.Millisecond)

		assert.Never(t, func() bool {
			return storage.GetMessage(id).Status == queue.MessageStatusCompleted
		}, 100*time.Millisecond, 10*time.Millisecond)
	})

	t.Run("panicking handler is contained", func(t *testing.T) {
		t.Parallel()

		router, storage := newTestRouter(t)

		worker, err := queue.NewWorker(router, queue.WithPollInterval(5*time.Millisecond))
		require.NoError(t, err)
		require.NoError(t, worker.RegisterHandler(queue.NewHandler(queue.KindScore,
			func(ctx context.Context, payload scorePayload) error {
				panic("handler exploded")
			})))

		id, err := router.Submit(context.Background(), queue.KindScore, "score:case:1", scorePayload{CaseID: 1})
		require.NoError(t, err)

		require.NoError(t, worker.Start(context.Background()))
		t.Cleanup(func() { _ = worker.Stop() })

		require.Eventually(t, func() bool {
			msg := storage.GetMessage(id)
			return msg != nil && msg.Status == queue.MessageStatusProcessing
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("duplicate delivery suppressed by idempotency guard", func(t *testing.T) {
		t.Parallel()

		router, storage := newTestRouter(t)
		guard := newMemoryGuard()

		var runs atomic.Int64
		worker, err := queue.NewWorker(router,
			queue.WithPollInterval(5*time.Millisecond),
			queue.WithIdempotencyGuard(guard),
		)
		require.NoError(t, err)
		require.NoError(t, worker.RegisterHandler(queue.NewHandler(queue.KindOutreach,
			func(ctx context.Context, payload scorePayload) error {
				runs.Add(1)
				return nil
			})))

		// Two messages for the same logical event: deterministic key
		// derivation makes redelivered or re-enqueued work collide here.
		key := queue.DeriveKey(queue.KindOutreach, "case", "42")
		first, err := router.Submit(context.Background(), queue.KindOutreach, key, scorePayload{CaseID: 42})
		require.NoError(t, err)
		second, err := router.Submit(context.Background(), queue.KindOutreach, key, scorePayload{CaseID: 42})
		require.NoError(t, err)

		require.NoError(t, worker.Start(context.Background()))
		t.Cleanup(func() { _ = worker.Stop() })

		require.Eventually(t, func() bool {
			a, b := storage.GetMessage(first), storage.GetMessage(second)
			return a.Status == queue.MessageStatusCompleted && b.Status == queue.MessageStatusCompleted
		}, 2*time.Second, 5*time.Millisecond)

		assert.Equal(t, int64(1), runs.Load(), "side effect must run exactly once")
	})

	t.Run("graceful stop drains in-flight jobs", func(t *testing.T) {
		t.Parallel()

		router, storage := newTestRouter(t)

		started := make(chan struct{})
		release := make(chan struct{})
		worker, err := queue.NewWorker(router, queue.WithPollInterval(5*time.Millisecond))
		require.NoError(t, err)
		require.NoError(t, worker.RegisterHandler(queue.NewHandler(queue.KindScore,
			func(ctx context.Context, payload scorePayload) error {
				close(started)
				<-release
				return nil
			})))

		id, err := router.Submit(context.Background(), queue.KindScore, "score:case:1", scorePayload{CaseID: 1})
		require.NoError(t, err)

		require.NoError(t, worker.Start(context.Background()))
		<-started

		stopDone := make(chan error, 1)
		go func() { stopDone <- worker.Stop() }()

		select {
		case <-stopDone:
			t.Fatal("stop returned while a job was still in flight")
		case <-time.After(50 * time.Millisecond):
		}

		close(release)
		require.NoError(t, <-stopDone)
		assert.Equal(t, queue.MessageStatusCompleted, storage.GetMessage(id).Status)
	})

	t.Run("drained job is acked against a context-honoring store", func(t *testing.T) {
		t.Parallel()

		// Real stores fail calls on a cancelled context; the ack after a
		// graceful drain must not run on the worker's own cancelled context.
		storage := queue.NewMemoryStorage()
		router, err := queue.NewRouter(&ctxCheckedStorage{storage}, queue.WithLeaseDuration(time.Minute))
		require.NoError(t, err)

		started := make(chan struct{})
		release := make(chan struct{})
		worker, err := queue.NewWorker(router, queue.WithPollInterval(5*time.Millisecond))
		require.NoError(t, err)
		require.NoError(t, worker.RegisterHandler(queue.NewHandler(queue.KindScore,
			func(ctx context.Context, payload scorePayload) error {
				close(started)
				<-release
				return nil
			})))

		id, err := router.Submit(context.Background(), queue.KindScore, "score:case:1", scorePayload{CaseID: 1})
		require.NoError(t, err)

		require.NoError(t, worker.Start(context.Background()))
		<-started

		stopDone := make(chan error, 1)
		go func() { stopDone <- worker.Stop() }()

		// Let Stop cancel the worker context before the handler finishes.
		time.Sleep(50 * time.Millisecond)
		close(release)

		require.NoError(t, <-stopDone)
		assert.Equal(t, queue.MessageStatusCompleted, storage.GetMessage(id).Status,
			"job completed during drain must be acked, not left for redelivery")
	})
}

// ctxCheckedStorage rejects calls on a cancelled context, the way pgx does.
type ctxCheckedStorage struct {
	*queue.MemoryStorage
}

func (s *ctxCheckedStorage) CreateMessage(ctx context.Context, msg *queue.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStorage.CreateMessage(ctx, msg)
}

func (s *ctxCheckedStorage) LeaseOne(ctx context.Context, kind queue.Kind, leaseFor time.Duration) (*queue.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MemoryStorage.LeaseOne(ctx, kind, leaseFor)
}

func (s *ctxCheckedStorage) AckMessage(ctx context.Context, kind queue.Kind, messageID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStorage.AckMessage(ctx, kind, messageID)
}
