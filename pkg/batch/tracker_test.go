package batch_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/docket/pkg/batch"
	"github.com/dmitrymomot/docket/pkg/queue"
)

const cleanFile = `case_number,debtor_name,amount,judgment_date
CV-2024-001,Acme Holdings LLC,15000.00,2024-03-12
CV-2024-002,John Barrow,820.50,2024-04-01
CV-2024-003,Mira Ltd,99.99,2024-05-20
`

func newTracker(t *testing.T, opts ...batch.TrackerOption) (*batch.Tracker, *batch.MemoryRepository, *queue.MemoryStorage) {
	t.Helper()

	store := queue.NewMemoryStorage()
	router, err := queue.NewRouter(store)
	require.NoError(t, err)

	repo := batch.NewMemoryRepository()
	tracker, err := batch.NewTracker(repo, router, opts...)
	require.NoError(t, err)

	return tracker, repo, store
}

// drainScore leases every currently visible score message.
func drainScore(t *testing.T, store *queue.MemoryStorage) []*queue.Message {
	t.Helper()

	var msgs []*queue.Message
	for {
		msg, err := store.LeaseOne(context.Background(), queue.KindScore, 0)
		if err != nil {
			require.ErrorIs(t, err, queue.ErrNoMessageToLease)
			return msgs
		}
		msgs = append(msgs, msg)
	}
}

func TestNewTracker(t *testing.T) {
	t.Parallel()

	t.Run("nil repository error", func(t *testing.T) {
		t.Parallel()

		store := queue.NewMemoryStorage()
		router, err := queue.NewRouter(store)
		require.NoError(t, err)

		tracker, err := batch.NewTracker(nil, router)
		assert.ErrorIs(t, err, batch.ErrRepositoryNil)
		assert.Nil(t, tracker)
	})

	t.Run("nil submitter error", func(t *testing.T) {
		t.Parallel()

		tracker, err := batch.NewTracker(batch.NewMemoryRepository(), nil)
		assert.ErrorIs(t, err, batch.ErrRouterNil)
		assert.Nil(t, tracker)
	})
}

func TestTracker_Ingest(t *testing.T) {
	t.Parallel()

	t.Run("clean file enqueues one score job per row", func(t *testing.T) {
		t.Parallel()

		tracker, _, store := newTracker(t)

		outcome, err := tracker.Ingest(context.Background(), "uploads/2024-06.csv", []byte(cleanFile))
		require.NoError(t, err)
		require.NotNil(t, outcome)

		assert.Equal(t, batch.StatusCompleted, outcome.Status)
		assert.Equal(t, 3, outcome.RowsTotal)
		assert.Equal(t, 3, outcome.RowsValid)
		assert.Equal(t, 0, outcome.RowsInvalid)
		assert.Equal(t, 0, outcome.RowsDuplicate)
		assert.Nil(t, outcome.RejectionReason)
		require.NotNil(t, outcome.CompletedAt)

		msgs := drainScore(t, store)
		require.Len(t, msgs, 3)

		assert.Equal(t, "score:case:CV-2024-001", msgs[0].IdempotencyKey)

		var payload batch.ScorePayload
		require.NoError(t, json.Unmarshal(msgs[0].Payload, &payload))
		assert.Equal(t, "Acme Holdings LLC", payload.DebtorName)
		assert.Equal(t, int64(1500000), payload.AmountCents)
	})

	t.Run("identical re-upload creates one record and zero jobs", func(t *testing.T) {
		t.Parallel()

		tracker, repo, store := newTracker(t)

		_, err := tracker.Ingest(context.Background(), "uploads/first.csv", []byte(cleanFile))
		require.NoError(t, err)
		drainScore(t, store)

		// Same bytes, different source name: still a duplicate.
		outcome, err := tracker.Ingest(context.Background(), "uploads/second.csv", []byte(cleanFile))
		assert.ErrorIs(t, err, batch.ErrDuplicateBatch)
		assert.Nil(t, outcome)

		outcomes, err := repo.ListOutcomes(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, outcomes, 1)

		assert.Empty(t, drainScore(t, store), "duplicate upload must enqueue nothing")
	})

	t.Run("error budget rejects whole batch", func(t *testing.T) {
		t.Parallel()

		tracker, _, store := newTracker(t, batch.WithErrorThreshold(25))

		// 2 of 4 rows invalid: 50% > 25% threshold.
		file := []byte(`CV-1,Good Debtor,100.00,2024-01-01
CV-2,,100.00,2024-01-01
CV-3,Another Debtor,not-a-number,2024-01-01
CV-4,Last Debtor,250.00,2024-02-02
`)

		outcome, err := tracker.Ingest(context.Background(), "uploads/corrupt.csv", file)
		assert.ErrorIs(t, err, batch.ErrBatchRejected)
		require.NotNil(t, outcome)

		assert.Equal(t, batch.StatusFailed, outcome.Status)
		assert.Equal(t, 4, outcome.RowsTotal)
		assert.Equal(t, 2, outcome.RowsInvalid)
		require.NotNil(t, outcome.RejectionReason)
		assert.Contains(t, *outcome.RejectionReason, "threshold")

		assert.Empty(t, drainScore(t, store), "rejected batch must enqueue nothing, not even its valid rows")
	})

	t.Run("mixed file below threshold admits valid rows only", func(t *testing.T) {
		t.Parallel()

		tracker, _, store := newTracker(t, batch.WithErrorThreshold(50))

		file := []byte(`CV-1,Good Debtor,100.00,2024-01-01
CV-2,,100.00,2024-01-01
CV-3,Other Debtor,300.00,2024-03-03
`)

		outcome, err := tracker.Ingest(context.Background(), "uploads/mixed.csv", file)
		require.NoError(t, err)

		assert.Equal(t, batch.StatusCompleted, outcome.Status)
		assert.Equal(t, 3, outcome.RowsTotal)
		assert.Equal(t, 2, outcome.RowsValid)
		assert.Equal(t, 1, outcome.RowsInvalid)

		assert.Len(t, drainScore(t, store), 2)
	})

	t.Run("in-file duplicate case numbers collapse to one job", func(t *testing.T) {
		t.Parallel()

		tracker, _, store := newTracker(t)

		file := []byte(`CV-1,Good Debtor,100.00,2024-01-01
CV-1,Good Debtor,100.00,2024-01-01
`)

		outcome, err := tracker.Ingest(context.Background(), "uploads/dup-rows.csv", file)
		require.NoError(t, err)

		assert.Equal(t, 2, outcome.RowsTotal)
		assert.Equal(t, 1, outcome.RowsValid)
		assert.Equal(t, 1, outcome.RowsDuplicate)
		assert.Equal(t, 0, outcome.RowsInvalid)

		assert.Len(t, drainScore(t, store), 1)
	})

	t.Run("negative amounts are invalid rows", func(t *testing.T) {
		t.Parallel()

		tracker, _, store := newTracker(t, batch.WithErrorThreshold(100))

		// "-0.50" must not slip through as +50 cents.
		file := []byte(`CV-1,Good Debtor,100.00,2024-01-01
CV-2,Sign Trick,-0.50,2024-01-01
CV-3,Minus Whole,-12.00,2024-01-01
`)

		outcome, err := tracker.Ingest(context.Background(), "uploads/negative.csv", file)
		require.NoError(t, err)

		assert.Equal(t, 3, outcome.RowsTotal)
		assert.Equal(t, 1, outcome.RowsValid)
		assert.Equal(t, 2, outcome.RowsInvalid)

		assert.Len(t, drainScore(t, store), 1)
	})

	t.Run("empty input rejected", func(t *testing.T) {
		t.Parallel()

		tracker, repo, _ := newTracker(t)

		outcome, err := tracker.Ingest(context.Background(), "uploads/empty.csv", nil)
		assert.ErrorIs(t, err, batch.ErrEmptyFile)
		assert.Nil(t, outcome)

		// Header-only file creates a failed outcome with a reason.
		outcome, err = tracker.Ingest(context.Background(), "uploads/header-only.csv",
			[]byte("case_number,debtor_name,amount,judgment_date\n"))
		assert.ErrorIs(t, err, batch.ErrEmptyFile)
		require.NotNil(t, outcome)
		assert.Equal(t, batch.StatusFailed, outcome.Status)

		outcomes, err := repo.ListOutcomes(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, outcomes, 1)
	})

	t.Run("missing source rejected", func(t *testing.T) {
		t.Parallel()

		tracker, _, _ := newTracker(t)

		_, err := tracker.Ingest(context.Background(), "", []byte(cleanFile))
		assert.ErrorIs(t, err, batch.ErrSourceRequired)
	})
}
