package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/google/uuid"
)

// PostgresStorage implements RouterRepository and ReaperRepository on a
// single durable Postgres table. Lease acquisition uses FOR UPDATE SKIP
// LOCKED so concurrent workers never double-lease a row; reaping is one
// guarded UPDATE, so concurrent sweeps cannot double-reap.
type PostgresStorage struct {
	db *pgxpool.Pool
}

// NewPostgresStorage creates a queue store backed by the given pool. The
// queue_messages table must exist (see migrations/).
func NewPostgresStorage(db *pgxpool.Pool) (*PostgresStorage, error) {
	if db == nil {
		return nil, ErrRepositoryNil
	}
	return &PostgresStorage{db: db}, nil
}

const messageColumns = `id, kind, idempotency_key, payload, status, attempts, max_attempts,
	visible_at, enqueued_at, locked_at, processed_at, updated_at, last_error`

// CreateMessage implements RouterRepository
func (ps *PostgresStorage) CreateMessage(ctx context.Context, msg *Message) error {
	if msg == nil {
		return errors.New("message cannot be nil")
	}

	_, err := ps.db.Exec(ctx, `
		INSERT INTO queue_messages (id, kind, idempotency_key, payload, status, attempts,
			max_attempts, visible_at, enqueued_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		msg.ID, msg.Kind, msg.IdempotencyKey, msg.Payload, msg.Status, msg.Attempts,
		msg.MaxAttempts, msg.VisibleAt, msg.EnqueuedAt, msg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message %s: %w", msg.ID, err)
	}
	return nil
}

// LeaseOne implements RouterRepository. The inner SELECT picks the oldest
// eligible row and skips rows already locked by a concurrent claim, which is
// the single most important correctness property of the store.
func (ps *PostgresStorage) LeaseOne(ctx context.Context, kind Kind, leaseFor time.Duration) (*Message, error) {
	row := ps.db.QueryRow(ctx, `
		UPDATE queue_messages SET
			status     = $3,
			visible_at = now() + $2,
			locked_at  = now(),
			updated_at = now()
		WHERE id = (
			SELECT id FROM queue_messages
			WHERE kind = $1 AND status = $4 AND visible_at <= now()
			ORDER BY enqueued_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+messageColumns,
		kind, leaseFor, MessageStatusProcessing, MessageStatusPending,
	)

	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoMessageToLease
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "40001" {
			return nil, ErrLeaseConflict
		}
		return nil, fmt.Errorf("failed to lease %s message: %w", kind, err)
	}
	return msg, nil
}

// AckMessage implements RouterRepository. Matching zero rows is fine:
// redelivery means a worker may legitimately ack twice.
func (ps *PostgresStorage) AckMessage(ctx context.Context, kind Kind, messageID uuid.UUID) error {
	_, err := ps.db.Exec(ctx, `
		UPDATE queue_messages SET
			status       = $3,
			processed_at = now(),
			locked_at    = NULL,
			updated_at   = now()
		WHERE id = $1 AND kind = $2 AND status <> $3`,
		messageID, kind, MessageStatusCompleted,
	)
	if err != nil {
		return fmt.Errorf("failed to ack message %s: %w", messageID, err)
	}
	return nil
}

// ReapExpired implements ReaperRepository as a single guarded UPDATE: the
// status predicate makes each expired row transition exactly once even when
// sweeps overlap with each other or with ack traffic.
func (ps *PostgresStorage) ReapExpired(ctx context.Context, timeout time.Duration, policy RetryPolicy) (int, error) {
	tag, err := ps.db.Exec(ctx, `
		UPDATE queue_messages SET
			attempts   = attempts + 1,
			status     = CASE WHEN attempts + 1 >= max_attempts THEN $4 ELSE $5 END,
			visible_at = CASE WHEN attempts + 1 >= max_attempts THEN visible_at
			                  ELSE now() + make_interval(secs => least($2 * power(2, attempts + 1), $3)) END,
			last_error = CASE WHEN attempts + 1 >= max_attempts THEN 'max attempts exceeded' ELSE last_error END,
			locked_at  = NULL,
			updated_at = now()
		WHERE status = $6 AND locked_at <= now() - $1`,
		timeout, policy.BackoffBase.Seconds(), policy.BackoffMax.Seconds(),
		MessageStatusFailed, MessageStatusPending, MessageStatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reap expired leases: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CountStuck implements ReaperRepository
func (ps *PostgresStorage) CountStuck(ctx context.Context) (int, error) {
	var count int
	err := ps.db.QueryRow(ctx, `
		SELECT count(*) FROM queue_messages
		WHERE status = $1 AND visible_at <= now()`,
		MessageStatusProcessing,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count stuck messages: %w", err)
	}
	return count, nil
}

// CountFailedSince implements ReaperRepository
func (ps *PostgresStorage) CountFailedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := ps.db.QueryRow(ctx, `
		SELECT count(*) FROM queue_messages
		WHERE status = $1 AND updated_at > $2`,
		MessageStatusFailed, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count dead-lettered messages: %w", err)
	}
	return count, nil
}

// GetMessage returns a stored message for dead-letter triage, or
// pgx.ErrNoRows wrapped when unknown.
func (ps *PostgresStorage) GetMessage(ctx context.Context, messageID uuid.UUID) (*Message, error) {
	row := ps.db.QueryRow(ctx, `
		SELECT `+messageColumns+` FROM queue_messages WHERE id = $1`,
		messageID,
	)

	msg, err := scanMessage(row)
	if err != nil {
		return nil, fmt.Errorf("failed to load message %s: %w", messageID, err)
	}
	return msg, nil
}

func scanMessage(row pgx.Row) (*Message, error) {
	var msg Message
	err := row.Scan(
		&msg.ID, &msg.Kind, &msg.IdempotencyKey, &msg.Payload, &msg.Status,
		&msg.Attempts, &msg.MaxAttempts, &msg.VisibleAt, &msg.EnqueuedAt,
		&msg.LockedAt, &msg.ProcessedAt, &msg.UpdatedAt, &msg.LastError,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
