package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/docket/pkg/pg"
)

// PostgresRepository implements Repository on the ingest_batches table. The
// unique index on file_hash is what makes re-uploads idempotent.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates an outcome store backed by the given pool.
func NewPostgresRepository(db *pgxpool.Pool) (*PostgresRepository, error) {
	if db == nil {
		return nil, ErrRepositoryNil
	}
	return &PostgresRepository{db: db}, nil
}

const outcomeColumns = `id, source, file_hash, status, rows_total, rows_valid, rows_invalid,
	rows_duplicate, error_threshold_percent, rejection_reason, started_at, completed_at`

func (pr *PostgresRepository) CreateOutcome(ctx context.Context, outcome *Outcome) error {
	_, err := pr.db.Exec(ctx, `
		INSERT INTO ingest_batches (id, source, file_hash, status, rows_total, rows_valid,
			rows_invalid, rows_duplicate, error_threshold_percent, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		outcome.ID, outcome.Source, outcome.FileHash, outcome.Status, outcome.RowsTotal,
		outcome.RowsValid, outcome.RowsInvalid, outcome.RowsDuplicate,
		outcome.ErrorThresholdPercent, outcome.StartedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrDuplicateBatch
		}
		return fmt.Errorf("failed to insert batch %s: %w", outcome.ID, err)
	}
	return nil
}

func (pr *PostgresRepository) UpdateOutcome(ctx context.Context, outcome *Outcome) error {
	tag, err := pr.db.Exec(ctx, `
		UPDATE ingest_batches SET
			status                  = $2,
			rows_total              = $3,
			rows_valid              = $4,
			rows_invalid            = $5,
			rows_duplicate          = $6,
			rejection_reason        = $7,
			completed_at            = $8
		WHERE id = $1`,
		outcome.ID, outcome.Status, outcome.RowsTotal, outcome.RowsValid,
		outcome.RowsInvalid, outcome.RowsDuplicate, outcome.RejectionReason,
		outcome.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update batch %s: %w", outcome.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOutcomeNotFound
	}
	return nil
}

func (pr *PostgresRepository) GetOutcome(ctx context.Context, id uuid.UUID) (*Outcome, error) {
	row := pr.db.QueryRow(ctx, `
		SELECT `+outcomeColumns+` FROM ingest_batches WHERE id = $1`,
		id,
	)

	outcome, err := scanOutcome(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOutcomeNotFound
		}
		return nil, fmt.Errorf("failed to load batch %s: %w", id, err)
	}
	return outcome, nil
}

func (pr *PostgresRepository) ListOutcomes(ctx context.Context, limit int) ([]*Outcome, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := pr.db.Query(ctx, `
		SELECT `+outcomeColumns+` FROM ingest_batches
		ORDER BY started_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var outcomes []*Outcome
	for rows.Next() {
		outcome, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch row: %w", err)
		}
		outcomes = append(outcomes, outcome)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch rows: %w", err)
	}
	return outcomes, nil
}

func scanOutcome(row pgx.Row) (*Outcome, error) {
	var outcome Outcome
	err := row.Scan(
		&outcome.ID, &outcome.Source, &outcome.FileHash, &outcome.Status,
		&outcome.RowsTotal, &outcome.RowsValid, &outcome.RowsInvalid,
		&outcome.RowsDuplicate, &outcome.ErrorThresholdPercent,
		&outcome.RejectionReason, &outcome.StartedAt, &outcome.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}
