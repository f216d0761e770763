package heartbeat

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository on the worker_heartbeats table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a heartbeat store backed by the given pool.
func NewPostgresRepository(db *pgxpool.Pool) (*PostgresRepository, error) {
	if db == nil {
		return nil, ErrRepositoryNil
	}
	return &PostgresRepository{db: db}, nil
}

// Upsert implements Repository: conflict on worker_id overwrites all fields
// and bumps last_seen_at.
func (pr *PostgresRepository) Upsert(ctx context.Context, hb *Heartbeat) error {
	if hb == nil {
		return errors.New("heartbeat cannot be nil")
	}

	_, err := pr.db.Exec(ctx, `
		INSERT INTO worker_heartbeats (worker_id, worker_type, hostname, status, last_seen_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (worker_id) DO UPDATE SET
			worker_type  = EXCLUDED.worker_type,
			hostname     = EXCLUDED.hostname,
			status       = EXCLUDED.status,
			last_seen_at = EXCLUDED.last_seen_at`,
		hb.WorkerID, hb.WorkerType, hb.Hostname, hb.Status, hb.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert heartbeat for worker %s: %w", hb.WorkerID, err)
	}
	return nil
}

// List implements Repository
func (pr *PostgresRepository) List(ctx context.Context) ([]Heartbeat, error) {
	rows, err := pr.db.Query(ctx, `
		SELECT worker_id, worker_type, hostname, status, last_seen_at
		FROM worker_heartbeats
		ORDER BY worker_type, last_seen_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list heartbeats: %w", err)
	}
	defer rows.Close()

	var out []Heartbeat
	for rows.Next() {
		var hb Heartbeat
		if err := rows.Scan(&hb.WorkerID, &hb.WorkerType, &hb.Hostname, &hb.Status, &hb.LastSeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan heartbeat row: %w", err)
		}
		out = append(out, hb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read heartbeat rows: %w", err)
	}
	return out, nil
}
