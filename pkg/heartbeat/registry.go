package heartbeat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorkerStatus is the self-reported state of a worker process.
type WorkerStatus string

const (
	WorkerStatusRunning WorkerStatus = "running"
	WorkerStatusStopped WorkerStatus = "stopped"
	WorkerStatusError   WorkerStatus = "error"
)

// Valid reports whether the status is one of the known values.
func (s WorkerStatus) Valid() bool {
	switch s {
	case WorkerStatusRunning, WorkerStatusStopped, WorkerStatusError:
		return true
	}
	return false
}

// Heartbeat is a single worker's liveness row, upserted by the worker itself
// and read-only for observers.
type Heartbeat struct {
	WorkerID   uuid.UUID    `json:"worker_id"`
	WorkerType string       `json:"worker_type"`
	Hostname   string       `json:"hostname"`
	Status     WorkerStatus `json:"status"`
	LastSeenAt time.Time    `json:"last_seen_at"`
}

// TypeHealth is the derived online/offline view for one worker type.
type TypeHealth struct {
	WorkerType string    `json:"worker_type"`
	Online     bool      `json:"online"`
	Workers    int       `json:"workers"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Repository defines the storage interface for heartbeats
type Repository interface {
	// Upsert overwrites the row for the heartbeat's worker id,
	// bumping last_seen_at
	Upsert(ctx context.Context, hb *Heartbeat) error

	// List returns all heartbeat rows. Read-only.
	List(ctx context.Context) ([]Heartbeat, error)
}

// Registry records worker heartbeats and derives health views.
type Registry struct {
	repo Repository
}

// NewRegistry creates a heartbeat registry over a repository.
func NewRegistry(repo Repository) (*Registry, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	return &Registry{repo: repo}, nil
}

// Beat upserts the worker's liveness row. Idempotent and side-effect-free
// beyond the single row.
func (r *Registry) Beat(ctx context.Context, workerID uuid.UUID, workerType, hostname string, status WorkerStatus) error {
	if workerID == uuid.Nil {
		return ErrWorkerIDRequired
	}
	if workerType == "" {
		return ErrWorkerTypeRequired
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	return r.repo.Upsert(ctx, &Heartbeat{
		WorkerID:   workerID,
		WorkerType: workerType,
		Hostname:   hostname,
		Status:     status,
		LastSeenAt: time.Now(),
	})
}

// Snapshot derives per-type health: a worker type is online if at least one
// of its workers reported within the liveness window.
func (r *Registry) Snapshot(ctx context.Context, window time.Duration) ([]TypeHealth, error) {
	rows, err := r.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list heartbeats: %w", err)
	}

	cutoff := time.Now().Add(-window)
	byType := make(map[string]*TypeHealth)
	order := make([]string, 0)

	for _, hb := range rows {
		th, ok := byType[hb.WorkerType]
		if !ok {
			th = &TypeHealth{WorkerType: hb.WorkerType}
			byType[hb.WorkerType] = th
			order = append(order, hb.WorkerType)
		}
		th.Workers++
		if hb.LastSeenAt.After(cutoff) && hb.Status == WorkerStatusRunning {
			th.Online = true
		}
		if hb.LastSeenAt.After(th.LastSeenAt) {
			th.LastSeenAt = hb.LastSeenAt
		}
	}

	health := make([]TypeHealth, 0, len(order))
	for _, wt := range order {
		health = append(health, *byType[wt])
	}
	return health, nil
}

// Online reports whether any worker of the given type is live within the
// window.
func (r *Registry) Online(ctx context.Context, workerType string, window time.Duration) (bool, error) {
	health, err := r.Snapshot(ctx, window)
	if err != nil {
		return false, err
	}
	for _, th := range health {
		if th.WorkerType == workerType {
			return th.Online, nil
		}
	}
	return false, nil
}
