package heartbeat

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository implements Repository for testing and local development
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]Heartbeat
}

// NewMemoryRepository creates an in-memory heartbeat store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[uuid.UUID]Heartbeat)}
}

// Upsert implements Repository
func (mr *MemoryRepository) Upsert(ctx context.Context, hb *Heartbeat) error {
	if hb == nil {
		return errors.New("heartbeat cannot be nil")
	}

	mr.mu.Lock()
	defer mr.mu.Unlock()

	mr.rows[hb.WorkerID] = *hb
	return nil
}

// List implements Repository
func (mr *MemoryRepository) List(ctx context.Context) ([]Heartbeat, error) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	out := make([]Heartbeat, 0, len(mr.rows))
	for _, hb := range mr.rows {
		out = append(out, hb)
	}
	return out, nil
}
