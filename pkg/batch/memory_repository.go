package batch

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and local development.
type MemoryRepository struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*Outcome
	byHash map[string]uuid.UUID
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[uuid.UUID]*Outcome),
		byHash: make(map[string]uuid.UUID),
	}
}

func (r *MemoryRepository) CreateOutcome(_ context.Context, outcome *Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byHash[outcome.FileHash]; exists {
		return ErrDuplicateBatch
	}

	stored := *outcome
	r.byID[outcome.ID] = &stored
	r.byHash[outcome.FileHash] = outcome.ID
	return nil
}

func (r *MemoryRepository) UpdateOutcome(_ context.Context, outcome *Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[outcome.ID]; !exists {
		return ErrOutcomeNotFound
	}

	stored := *outcome
	r.byID[outcome.ID] = &stored
	return nil
}

func (r *MemoryRepository) GetOutcome(_ context.Context, id uuid.UUID) (*Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	outcome, exists := r.byID[id]
	if !exists {
		return nil, ErrOutcomeNotFound
	}

	copied := *outcome
	return &copied, nil
}

func (r *MemoryRepository) ListOutcomes(_ context.Context, limit int) ([]*Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	outcomes := make([]*Outcome, 0, len(r.byID))
	for _, outcome := range r.byID {
		copied := *outcome
		outcomes = append(outcomes, &copied)
	}
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].StartedAt.After(outcomes[j].StartedAt)
	})

	if limit > 0 && len(outcomes) > limit {
		outcomes = outcomes[:limit]
	}
	return outcomes, nil
}
