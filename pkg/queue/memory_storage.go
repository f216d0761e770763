package queue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements RouterRepository and ReaperRepository for testing
// and local development. All state transitions happen under a single mutex,
// which gives the same atomicity the Postgres implementation gets from
// skip-locked row claims.
type MemoryStorage struct {
	mu       sync.RWMutex
	messages map[uuid.UUID]*Message

	// Indexes for efficient scans
	byKind   map[Kind][]uuid.UUID
	byStatus map[MessageStatus][]uuid.UUID
}

// NewMemoryStorage creates a new in-memory queue store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		messages: make(map[uuid.UUID]*Message),
		byKind:   make(map[Kind][]uuid.UUID),
		byStatus: make(map[MessageStatus][]uuid.UUID),
	}
}

// CreateMessage implements RouterRepository
func (ms *MemoryStorage) CreateMessage(ctx context.Context, msg *Message) error {
	if msg == nil {
		return errors.New("message cannot be nil")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.messages[msg.ID]; exists {
		return fmt.Errorf("message with ID %s already exists", msg.ID)
	}

	// Clone to prevent external modifications
	msgCopy := *msg
	ms.messages[msg.ID] = &msgCopy

	ms.byKind[msg.Kind] = append(ms.byKind[msg.Kind], msg.ID)
	ms.byStatus[msg.Status] = append(ms.byStatus[msg.Status], msg.ID)

	return nil
}

// LeaseOne implements RouterRepository. Eligible messages are served in
// arrival order, best-effort: the earliest EnqueuedAt among pending messages
// whose visibility deadline has passed.
func (ms *MemoryStorage) LeaseOne(ctx context.Context, kind Kind, leaseFor time.Duration) (*Message, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var best *Message

	for _, id := range ms.byStatus[MessageStatusPending] {
		msg := ms.messages[id]
		if msg.Kind != kind {
			continue
		}
		if msg.VisibleAt.After(now) {
			continue
		}
		if best == nil || msg.EnqueuedAt.Before(best.EnqueuedAt) {
			best = msg
		}
	}

	if best == nil {
		return nil, ErrNoMessageToLease
	}

	best.Status = MessageStatusProcessing
	best.VisibleAt = now.Add(leaseFor)
	lockedAt := now
	best.LockedAt = &lockedAt
	best.UpdatedAt = now

	ms.removeFromStatusIndex(best.ID, MessageStatusPending)
	ms.byStatus[MessageStatusProcessing] = append(ms.byStatus[MessageStatusProcessing], best.ID)

	msgCopy := *best
	return &msgCopy, nil
}

// AckMessage implements RouterRepository. Acking an unknown or already-acked
// message is a no-op: redelivery means a worker may legitimately ack twice.
func (ms *MemoryStorage) AckMessage(ctx context.Context, kind Kind, messageID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	msg, exists := ms.messages[messageID]
	if !exists || msg.Kind != kind {
		return nil
	}
	if msg.Status == MessageStatusCompleted {
		return nil
	}

	now := time.Now()
	prev := msg.Status
	msg.Status = MessageStatusCompleted
	msg.ProcessedAt = &now
	msg.LockedAt = nil
	msg.UpdatedAt = now

	ms.removeFromStatusIndex(messageID, prev)
	ms.byStatus[MessageStatusCompleted] = append(ms.byStatus[MessageStatusCompleted], messageID)

	return nil
}

// ReapExpired implements ReaperRepository. Messages still in processing whose
// lock is older than timeout are returned to pending with an incremented
// attempt counter and a backoff-adjusted visibility, or dead-lettered once
// the attempt budget is spent.
func (ms *MemoryStorage) ReapExpired(ctx context.Context, timeout time.Duration, policy RetryPolicy) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	reaped := 0

	for _, id := range slices.Clone(ms.byStatus[MessageStatusProcessing]) {
		msg := ms.messages[id]
		if msg.LockedAt == nil || now.Sub(*msg.LockedAt) < timeout {
			continue
		}

		msg.Attempts++
		msg.LockedAt = nil
		msg.UpdatedAt = now
		ms.removeFromStatusIndex(id, MessageStatusProcessing)

		if msg.Attempts >= msg.MaxAttempts {
			msg.Status = MessageStatusFailed
			errMsg := ErrMaxAttemptsExceeded.Error()
			msg.LastError = &errMsg
			ms.byStatus[MessageStatusFailed] = append(ms.byStatus[MessageStatusFailed], id)
		} else {
			msg.Status = MessageStatusPending
			msg.VisibleAt = now.Add(policy.Backoff(msg.Attempts))
			ms.byStatus[MessageStatusPending] = append(ms.byStatus[MessageStatusPending], id)
		}

		reaped++
	}

	return reaped, nil
}

// CountStuck implements ReaperRepository: processing messages whose lease
// already expired. Read-only.
func (ms *MemoryStorage) CountStuck(ctx context.Context) (int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	now := time.Now()
	count := 0
	for _, id := range ms.byStatus[MessageStatusProcessing] {
		if msg := ms.messages[id]; !msg.VisibleAt.After(now) {
			count++
		}
	}
	return count, nil
}

// CountFailedSince implements ReaperRepository: dead-lettered messages that
// failed after the given instant. Read-only.
func (ms *MemoryStorage) CountFailedSince(ctx context.Context, since time.Time) (int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	count := 0
	for _, id := range ms.byStatus[MessageStatusFailed] {
		if msg := ms.messages[id]; msg.UpdatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

// GetMessage returns a copy of a stored message, or nil if unknown. Intended
// for dead-letter triage and tests.
func (ms *MemoryStorage) GetMessage(messageID uuid.UUID) *Message {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	msg, exists := ms.messages[messageID]
	if !exists {
		return nil
	}
	msgCopy := *msg
	return &msgCopy
}

func (ms *MemoryStorage) removeFromStatusIndex(messageID uuid.UUID, status MessageStatus) {
	ms.byStatus[status] = slices.DeleteFunc(ms.byStatus[status], func(id uuid.UUID) bool {
		return id == messageID
	})
}
