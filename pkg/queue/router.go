package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RouterRepository defines the storage operations the router delegates to.
// Implementations must make LeaseOne an atomic single-row transition so that
// concurrent callers never double-lease the same message.
type RouterRepository interface {
	// CreateMessage persists a new pending message
	CreateMessage(ctx context.Context, msg *Message) error

	// LeaseOne atomically claims one eligible message of the given kind,
	// moving it to processing with the visibility deadline advanced by
	// leaseFor. Returns ErrNoMessageToLease when the queue is empty.
	LeaseOne(ctx context.Context, kind Kind, leaseFor time.Duration) (*Message, error)

	// AckMessage marks a message completed. Idempotent: acking an unknown
	// or already-acked id is a no-op, because redelivery means a worker may
	// legitimately ack twice.
	AckMessage(ctx context.Context, kind Kind, messageID uuid.UUID) error
}

// Router is the only externally callable entry point for enqueue and dequeue.
// It enforces the kind registry and the idempotency-key contract, and is
// otherwise stateless.
type Router struct {
	repo        RouterRepository
	leaseFor    time.Duration
	maxAttempts int
}

// NewRouter creates a Router on top of a queue store.
func NewRouter(repo RouterRepository, opts ...RouterOption) (*Router, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &routerOptions{
		leaseDuration:      30 * time.Second,
		defaultMaxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Router{
		repo:        repo,
		leaseFor:    options.leaseDuration,
		maxAttempts: options.defaultMaxAttempts,
	}, nil
}

// Submit validates and enqueues a job. Validation failures are rejected
// synchronously and never reach the store.
func (r *Router) Submit(ctx context.Context, kind Kind, idempotencyKey string, payload any, opts ...SubmitOption) (uuid.UUID, error) {
	if !kind.Valid() {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if idempotencyKey == "" {
		return uuid.Nil, ErrMissingIdempotencyKey
	}
	if payload == nil {
		return uuid.Nil, ErrPayloadNil
	}

	msg, err := r.buildMessage(kind, idempotencyKey, payload, opts...)
	if err != nil {
		return uuid.Nil, err
	}

	if err := r.repo.CreateMessage(ctx, msg); err != nil {
		return uuid.Nil, errors.Join(ErrMessageCreate, err)
	}

	return msg.ID, nil
}

// Receive leases one eligible message of the given kind and normalizes it
// into an Envelope. Returns (nil, nil) when the queue is empty: callers are
// expected to sleep and poll again rather than block.
func (r *Router) Receive(ctx context.Context, kind Kind) (*Envelope, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	msg, err := r.repo.LeaseOne(ctx, kind, r.leaseFor)
	if err != nil {
		if errors.Is(err, ErrNoMessageToLease) {
			return nil, nil
		}
		return nil, err
	}

	return envelopeFromMessage(msg), nil
}

// Ack acknowledges a processed message. Never fails on already-acked ids.
func (r *Router) Ack(ctx context.Context, kind Kind, messageID uuid.UUID) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return r.repo.AckMessage(ctx, kind, messageID)
}

// LeaseDuration reports the visibility timeout applied on Receive.
func (r *Router) LeaseDuration() time.Duration { return r.leaseFor }

// buildMessage wraps the caller payload with routing metadata.
func (r *Router) buildMessage(kind Kind, idempotencyKey string, payload any, opts ...SubmitOption) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload of type %T: %w", payload, err)
	}

	options := &submitOptions{
		maxAttempts: r.maxAttempts,
	}
	for _, opt := range opts {
		opt(options)
	}

	now := time.Now()
	visibleAt := now
	if options.delay > 0 {
		visibleAt = now.Add(options.delay)
	}

	return &Message{
		ID:             uuid.New(),
		Kind:           kind,
		IdempotencyKey: idempotencyKey,
		Payload:        payloadBytes,
		Status:         MessageStatusPending,
		Attempts:       0,
		MaxAttempts:    options.maxAttempts,
		VisibleAt:      visibleAt,
		EnqueuedAt:     now,
		UpdatedAt:      now,
	}, nil
}
