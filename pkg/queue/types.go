package queue

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies a job lane. The set of valid kinds is a deploy-time
// constant: producers and workers must never diverge on supported kinds, so
// adding one is a code change, not a runtime toggle.
type Kind string

const (
	KindEnrich           Kind = "enrich"
	KindScore            Kind = "score"
	KindOutreach         Kind = "outreach"
	KindEnforce          Kind = "enforce"
	KindGenerateDocument Kind = "generate_document"
)

// kindRegistry is the single source of truth for valid kinds, shared by the
// submit and receive paths. Keeping one registry (instead of per-path string
// lists) prevents the two paths from drifting apart.
var kindRegistry = map[Kind]struct{}{
	KindEnrich:           {},
	KindScore:            {},
	KindOutreach:         {},
	KindEnforce:          {},
	KindGenerateDocument: {},
}

// Valid reports whether the kind is registered.
func (k Kind) Valid() bool {
	_, ok := kindRegistry[k]
	return ok
}

func (k Kind) String() string { return string(k) }

// Kinds returns all registered kinds in stable order.
func Kinds() []Kind {
	return []Kind{KindEnrich, KindScore, KindOutreach, KindEnforce, KindGenerateDocument}
}

// DeriveKey builds a deterministic idempotency key from the triggering
// entity, e.g. DeriveKey(KindScore, "case", "42") -> "score:case:42".
// Deterministic derivation is the point: re-enqueues of the same logical
// event collide intentionally at the consumer, so never append random
// suffixes to the result.
func DeriveKey(kind Kind, parts ...string) string {
	return string(kind) + ":" + strings.Join(parts, ":")
}

// MessageStatus represents the lifecycle state of a queued message.
type MessageStatus string

const (
	MessageStatusPending    MessageStatus = "pending"
	MessageStatusProcessing MessageStatus = "processing"
	MessageStatusCompleted  MessageStatus = "completed"
	MessageStatusFailed     MessageStatus = "failed"
)

// DefaultMaxAttempts bounds lease acquisitions before a message is
// dead-lettered.
const DefaultMaxAttempts = 3

// Message is a durable queue record. A message is visible to lease
// acquisition iff Status is pending and VisibleAt is not in the future.
type Message struct {
	ID             uuid.UUID       `json:"id"`
	Kind           Kind            `json:"kind"`
	IdempotencyKey string          `json:"idempotency_key"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Status         MessageStatus   `json:"status"`
	Attempts       int             `json:"attempts"`
	MaxAttempts    int             `json:"max_attempts"`
	VisibleAt      time.Time       `json:"visible_at"`
	EnqueuedAt     time.Time       `json:"enqueued_at"`
	LockedAt       *time.Time      `json:"locked_at,omitempty"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
	LastError      *string         `json:"last_error,omitempty"`
}

// Envelope is the uniform shape a leased message is handed to consumers in.
// The payload is forwarded untouched.
type Envelope struct {
	MessageID      uuid.UUID       `json:"message_id"`
	Kind           Kind            `json:"kind"`
	IdempotencyKey string          `json:"idempotency_key"`
	Attempts       int             `json:"attempts"`
	EnqueuedAt     time.Time       `json:"enqueued_at"`
	LeaseExpiresAt time.Time       `json:"lease_expires_at"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// envelopeFromMessage normalizes a freshly leased message.
func envelopeFromMessage(m *Message) *Envelope {
	return &Envelope{
		MessageID:      m.ID,
		Kind:           m.Kind,
		IdempotencyKey: m.IdempotencyKey,
		Attempts:       m.Attempts,
		EnqueuedAt:     m.EnqueuedAt,
		LeaseExpiresAt: m.VisibleAt,
		Payload:        m.Payload,
	}
}
