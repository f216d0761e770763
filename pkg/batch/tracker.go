package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/docket/pkg/queue"
)

// Repository persists batch outcomes. CreateOutcome must enforce uniqueness
// of FileHash and return ErrDuplicateBatch on conflict.
type Repository interface {
	CreateOutcome(ctx context.Context, outcome *Outcome) error
	UpdateOutcome(ctx context.Context, outcome *Outcome) error
	GetOutcome(ctx context.Context, id uuid.UUID) (*Outcome, error)
	ListOutcomes(ctx context.Context, limit int) ([]*Outcome, error)
}

// Submitter enqueues one message per admitted row. *queue.Router satisfies it.
type Submitter interface {
	Submit(ctx context.Context, kind queue.Kind, idempotencyKey string, payload any, opts ...queue.SubmitOption) (uuid.UUID, error)
}

// ScorePayload is the message body enqueued for each admitted judgment row.
type ScorePayload struct {
	CaseNumber   string    `json:"case_number"`
	DebtorName   string    `json:"debtor_name"`
	AmountCents  int64     `json:"amount_cents"`
	JudgmentDate time.Time `json:"judgment_date"`
}

// Tracker ingests judgment files, records their outcome, and feeds admitted
// rows to the queue.
type Tracker struct {
	repo      Repository
	submitter Submitter
	threshold float64
	log       *slog.Logger
}

// NewTracker creates a tracker over a repository and a queue submitter.
func NewTracker(repo Repository, submitter Submitter, opts ...TrackerOption) (*Tracker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	if submitter == nil {
		return nil, ErrRouterNil
	}

	options := &trackerOptions{
		threshold: DefaultErrorThresholdPercent,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Tracker{
		repo:      repo,
		submitter: submitter,
		threshold: options.threshold,
		log:       options.log,
	}, nil
}

// Ingest processes one uploaded file. The returned outcome reflects the final
// persisted state; on rejection it is returned alongside the sentinel error
// so callers can report counters to the uploader.
//
// Admission is all-or-nothing: a rejected batch enqueues zero messages.
func (t *Tracker) Ingest(ctx context.Context, source string, data []byte) (*Outcome, error) {
	if source == "" {
		return nil, ErrSourceRequired
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	hash := sha256.Sum256(data)

	outcome := &Outcome{
		ID:                    uuid.New(),
		Source:                source,
		FileHash:              hex.EncodeToString(hash[:]),
		Status:                StatusProcessing,
		ErrorThresholdPercent: t.threshold,
		StartedAt:             time.Now(),
	}

	// The hash claim is the idempotency barrier: losing the race to an
	// earlier upload of the same bytes means zero further work here.
	if err := t.repo.CreateOutcome(ctx, outcome); err != nil {
		return nil, err
	}

	rows, counts, err := parseRows(data)
	if err != nil {
		return t.fail(ctx, outcome, counts, fmt.Sprintf("unreadable file: %v", err), err)
	}

	outcome.RowsTotal = counts.total
	outcome.RowsInvalid = counts.invalid
	outcome.RowsDuplicate = counts.duplicate
	outcome.RowsValid = len(rows)

	if counts.total == 0 {
		return t.fail(ctx, outcome, counts, "file contains no data rows", ErrEmptyFile)
	}

	invalidPct := float64(counts.invalid) / float64(counts.total) * 100
	if invalidPct > t.threshold {
		reason := fmt.Sprintf("%.1f%% invalid rows exceed %.1f%% threshold", invalidPct, t.threshold)
		return t.fail(ctx, outcome, counts, reason, ErrBatchRejected)
	}

	for _, row := range rows {
		payload := ScorePayload{
			CaseNumber:   row.CaseNumber,
			DebtorName:   row.DebtorName,
			AmountCents:  row.AmountCents,
			JudgmentDate: row.JudgmentDate,
		}
		key := queue.DeriveKey(queue.KindScore, "case", row.CaseNumber)
		if _, err := t.submitter.Submit(ctx, queue.KindScore, key, payload); err != nil {
			reason := fmt.Sprintf("enqueue failed for case %s: %v", row.CaseNumber, err)
			return t.fail(ctx, outcome, counts, reason, err)
		}
	}

	now := time.Now()
	outcome.Status = StatusCompleted
	outcome.CompletedAt = &now
	if err := t.repo.UpdateOutcome(ctx, outcome); err != nil {
		return nil, fmt.Errorf("failed to finalize batch %s: %w", outcome.ID, err)
	}

	t.log.InfoContext(ctx, "batch ingested",
		slog.String("batch_id", outcome.ID.String()),
		slog.String("source", source),
		slog.Int("rows_total", counts.total),
		slog.Int("rows_valid", len(rows)),
		slog.Int("rows_invalid", counts.invalid),
		slog.Int("rows_duplicate", counts.duplicate),
	)

	return outcome, nil
}

func (t *Tracker) fail(ctx context.Context, outcome *Outcome, counts rowCounts, reason string, cause error) (*Outcome, error) {
	now := time.Now()
	outcome.Status = StatusFailed
	outcome.RowsTotal = counts.total
	outcome.RowsInvalid = counts.invalid
	outcome.RowsDuplicate = counts.duplicate
	outcome.RejectionReason = &reason
	outcome.CompletedAt = &now

	if err := t.repo.UpdateOutcome(ctx, outcome); err != nil {
		t.log.ErrorContext(ctx, "failed to record batch rejection",
			slog.String("batch_id", outcome.ID.String()),
			slog.Any("error", err),
		)
	}

	t.log.WarnContext(ctx, "batch rejected",
		slog.String("batch_id", outcome.ID.String()),
		slog.String("source", outcome.Source),
		slog.String("reason", reason),
	)

	return outcome, cause
}
