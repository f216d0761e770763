package batch

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an ingest batch.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Outcome is the durable record of one ingest batch. One row exists per
// distinct file content; counters are written once when ingest finishes.
type Outcome struct {
	ID                    uuid.UUID
	Source                string
	FileHash              string
	Status                Status
	RowsTotal             int
	RowsValid             int
	RowsInvalid           int
	RowsDuplicate         int
	ErrorThresholdPercent float64
	RejectionReason       *string
	StartedAt             time.Time
	CompletedAt           *time.Time
}

// Row is a single validated judgment record from an ingest file.
type Row struct {
	CaseNumber   string
	DebtorName   string
	AmountCents  int64
	JudgmentDate time.Time
}
