package model

import (
	"encoding/json"
	"time"
)

// Job is the persisted lifecycle record of a unit of tracked work. It mirrors
// the queue's own bookkeeping but is the durable source of truth for the UI
// and for audit.
type Job struct {
	ID          string           `db:"id" json:"id"`
	Type        JobType          `db:"type" json:"type"`
	Status      JobStatus        `db:"status" json:"status"`
	Payload     *json.RawMessage `db:"payload" json:"payload,omitempty"`
	Result      *json.RawMessage `db:"result" json:"result,omitempty"`
	Error       *string          `db:"error" json:"error,omitempty"`
	SessionID   *string          `db:"session_id" json:"sessionId,omitempty"`
	DialogID    *string          `db:"dialog_id" json:"dialogId,omitempty"`
	StartedAt   *time.Time       `db:"started_at" json:"startedAt,omitempty"`
	FinishedAt  *time.Time       `db:"finished_at" json:"finishedAt,omitempty"`
	CreatedByID string           `db:"created_by_id" json:"createdById"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updatedAt"`
}

type CreateJobParams struct {
	Type        JobType
	Status      JobStatus
	Payload     *json.RawMessage
	Result      *json.RawMessage
	Error       *string
	SessionID   *string
	DialogID    *string
	CreatedByID string
}

// JobWithRelations adds the display fields of the associated dialog and
// session to a job row for listing.
type JobWithRelations struct {
	Job
	DialogTitle  *string `db:"dialog_title" json:"dialogTitle,omitempty"`
	SessionLabel *string `db:"session_label" json:"sessionLabel,omitempty"`
}
