package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/telegram-manager/manager-server-go/internal/model"
)

// JobFilter is the correlation key the workers use to address a job record.
// It matches by type plus the domain ids the worker knows, not by the row's
// generated id: if two jobs with the same type/dialog/owner triple are in
// flight at once, a transition can land on the other run's row.
type JobFilter struct {
	Type      model.JobType
	SessionID *string
	DialogID  *string
	// ExportID correlates EXPORT_DATA records through the payload, since
	// export jobs carry no session or dialog column.
	ExportID    *string
	CreatedByID string
}

// JobTransition carries the fields a status change may set alongside the
// status itself.
type JobTransition struct {
	Result     *json.RawMessage
	Error      *string
	StartedAt  *time.Time
	FinishedAt *time.Time
}

type JobRepository interface {
	Create(ctx context.Context, params model.CreateJobParams) (*model.Job, error)
	// Transition updates the status (and any extra fields) of the records
	// matching filter. Records already in a terminal state are never touched,
	// so PENDING→RUNNING→{COMPLETED,FAILED} ordering holds even when the
	// filter over-matches. Returns the number of rows updated.
	Transition(ctx context.Context, filter JobFilter, status model.JobStatus, extra JobTransition) (int64, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.JobWithRelations, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

type jobRepo struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) JobRepository {
	return &jobRepo{db: db}
}

func (r *jobRepo) Create(ctx context.Context, params model.CreateJobParams) (*model.Job, error) {
	status := params.Status
	if status == "" {
		status = model.JobStatusPending
	}

	var job model.Job
	err := r.db.GetContext(ctx, &job, `
		INSERT INTO jobs (type, status, payload, result, error, session_id, dialog_id, created_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *
	`, params.Type, status, params.Payload, params.Result, params.Error,
		params.SessionID, params.DialogID, params.CreatedByID)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) Transition(ctx context.Context, filter JobFilter, status model.JobStatus, extra JobTransition) (int64, error) {
	query, args := buildTransitionQuery(filter, status, extra)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// buildTransitionQuery assembles the filter-based status update. Separate from
// the repository method so the generated SQL is testable without a database.
func buildTransitionQuery(filter JobFilter, status model.JobStatus, extra JobTransition) (string, []any) {
	sets := []string{"status = $1", "updated_at = NOW()"}
	args := []any{status}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if extra.Result != nil {
		sets = append(sets, "result = "+arg(extra.Result))
	}
	if extra.Error != nil {
		sets = append(sets, "error = "+arg(extra.Error))
	}
	if extra.StartedAt != nil {
		sets = append(sets, "started_at = "+arg(extra.StartedAt))
	}
	if extra.FinishedAt != nil {
		sets = append(sets, "finished_at = "+arg(extra.FinishedAt))
	}

	conditions := []string{
		"type = " + arg(filter.Type),
		"created_by_id = " + arg(filter.CreatedByID),
		"status NOT IN ('COMPLETED', 'FAILED', 'CANCELLED')",
	}
	if filter.SessionID != nil {
		conditions = append(conditions, "session_id = "+arg(*filter.SessionID))
	}
	if filter.DialogID != nil {
		conditions = append(conditions, "dialog_id = "+arg(*filter.DialogID))
	}
	if filter.ExportID != nil {
		conditions = append(conditions, "payload->>'exportId' = "+arg(*filter.ExportID))
	}

	query := fmt.Sprintf(
		"UPDATE jobs SET %s WHERE %s",
		strings.Join(sets, ", "),
		strings.Join(conditions, " AND "),
	)
	return query, args
}

func (r *jobRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.JobWithRelations, error) {
	jobs := []model.JobWithRelations{}
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT j.*,
			d.title AS dialog_title,
			s.label AS session_label
		FROM jobs j
		LEFT JOIN dialogs d ON d.id = j.dialog_id
		LEFT JOIN telegram_sessions s ON s.id = j.session_id
		WHERE j.created_by_id = $1
		ORDER BY j.created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM jobs WHERE created_by_id = $1
	`, ownerID)
	return count, err
}
