package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/telegram-manager/manager-server-go/internal/model"
)

type ExportRepository interface {
	FindByID(ctx context.Context, id string) (*model.Export, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Export, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	Create(ctx context.Context, params model.CreateExportParams) (*model.Export, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, fileURL string, fileSize int64) error
	MarkFailed(ctx context.Context, id string) error
	// FindExpired returns COMPLETED exports whose retention window has passed.
	FindExpired(ctx context.Context, now time.Time) ([]model.Export, error)
	MarkExpired(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type exportRepo struct {
	db *sqlx.DB
}

func NewExportRepository(db *sqlx.DB) ExportRepository {
	return &exportRepo{db: db}
}

func (r *exportRepo) FindByID(ctx context.Context, id string) (*model.Export, error) {
	var export model.Export
	err := r.db.GetContext(ctx, &export, `
		SELECT * FROM exports WHERE id = $1
	`, id)
	return HandleNotFound(&export, err)
}

func (r *exportRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Export, error) {
	exports := []model.Export{}
	err := r.db.SelectContext(ctx, &exports, `
		SELECT * FROM exports
		WHERE created_by_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return exports, nil
}

func (r *exportRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM exports WHERE created_by_id = $1
	`, ownerID)
	return count, err
}

func (r *exportRepo) Create(ctx context.Context, params model.CreateExportParams) (*model.Export, error) {
	var export model.Export
	err := r.db.GetContext(ctx, &export, `
		INSERT INTO exports (name, description, filters, format, expires_at, created_by_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.Name, params.Description, params.Filters, params.Format,
		params.ExpiresAt, params.CreatedByID)
	if err != nil {
		return nil, err
	}
	return &export, nil
}

func (r *exportRepo) MarkProcessing(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exports SET status = 'PROCESSING', updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`, id)
	return err
}

func (r *exportRepo) MarkCompleted(ctx context.Context, id string, fileURL string, fileSize int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exports SET
			status = 'COMPLETED',
			file_url = $2,
			file_size = $3,
			updated_at = NOW()
		WHERE id = $1
	`, id, fileURL, fileSize)
	return err
}

func (r *exportRepo) MarkFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exports SET status = 'FAILED', updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

func (r *exportRepo) FindExpired(ctx context.Context, now time.Time) ([]model.Export, error) {
	exports := []model.Export{}
	err := r.db.SelectContext(ctx, &exports, `
		SELECT * FROM exports
		WHERE status = 'COMPLETED' AND expires_at < $1
	`, now)
	if err != nil {
		return nil, err
	}
	return exports, nil
}

func (r *exportRepo) MarkExpired(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exports SET status = 'EXPIRED', updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

func (r *exportRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM exports WHERE id = $1
	`, id)
	return err
}
