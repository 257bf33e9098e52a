package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/telegram-manager/manager-server-go/internal/model"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.TelegramSession, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.TelegramSession, error)
	Create(ctx context.Context, params model.CreateSessionParams) (*model.TelegramSession, error)
	UpdateStatus(ctx context.Context, id string, status model.SessionStatus) error
	Delete(ctx context.Context, id string) error
}

type sessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.TelegramSession, error) {
	var session model.TelegramSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM telegram_sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.TelegramSession, error) {
	sessions := []model.TelegramSession{}
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM telegram_sessions
		WHERE created_by_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.TelegramSession, error) {
	var session model.TelegramSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO telegram_sessions (type, label, phone_number, api_id, api_hash, created_by_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.Type, params.Label, params.PhoneNumber, params.APIID, params.APIHash, params.CreatedByID)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) UpdateStatus(ctx context.Context, id string, status model.SessionStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE telegram_sessions SET
			status = $2,
			updated_at = $3
		WHERE id = $1
	`, id, status, time.Now())
	return err
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM telegram_sessions WHERE id = $1
	`, id)
	return err
}
