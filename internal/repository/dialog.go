package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/telegram-manager/manager-server-go/internal/model"
)

type DialogRepository interface {
	FindByID(ctx context.Context, id string) (*model.Dialog, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.Dialog, error)
	// Upsert inserts or updates a dialog keyed by its external telegram id.
	// The sync path never deletes rows.
	Upsert(ctx context.Context, params model.UpsertDialogParams) (*model.Dialog, error)
}

type dialogRepo struct {
	db *sqlx.DB
}

func NewDialogRepository(db *sqlx.DB) DialogRepository {
	return &dialogRepo{db: db}
}

func (r *dialogRepo) FindByID(ctx context.Context, id string) (*model.Dialog, error) {
	var dialog model.Dialog
	err := r.db.GetContext(ctx, &dialog, `
		SELECT * FROM dialogs WHERE id = $1
	`, id)
	return HandleNotFound(&dialog, err)
}

func (r *dialogRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Dialog, error) {
	dialogs := []model.Dialog{}
	err := r.db.SelectContext(ctx, &dialogs, `
		SELECT * FROM dialogs
		WHERE session_id = $1
		ORDER BY updated_at DESC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	return dialogs, nil
}

func (r *dialogRepo) Upsert(ctx context.Context, params model.UpsertDialogParams) (*model.Dialog, error) {
	var dialog model.Dialog
	err := r.db.GetContext(ctx, &dialog, `
		INSERT INTO dialogs (telegram_id, type, title, username, member_count, last_sync_at, session_id)
		VALUES ($1, $2, $3, $4, $5, NOW(), $6)
		ON CONFLICT (telegram_id) DO UPDATE SET
			title        = EXCLUDED.title,
			username     = EXCLUDED.username,
			member_count = EXCLUDED.member_count,
			last_sync_at = NOW(),
			updated_at   = NOW()
		RETURNING *
	`, params.TelegramID, params.Type, params.Title, params.Username, params.MemberCount, params.SessionID)
	if err != nil {
		return nil, err
	}
	return &dialog, nil
}
