package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/telegram-manager/manager-server-go/internal/model"
)

type ContactRepository interface {
	Upsert(ctx context.Context, params model.UpsertContactParams) (*model.Contact, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.Contact, error)
}

type contactRepo struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) ContactRepository {
	return &contactRepo{db: db}
}

func (r *contactRepo) Upsert(ctx context.Context, params model.UpsertContactParams) (*model.Contact, error) {
	var contact model.Contact
	err := r.db.GetContext(ctx, &contact, `
		INSERT INTO contacts (telegram_id, username, first_name, last_name, phone_number, session_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username     = EXCLUDED.username,
			first_name   = EXCLUDED.first_name,
			last_name    = EXCLUDED.last_name,
			phone_number = EXCLUDED.phone_number,
			updated_at   = NOW()
		RETURNING *
	`, params.TelegramID, params.Username, params.FirstName, params.LastName,
		params.PhoneNumber, params.SessionID)
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *contactRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Contact, error) {
	contacts := []model.Contact{}
	err := r.db.SelectContext(ctx, &contacts, `
		SELECT * FROM contacts
		WHERE session_id = $1
		ORDER BY updated_at DESC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	return contacts, nil
}
