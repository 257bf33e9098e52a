package model

import "time"

// Contact mirrors Member but is scoped to a session's contact list rather
// than a dialog.
type Contact struct {
	ID          string    `db:"id" json:"id"`
	TelegramID  int64     `db:"telegram_id" json:"telegramId,string"`
	Username    *string   `db:"username" json:"username,omitempty"`
	FirstName   *string   `db:"first_name" json:"firstName,omitempty"`
	LastName    *string   `db:"last_name" json:"lastName,omitempty"`
	PhoneNumber *string   `db:"phone_number" json:"phoneNumber,omitempty"`
	SessionID   string    `db:"session_id" json:"sessionId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type UpsertContactParams struct {
	TelegramID  int64
	Username    *string
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	SessionID   string
}
