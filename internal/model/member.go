package model

import "time"

// Member is a participant of a dialog, collected by an explicit collection
// job. PhoneNumber is only populated when the external source discloses it,
// i.e. the subject is a contact of the authenticated account.
type Member struct {
	ID          string    `db:"id" json:"id"`
	TelegramID  int64     `db:"telegram_id" json:"telegramId,string"`
	Username    *string   `db:"username" json:"username,omitempty"`
	FirstName   *string   `db:"first_name" json:"firstName,omitempty"`
	LastName    *string   `db:"last_name" json:"lastName,omitempty"`
	PhoneNumber *string   `db:"phone_number" json:"phoneNumber,omitempty"`
	IsContact   bool      `db:"is_contact" json:"isContact"`
	IsBot       bool      `db:"is_bot" json:"isBot"`
	IsDeleted   bool      `db:"is_deleted" json:"isDeleted"`
	DialogID    string    `db:"dialog_id" json:"dialogId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// MemberExportRow is a member joined with its dialog's display fields, as
// selected for export generation.
type MemberExportRow struct {
	Member
	DialogTitle *string `db:"dialog_title" json:"dialogTitle,omitempty"`
	DialogType  *string `db:"dialog_type" json:"dialogType,omitempty"`
}

type UpsertMemberParams struct {
	TelegramID  int64
	Username    *string
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	IsContact   bool
	IsBot       bool
	DialogID    string
}
