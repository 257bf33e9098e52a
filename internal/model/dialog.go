package model

import "time"

// Dialog is a chat, group, supergroup or channel known to a session. The
// external telegram id is the upsert key; rows are never deleted by the sync
// path. TelegramID serializes as a JSON string so the full 64-bit value
// survives JavaScript clients.
type Dialog struct {
	ID          string     `db:"id" json:"id"`
	TelegramID  int64      `db:"telegram_id" json:"telegramId,string"`
	Type        DialogType `db:"type" json:"type"`
	Title       string     `db:"title" json:"title"`
	Username    *string    `db:"username" json:"username,omitempty"`
	MemberCount *int       `db:"member_count" json:"memberCount,omitempty"`
	LastSyncAt  *time.Time `db:"last_sync_at" json:"lastSyncAt,omitempty"`
	SessionID   string     `db:"session_id" json:"sessionId"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

type UpsertDialogParams struct {
	TelegramID  int64
	Type        DialogType
	Title       string
	Username    *string
	MemberCount *int
	SessionID   string
}
