package model

import "time"

// TelegramSession is the persisted metadata of a registered account. The live
// external-client handle is held only in the telegram.Registry, keyed by the
// session id; it is never stored.
type TelegramSession struct {
	ID          string        `db:"id" json:"id"`
	Type        SessionType   `db:"type" json:"type"`
	Label       string        `db:"label" json:"label"`
	PhoneNumber *string       `db:"phone_number" json:"phoneNumber,omitempty"`
	APIID       *string       `db:"api_id" json:"-"`
	APIHash     *string       `db:"api_hash" json:"-"`
	Status      SessionStatus `db:"status" json:"status"`
	CreatedByID string        `db:"created_by_id" json:"createdById"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}

type CreateSessionParams struct {
	Type        SessionType
	Label       string
	PhoneNumber *string
	APIID       *string
	APIHash     *string
	CreatedByID string
}
