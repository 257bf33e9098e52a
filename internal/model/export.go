package model

import (
	"encoding/json"
	"time"
)

type Export struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description *string         `db:"description" json:"description,omitempty"`
	Filters     json.RawMessage `db:"filters" json:"filters"`
	Format      ExportFormat    `db:"format" json:"format"`
	Status      ExportStatus    `db:"status" json:"status"`
	FileURL     *string         `db:"file_url" json:"fileUrl,omitempty"`
	FileSize    *int64          `db:"file_size" json:"fileSize,omitempty"`
	ExpiresAt   time.Time       `db:"expires_at" json:"expiresAt"`
	CreatedByID string          `db:"created_by_id" json:"createdById"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

type CreateExportParams struct {
	Name        string
	Description *string
	Filters     json.RawMessage
	Format      ExportFormat
	ExpiresAt   time.Time
	CreatedByID string
}

// ExportFilters is the structured query spec a user attaches to an export.
// DialogIDs are local dialog row ids, not telegram ids.
type ExportFilters struct {
	DialogIDs     []string         `json:"dialogIds,omitempty"`
	IncludePhones bool             `json:"includePhones,omitempty"`
	OnlyContacts  bool             `json:"onlyContacts,omitempty"`
	DateRange     *ExportDateRange `json:"dateRange,omitempty"`
	Search        string           `json:"search,omitempty"`
}

type ExportDateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}
