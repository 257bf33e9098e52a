package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/telegram-manager/manager-server-go/internal/model"
)

type MemberRepository interface {
	// Upsert inserts or updates a member keyed by its external telegram id.
	// Repeated collection runs against the same remote set converge to the
	// same rows.
	Upsert(ctx context.Context, params model.UpsertMemberParams) (*model.Member, error)
	ListByDialog(ctx context.Context, dialogID string, limit, offset int) ([]model.Member, error)
	CountByDialog(ctx context.Context, dialogID string) (int, error)
	FindForExport(ctx context.Context, filters model.ExportFilters) ([]model.MemberExportRow, error)
}

type memberRepo struct {
	db *sqlx.DB
}

func NewMemberRepository(db *sqlx.DB) MemberRepository {
	return &memberRepo{db: db}
}

func (r *memberRepo) Upsert(ctx context.Context, params model.UpsertMemberParams) (*model.Member, error) {
	var member model.Member
	err := r.db.GetContext(ctx, &member, `
		INSERT INTO members (telegram_id, username, first_name, last_name, phone_number, is_contact, is_bot, dialog_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username     = EXCLUDED.username,
			first_name   = EXCLUDED.first_name,
			last_name    = EXCLUDED.last_name,
			phone_number = EXCLUDED.phone_number,
			is_contact   = EXCLUDED.is_contact,
			is_bot       = EXCLUDED.is_bot,
			updated_at   = NOW()
		RETURNING *
	`, params.TelegramID, params.Username, params.FirstName, params.LastName,
		params.PhoneNumber, params.IsContact, params.IsBot, params.DialogID)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepo) ListByDialog(ctx context.Context, dialogID string, limit, offset int) ([]model.Member, error) {
	members := []model.Member{}
	err := r.db.SelectContext(ctx, &members, `
		SELECT * FROM members
		WHERE dialog_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`, dialogID, limit, offset)
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepo) CountByDialog(ctx context.Context, dialogID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM members WHERE dialog_id = $1
	`, dialogID)
	return count, err
}

func (r *memberRepo) FindForExport(ctx context.Context, filters model.ExportFilters) ([]model.MemberExportRow, error) {
	query, args := buildExportQuery(filters)
	rows := []model.MemberExportRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// buildExportQuery translates an export's filter spec into SQL. Kept separate
// from the repository method so filter translation is testable without a
// database.
func buildExportQuery(filters model.ExportFilters) (string, []any) {
	var conditions []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filters.DialogIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("m.dialog_id = ANY(%s)", arg(pq.Array(filters.DialogIDs))))
	}
	if filters.OnlyContacts {
		conditions = append(conditions, "m.is_contact = TRUE")
	}
	if filters.DateRange != nil {
		conditions = append(conditions, fmt.Sprintf("m.created_at >= %s", arg(filters.DateRange.From)))
		conditions = append(conditions, fmt.Sprintf("m.created_at <= %s", arg(filters.DateRange.To)))
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		conditions = append(conditions, fmt.Sprintf(
			"(m.first_name ILIKE %s OR m.last_name ILIKE %s OR m.username ILIKE %s)",
			arg(pattern), arg(pattern), arg(pattern)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT m.*, d.title AS dialog_title, d.type AS dialog_type
		FROM members m
		LEFT JOIN dialogs d ON d.id = m.dialog_id
		%s
		ORDER BY m.created_at DESC
	`, where)

	return query, args
}
