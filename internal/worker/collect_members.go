// Package worker holds the queue handlers: consumers of collect-members and
// export-data jobs. Each handler mirrors its progress into the job record
// store and re-raises failures so the queue's retry policy applies.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/telegram-manager/manager-server-go/internal/config"
	"github.com/telegram-manager/manager-server-go/internal/model"
	"github.com/telegram-manager/manager-server-go/internal/repository"
	"github.com/telegram-manager/manager-server-go/internal/telegram"
)

// MemberSource is the slice of the session registry the collection worker
// consumes.
type MemberSource interface {
	GetChatMembers(ctx context.Context, sessionID string, chatID int64, limit int) ([]telegram.User, error)
}

type CollectMembersWorker struct {
	memberRepo repository.MemberRepository
	jobRepo    repository.JobRepository
	source     MemberSource
}

func NewCollectMembersWorker(
	memberRepo repository.MemberRepository,
	jobRepo repository.JobRepository,
	source MemberSource,
) *CollectMembersWorker {
	return &CollectMembersWorker{
		memberRepo: memberRepo,
		jobRepo:    jobRepo,
		source:     source,
	}
}

// Handle consumes one collect-members delivery. Upserting by telegram id
// makes re-delivery safe: repeated runs converge to the same member set.
func (w *CollectMembersWorker) Handle(ctx context.Context, payload json.RawMessage) error {
	var job model.CollectMembersJobPayload
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("decode collect-members payload: %w", err)
	}

	log.Info().
		Str("dialogId", job.DialogID).
		Str("dialogTitle", job.DialogTitle).
		Int64("telegramDialogId", job.TelegramDialogID).
		Msg("starting member collection")

	filter := repository.JobFilter{
		Type:        model.JobTypeCollectMembers,
		DialogID:    &job.DialogID,
		CreatedByID: job.UserID,
	}

	now := time.Now()
	if _, err := w.jobRepo.Transition(ctx, filter, model.JobStatusRunning, repository.JobTransition{
		StartedAt: &now,
	}); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	members, err := w.source.GetChatMembers(ctx, job.SessionID, job.TelegramDialogID, config.DefaultChatMemberLimit)
	if err != nil {
		w.fail(ctx, filter, err)
		return err
	}

	saved := 0
	for _, member := range members {
		if _, err := w.memberRepo.Upsert(ctx, model.UpsertMemberParams{
			TelegramID:  member.ID,
			Username:    optional(member.Username),
			FirstName:   optional(member.FirstName),
			LastName:    optional(member.LastName),
			PhoneNumber: optional(member.PhoneNumber),
			IsContact:   member.IsContact,
			IsBot:       member.IsBot,
			DialogID:    job.DialogID,
		}); err != nil {
			wrapped := fmt.Errorf("upsert member %d: %w", member.ID, err)
			w.fail(ctx, filter, wrapped)
			return wrapped
		}
		saved++
	}

	result := json.RawMessage(fmt.Sprintf(`{"count":%d}`, saved))
	finished := time.Now()
	if _, err := w.jobRepo.Transition(ctx, filter, model.JobStatusCompleted, repository.JobTransition{
		Result:     &result,
		FinishedAt: &finished,
	}); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}

	log.Info().Int("count", saved).Str("dialogId", job.DialogID).Msg("member collection completed")
	return nil
}

func (w *CollectMembersWorker) fail(ctx context.Context, filter repository.JobFilter, cause error) {
	message := cause.Error()
	finished := time.Now()
	if _, err := w.jobRepo.Transition(ctx, filter, model.JobStatusFailed, repository.JobTransition{
		Error:      &message,
		FinishedAt: &finished,
	}); err != nil {
		log.Error().Err(err).Msg("failed to mark job failed")
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
