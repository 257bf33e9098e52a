package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/telegram-manager/manager-server-go/internal/config"
	apperrors "github.com/telegram-manager/manager-server-go/internal/errors"
	"github.com/telegram-manager/manager-server-go/internal/model"
	"github.com/telegram-manager/manager-server-go/internal/queue"
	"github.com/telegram-manager/manager-server-go/internal/repository"
	"github.com/telegram-manager/manager-server-go/internal/telegram"
	"github.com/telegram-manager/manager-server-go/internal/util"
)

// Gateway is the slice of the session registry the service consumes.
type Gateway interface {
	Open(ctx context.Context, desc telegram.SessionDescriptor) error
	SetPhoneNumber(ctx context.Context, sessionID, phoneNumber string) error
	CheckCode(ctx context.Context, sessionID, code string) error
	CheckPassword(ctx context.Context, sessionID, password string) error
	GetChats(ctx context.Context, sessionID string, limit int) ([]telegram.Chat, error)
	GetChatMembers(ctx context.Context, sessionID string, chatID int64, limit int) ([]telegram.User, error)
	GetContacts(ctx context.Context, sessionID string) ([]telegram.User, error)
	IsReady(sessionID string) bool
	Close(ctx context.Context, sessionID string) error
}

var _ Gateway = (*telegram.Registry)(nil)

// Enqueuer is the slice of the job queue the service consumes.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any, opts queue.Options) (string, error)
}

type CreateSessionInput struct {
	Type        string  `json:"type"`
	Label       string  `json:"label"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	APIID       *string `json:"apiId,omitempty"`
	APIHash     *string `json:"apiHash,omitempty"`
}

type VerifySessionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SyncDialogsResult struct {
	Success bool           `json:"success"`
	Count   int            `json:"count"`
	Dialogs []model.Dialog `json:"dialogs"`
}

type SyncContactsResult struct {
	Success  bool            `json:"success"`
	Count    int             `json:"count"`
	Contacts []model.Contact `json:"contacts"`
}

type StartCollectMembersResult struct {
	JobID string `json:"jobId"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type MemberListResult struct {
	Members    []model.Member `json:"members"`
	Pagination Pagination     `json:"pagination"`
}

type JobListResult struct {
	Jobs       []model.JobWithRelations `json:"jobs"`
	Pagination Pagination               `json:"pagination"`
}

type TelegramService struct {
	sessionRepo repository.SessionRepository
	dialogRepo  repository.DialogRepository
	memberRepo  repository.MemberRepository
	contactRepo repository.ContactRepository
	jobRepo     repository.JobRepository
	gateway     Gateway
	enqueuer    Enqueuer
}

func NewTelegramService(
	sessionRepo repository.SessionRepository,
	dialogRepo repository.DialogRepository,
	memberRepo repository.MemberRepository,
	contactRepo repository.ContactRepository,
	jobRepo repository.JobRepository,
	gateway Gateway,
	enqueuer Enqueuer,
) *TelegramService {
	return &TelegramService{
		sessionRepo: sessionRepo,
		dialogRepo:  dialogRepo,
		memberRepo:  memberRepo,
		contactRepo: contactRepo,
		jobRepo:     jobRepo,
		gateway:     gateway,
		enqueuer:    enqueuer,
	}
}

// CreateSession persists the session metadata and, for USER sessions with API
// credentials, opens a client handle. BOT sessions never acquire a handle.
func (s *TelegramService) CreateSession(ctx context.Context, input CreateSessionInput, userID string) (*model.TelegramSession, error) {
	if input.Label == "" {
		return nil, apperrors.MissingRequired("label")
	}
	if !util.IsValidEnum(input.Type, "user", "bot") {
		return nil, apperrors.InvalidInput("type", "must be user or bot")
	}

	sessionType := model.SessionTypeBot
	if input.Type == "user" {
		sessionType = model.SessionTypeUser
	}

	session, err := s.sessionRepo.Create(ctx, model.CreateSessionParams{
		Type:        sessionType,
		Label:       input.Label,
		PhoneNumber: input.PhoneNumber,
		APIID:       input.APIID,
		APIHash:     input.APIHash,
		CreatedByID: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if sessionType == model.SessionTypeUser && input.APIID != nil && input.APIHash != nil {
		phone := ""
		if input.PhoneNumber != nil {
			phone = *input.PhoneNumber
		}
		if err := s.gateway.Open(ctx, telegram.SessionDescriptor{
			ID:          session.ID,
			PhoneNumber: phone,
			APIID:       *input.APIID,
			APIHash:     *input.APIHash,
		}); err != nil {
			// The session row must not be left looking usable.
			if updErr := s.sessionRepo.UpdateStatus(ctx, session.ID, model.SessionStatusError); updErr != nil {
				log.Error().Err(updErr).Str("sessionId", session.ID).Msg("failed to mark session errored")
			}
			return nil, err
		}
		if phone != "" {
			// Transport errors here are diagnostic only; the handshake
			// surfaces them through verification.
			if err := s.gateway.SetPhoneNumber(ctx, session.ID, phone); err != nil {
				log.Warn().Err(err).Str("sessionId", session.ID).Msg("failed to submit phone number")
			}
		}
	}

	log.Info().Str("sessionId", session.ID).Str("label", session.Label).Msg("session created")
	return session, nil
}

func (s *TelegramService) ListSessions(ctx context.Context, userID string) ([]model.TelegramSession, error) {
	return s.sessionRepo.ListByOwner(ctx, userID)
}

// VerifySession submits the authentication code and, for accounts with
// two-factor auth, the password. The persisted status is advanced to ACTIVE
// here, by the caller of the code check, not by an event subscription; any
// failure marks the session ERROR.
func (s *TelegramService) VerifySession(ctx context.Context, sessionID, code, password string) (*VerifySessionResult, error) {
	log.Info().Str("sessionId", sessionID).Msg("verifying session code")

	if err := s.gateway.CheckCode(ctx, sessionID, code); err != nil {
		if updErr := s.sessionRepo.UpdateStatus(ctx, sessionID, model.SessionStatusError); updErr != nil {
			log.Error().Err(updErr).Str("sessionId", sessionID).Msg("failed to mark session errored")
		}
		return nil, err
	}

	if password != "" {
		if err := s.gateway.CheckPassword(ctx, sessionID, password); err != nil {
			if updErr := s.sessionRepo.UpdateStatus(ctx, sessionID, model.SessionStatusError); updErr != nil {
				log.Error().Err(updErr).Str("sessionId", sessionID).Msg("failed to mark session errored")
			}
			return nil, err
		}
	}

	if err := s.sessionRepo.UpdateStatus(ctx, sessionID, model.SessionStatusActive); err != nil {
		return nil, fmt.Errorf("update session status: %w", err)
	}

	return &VerifySessionResult{Success: true, Message: "Session verified successfully"}, nil
}

func (s *TelegramService) ListDialogs(ctx context.Context, sessionID string) ([]model.Dialog, error) {
	return s.dialogRepo.ListBySession(ctx, sessionID)
}

// SyncDialogs pulls the full remote chat list and upserts it, then records a
// single terminal job row. There is no RUNNING intermediate state on this
// synchronous path.
func (s *TelegramService) SyncDialogs(ctx context.Context, sessionID, userID string) (*SyncDialogsResult, error) {
	if !s.gateway.IsReady(sessionID) {
		err := apperrors.SessionNotReady(sessionID)
		s.recordSyncJob(ctx, model.JobTypeSyncDialogs, sessionID, userID, 0, err)
		return nil, err
	}

	chats, err := s.gateway.GetChats(ctx, sessionID, config.DefaultChatListLimit)
	if err != nil {
		s.recordSyncJob(ctx, model.JobTypeSyncDialogs, sessionID, userID, 0, err)
		return nil, err
	}

	synced := make([]model.Dialog, 0, len(chats))
	for _, chat := range chats {
		dialog, err := s.dialogRepo.Upsert(ctx, model.UpsertDialogParams{
			TelegramID:  chat.ID,
			Type:        mapChatType(chat.Type),
			Title:       chat.Title,
			Username:    optional(chat.Username),
			MemberCount: optionalInt(chat.MemberCount),
			SessionID:   sessionID,
		})
		if err != nil {
			wrapped := fmt.Errorf("upsert dialog %d: %w", chat.ID, err)
			s.recordSyncJob(ctx, model.JobTypeSyncDialogs, sessionID, userID, 0, wrapped)
			return nil, wrapped
		}
		synced = append(synced, *dialog)
	}

	s.recordSyncJob(ctx, model.JobTypeSyncDialogs, sessionID, userID, len(synced), nil)
	log.Info().Int("count", len(synced)).Str("sessionId", sessionID).Msg("dialog sync completed")
	return &SyncDialogsResult{Success: true, Count: len(synced), Dialogs: synced}, nil
}

// SyncContacts mirrors SyncDialogs for the session's contact list.
func (s *TelegramService) SyncContacts(ctx context.Context, sessionID, userID string) (*SyncContactsResult, error) {
	if !s.gateway.IsReady(sessionID) {
		err := apperrors.SessionNotReady(sessionID)
		s.recordSyncJob(ctx, model.JobTypeSyncContacts, sessionID, userID, 0, err)
		return nil, err
	}

	users, err := s.gateway.GetContacts(ctx, sessionID)
	if err != nil {
		s.recordSyncJob(ctx, model.JobTypeSyncContacts, sessionID, userID, 0, err)
		return nil, err
	}

	synced := make([]model.Contact, 0, len(users))
	for _, user := range users {
		contact, err := s.contactRepo.Upsert(ctx, model.UpsertContactParams{
			TelegramID:  user.ID,
			Username:    optional(user.Username),
			FirstName:   optional(user.FirstName),
			LastName:    optional(user.LastName),
			PhoneNumber: optional(user.PhoneNumber),
			SessionID:   sessionID,
		})
		if err != nil {
			wrapped := fmt.Errorf("upsert contact %d: %w", user.ID, err)
			s.recordSyncJob(ctx, model.JobTypeSyncContacts, sessionID, userID, 0, wrapped)
			return nil, wrapped
		}
		synced = append(synced, *contact)
	}

	s.recordSyncJob(ctx, model.JobTypeSyncContacts, sessionID, userID, len(synced), nil)
	log.Info().Int("count", len(synced)).Str("sessionId", sessionID).Msg("contact sync completed")
	return &SyncContactsResult{Success: true, Count: len(synced), Contacts: synced}, nil
}

// recordSyncJob writes the single terminal job row a synchronous sync leaves
// behind: COMPLETED with a count, or FAILED with the error's message.
func (s *TelegramService) recordSyncJob(ctx context.Context, jobType model.JobType, sessionID, userID string, count int, cause error) {
	params := model.CreateJobParams{
		Type:        jobType,
		SessionID:   &sessionID,
		CreatedByID: userID,
	}

	if cause == nil {
		params.Status = model.JobStatusCompleted
		payload := mustRaw(map[string]any{"sessionId": sessionID, "count": count})
		result := mustRaw(map[string]any{"count": count})
		params.Payload = &payload
		params.Result = &result
	} else {
		params.Status = model.JobStatusFailed
		payload := mustRaw(map[string]any{"sessionId": sessionID})
		message := cause.Error()
		params.Payload = &payload
		params.Error = &message
	}

	if _, err := s.jobRepo.Create(ctx, params); err != nil {
		log.Error().Err(err).Str("type", string(jobType)).Msg("failed to record sync job")
	}
}

func (s *TelegramService) ListMembers(ctx context.Context, dialogID string, page, limit int) (*MemberListResult, error) {
	offset := (page - 1) * limit

	members, err := s.memberRepo.ListByDialog(ctx, dialogID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	total, err := s.memberRepo.CountByDialog(ctx, dialogID)
	if err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}

	return &MemberListResult{
		Members:    members,
		Pagination: paginate(page, limit, total),
	}, nil
}

// StartCollectMembers enqueues an asynchronous collection job for a dialog
// and records its PENDING job row. Returns as soon as the job is durably
// queued.
func (s *TelegramService) StartCollectMembers(ctx context.Context, dialogID, userID string) (*StartCollectMembersResult, error) {
	dialog, err := s.dialogRepo.FindByID(ctx, dialogID)
	if err != nil {
		return nil, fmt.Errorf("find dialog: %w", err)
	}
	if dialog == nil {
		return nil, apperrors.NotFound("Dialog")
	}

	jobID, err := s.enqueuer.Enqueue(ctx, model.QueueJobCollectMembers, model.CollectMembersJobPayload{
		DialogID:         dialog.ID,
		SessionID:        dialog.SessionID,
		TelegramDialogID: dialog.TelegramID,
		DialogTitle:      dialog.Title,
		UserID:           userID,
	}, queue.Options{
		JobID: fmt.Sprintf("collect-%s-%d", dialog.ID, time.Now().UnixMilli()),
	})
	if err != nil {
		return nil, apperrors.Queue(err)
	}

	payload := mustRaw(map[string]any{"dialogId": dialog.ID})
	if _, err := s.jobRepo.Create(ctx, model.CreateJobParams{
		Type:        model.JobTypeCollectMembers,
		Payload:     &payload,
		SessionID:   &dialog.SessionID,
		DialogID:    &dialog.ID,
		CreatedByID: userID,
	}); err != nil {
		return nil, fmt.Errorf("record collection job: %w", err)
	}

	log.Info().Str("jobId", jobID).Str("dialogId", dialog.ID).Msg("member collection started")
	return &StartCollectMembersResult{JobID: jobID}, nil
}

func (s *TelegramService) ListJobs(ctx context.Context, userID string, page, limit int) (*JobListResult, error) {
	offset := (page - 1) * limit

	jobs, err := s.jobRepo.ListByOwner(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	total, err := s.jobRepo.CountByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}

	return &JobListResult{
		Jobs:       jobs,
		Pagination: paginate(page, limit, total),
	}, nil
}

// CloseSession releases the session's client handle, if any, and removes the
// session row. Only the owner may close a session; foreign ids read as absent.
func (s *TelegramService) CloseSession(ctx context.Context, sessionID, userID string) error {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}
	if session == nil || session.CreatedByID != userID {
		return apperrors.NotFound("Session")
	}

	if err := s.gateway.Close(ctx, sessionID); err != nil {
		return err
	}
	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	log.Info().Str("sessionId", sessionID).Msg("session closed")
	return nil
}

// mapChatType maps remote chat-type tags onto dialog types. Unrecognized tags
// fall back to GROUP.
func mapChatType(tag string) model.DialogType {
	switch tag {
	case "chatTypePrivate":
		return model.DialogTypePrivate
	case "chatTypeBasicGroup":
		return model.DialogTypeGroup
	case "chatTypeSupergroup":
		return model.DialogTypeSupergroup
	case "chatTypeChannel":
		return model.DialogTypeChannel
	default:
		return model.DialogTypeGroup
	}
}

func paginate(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func mustRaw(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		// only reachable for unmarshalable values, which these fixed maps never are
		panic(err)
	}
	return json.RawMessage(data)
}
