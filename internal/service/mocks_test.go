package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/telegram-manager/manager-server-go/internal/model"
	"github.com/telegram-manager/manager-server-go/internal/queue"
	"github.com/telegram-manager/manager-server-go/internal/repository"
	"github.com/telegram-manager/manager-server-go/internal/telegram"
)

// Mock repositories

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.TelegramSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TelegramSession), args.Error(1)
}

func (m *mockSessionRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.TelegramSession, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TelegramSession), args.Error(1)
}

func (m *mockSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.TelegramSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TelegramSession), args.Error(1)
}

func (m *mockSessionRepo) UpdateStatus(ctx context.Context, id string, status model.SessionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockDialogRepo struct {
	mock.Mock
}

func (m *mockDialogRepo) FindByID(ctx context.Context, id string) (*model.Dialog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dialog), args.Error(1)
}

func (m *mockDialogRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Dialog, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Dialog), args.Error(1)
}

func (m *mockDialogRepo) Upsert(ctx context.Context, params model.UpsertDialogParams) (*model.Dialog, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dialog), args.Error(1)
}

type mockMemberRepo struct {
	mock.Mock
}

func (m *mockMemberRepo) Upsert(ctx context.Context, params model.UpsertMemberParams) (*model.Member, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Member), args.Error(1)
}

func (m *mockMemberRepo) ListByDialog(ctx context.Context, dialogID string, limit, offset int) ([]model.Member, error) {
	args := m.Called(ctx, dialogID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Member), args.Error(1)
}

func (m *mockMemberRepo) CountByDialog(ctx context.Context, dialogID string) (int, error) {
	args := m.Called(ctx, dialogID)
	return args.Int(0), args.Error(1)
}

func (m *mockMemberRepo) FindForExport(ctx context.Context, filters model.ExportFilters) ([]model.MemberExportRow, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MemberExportRow), args.Error(1)
}

type mockContactRepo struct {
	mock.Mock
}

func (m *mockContactRepo) Upsert(ctx context.Context, params model.UpsertContactParams) (*model.Contact, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *mockContactRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Contact, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Contact), args.Error(1)
}

type mockJobRepo struct {
	mock.Mock
}

func (m *mockJobRepo) Create(ctx context.Context, params model.CreateJobParams) (*model.Job, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Job), args.Error(1)
}

func (m *mockJobRepo) Transition(ctx context.Context, filter repository.JobFilter, status model.JobStatus, extra repository.JobTransition) (int64, error) {
	args := m.Called(ctx, filter, status, extra)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockJobRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.JobWithRelations, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.JobWithRelations), args.Error(1)
}

func (m *mockJobRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

type mockExportRepo struct {
	mock.Mock
}

func (m *mockExportRepo) FindByID(ctx context.Context, id string) (*model.Export, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Export), args.Error(1)
}

func (m *mockExportRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Export, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Export), args.Error(1)
}

func (m *mockExportRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

func (m *mockExportRepo) Create(ctx context.Context, params model.CreateExportParams) (*model.Export, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Export), args.Error(1)
}

func (m *mockExportRepo) MarkProcessing(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockExportRepo) MarkCompleted(ctx context.Context, id string, fileURL string, fileSize int64) error {
	args := m.Called(ctx, id, fileURL, fileSize)
	return args.Error(0)
}

func (m *mockExportRepo) MarkFailed(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockExportRepo) FindExpired(ctx context.Context, now time.Time) ([]model.Export, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Export), args.Error(1)
}

func (m *mockExportRepo) MarkExpired(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockExportRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock gateway and enqueuer

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Open(ctx context.Context, desc telegram.SessionDescriptor) error {
	args := m.Called(ctx, desc)
	return args.Error(0)
}

func (m *mockGateway) SetPhoneNumber(ctx context.Context, sessionID, phoneNumber string) error {
	args := m.Called(ctx, sessionID, phoneNumber)
	return args.Error(0)
}

func (m *mockGateway) CheckCode(ctx context.Context, sessionID, code string) error {
	args := m.Called(ctx, sessionID, code)
	return args.Error(0)
}

func (m *mockGateway) CheckPassword(ctx context.Context, sessionID, password string) error {
	args := m.Called(ctx, sessionID, password)
	return args.Error(0)
}

func (m *mockGateway) GetChats(ctx context.Context, sessionID string, limit int) ([]telegram.Chat, error) {
	args := m.Called(ctx, sessionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]telegram.Chat), args.Error(1)
}

func (m *mockGateway) GetChatMembers(ctx context.Context, sessionID string, chatID int64, limit int) ([]telegram.User, error) {
	args := m.Called(ctx, sessionID, chatID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]telegram.User), args.Error(1)
}

func (m *mockGateway) GetContacts(ctx context.Context, sessionID string) ([]telegram.User, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]telegram.User), args.Error(1)
}

func (m *mockGateway) IsReady(sessionID string) bool {
	args := m.Called(sessionID)
	return args.Bool(0)
}

func (m *mockGateway) Close(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, name string, payload any, opts queue.Options) (string, error) {
	args := m.Called(ctx, name, payload, opts)
	return args.String(0), args.Error(1)
}
