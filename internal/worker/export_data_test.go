package worker

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/telegram-manager/manager-server-go/internal/model"
	"github.com/telegram-manager/manager-server-go/internal/repository"
)

func exportPayload(t *testing.T) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(model.ExportDataJobPayload{ExportID: "e-1", UserID: "user-1"})
	require.NoError(t, err)
	return data
}

func strptr(s string) *string { return &s }

func exportRows() []model.MemberExportRow {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return []model.MemberExportRow{
		{
			Member: model.Member{
				ID:          "m-1",
				TelegramID:  9007199254740993,
				Username:    strptr("ada"),
				FirstName:   strptr("Ada"),
				PhoneNumber: strptr("+10000000002"),
				IsContact:   true,
				DialogID:    "d-1",
				CreatedAt:   now,
				UpdatedAt:   now,
			},
			DialogTitle: strptr("big group"),
			DialogType:  strptr("SUPERGROUP"),
		},
		{
			Member: model.Member{
				ID:         "m-2",
				TelegramID: 42,
				Username:   strptr("helperbot"),
				IsBot:      true,
				DialogID:   "d-1",
				CreatedAt:  now,
				UpdatedAt:  now,
			},
			DialogTitle: strptr("big group"),
			DialogType:  strptr("SUPERGROUP"),
		},
	}
}

func TestExportDataHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("writes a csv file and completes both records", func(t *testing.T) {
		exportRepo := new(mockExportRepo)
		memberRepo := new(mockMemberRepo)
		jobRepo := new(mockJobRepo)
		dir := t.TempDir()
		w := NewExportDataWorker(exportRepo, memberRepo, jobRepo, dir)

		filters, _ := json.Marshal(model.ExportFilters{IncludePhones: true})
		export := &model.Export{ID: "e-1", Format: model.ExportFormatCSV, Filters: filters}

		jobRepo.On("Transition", mock.Anything,
			mock.MatchedBy(func(f repository.JobFilter) bool {
				return f.Type == model.JobTypeExportData &&
					f.ExportID != nil && *f.ExportID == "e-1" &&
					f.CreatedByID == "user-1"
			}),
			model.JobStatusRunning, mock.Anything,
		).Return(int64(1), nil).Once()
		exportRepo.On("FindByID", mock.Anything, "e-1").Return(export, nil)
		exportRepo.On("MarkProcessing", mock.Anything, "e-1").Return(nil)
		memberRepo.On("FindForExport", mock.Anything, mock.Anything).Return(exportRows(), nil)

		var fileURL string
		exportRepo.On("MarkCompleted", mock.Anything, "e-1",
			mock.MatchedBy(func(url string) bool {
				fileURL = url
				return strings.HasPrefix(url, "/exports/export_e-1_") && strings.HasSuffix(url, ".csv")
			}),
			mock.MatchedBy(func(size int64) bool { return size > 0 }),
		).Return(nil)
		jobRepo.On("Transition", mock.Anything, mock.Anything,
			model.JobStatusCompleted,
			mock.MatchedBy(func(e repository.JobTransition) bool {
				return e.Result != nil && strings.Contains(string(*e.Result), `"count":2`)
			}),
		).Return(int64(1), nil).Once()

		require.NoError(t, w.Handle(ctx, exportPayload(t)))

		file, err := os.Open(filepath.Join(dir, filepath.Base(fileURL)))
		require.NoError(t, err)
		defer file.Close()

		records, err := csv.NewReader(file).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Contains(t, records[0], "phoneNumber")
		// 64-bit ids survive as strings
		assert.Contains(t, records[1], "9007199254740993")
		assert.Contains(t, records[1], "+10000000002")
	})

	t.Run("writes a json file with string telegram ids", func(t *testing.T) {
		exportRepo := new(mockExportRepo)
		memberRepo := new(mockMemberRepo)
		jobRepo := new(mockJobRepo)
		dir := t.TempDir()
		w := NewExportDataWorker(exportRepo, memberRepo, jobRepo, dir)

		filters, _ := json.Marshal(model.ExportFilters{})
		export := &model.Export{ID: "e-1", Format: model.ExportFormatJSON, Filters: filters}

		jobRepo.On("Transition", mock.Anything, mock.Anything, model.JobStatusRunning, mock.Anything).
			Return(int64(1), nil).Once()
		exportRepo.On("FindByID", mock.Anything, "e-1").Return(export, nil)
		exportRepo.On("MarkProcessing", mock.Anything, "e-1").Return(nil)
		memberRepo.On("FindForExport", mock.Anything, mock.Anything).Return(exportRows(), nil)

		var fileURL string
		exportRepo.On("MarkCompleted", mock.Anything, "e-1",
			mock.MatchedBy(func(url string) bool {
				fileURL = url
				return strings.HasSuffix(url, ".json")
			}),
			mock.Anything,
		).Return(nil)
		jobRepo.On("Transition", mock.Anything, mock.Anything, model.JobStatusCompleted, mock.Anything).
			Return(int64(1), nil).Once()

		require.NoError(t, w.Handle(ctx, exportPayload(t)))

		data, err := os.ReadFile(filepath.Join(dir, filepath.Base(fileURL)))
		require.NoError(t, err)

		var decoded []map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.Len(t, decoded, 2)
		assert.Equal(t, "9007199254740993", decoded[0]["telegramId"])
		// phones were not requested
		_, hasPhone := decoded[0]["phoneNumber"]
		assert.False(t, hasPhone)
	})

	t.Run("fails the job when the export row is gone", func(t *testing.T) {
		exportRepo := new(mockExportRepo)
		jobRepo := new(mockJobRepo)
		w := NewExportDataWorker(exportRepo, new(mockMemberRepo), jobRepo, t.TempDir())

		jobRepo.On("Transition", mock.Anything, mock.Anything, model.JobStatusRunning, mock.Anything).
			Return(int64(1), nil).Once()
		exportRepo.On("FindByID", mock.Anything, "e-1").Return(nil, nil)
		jobRepo.On("Transition", mock.Anything, mock.Anything,
			model.JobStatusFailed,
			mock.MatchedBy(func(e repository.JobTransition) bool {
				return e.Error != nil && strings.Contains(*e.Error, "no longer exists")
			}),
		).Return(int64(1), nil).Once()

		err := w.Handle(ctx, exportPayload(t))
		require.Error(t, err)
		jobRepo.AssertExpectations(t)
	})
}

func TestBuildExportRecords(t *testing.T) {
	rows := exportRows()

	t.Run("includes phones only on request", func(t *testing.T) {
		withPhones := buildExportRecords(rows, true)
		require.Len(t, withPhones, 2)
		assert.Equal(t, "+10000000002", withPhones[0].PhoneNumber)

		withoutPhones := buildExportRecords(rows, false)
		assert.Empty(t, withoutPhones[0].PhoneNumber)
	})

	t.Run("formats ids and timestamps as strings", func(t *testing.T) {
		records := buildExportRecords(rows, false)
		assert.Equal(t, "9007199254740993", records[0].TelegramID)
		assert.Equal(t, "2026-08-01T12:00:00Z", records[0].CreatedAt)
	})
}
