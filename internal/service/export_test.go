package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/telegram-manager/manager-server-go/internal/errors"
	"github.com/telegram-manager/manager-server-go/internal/model"
)

type exportFixture struct {
	exportRepo *mockExportRepo
	jobRepo    *mockJobRepo
	enqueuer   *mockEnqueuer
	exportsDir string
	service    *ExportService
}

func newExportFixture(t *testing.T) *exportFixture {
	f := &exportFixture{
		exportRepo: new(mockExportRepo),
		jobRepo:    new(mockJobRepo),
		enqueuer:   new(mockEnqueuer),
		exportsDir: t.TempDir(),
	}
	f.service = NewExportService(f.exportRepo, f.jobRepo, f.enqueuer, f.exportsDir, 7*24*time.Hour)
	return f
}

func TestCreateExport(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects missing name", func(t *testing.T) {
		f := newExportFixture(t)

		_, err := f.service.CreateExport(ctx, CreateExportInput{Format: "csv"}, "user-1")

		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingRequired))
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		f := newExportFixture(t)

		_, err := f.service.CreateExport(ctx, CreateExportInput{Name: "all", Format: "xml"}, "user-1")

		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
	})

	t.Run("defaults to csv and sets the retention window", func(t *testing.T) {
		f := newExportFixture(t)
		before := time.Now()
		f.exportRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateExportParams) bool {
			return p.Format == model.ExportFormatCSV &&
				p.ExpiresAt.After(before.Add(7*24*time.Hour-time.Minute)) &&
				p.CreatedByID == "user-1"
		})).Return(&model.Export{ID: "e-1"}, nil)
		f.jobRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateJobParams) bool {
			return p.Type == model.JobTypeExportData && p.CreatedByID == "user-1"
		})).Return(&model.Job{ID: "j-1"}, nil)
		f.enqueuer.On("Enqueue", mock.Anything, model.QueueJobExportData,
			model.ExportDataJobPayload{ExportID: "e-1", UserID: "user-1"}, mock.Anything,
		).Return("export-e-1-1", nil)

		export, err := f.service.CreateExport(ctx, CreateExportInput{Name: "all members"}, "user-1")

		require.NoError(t, err)
		assert.Equal(t, "e-1", export.ID)
		f.exportRepo.AssertExpectations(t)
		f.jobRepo.AssertExpectations(t)
		f.enqueuer.AssertExpectations(t)
	})

	t.Run("surfaces queue failures", func(t *testing.T) {
		f := newExportFixture(t)
		f.exportRepo.On("Create", mock.Anything, mock.Anything).Return(&model.Export{ID: "e-1"}, nil)
		f.jobRepo.On("Create", mock.Anything, mock.Anything).Return(&model.Job{ID: "j-1"}, nil)
		f.enqueuer.On("Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", errors.New("redis down"))

		_, err := f.service.CreateExport(ctx, CreateExportInput{Name: "all"}, "user-1")

		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeQueue))
	})
}

func TestGetExport(t *testing.T) {
	ctx := context.Background()

	t.Run("hides other owners' exports as not found", func(t *testing.T) {
		f := newExportFixture(t)
		f.exportRepo.On("FindByID", mock.Anything, "e-1").
			Return(&model.Export{ID: "e-1", CreatedByID: "someone-else"}, nil)

		_, err := f.service.GetExport(ctx, "e-1", "user-1")

		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
	})

	t.Run("returns the owner's export", func(t *testing.T) {
		f := newExportFixture(t)
		f.exportRepo.On("FindByID", mock.Anything, "e-1").
			Return(&model.Export{ID: "e-1", CreatedByID: "user-1"}, nil)

		export, err := f.service.GetExport(ctx, "e-1", "user-1")

		require.NoError(t, err)
		assert.Equal(t, "e-1", export.ID)
	})
}

func TestDeleteExport(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the backing file alongside the row", func(t *testing.T) {
		f := newExportFixture(t)
		filePath := filepath.Join(f.exportsDir, "export_e-1_1.csv")
		require.NoError(t, os.WriteFile(filePath, []byte("id\n"), 0o644))
		fileURL := "/exports/export_e-1_1.csv"
		f.exportRepo.On("FindByID", mock.Anything, "e-1").
			Return(&model.Export{ID: "e-1", CreatedByID: "user-1", FileURL: &fileURL}, nil)
		f.exportRepo.On("Delete", mock.Anything, "e-1").Return(nil)

		require.NoError(t, f.service.DeleteExport(ctx, "e-1", "user-1"))

		_, err := os.Stat(filePath)
		assert.True(t, os.IsNotExist(err))
		f.exportRepo.AssertExpectations(t)
	})

	t.Run("refuses to delete another owner's export", func(t *testing.T) {
		f := newExportFixture(t)
		f.exportRepo.On("FindByID", mock.Anything, "e-1").
			Return(&model.Export{ID: "e-1", CreatedByID: "someone-else"}, nil)

		err := f.service.DeleteExport(ctx, "e-1", "user-1")

		require.Error(t, err)
		f.exportRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
