package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/telegram-manager/manager-server-go/internal/errors"
	"github.com/telegram-manager/manager-server-go/internal/model"
	"github.com/telegram-manager/manager-server-go/internal/queue"
	"github.com/telegram-manager/manager-server-go/internal/repository"
)

type CreateExportInput struct {
	Name        string              `json:"name"`
	Description *string             `json:"description,omitempty"`
	Filters     model.ExportFilters `json:"filters"`
	Format      string              `json:"format,omitempty"`
}

type ExportListResult struct {
	Exports    []model.Export `json:"exports"`
	Pagination Pagination     `json:"pagination"`
}

type ExportService struct {
	exportRepo repository.ExportRepository
	jobRepo    repository.JobRepository
	enqueuer   Enqueuer
	exportsDir string
	ttl        time.Duration
}

func NewExportService(
	exportRepo repository.ExportRepository,
	jobRepo repository.JobRepository,
	enqueuer Enqueuer,
	exportsDir string,
	ttl time.Duration,
) *ExportService {
	return &ExportService{
		exportRepo: exportRepo,
		jobRepo:    jobRepo,
		enqueuer:   enqueuer,
		exportsDir: exportsDir,
		ttl:        ttl,
	}
}

// CreateExport records the export and queues its generation. The row expires
// a fixed window after creation regardless of when generation finishes.
func (s *ExportService) CreateExport(ctx context.Context, input CreateExportInput, userID string) (*model.Export, error) {
	if input.Name == "" {
		return nil, apperrors.MissingRequired("name")
	}

	format := model.ExportFormatCSV
	switch input.Format {
	case "", "csv":
	case "json":
		format = model.ExportFormatJSON
	default:
		return nil, apperrors.InvalidInput("format", "must be csv or json")
	}

	filters, err := json.Marshal(input.Filters)
	if err != nil {
		return nil, fmt.Errorf("marshal filters: %w", err)
	}

	export, err := s.exportRepo.Create(ctx, model.CreateExportParams{
		Name:        input.Name,
		Description: input.Description,
		Filters:     filters,
		Format:      format,
		ExpiresAt:   time.Now().Add(s.ttl),
		CreatedByID: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("create export: %w", err)
	}

	payload := mustRaw(map[string]any{"exportId": export.ID})
	if _, err := s.jobRepo.Create(ctx, model.CreateJobParams{
		Type:        model.JobTypeExportData,
		Payload:     &payload,
		CreatedByID: userID,
	}); err != nil {
		return nil, fmt.Errorf("record export job: %w", err)
	}

	if _, err := s.enqueuer.Enqueue(ctx, model.QueueJobExportData, model.ExportDataJobPayload{
		ExportID: export.ID,
		UserID:   userID,
	}, queue.Options{
		JobID: fmt.Sprintf("export-%s-%d", export.ID, time.Now().UnixMilli()),
	}); err != nil {
		return nil, apperrors.Queue(err)
	}

	log.Info().Str("exportId", export.ID).Str("format", string(format)).Msg("export created")
	return export, nil
}

func (s *ExportService) ListExports(ctx context.Context, userID string, page, limit int) (*ExportListResult, error) {
	offset := (page - 1) * limit

	exports, err := s.exportRepo.ListByOwner(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	total, err := s.exportRepo.CountByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count exports: %w", err)
	}

	return &ExportListResult{
		Exports:    exports,
		Pagination: paginate(page, limit, total),
	}, nil
}

func (s *ExportService) GetExport(ctx context.Context, id, userID string) (*model.Export, error) {
	export, err := s.exportRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find export: %w", err)
	}
	if export == nil || export.CreatedByID != userID {
		return nil, apperrors.NotFound("Export")
	}
	return export, nil
}

// DeleteExport removes the row and its backing file, if one was generated.
func (s *ExportService) DeleteExport(ctx context.Context, id, userID string) error {
	export, err := s.GetExport(ctx, id, userID)
	if err != nil {
		return err
	}

	if export.FileURL != nil {
		filePath := filepath.Join(s.exportsDir, path.Base(*export.FileURL))
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			log.Error().Err(err).Str("exportId", id).Msg("failed to remove export file")
		}
	}

	if err := s.exportRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete export: %w", err)
	}

	log.Info().Str("exportId", id).Msg("export deleted")
	return nil
}
