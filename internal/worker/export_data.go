package worker

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/telegram-manager/manager-server-go/internal/model"
	"github.com/telegram-manager/manager-server-go/internal/repository"
)

type ExportDataWorker struct {
	exportRepo repository.ExportRepository
	memberRepo repository.MemberRepository
	jobRepo    repository.JobRepository
	exportsDir string
}

func NewExportDataWorker(
	exportRepo repository.ExportRepository,
	memberRepo repository.MemberRepository,
	jobRepo repository.JobRepository,
	exportsDir string,
) *ExportDataWorker {
	return &ExportDataWorker{
		exportRepo: exportRepo,
		memberRepo: memberRepo,
		jobRepo:    jobRepo,
		exportsDir: exportsDir,
	}
}

// exportRecord is one output row. Field order here fixes the CSV column order.
type exportRecord struct {
	ID          string `json:"id"`
	TelegramID  string `json:"telegramId"`
	Username    string `json:"username"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	IsContact   bool   `json:"isContact"`
	IsBot       bool   `json:"isBot"`
	DialogTitle string `json:"dialogTitle"`
	DialogType  string `json:"dialogType"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func (w *ExportDataWorker) Handle(ctx context.Context, payload json.RawMessage) error {
	var job model.ExportDataJobPayload
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("decode export-data payload: %w", err)
	}

	// Correlate on the export id so two in-flight exports for the same
	// owner never update each other's record.
	filter := repository.JobFilter{
		Type:        model.JobTypeExportData,
		ExportID:    &job.ExportID,
		CreatedByID: job.UserID,
	}

	now := time.Now()
	if _, err := w.jobRepo.Transition(ctx, filter, model.JobStatusRunning, repository.JobTransition{
		StartedAt: &now,
	}); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	export, err := w.exportRepo.FindByID(ctx, job.ExportID)
	if err != nil {
		w.fail(ctx, filter, job.ExportID, err)
		return fmt.Errorf("find export: %w", err)
	}
	if export == nil {
		err := fmt.Errorf("export %s no longer exists", job.ExportID)
		w.failJob(ctx, filter, err)
		return err
	}

	if err := w.exportRepo.MarkProcessing(ctx, export.ID); err != nil {
		w.fail(ctx, filter, export.ID, err)
		return fmt.Errorf("mark export processing: %w", err)
	}

	var filters model.ExportFilters
	if err := json.Unmarshal(export.Filters, &filters); err != nil {
		w.fail(ctx, filter, export.ID, err)
		return fmt.Errorf("decode export filters: %w", err)
	}

	rows, err := w.memberRepo.FindForExport(ctx, filters)
	if err != nil {
		w.fail(ctx, filter, export.ID, err)
		return fmt.Errorf("query members for export: %w", err)
	}

	records := buildExportRecords(rows, filters.IncludePhones)

	fileName := fmt.Sprintf("export_%s_%d.%s", export.ID, time.Now().UnixMilli(), export.Format)
	filePath := filepath.Join(w.exportsDir, fileName)

	var size int64
	switch export.Format {
	case model.ExportFormatJSON:
		size, err = writeJSONFile(filePath, records)
	default:
		size, err = writeCSVFile(filePath, records, filters.IncludePhones)
	}
	if err != nil {
		w.fail(ctx, filter, export.ID, err)
		return fmt.Errorf("write export file: %w", err)
	}

	fileURL := "/exports/" + fileName
	if err := w.exportRepo.MarkCompleted(ctx, export.ID, fileURL, size); err != nil {
		w.fail(ctx, filter, export.ID, err)
		return fmt.Errorf("mark export completed: %w", err)
	}

	result := json.RawMessage(fmt.Sprintf(`{"count":%d,"fileSize":%d}`, len(records), size))
	finished := time.Now()
	if _, err := w.jobRepo.Transition(ctx, filter, model.JobStatusCompleted, repository.JobTransition{
		Result:     &result,
		FinishedAt: &finished,
	}); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}

	log.Info().
		Str("exportId", export.ID).
		Int("records", len(records)).
		Int64("fileSize", size).
		Msg("export generated")
	return nil
}

func (w *ExportDataWorker) fail(ctx context.Context, filter repository.JobFilter, exportID string, cause error) {
	if err := w.exportRepo.MarkFailed(ctx, exportID); err != nil {
		log.Error().Err(err).Str("exportId", exportID).Msg("failed to mark export failed")
	}
	w.failJob(ctx, filter, cause)
}

func (w *ExportDataWorker) failJob(ctx context.Context, filter repository.JobFilter, cause error) {
	message := cause.Error()
	finished := time.Now()
	if _, err := w.jobRepo.Transition(ctx, filter, model.JobStatusFailed, repository.JobTransition{
		Error:      &message,
		FinishedAt: &finished,
	}); err != nil {
		log.Error().Err(err).Msg("failed to mark job failed")
	}
}

func buildExportRecords(rows []model.MemberExportRow, includePhones bool) []exportRecord {
	records := make([]exportRecord, 0, len(rows))
	for _, row := range rows {
		record := exportRecord{
			ID:          row.ID,
			TelegramID:  strconv.FormatInt(row.TelegramID, 10),
			Username:    deref(row.Username),
			FirstName:   deref(row.FirstName),
			LastName:    deref(row.LastName),
			IsContact:   row.IsContact,
			IsBot:       row.IsBot,
			DialogTitle: deref(row.DialogTitle),
			DialogType:  deref(row.DialogType),
			CreatedAt:   row.CreatedAt.Format(time.RFC3339),
			UpdatedAt:   row.UpdatedAt.Format(time.RFC3339),
		}
		// phone numbers are only exported on explicit request
		if includePhones {
			record.PhoneNumber = deref(row.PhoneNumber)
		}
		records = append(records, record)
	}
	return records
}

func writeCSVFile(path string, records []exportRecord, includePhones bool) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"id", "telegramId", "username", "firstName", "lastName",
		"isContact", "isBot", "dialogTitle", "dialogType", "createdAt", "updatedAt"}
	if includePhones {
		header = append(header, "phoneNumber")
	}
	if err := writer.Write(header); err != nil {
		return 0, err
	}

	for _, record := range records {
		row := []string{
			record.ID, record.TelegramID, record.Username, record.FirstName, record.LastName,
			strconv.FormatBool(record.IsContact), strconv.FormatBool(record.IsBot),
			record.DialogTitle, record.DialogType, record.CreatedAt, record.UpdatedAt,
		}
		if includePhones {
			row = append(row, record.PhoneNumber)
		}
		if err := writer.Write(row); err != nil {
			return 0, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, err
	}

	info, err := file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func writeJSONFile(path string, records []exportRecord) (int64, error) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
