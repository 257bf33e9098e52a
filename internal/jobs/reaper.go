package jobs

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/telegram-manager/manager-server-go/internal/repository"
)

// ExportReaper transitions expired COMPLETED exports to EXPIRED and deletes
// their backing files, on an interval.
type ExportReaper struct {
	exportRepo repository.ExportRepository
	exportsDir string
	interval   time.Duration
	done       chan struct{}
}

func NewExportReaper(exportRepo repository.ExportRepository, exportsDir string, interval time.Duration) *ExportReaper {
	return &ExportReaper{
		exportRepo: exportRepo,
		exportsDir: exportsDir,
		interval:   interval,
		done:       make(chan struct{}),
	}
}

func (j *ExportReaper) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("export reaper started")
}

func (j *ExportReaper) Stop() {
	close(j.done)
	log.Info().Msg("export reaper stopped")
}

func (j *ExportReaper) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.reap()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.reap()
		}
	}
}

func (j *ExportReaper) reap() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired, err := j.exportRepo.FindExpired(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to find expired exports")
		return
	}

	for _, export := range expired {
		if export.FileURL != nil {
			filePath := filepath.Join(j.exportsDir, path.Base(*export.FileURL))
			if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
				log.Error().Err(err).Str("exportId", export.ID).Msg("failed to remove export file")
				continue
			}
		}
		if err := j.exportRepo.MarkExpired(ctx, export.ID); err != nil {
			log.Error().Err(err).Str("exportId", export.ID).Msg("failed to mark export expired")
			continue
		}
		log.Info().Str("exportId", export.ID).Msg("expired export reaped")
	}
}
