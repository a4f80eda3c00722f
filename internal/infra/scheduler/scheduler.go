package scheduler

import (
	"context"
	"errors"
	"time"

	"payment_batch_service/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Exporter is the export operation triggered by the scheduler.
type Exporter interface {
	RunExportToday(ctx context.Context) (*app.ExportResult, error)
}

type ExportScheduler struct {
	cronEngine *cron.Cron
	exporter   Exporter
	logger     *logrus.Entry
	cronSpec   string
	timeout    time.Duration
}

func NewExportScheduler(
	exporter Exporter,
	logger *logrus.Entry,
	loc *time.Location, // cron fires in the business timezone
	cronSpec string, // e.g., "0 17 * * *" (5 PM daily)
	timeout time.Duration,
) *ExportScheduler {
	cronLogger := cron.PrintfLogger(logger)
	return &ExportScheduler{
		// An export still running when the next tick fires is skipped, not overlapped.
		cronEngine: cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cronLogger))),
		exporter:   exporter,
		logger:     logger,
		cronSpec:   cronSpec,
		timeout:    timeout,
	}
}

// Start registers the export job and starts the cron engine.
func (s *ExportScheduler) Start() error {
	s.logger.WithField("cron_spec", s.cronSpec).Info("Starting export scheduler...")

	if _, err := s.cronEngine.AddFunc(s.cronSpec, s.RunOnce); err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.Info("Export scheduler started.")
	return nil
}

// RunOnce performs a single scheduled export with the configured timeout.
func (s *ExportScheduler) RunOnce() {
	s.logger.Info("Cron job triggered for payment export.")
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.exporter.RunExportToday(ctx)
	switch {
	case errors.Is(err, app.ErrHandoffFailed):
		// Export is durable; the file needs a manual handoff, so re-running is pointless.
		s.logger.WithError(err).Error("Scheduled export committed but handoff failed")
	case err != nil:
		s.logger.WithError(err).Error("Scheduled export failed")
	case result.Count == 0:
		s.logger.Info("Scheduled export found nothing due.")
	default:
		s.logger.WithFields(logrus.Fields{
			"count":     result.Count,
			"file_path": result.FilePath,
		}).Info("Scheduled export completed.")
	}
}

func (s *ExportScheduler) Stop() {
	s.logger.Info("Stopping export scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Export scheduler gracefully stopped.")
}
