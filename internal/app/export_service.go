// internal/app/export_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payment_batch_service/internal/domain/alert"
	"payment_batch_service/internal/domain/export"
	"payment_batch_service/internal/domain/payment"
	"payment_batch_service/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// maxFileNameAttempts bounds the same-day file name suffixes tried before giving up.
const maxFileNameAttempts = 100

// ExportResult describes one export run. Count is zero for a no-op run.
type ExportResult struct {
	Count        int
	ExportFileID int64
	StagedPath   string // where the file was written before handoff
	FilePath     string // final outbox path
}

// ExportService selects due payments, writes them to an export file, marks
// them exported and hands the file to the outbox.
type ExportService struct {
	repo      payment.Repository
	sink      export.FileSink
	notifier  alert.Notifier
	metrics   *metrics.Metrics
	logger    *logrus.Entry
	batchSize int
	loc       *time.Location
	now       func() time.Time
}

func NewExportService(
	repo payment.Repository,
	sink export.FileSink,
	notifier alert.Notifier,
	m *metrics.Metrics,
	logger *logrus.Entry,
	batchSize int,
	loc *time.Location, // business timezone used for "today"
	now func() time.Time,
) *ExportService {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ExportService{
		repo:      repo,
		sink:      sink,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
		batchSize: batchSize,
		loc:       loc,
		now:       now,
	}
}

// Today returns the current business date.
func (s *ExportService) Today() time.Time {
	return payment.DateOf(s.now(), s.loc)
}

// RunExportToday exports everything due on or before today.
func (s *ExportService) RunExportToday(ctx context.Context) (*ExportResult, error) {
	return s.RunExport(ctx, s.Today())
}

// RunExport exports every pending payment with pay_date <= asOf. Selection,
// ExportFile creation and marking share one transaction; the file is handed
// off only after commit. Running it again after success selects nothing.
func (s *ExportService) RunExport(ctx context.Context, asOf time.Time) (*ExportResult, error) {
	started := s.now()
	log := s.logger.WithField("as_of", asOf.Format(payment.DateLayout))
	log.Info("Starting payment export")

	result, err := s.exportInTx(ctx, asOf, started, log)
	if err != nil {
		log.WithError(err).Error("Payment export rolled back")
		s.metrics.ObserveExport(metrics.ExportOutcomeFailed, 0, s.now().Sub(started))
		s.alert(ctx, fmt.Sprintf("Payment export for %s failed and was rolled back: %v", asOf.Format(payment.DateLayout), err))
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}

	if result.Count == 0 {
		log.Info("No pending payments due for export")
		s.metrics.ObserveExport(metrics.ExportOutcomeNoop, 0, s.now().Sub(started))
		return result, nil
	}

	log = log.WithFields(logrus.Fields{
		"export_file_id": result.ExportFileID,
		"count":          result.Count,
		"staged_path":    result.StagedPath,
	})

	// Committed. From here on a failure must not be reported as an export failure.
	outboxPath, err := s.sink.Handoff(result.StagedPath)
	if err != nil {
		herr := &HandoffError{StagedPath: result.StagedPath, Result: result, Err: err}
		log.WithError(err).Error("Export committed but handoff to outbox failed")
		s.metrics.ObserveExport(metrics.ExportOutcomeHandoffFailed, result.Count, s.now().Sub(started))
		s.alert(ctx, herr.Error())
		return result, herr
	}
	result.FilePath = outboxPath

	log.WithField("outbox_path", outboxPath).Info("Payments exported and handed off")
	s.metrics.ObserveExport(metrics.ExportOutcomeExported, result.Count, s.now().Sub(started))
	return result, nil
}

// exportInTx runs steps 1-5 of an export inside one storage transaction and
// returns a zero-count result when nothing is due. The staged file is removed
// whenever the transaction does not commit.
func (s *ExportService) exportInTx(ctx context.Context, asOf, started time.Time, log *logrus.Entry) (*ExportResult, error) {
	var staged export.StagedFile
	result := &ExportResult{}

	err := s.repo.RunInExportTx(ctx, func(tx payment.ExportTx) error {
		cursor, err := tx.SelectDueUnexported(ctx, asOf, s.batchSize)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		batch, err := cursor.Next(ctx)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil // Nothing due, commit without side effects
		}

		staged, err = s.createStagedFile(started)
		if err != nil {
			return err
		}

		file, err := tx.CreateExportFile(ctx, staged.Path(), started)
		if err != nil {
			return err
		}
		log.WithField("export_file_id", file.ID).Debug("Export file record created")

		w := export.NewWriter(staged)
		if err := w.WriteHeader(); err != nil {
			return fmt.Errorf("failed to write export header: %w", err)
		}

		count := 0
		for len(batch) > 0 {
			ids := make([]int64, 0, len(batch))
			for _, in := range batch {
				if err := w.Write(in); err != nil {
					return fmt.Errorf("failed to write payment %d: %w", in.ID, err)
				}
				ids = append(ids, in.ID)
			}

			// Mark exactly the rows just written.
			marked, err := tx.MarkExported(ctx, ids, file.ID)
			if err != nil {
				return err
			}
			if marked != int64(len(ids)) {
				return fmt.Errorf("marked %d payments exported but wrote %d", marked, len(ids))
			}
			count += len(ids)

			batch, err = cursor.Next(ctx)
			if err != nil {
				return err
			}
		}

		if err := w.Flush(); err != nil {
			return fmt.Errorf("failed to write export file: %w", err)
		}
		if err := staged.Close(); err != nil {
			return err
		}

		result.Count = count
		result.ExportFileID = file.ID
		result.StagedPath = staged.Path()
		return nil
	})
	if err != nil {
		if staged != nil {
			staged.Close()
			if derr := s.sink.Discard(staged.Path()); derr != nil {
				log.WithError(derr).WithField("staged_path", staged.Path()).Warn("Failed to discard staged export file")
			}
		}
		return nil, err
	}
	return result, nil
}

// createStagedFile picks the first free "<YYYYMMDD>_payments[_n].csv" name.
func (s *ExportService) createStagedFile(started time.Time) (export.StagedFile, error) {
	day := started.In(s.loc).Format("20060102")
	for attempt := 1; attempt <= maxFileNameAttempts; attempt++ {
		f, err := s.sink.Create(export.FileName(day, attempt))
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, export.ErrFileExists) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("no free export file name for %s after %d attempts", day, maxFileNameAttempts)
}

// RetryHandoff moves a committed but stranded export file into the outbox.
// It never touches payment rows.
func (s *ExportService) RetryHandoff(ctx context.Context, stagedPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	log := s.logger.WithField("staged_path", stagedPath)

	outboxPath, err := s.sink.Handoff(stagedPath)
	if err != nil {
		log.WithError(err).Error("Handoff retry failed")
		return "", fmt.Errorf("%w: %w", ErrHandoffFailed, err)
	}
	log.WithField("outbox_path", outboxPath).Info("Stranded export file handed off")
	return outboxPath, nil
}

func (s *ExportService) alert(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		s.logger.WithError(err).Warn("Failed to deliver operator alert")
	}
}
