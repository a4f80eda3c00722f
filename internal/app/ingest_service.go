// internal/app/ingest_service.go
package app

import (
	"context"
	"errors"
	"fmt"

	"payment_batch_service/internal/domain/payment"
	"payment_batch_service/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IngestResult describes a persisted batch.
type IngestResult struct {
	Count int
	IDs   []int64 // in payload order
}

// IngestService validates and persists payment batches for an authenticated organization.
type IngestService struct {
	validator *payment.Validator
	repo      payment.Repository
	metrics   *metrics.Metrics
	logger    *logrus.Entry
}

func NewIngestService(v *payment.Validator, repo payment.Repository, m *metrics.Metrics, logger *logrus.Entry) *IngestService {
	return &IngestService{
		validator: v,
		repo:      repo,
		metrics:   m,
		logger:    logger,
	}
}

// Ingest runs validation, the ownership check and one atomic bulk insert, in
// that order. Any failure leaves nothing persisted. There are no retries.
func (s *IngestService) Ingest(ctx context.Context, orgID uuid.UUID, raw payment.RawBatch) (*IngestResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"org_id":  orgID,
		"records": len(raw.Payments),
	})

	// 1. Validate
	batch, err := s.validator.Validate(raw)
	if err != nil {
		var verrs *payment.ValidationErrors
		if errors.As(err, &verrs) {
			log.WithField("violations", len(verrs.Batch)+len(verrs.Records)).Info("Payment batch rejected by validation")
		}
		s.metrics.IncrementBatch(metrics.IngestOutcomeValidationFailed, 0)
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	// 2. Ownership must match the authenticated caller
	if batch.OwnerID != orgID {
		log.WithField("claimed_owner_id", batch.OwnerID).Warn("Payment batch owner does not match authenticated organization")
		s.metrics.IncrementBatch(metrics.IngestOutcomeOwnershipMismatch, 0)
		return nil, ErrOwnershipMismatch
	}

	// 3. Persist atomically
	ids, err := s.repo.BulkInsert(ctx, orgID, batch.Instructions)
	if err != nil {
		log.WithError(err).Error("Failed to persist payment batch")
		s.metrics.IncrementBatch(metrics.IngestOutcomePersistenceFailed, 0)
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	log.Info("Payment batch persisted")
	s.metrics.IncrementBatch(metrics.IngestOutcomeCreated, len(ids))
	return &IngestResult{Count: len(ids), IDs: ids}, nil
}
