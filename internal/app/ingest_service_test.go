package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"payment_batch_service/internal/domain/payment"
	"payment_batch_service/internal/infra/logger"
	"payment_batch_service/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIngestService(repo payment.Repository, m *metrics.Metrics) *IngestService {
	v := payment.NewValidator([]string{"AUD"}, sydney, clock)
	return NewIngestService(v, repo, m, logger.Discard())
}

func TestIngest_PersistsValidBatchAsPending(t *testing.T) {
	repo := newFakeRepository()
	m := metrics.New(prometheus.NewRegistry())
	svc := newIngestService(repo, m)
	org := uuid.New()

	res, err := svc.Ingest(context.Background(), org, rawBatch(org,
		rawInstruction("emp-1", 150000, "2026-10-15"),
		rawInstruction("emp-2", 1, "2026-11-01"),
	))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, []int64{1, 2}, res.IDs)

	rows := repo.snapshot()
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, org, row.OrganizationID)
		assert.Equal(t, payment.StatusPending, row.Status)
		assert.False(t, row.ExportedFileID.Valid)
	}
	assert.Equal(t, "emp-1", rows[0].EmployeeID)
	assert.Equal(t, int64(150000), rows[0].AmountMinorUnits)
	assert.Equal(t, today, rows[0].PayDate)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesIngested.WithLabelValues(metrics.IngestOutcomeCreated)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PaymentsIngested))
}

func TestIngest_ValidationFailurePersistsNothing(t *testing.T) {
	repo := newFakeRepository()
	svc := newIngestService(repo, nil)
	org := uuid.New()

	bad := rawInstruction("emp-2", 0, "2026-10-14")
	_, err := svc.Ingest(context.Background(), org, rawBatch(org,
		rawInstruction("emp-1", 100, "2026-10-15"),
		bad,
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)

	var verrs *payment.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{"must be greater than 0"}, verrs.For(1, payment.FieldAmountMinorUnits))
	assert.Equal(t, []string{"can't be in the past"}, verrs.For(1, payment.FieldPayDate))
	assert.Empty(t, verrs.For(0, payment.FieldAmountMinorUnits))

	assert.Empty(t, repo.snapshot())
}

func TestIngest_OwnershipMismatchPersistsNothing(t *testing.T) {
	repo := newFakeRepository()
	svc := newIngestService(repo, nil)

	_, err := svc.Ingest(context.Background(), uuid.New(), rawBatch(uuid.New(),
		rawInstruction("emp-1", 100, "2026-10-15"),
	))
	require.ErrorIs(t, err, ErrOwnershipMismatch)
	assert.NotErrorIs(t, err, ErrValidationFailed)
	assert.Empty(t, repo.snapshot())
}

func TestIngest_ValidationRunsBeforeOwnershipCheck(t *testing.T) {
	svc := newIngestService(newFakeRepository(), nil)

	_, err := svc.Ingest(context.Background(), uuid.New(), rawBatch(uuid.New()))
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestIngest_StoreRejectionIsPersistenceFailure(t *testing.T) {
	repo := newFakeRepository()
	repo.insertErr = errors.New("connection reset")
	svc := newIngestService(repo, nil)
	org := uuid.New()

	_, err := svc.Ingest(context.Background(), org, rawBatch(org,
		rawInstruction("emp-1", 100, "2026-10-15"),
	))
	require.ErrorIs(t, err, ErrPersistenceFailed)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Empty(t, repo.snapshot())
}

func TestIngest_ConcurrentBatchesAreIndependent(t *testing.T) {
	repo := newFakeRepository()
	svc := newIngestService(repo, nil)

	const batches = 8
	var wg sync.WaitGroup
	errs := make([]error, batches)
	for i := range batches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			org := uuid.New()
			_, errs[i] = svc.Ingest(context.Background(), org, rawBatch(org,
				rawInstruction(fmt.Sprintf("emp-%d-a", i), 100, "2026-10-15"),
				rawInstruction(fmt.Sprintf("emp-%d-b", i), 200, "2026-10-16"),
			))
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, repo.snapshot(), batches*2)
}
