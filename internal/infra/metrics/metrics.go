package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Export run outcomes.
const (
	ExportOutcomeExported      = "exported"
	ExportOutcomeNoop          = "noop"
	ExportOutcomeFailed        = "failed"
	ExportOutcomeHandoffFailed = "handoff_failed"
)

// Intake outcomes.
const (
	IngestOutcomeCreated           = "created"
	IngestOutcomeValidationFailed  = "validation_failed"
	IngestOutcomeOwnershipMismatch = "ownership_mismatch"
	IngestOutcomePersistenceFailed = "persistence_failed"
)

// Metrics provides observability for batch intake and export. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	BatchesIngested  *prometheus.CounterVec
	PaymentsIngested prometheus.Counter
	ExportRuns       *prometheus.CounterVec
	PaymentsExported prometheus.Counter
	ExportDuration   prometheus.Histogram
}

// New registers all metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BatchesIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_batches_ingested_total",
			Help: "Payment batches received, by outcome",
		}, []string{"outcome"}),

		PaymentsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "payments_instructions_ingested_total",
			Help: "Payment instructions persisted as pending",
		}),

		ExportRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_export_runs_total",
			Help: "Export runs, by outcome",
		}, []string{"outcome"}),

		PaymentsExported: factory.NewCounter(prometheus.CounterOpts{
			Name: "payments_instructions_exported_total",
			Help: "Payment instructions marked exported",
		}),

		ExportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "payments_export_duration_seconds",
			Help:    "Duration of export runs including handoff",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
}

// IncrementBatch records one intake outcome and, on success, the rows persisted.
func (m *Metrics) IncrementBatch(outcome string, persisted int) {
	if m == nil {
		return
	}
	m.BatchesIngested.WithLabelValues(outcome).Inc()
	if persisted > 0 {
		m.PaymentsIngested.Add(float64(persisted))
	}
}

// ObserveExport records one export run.
func (m *Metrics) ObserveExport(outcome string, exported int, d time.Duration) {
	if m == nil {
		return
	}
	m.ExportRuns.WithLabelValues(outcome).Inc()
	if exported > 0 {
		m.PaymentsExported.Add(float64(exported))
	}
	m.ExportDuration.Observe(d.Seconds())
}
