package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of a run.
type Metrics struct {
	registry *prometheus.Registry

	// Ingest metrics
	RecordsRead      prometheus.Counter
	RecordsMalformed *prometheus.CounterVec

	// Transaction metrics
	TransactionsApplied  *prometheus.CounterVec
	TransactionsRejected *prometheus.CounterVec
	TransactionAmount    *prometheus.HistogramVec
	ReplayDuration       prometheus.Histogram

	// Ledger metrics
	LedgerEntries        prometheus.Gauge
	LedgerInvalidEntries prometheus.Gauge
	Accounts             prometheus.Gauge
	LockedAccounts       prometheus.Gauge

	// Reconciliation metrics
	ReconciliationDiscrepancies prometheus.Gauge

	// Run metrics
	RunInfo *prometheus.GaugeVec
}

// New creates all metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		// Ingest metrics
		RecordsRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "tpe_records_read_total",
			Help: "Total number of input records read",
		}),
		RecordsMalformed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tpe_records_malformed_total",
				Help: "Total number of input records rejected before reaching the ledger",
			},
			[]string{"reason"},
		),

		// Transaction metrics
		TransactionsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tpe_transactions_applied_total",
				Help: "Total number of ledger entries applied to a snapshot",
			},
			[]string{"kind"},
		),
		TransactionsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tpe_transactions_rejected_total",
				Help: "Total number of ledger entries invalidated during replay",
			},
			[]string{"kind", "reason"},
		),
		TransactionAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tpe_transaction_amount",
				Help:    "Amounts of applied deposits and withdrawals",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"kind"},
		),
		ReplayDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tpe_replay_duration_seconds",
			Help:    "Duration of a single snapshot catch-up",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10),
		}),

		// Ledger metrics
		LedgerEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tpe_ledger_entries",
			Help: "Number of ledger entries, valid or not",
		}),
		LedgerInvalidEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tpe_ledger_invalid_entries",
			Help: "Number of invalidated ledger entries",
		}),
		Accounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tpe_accounts",
			Help: "Number of client accounts",
		}),
		LockedAccounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tpe_accounts_locked",
			Help: "Number of locked client accounts",
		}),

		// Reconciliation metrics
		ReconciliationDiscrepancies: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tpe_reconciliation_discrepancies",
			Help: "Number of accounts whose snapshot disagrees with the ledger",
		}),

		// Run metrics
		RunInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tpe_run_info",
				Help: "Constant 1, labelled with the run ID",
			},
			[]string{"run_id"},
		),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every metric to path in the text exposition format,
// suitable for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
