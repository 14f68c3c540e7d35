// Package metrics holds the Prometheus collectors for the termination
// protocol. actl is short lived, so the collectors are exported through the
// node_exporter textfile format instead of an HTTP endpoint.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ledger metrics
var (
	// LedgerRecordsTotal counts RecordEnded calls by outcome (recorded, already_present, error)
	LedgerRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actl_ledger_records_total",
			Help: "Ledger record attempts by outcome",
		},
		[]string{"outcome"},
	)

	LedgerMalformedEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "actl_ledger_malformed_entries_total",
			Help: "Ledger entries skipped because they failed to parse",
		},
	)
)

// Coordinator metrics
var (
	TerminationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actl_terminations_total",
			Help: "Terminate calls by entry point",
		},
		[]string{"entry_point"},
	)

	// DismissalsTotal counts per-handle results (dismissed, failed, skipped)
	DismissalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actl_dismissals_total",
			Help: "Presentation dismissal attempts by result",
		},
		[]string{"result"},
	)
)

// Reconciler metrics
var (
	ReconciledSessions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "actl_reconciled_sessions_total",
			Help: "App sessions marked ended from the ledger",
		},
	)

	PrunedLedgerEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "actl_pruned_ledger_entries_total",
			Help: "Ledger entries removed by pruning",
		},
	)
)

// WriteTextfile dumps the default registry to path for the textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}
