package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/bnema/activity-ledger/internal/logging"
	"github.com/bnema/activity-ledger/internal/metrics"
	"github.com/bnema/activity-ledger/internal/ports"
	"github.com/charmbracelet/log"
)

// TerminationLedger is the append-only record of ended sessions shared by
// every process. The store may hold near-duplicate entries written in a
// race; the first entry for an id is authoritative.
type TerminationLedger struct {
	store       ports.SharedStore
	clock       ports.Clock
	diagnostics *DiagnosticLog
	logger      *log.Logger
}

func NewTerminationLedger(store ports.SharedStore, clock ports.Clock, diagnostics *DiagnosticLog, logger *log.Logger) *TerminationLedger {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &TerminationLedger{
		store:       store,
		clock:       clock,
		diagnostics: diagnostics,
		logger:      logging.Component(logger, "ledger"),
	}
}

func (l *TerminationLedger) RecordEnded(ctx context.Context, id domain.ActivityID) (domain.Outcome, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}

	raw, err := l.store.ReadList(ctx, domain.EndedActivityIDsKey)
	if err != nil {
		metrics.LedgerRecordsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("read ended activity ids: %w", err)
	}

	if _, ok := l.firstMatch(raw, id); ok {
		metrics.LedgerRecordsTotal.WithLabelValues(string(domain.OutcomeAlreadyPresent)).Inc()
		l.logger.Debug("ended activity already in ledger", "activity_id", id)
		l.diagnostics.Appendf(ctx, "Ended activity (%s) already exists in shared data", id)
		return domain.OutcomeAlreadyPresent, nil
	}

	entry := domain.NewLedgerEntry(id, l.clock.Now())
	if err := l.store.AppendAndPersist(ctx, domain.EndedActivityIDsKey, entry.String()); err != nil {
		metrics.LedgerRecordsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("append ended activity %q: %w", id, err)
	}

	metrics.LedgerRecordsTotal.WithLabelValues(string(domain.OutcomeRecorded)).Inc()
	l.logger.Info("recorded ended activity", "activity_id", id, "ended_at", entry.EndedAtMillis)
	return domain.OutcomeRecorded, nil
}

func (l *TerminationLedger) IsEnded(ctx context.Context, id domain.ActivityID) (bool, error) {
	_, ok, err := l.EndedAt(ctx, id)
	return ok, err
}

func (l *TerminationLedger) EndedAt(ctx context.Context, id domain.ActivityID) (domain.LedgerEntry, bool, error) {
	raw, err := l.store.ReadList(ctx, domain.EndedActivityIDsKey)
	if err != nil {
		return domain.LedgerEntry{}, false, fmt.Errorf("read ended activity ids: %w", err)
	}

	entry, ok := l.firstMatch(raw, id)
	return entry, ok, nil
}

func (l *TerminationLedger) Entries(ctx context.Context) ([]domain.LedgerEntry, error) {
	raw, err := l.store.ReadList(ctx, domain.EndedActivityIDsKey)
	if err != nil {
		return nil, fmt.Errorf("read ended activity ids: %w", err)
	}

	entries := make([]domain.LedgerEntry, 0, len(raw))
	for _, value := range raw {
		entry, err := l.parse(value)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (l *TerminationLedger) RawEntries(ctx context.Context) ([]string, error) {
	raw, err := l.store.ReadList(ctx, domain.EndedActivityIDsKey)
	if err != nil {
		return nil, fmt.Errorf("read ended activity ids: %w", err)
	}

	return raw, nil
}

func (l *TerminationLedger) firstMatch(raw []string, id domain.ActivityID) (domain.LedgerEntry, bool) {
	for _, value := range raw {
		entry, err := l.parse(value)
		if err != nil {
			continue
		}
		if entry.ActivityID == id {
			return entry, true
		}
	}

	return domain.LedgerEntry{}, false
}

func (l *TerminationLedger) parse(value string) (domain.LedgerEntry, error) {
	entry, err := domain.ParseLedgerEntry(value)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedLedgerEntry) {
			metrics.LedgerMalformedEntries.Inc()
		}
		l.logger.Warn("skipping ledger entry", "err", err)
		return domain.LedgerEntry{}, err
	}

	return entry, nil
}
