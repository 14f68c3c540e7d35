package application

import (
	"context"
	"fmt"

	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/bnema/activity-ledger/internal/logging"
	"github.com/bnema/activity-ledger/internal/metrics"
	"github.com/bnema/activity-ledger/internal/ports"
	"github.com/charmbracelet/log"
)

// Reconciler is the only component allowed to shrink the shared store.
type Reconciler struct {
	ledger    *TerminationLedger
	sessions  ports.SessionRepository
	store     ports.SharedStore
	directory *PresentationDirectory
	logger    *log.Logger
}

func NewReconciler(ledger *TerminationLedger, sessions ports.SessionRepository, store ports.SharedStore, directory *PresentationDirectory, logger *log.Logger) *Reconciler {
	return &Reconciler{
		ledger:    ledger,
		sessions:  sessions,
		store:     store,
		directory: directory,
		logger:    logging.Component(logger, "reconciler"),
	}
}

type ReconcileResult struct {
	Checked []domain.ActivityID
	Ended   []domain.ActivityID
}

type PruneResult struct {
	RemovedEntries   []string
	KeptEntries      []string
	RemovedAttrOwner []domain.PresentationID
}

func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileResult, error) {
	sessions, err := r.sessions.List(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list sessions: %w", err)
	}

	var result ReconcileResult
	for _, session := range sessions {
		if session.Ended() {
			continue
		}
		result.Checked = append(result.Checked, session.ActivityID)

		entry, ended, err := r.ledger.EndedAt(ctx, session.ActivityID)
		if err != nil {
			return result, fmt.Errorf("check ledger for %q: %w", session.ActivityID, err)
		}
		if !ended {
			continue
		}

		session.EndedAt = entry.EndedAt()
		if err := r.sessions.Save(ctx, session); err != nil {
			return result, fmt.Errorf("save ended session %q: %w", session.ActivityID, err)
		}

		result.Ended = append(result.Ended, session.ActivityID)
		metrics.ReconciledSessions.Inc()
		r.logger.Info("session ended elsewhere", "activity_id", session.ActivityID, "ended_at", entry.EndedAtMillis)
	}

	return result, nil
}

// Prune keeps entries for sessions the app does not know; another install
// of the app group may still need them. A termination recorded by another
// process between the read and the rewrite is lost from the ledger, like any
// other concurrent write.
func (r *Reconciler) Prune(ctx context.Context) (PruneResult, error) {
	sessions, err := r.sessions.List(ctx)
	if err != nil {
		return PruneResult{}, fmt.Errorf("list sessions: %w", err)
	}

	applied := make(map[domain.ActivityID]domain.Session, len(sessions))
	for _, session := range sessions {
		if session.Ended() {
			applied[session.ActivityID] = session
		}
	}

	raw, err := r.ledger.RawEntries(ctx)
	if err != nil {
		return PruneResult{}, err
	}

	var result PruneResult
	for _, value := range raw {
		entry, err := domain.ParseLedgerEntry(value)
		if err != nil {
			result.RemovedEntries = append(result.RemovedEntries, value)
			continue
		}
		if _, ok := applied[entry.ActivityID]; ok {
			result.RemovedEntries = append(result.RemovedEntries, value)
			continue
		}
		result.KeptEntries = append(result.KeptEntries, value)
	}

	if len(result.RemovedEntries) == 0 {
		return result, nil
	}

	if err := r.store.ReplaceList(ctx, domain.EndedActivityIDsKey, result.KeptEntries); err != nil {
		return PruneResult{}, fmt.Errorf("rewrite ended activity ids: %w", err)
	}
	metrics.PrunedLedgerEntries.Add(float64(len(result.RemovedEntries)))

	var keys []string
	seen := map[domain.PresentationID]struct{}{}
	for _, value := range result.RemovedEntries {
		id, ok := domain.EntryActivityID(value)
		if !ok {
			continue
		}
		session, ok := applied[id]
		if !ok || session.PresentationID == "" {
			continue
		}
		if _, dup := seen[session.PresentationID]; dup {
			continue
		}
		seen[session.PresentationID] = struct{}{}
		keys = append(keys, r.directory.AttributeKeys(session.PresentationID)...)
		result.RemovedAttrOwner = append(result.RemovedAttrOwner, session.PresentationID)
	}

	if err := r.store.DeleteKeys(ctx, keys...); err != nil {
		return result, fmt.Errorf("delete orphaned attributes: %w", err)
	}

	r.logger.Info("pruned ledger", "removed", len(result.RemovedEntries), "kept", len(result.KeptEntries))
	return result, nil
}
