package application

import (
	"context"
	"errors"

	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/bnema/activity-ledger/internal/logging"
	"github.com/bnema/activity-ledger/internal/metrics"
	"github.com/bnema/activity-ledger/internal/ports"
	"github.com/charmbracelet/log"
)

const (
	EntryPointApp        = "app"
	EntryPointExtension  = "extension"
	EntryPointStopButton = "stop-button"
)

type AttributeResolver interface {
	AttributesFor(ctx context.Context, id domain.PresentationID) (domain.SessionAttributes, error)
}

type TerminationCoordinator struct {
	ledger      *TerminationLedger
	registry    ports.PresentationRegistry
	directory   AttributeResolver
	diagnostics *DiagnosticLog
	logger      *log.Logger
}

func NewTerminationCoordinator(ledger *TerminationLedger, registry ports.PresentationRegistry, directory AttributeResolver, diagnostics *DiagnosticLog, logger *log.Logger) *TerminationCoordinator {
	return &TerminationCoordinator{
		ledger:      ledger,
		registry:    registry,
		directory:   directory,
		diagnostics: diagnostics,
		logger:      logging.Component(logger, "coordinator"),
	}
}

type TerminateOption func(*terminateOptions)

type terminateOptions struct {
	entryPoint     string
	presentationID domain.PresentationID
}

func Via(entryPoint string) TerminateOption {
	return func(o *terminateOptions) {
		o.entryPoint = entryPoint
	}
}

// FromPresentation names the presentation whose stop affordance was tapped.
// That handle is dismissed even when its attributes cannot be read.
func FromPresentation(id domain.PresentationID) TerminateOption {
	return func(o *terminateOptions) {
		o.presentationID = id
	}
}

type TerminationReport struct {
	ActivityID    domain.ActivityID
	EntryPoint    string
	Outcome       domain.Outcome
	LedgerErr     error
	RegistryErr   error
	Dismissed     []domain.PresentationID
	DismissFailed []domain.PresentationID
	Skipped       []domain.PresentationID
}

func (r TerminationReport) Converged() bool {
	return r.LedgerErr == nil && r.RegistryErr == nil && len(r.DismissFailed) == 0
}

// Terminate never fails outward and cannot be cancelled once started: the
// ledger write and every matching dismissal run to completion. A duplicate
// call still dismisses, since the caller may own a presentation the first
// writer never saw.
func (c *TerminationCoordinator) Terminate(ctx context.Context, id domain.ActivityID, opts ...TerminateOption) TerminationReport {
	ctx = context.WithoutCancel(ctx)

	options := terminateOptions{entryPoint: EntryPointApp}
	for _, opt := range opts {
		opt(&options)
	}

	report := TerminationReport{ActivityID: id, EntryPoint: options.entryPoint}
	metrics.TerminationsTotal.WithLabelValues(options.entryPoint).Inc()
	logger := c.logger.With("activity_id", id, "entry_point", options.entryPoint)

	outcome, err := c.ledger.RecordEnded(ctx, id)
	if err != nil {
		report.LedgerErr = err
		logger.Error("record ended activity", "err", err)
		c.diagnostics.Appendf(ctx, "Failed to record ended activity (%s): %v", id, err)
		if errors.Is(err, domain.ErrInvalidActivityID) {
			return report
		}
	} else {
		report.Outcome = outcome
	}

	handles, err := c.registry.LiveHandles(ctx)
	if err != nil {
		report.RegistryErr = err
		logger.Error("list live presentations", "err", err)
		return report
	}
	c.diagnostics.Appendf(ctx, "Live Activities: %d", len(handles))

	for _, handle := range handles {
		switch c.match(ctx, logger, handle, id, options.presentationID) {
		case matchOther:
			continue
		case matchUnresolved:
			report.Skipped = append(report.Skipped, handle.ID())
			metrics.DismissalsTotal.WithLabelValues("skipped").Inc()
			continue
		}

		if err := handle.Dismiss(ctx); err != nil {
			report.DismissFailed = append(report.DismissFailed, handle.ID())
			metrics.DismissalsTotal.WithLabelValues("failed").Inc()
			logger.Warn("dismiss presentation", "presentation_id", handle.ID(), "err", err)
			continue
		}

		report.Dismissed = append(report.Dismissed, handle.ID())
		metrics.DismissalsTotal.WithLabelValues("dismissed").Inc()
		logger.Debug("dismissed presentation", "presentation_id", handle.ID())
		c.diagnostics.Appendf(ctx, "Ending live activity from %s: %s", options.entryPoint, handle.ID())
	}

	return report
}

type matchResult int

const (
	matchOther matchResult = iota
	matchTarget
	matchUnresolved
)

func (c *TerminationCoordinator) match(ctx context.Context, logger *log.Logger, handle ports.PresentationHandle, id domain.ActivityID, tapped domain.PresentationID) matchResult {
	attrs, err := c.directory.AttributesFor(ctx, handle.ID())
	if err == nil {
		if attrs.ActivityID == id {
			return matchTarget
		}
		return matchOther
	}

	if tapped != "" && handle.ID() == tapped {
		logger.Warn("attributes unreadable, matching tapped presentation by id", "presentation_id", handle.ID(), "err", err)
		return matchTarget
	}
	if identified, ok := handle.(ports.ActivityIdentified); ok && identified.ActivityID() != "" {
		logger.Warn("attributes unreadable, matching presentation by its own activity id", "presentation_id", handle.ID(), "err", err)
		if identified.ActivityID() == id {
			return matchTarget
		}
		return matchOther
	}

	logger.Warn("skipping presentation without attributes", "presentation_id", handle.ID(), "err", err)
	return matchUnresolved
}
