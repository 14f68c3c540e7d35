package application

import (
	"context"
	"fmt"

	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/bnema/activity-ledger/internal/logging"
	"github.com/bnema/activity-ledger/internal/ports"
	"github.com/charmbracelet/log"
)

const DefaultDiagnosticsMaxLines = 200

// Failures here are logged and swallowed.
type DiagnosticLog struct {
	store    ports.SharedStore
	clock    ports.Clock
	maxLines int
	logger   *log.Logger
}

func NewDiagnosticLog(store ports.SharedStore, clock ports.Clock, maxLines int, logger *log.Logger) *DiagnosticLog {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if maxLines <= 0 {
		maxLines = DefaultDiagnosticsMaxLines
	}

	return &DiagnosticLog{store: store, clock: clock, maxLines: maxLines, logger: logging.Component(logger, "diagnostics")}
}

func (d *DiagnosticLog) Appendf(ctx context.Context, format string, args ...any) {
	if d == nil || d.store == nil {
		return
	}

	line := d.clock.Now().UTC().Format("2006-01-02T15:04:05.000Z") + " " + fmt.Sprintf(format, args...)
	if err := d.store.AppendAndPersist(ctx, domain.DiagnosticsLogKey, line); err != nil {
		d.logger.Warn("append diagnostic line", "err", err)
		return
	}

	lines, err := d.store.ReadList(ctx, domain.DiagnosticsLogKey)
	if err != nil || len(lines) <= d.maxLines {
		return
	}
	if err := d.store.ReplaceList(ctx, domain.DiagnosticsLogKey, lines[len(lines)-d.maxLines:]); err != nil {
		d.logger.Warn("trim diagnostic log", "err", err)
	}
}

func (d *DiagnosticLog) Lines(ctx context.Context) ([]string, error) {
	lines, err := d.store.ReadList(ctx, domain.DiagnosticsLogKey)
	if err != nil {
		return nil, fmt.Errorf("read diagnostic log: %w", err)
	}

	return lines, nil
}
