package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/activity-ledger/internal/application"
	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/spf13/cobra"
)

var errInvalidContext = errors.New("invalid context")

type terminateOutput struct {
	ActivityID    string   `json:"activity_id"`
	EntryPoint    string   `json:"entry_point"`
	Outcome       string   `json:"outcome,omitempty"`
	LedgerError   string   `json:"ledger_error,omitempty"`
	RegistryError string   `json:"registry_error,omitempty"`
	Dismissed     []string `json:"dismissed"`
	DismissFailed []string `json:"dismiss_failed,omitempty"`
	Skipped       []string `json:"skipped,omitempty"`
}

func newTerminateCmd(app *app) *cobra.Command {
	var entryPoint string
	var presentationID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "terminate <activity-id>",
		Short: "End a session from the app, the extension or the stop button",
		Long:  "terminate records the session as ended in the shared ledger and dismisses every live presentation that belongs to it. It succeeds even when a step fails; the report lists what happened.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch entryPoint {
			case application.EntryPointApp, application.EntryPointExtension, application.EntryPointStopButton:
			default:
				return fmt.Errorf("%w %q (want %s, %s or %s)", errInvalidContext, entryPoint,
					application.EntryPointApp, application.EntryPointExtension, application.EntryPointStopButton)
			}

			opts := []application.TerminateOption{application.Via(entryPoint)}
			if presentationID != "" {
				opts = append(opts, application.FromPresentation(domain.PresentationID(presentationID)))
			}

			report := app.coordinator.Terminate(cmd.Context(), domain.ActivityID(args[0]), opts...)
			if errors.Is(report.LedgerErr, domain.ErrInvalidActivityID) {
				return report.LedgerErr
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(toTerminateOutput(report))
			}

			writeTerminateReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVar(&entryPoint, "context", application.EntryPointApp, "Execution context: app, extension or stop-button")
	cmd.Flags().StringVar(&presentationID, "presentation", "", "Presentation the stop affordance was tapped on")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func writeTerminateReport(w io.Writer, report application.TerminationReport) {
	switch {
	case report.LedgerErr != nil:
		_, _ = fmt.Fprintf(w, "activity %s: ledger write failed: %v\n", report.ActivityID, report.LedgerErr)
	case report.Outcome == domain.OutcomeAlreadyPresent:
		_, _ = fmt.Fprintf(w, "activity %s: already ended\n", report.ActivityID)
	default:
		_, _ = fmt.Fprintf(w, "activity %s: ended\n", report.ActivityID)
	}

	if report.RegistryErr != nil {
		_, _ = fmt.Fprintf(w, "presentations: unavailable: %v\n", report.RegistryErr)
		return
	}

	_, _ = fmt.Fprintf(w, "dismissed: %s\n", joinIDs(report.Dismissed))
	if len(report.DismissFailed) > 0 {
		_, _ = fmt.Fprintf(w, "dismiss failed: %s\n", joinIDs(report.DismissFailed))
	}
	if len(report.Skipped) > 0 {
		_, _ = fmt.Fprintf(w, "skipped (attributes missing): %s\n", joinIDs(report.Skipped))
	}
}

func toTerminateOutput(report application.TerminationReport) terminateOutput {
	out := terminateOutput{
		ActivityID:    string(report.ActivityID),
		EntryPoint:    report.EntryPoint,
		Outcome:       string(report.Outcome),
		Dismissed:     idStrings(report.Dismissed),
		DismissFailed: idStrings(report.DismissFailed),
		Skipped:       idStrings(report.Skipped),
	}
	if report.LedgerErr != nil {
		out.LedgerError = report.LedgerErr.Error()
	}
	if report.RegistryErr != nil {
		out.RegistryError = report.RegistryErr.Error()
	}

	return out
}

func idStrings(ids []domain.PresentationID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func joinIDs(ids []domain.PresentationID) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(idStrings(ids), ", ")
}
