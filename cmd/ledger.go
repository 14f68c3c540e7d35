package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/spf13/cobra"
)

const ledgerTimeFormat = "2006-01-02T15:04:05.000Z07:00"

func newLedgerCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the ended activity ledger",
	}

	cmd.AddCommand(newLedgerListCmd(app))

	return cmd
}

type ledgerEntryOutput struct {
	Raw           string `json:"raw"`
	ActivityID    string `json:"activity_id,omitempty"`
	EndedAtMillis int64  `json:"ended_at_millis,omitempty"`
	Error         string `json:"error,omitempty"`
}

func newLedgerListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger entries in stored order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := app.ledger.RawEntries(cmd.Context())
			if err != nil {
				return err
			}

			entries := make([]ledgerEntryOutput, 0, len(raw))
			for _, value := range raw {
				out := ledgerEntryOutput{Raw: value}
				entry, err := domain.ParseLedgerEntry(value)
				if err != nil {
					out.Error = err.Error()
				} else {
					out.ActivityID = string(entry.ActivityID)
					out.EndedAtMillis = entry.EndedAtMillis
				}
				entries = append(entries, out)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			if len(entries) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "ledger: empty")
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			for _, entry := range entries {
				if entry.Error != "" {
					_, _ = fmt.Fprintf(tw, "%s\t[malformed]\t%s\n", sanitizeForTerminal(entry.Raw), entry.Error)
					continue
				}
				endedAt := time.UnixMilli(entry.EndedAtMillis).UTC().Format(ledgerTimeFormat)
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\n", sanitizeForTerminal(entry.ActivityID), endedAt, entry.EndedAtMillis)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}
