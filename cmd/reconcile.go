package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/bnema/activity-ledger/internal/application"
	"github.com/spf13/cobra"
)

type reconcileOutput struct {
	Checked []string                 `json:"checked"`
	Ended   []string                 `json:"ended"`
	Pruned  *application.PruneResult `json:"pruned,omitempty"`
}

func newReconcileCmd(app *app) *cobra.Command {
	var prune bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Apply terminations recorded by other contexts to app sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out reconcileOutput
			run := func(ctx context.Context) error {
				var err error
				out, err = runReconcile(ctx, app, prune)
				return err
			}

			if asJSON {
				if err := run(cmd.Context()); err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			if err := runSpinner(cmd.Context(), cmd.ErrOrStderr(), "Reconciling sessions...", run); err != nil {
				return err
			}

			writeReconcileOutput(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&prune, "prune", false, "Also drop ledger entries and attributes the app has applied")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func runReconcile(ctx context.Context, app *app, prune bool) (reconcileOutput, error) {
	result, err := app.reconciler.Reconcile(ctx)
	if err != nil {
		return reconcileOutput{}, err
	}

	out := reconcileOutput{
		Checked: activityStrings(result.Checked),
		Ended:   activityStrings(result.Ended),
	}
	if !prune {
		return out, nil
	}

	pruned, err := app.reconciler.Prune(ctx)
	if err != nil {
		return out, err
	}
	out.Pruned = &pruned

	return out, nil
}

func writeReconcileOutput(w io.Writer, out reconcileOutput) {
	_, _ = fmt.Fprintf(w, "checked: %d\n", len(out.Checked))
	if len(out.Ended) == 0 {
		_, _ = fmt.Fprintln(w, "ended: none")
	} else {
		for _, id := range out.Ended {
			_, _ = fmt.Fprintf(w, "ended: %s\n", sanitizeForTerminal(id))
		}
	}

	if out.Pruned != nil {
		_, _ = fmt.Fprintf(w, "pruned: %d entries removed, %d kept\n", len(out.Pruned.RemovedEntries), len(out.Pruned.KeptEntries))
	}
}
