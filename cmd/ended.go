package cmd

import (
	"fmt"

	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/spf13/cobra"
)

func newEndedCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ended <activity-id>",
		Short: "Report whether any context ended the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ended, err := app.ledger.IsEnded(cmd.Context(), domain.ActivityID(args[0]))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), ended)
			return err
		},
	}
}
