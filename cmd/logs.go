package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogsCmd(app *app) *cobra.Command {
	var tail int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the diagnostics log every context appends to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lines, err := app.diagnostics.Lines(cmd.Context())
			if err != nil {
				return err
			}

			if tail > 0 && len(lines) > tail {
				lines = lines[len(lines)-tail:]
			}
			for _, line := range lines {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), sanitizeForTerminal(line))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&tail, "tail", 0, "Only print the last N lines")

	return cmd
}
