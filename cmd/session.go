package cmd

import (
	"encoding/json"
	"fmt"

	statusadapter "github.com/bnema/activity-ledger/internal/adapters/render/status"
	"github.com/bnema/activity-ledger/internal/application"
	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/spf13/cobra"
)

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Start and list activity sessions",
	}

	cmd.AddCommand(
		newSessionStartCmd(app),
		newSessionListCmd(app),
	)

	return cmd
}

func newSessionStartCmd(app *app) *cobra.Command {
	var name string
	var activityID string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a session and show its live presentation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := app.sessions.Start(cmd.Context(), application.StartSessionCommand{
				ActivityID: domain.ActivityID(activityID),
				Name:       name,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Started session %s (presentation %s)\n", session.ActivityID, session.PresentationID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Activity name shown on the presentation")
	cmd.Flags().StringVar(&activityID, "activity-id", "", "Activity ID (default: generated)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

type liveSessionOutput struct {
	PresentationID string `json:"presentation_id"`
	ActivityID     string `json:"activity_id,omitempty"`
	Name           string `json:"name,omitempty"`
	StartedAtMS    int64  `json:"session_start_timestamp,omitempty"`
	Error          string `json:"error,omitempty"`
}

func newSessionListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show live presentations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			live, err := app.sessions.Live(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				out := make([]liveSessionOutput, 0, len(live))
				for _, session := range live {
					entry := liveSessionOutput{PresentationID: string(session.PresentationID)}
					if session.Err != nil {
						entry.Error = session.Err.Error()
					} else {
						entry.ActivityID = string(session.Attributes.ActivityID)
						entry.Name = session.Attributes.ActivityName
						entry.StartedAtMS = session.Attributes.SessionStartEpochMillis
					}
					out = append(out, entry)
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			rendered, err := app.statusRenderer(live, statusadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render sessions: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}
