package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/activity-ledger/internal/metrics"
	"github.com/spf13/cobra"
)

// skipWiring marks commands that must run without opening the store.
const skipWiring = "actl/skip-wiring"

type rootOptions struct {
	debug           bool
	configPath      string
	metricsTextfile string
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	app := &app{}

	rootCmd := &cobra.Command{
		Use:           "actl",
		Short:         "Activity ledger CLI (actl): end activity sessions from any context",
		Long:          "actl drives the cross-process termination ledger: start sessions with a live presentation, end them from the app, the presentation extension or the stop button, and reconcile the app with what other contexts ended.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipWiring] == "true" {
				return nil
			}

			wired, err := wireApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			*app = *wired
			app.logger.Debug("wired", "backend", app.cfg.GetString("store.backend"), "store", app.storePath)
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if app.closeStore != nil {
				if err := app.closeStore(); err != nil {
					app.logger.Warn("close shared store", "err", err)
				}
			}
			if opts.metricsTextfile == "" {
				return nil
			}
			return metrics.WriteTextfile(opts.metricsTextfile)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default $HOME/.activitylog/config.toml)")
	rootCmd.PersistentFlags().StringVar(&opts.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSessionCmd(app),
		newTerminateCmd(app),
		newEndedCmd(app),
		newLedgerCmd(app),
		newReconcileCmd(app),
		newWatchCmd(app),
		newLogsCmd(app),
		newSecretCmd(opts),
	)

	return rootCmd
}
