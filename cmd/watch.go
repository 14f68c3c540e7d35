package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var errWatchNeedsFile = errors.New("watch requires the toml store backend")

func newWatchCmd(app *app) *cobra.Command {
	var prune bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reconcile every time another context writes the shared store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.storePath == "" {
				return errWatchNeedsFile
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer func() { _ = watcher.Close() }()

			// The store is replaced by rename, so the directory is watched
			// rather than the file itself.
			if err := watcher.Add(filepath.Dir(app.storePath)); err != nil {
				return fmt.Errorf("watch %s: %w", filepath.Dir(app.storePath), err)
			}

			onChange := func(ctx context.Context) {
				out, err := runReconcile(ctx, app, prune)
				if err != nil {
					app.logger.Error("reconcile after store change", "err", err)
					return
				}
				writeWatchOutput(cmd.OutOrStdout(), out)
			}

			app.logger.Info("watching shared store", "path", app.storePath)
			onChange(cmd.Context())
			return watchLoop(cmd.Context(), watcher.Events, watcher.Errors, app.storePath, onChange, app.logger.Debug)
		},
	}

	cmd.Flags().BoolVar(&prune, "prune", false, "Prune after each reconcile")

	return cmd
}

// watchLoop calls onChange for every write or replacement of path until ctx
// is done or the watcher closes.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, path string, onChange func(context.Context), debugf func(any, ...any)) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			onChange(ctx)

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			debugf("fsnotify error", "err", err)
		}
	}
}

func writeWatchOutput(w io.Writer, out reconcileOutput) {
	for _, id := range out.Ended {
		_, _ = fmt.Fprintf(w, "ended: %s\n", sanitizeForTerminal(id))
	}
	if out.Pruned != nil && len(out.Pruned.RemovedEntries) > 0 {
		_, _ = fmt.Fprintf(w, "pruned: %d entries removed\n", len(out.Pruned.RemovedEntries))
	}
}
