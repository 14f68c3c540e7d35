package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/activity-ledger/internal/config"
	"github.com/spf13/cobra"
)

// Secret commands run before the store is wired: the Redis backend may need
// the very password they manage in order to connect.
func newSecretCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage store credentials (pass first, file fallback)",
	}

	cmd.AddCommand(
		newSecretSetCmd(opts),
		newSecretDeleteCmd(opts),
	)

	return cmd
}

func newSecretSetCmd(opts *rootOptions) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:         "set <key>",
		Short:       "Store a credential, e.g. the one redis.password_ref points to",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipWiring: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if value == "" {
				read, err := readSecretValue(cmd.InOrStdin())
				if err != nil {
					return err
				}
				value = read
			}

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			secrets, err := wireSecretStore(cfg)
			if err != nil {
				return err
			}

			if err := secrets.Put(cmd.Context(), args[0], value); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored secret %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "Secret value (default: first line of stdin)")

	return cmd
}

func newSecretDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:         "delete <key>",
		Short:       "Remove a stored credential",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipWiring: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			secrets, err := wireSecretStore(cfg)
			if err != nil {
				return err
			}

			if err := secrets.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted secret %s\n", args[0])
			return nil
		},
	}
}

func readSecretValue(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read secret from stdin: %w", err)
	}

	value := strings.TrimRight(line, "\r\n")
	if value == "" {
		return "", errors.New("secret value is empty")
	}

	return value, nil
}
