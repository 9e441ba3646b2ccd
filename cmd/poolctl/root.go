package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/capital-pool/internal/app"
	"github.com/josh-kwaku/capital-pool/internal/config"
	"github.com/josh-kwaku/capital-pool/internal/logging"
)

var validFormats = []string{"text", "json"}

type rootOptions struct {
	Format string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "poolctl",
		Short:         "Operate the capital pool ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(newAccrueCommand(opts))
	cmd.AddCommand(newReconcileCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newPurgeCommand(opts))
	cmd.AddCommand(newPreviewCommand(opts))

	return cmd
}

// connect loads the shared config, logs to stderr and opens the ledger.
func connect(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.InitTo(os.Stderr, "capital-pool-poolctl", cfg.LogLevel, cfg.AppEnv)

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// output writes v as JSON, or calls text for the human format.
func output(w io.Writer, opts *rootOptions, v any, text func(io.Writer) error) error {
	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}
