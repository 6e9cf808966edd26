package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var errMissingCredential = errors.New("remote API key is not set")

type rootOptions struct {
	configPath string
	dryRun     bool
	reset      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "mjsync",
		Short: "Sync Minijobber cloud data into the local pharmacy database",
		Long: `Fetch every Minijobber collection from the cloud API, map cloud ids to
stable local ids and write an idempotent SQL script that upserts the data
into the local database. The script is always written to disk; unless
--dry-run is given it is applied in a single transaction.

The API key is read from the environment variable named by remote.api_key_env
(default MINIJOBBER_CLOUD_KEY).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "write the script without applying it")
	cmd.Flags().BoolVar(&opts.reset, "reset", false, "delete all synced data and mappings of the pharmacy before re-importing")
	return cmd
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}
