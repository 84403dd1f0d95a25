// Package cmd defines the chartsync command line.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

type rootOptions struct {
	configPath string
}

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "chartsync",
		Short: "Harvests SOUND VOLTEX chart listings from sdvx.in.",
		Long: `chartsync walks the per-level sort pages on sdvx.in, extracts one entry
per chart (name, level, link) and writes them to the configured sink:
a Notion database (default), a CSV file, a Postgres table or the log.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"config file (default is ./chartsync.yaml or $HOME/.chartsync/chartsync.yaml)")

	cmd.AddCommand(newSyncCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the command line. Errors have already been printed when it
// returns.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}
