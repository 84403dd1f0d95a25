package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/sdvx-chart-sync/internal/app"
	"github.com/JakeFAU/sdvx-chart-sync/internal/config"
	"github.com/JakeFAU/sdvx-chart-sync/internal/logging"
	"github.com/JakeFAU/sdvx-chart-sync/internal/report"
)

type syncOptions struct {
	*rootOptions
	sink     string
	minLevel int
	maxLevel int
}

func newSyncCmd(root *rootOptions) *cobra.Command {
	opts := &syncOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetches every level page and writes the chart entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.sink, "sink", "", "sink kind: notion, csv, postgres or log")
	cmd.Flags().IntVar(&opts.minLevel, "min-level", 0, "first level to fetch")
	cmd.Flags().IntVar(&opts.maxLevel, "max-level", 0, "last level to fetch")
	return cmd
}

func (o *syncOptions) overrides(cmd *cobra.Command) map[string]any {
	out := map[string]any{}
	if cmd.Flags().Changed("sink") {
		out["sink.kind"] = o.sink
	}
	if cmd.Flags().Changed("min-level") {
		out["source.min_level"] = o.minLevel
	}
	if cmd.Flags().Changed("max-level") {
		out["source.max_level"] = o.maxLevel
	}
	return out
}

func runSync(cmd *cobra.Command, opts *syncOptions) error {
	cfg, err := config.LoadWith(opts.configPath, opts.overrides(cmd))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		// Syncing stdout fails with EINVAL on some terminals.
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("shutdown incomplete", zap.Error(cerr))
		}
	}()

	summary, err := a.Run(ctx)
	if summary.RunID != "" {
		report.Render(cmd.OutOrStdout(), summary)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("run interrupted", zap.Int("processed", summary.Processed))
			return nil
		}
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
