// Package cmd defines the CLI commands of the harvester executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/social-comment-harvester/internal/app"
	"github.com/JakeFAU/social-comment-harvester/internal/config"
	"github.com/JakeFAU/social-comment-harvester/internal/logging"
)

// runtime carries what PersistentPreRunE loaded to the subcommands.
type runtime struct {
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
}

// newApp is the application factory; tests replace it.
var newApp = app.New

func newRootCmd() *cobra.Command {
	rt := &runtime{}
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Harvests and scores comments from social media pages.",
		Long: `harvester drives a headless browser through social media pages, extracts
their comment threads, scores each comment's sentiment and stores the results.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(rt.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			rt.cfg = cfg
			rt.logger = logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync() //nolint:errcheck // stderr sync fails on some terminals
			}
		},
	}

	cmd.PersistentFlags().StringVar(&rt.cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.AddCommand(newServeCmd(rt))
	cmd.AddCommand(newScrapeCmd(rt))
	return cmd
}

func (rt *runtime) buildApp(ctx context.Context) (*app.App, error) {
	a, err := newApp(ctx, rt.cfg, rt.logger)
	if err != nil {
		return nil, fmt.Errorf("initialize application services: %w", err)
	}
	return a, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
