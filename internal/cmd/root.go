package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/product-links/internal/config"
	"github.com/spec-kit/product-links/internal/observability"
)

const (
	appName     = "product-links"
	description = "Product catalogue with signed, expiring public product links"
)

// version is overridden at build time with -ldflags "-X ...cmd.version=...".
var version = "dev"

// Execute adds all child commands to the root command and runs it.
// This is called by main.main(). It only needs to happen once.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         description,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newStaffCmd(),
		newLinkCmd(),
		newCRMCmd(),
	)
	return rootCmd
}

type cliRuntime struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadRuntime() (*cliRuntime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return &cliRuntime{cfg: cfg, logger: logger.With(zap.String("service", cfg.App.Name))}, nil
}

func (r *cliRuntime) close() {
	_ = r.logger.Sync()
}
