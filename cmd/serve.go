package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SashaDiz/autoved-sub000/internal/config"
	"github.com/SashaDiz/autoved-sub000/internal/server"
)

// runner is the part of server.App the serve command drives.
type runner interface {
	Run(ctx context.Context) error
}

// buildApp is the application factory. It's a variable so tests can substitute a fake.
var buildApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (runner, error) {
	return server.Build(ctx, cfg, logger)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook gateway and catalog API",
		Long: `Builds the ingestion pipeline from configuration and serves HTTP until SIGINT or
SIGTERM arrives.`,
		Args: cobra.NoArgs,
		RunE: runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	app, err := buildApp(cmd.Context(), rt.cfg, rt.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	if err := app.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run server: %w", err)
	}
	rt.logger.Info("serve command finished")
	return nil
}
