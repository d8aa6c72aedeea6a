package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SashaDiz/autoved-sub000/internal/server"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			store, err := server.OpenStore(cmd.Context(), rt.cfg.Database)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := store.Close(); cerr != nil {
					rt.logger.Warn("close catalog store failed", zap.Error(cerr))
				}
			}()
			if err := store.EnsureSchema(cmd.Context()); err != nil {
				return fmt.Errorf("ensure catalog schema: %w", err)
			}
			rt.logger.Info("catalog schema ready", zap.String("driver", rt.cfg.Database.Driver))
			return nil
		},
	}
}
