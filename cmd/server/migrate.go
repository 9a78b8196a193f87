package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create Postgres tables and MongoDB indexes, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := connect(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		if err := a.migrate(ctx); err != nil {
			return err
		}
		zap.L().Info("✅ Migration complete")
		return nil
	},
}
