package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AnshRaj112/safeharbor-backend/internal/config"
	"github.com/AnshRaj112/safeharbor-backend/internal/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "safeharbor",
	Short: "Safe Harbor companion chat backend",
	Long: `safeharbor serves the Safe Harbor API: the AI companion chat,
journals, goals, check-ins and the resource library.

Running it without a subcommand is the same as "safeharbor serve".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "No .env file found")
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if _, err := logger.Init(cfg.IsProduction()); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
