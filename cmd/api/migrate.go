package main

import (
	"github.com/spf13/cobra"

	"github.com/assetvault/service/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
	Long: `Applies every pending migration embedded in the binary.

With --down N, reverts the last N applied migrations instead.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

var migrateDown int

func init() {
	migrateCmd.Flags().IntVar(&migrateDown, "down", 0, "number of migrations to roll back")
}

func runMigrate(_ *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	if migrateDown > 0 {
		return db.Rollback(cfg.DatabaseURL, migrateDown, log)
	}
	return db.Migrate(cfg.DatabaseURL, log)
}
