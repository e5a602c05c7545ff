package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grocerycompare/price-service/config"
	"github.com/grocerycompare/price-service/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := migrationDSN()
		if err != nil {
			return err
		}
		if err := database.Migrate(cmd.Context(), dsn); err != nil {
			return err
		}
		logger.Info().Msg("Migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := migrationDSN()
		if err != nil {
			return err
		}
		if err := database.MigrateDown(cmd.Context(), dsn); err != nil {
			return err
		}
		logger.Info().Msg("Rolled back one migration")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied state of every migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := migrationDSN()
		if err != nil {
			return err
		}
		return database.MigrationStatus(cmd.Context(), dsn)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

func migrationDSN() (string, error) {
	dsn := config.GetDatabaseURL()
	if dsn == "" {
		return "", fmt.Errorf("DATABASE_URL not set")
	}
	return dsn, nil
}
