package main

import (
	"errors"
	"fmt"

	"github.com/Dan9191/loanflow/internal/config"
	"github.com/Dan9191/loanflow/internal/database"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

var migrateSteps int

// migrateCmd groups the schema commands
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewConfig()
		if err != nil {
			return err
		}
		if err := database.RunMigrations(cfg.DBConn); err != nil {
			return err
		}
		newLogger().Info("Migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateSteps < 1 {
			return fmt.Errorf("--steps must be at least 1")
		}
		cfg, err := config.NewConfig()
		if err != nil {
			return err
		}
		migrator, err := database.NewMigrator(cfg.DBConn)
		if err != nil {
			return err
		}
		defer func() {
			_, _ = migrator.Close()
		}()

		if err := migrator.Steps(-migrateSteps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down failed: %w", err)
		}
		newLogger().Infof("Rolled back %d migration(s)", migrateSteps)
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}
