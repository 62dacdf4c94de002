package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rpattn/sprintmetrics/internal/config"
	"github.com/rpattn/sprintmetrics/internal/db"
)

var migrationsPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsPath, "migrations", "migrations", "directory containing .up.sql files")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := db.RunMigrations(cfg.Database, migrationsPath); err != nil {
		return err
	}
	color.Green("✓ schema is up to date")
	return nil
}
