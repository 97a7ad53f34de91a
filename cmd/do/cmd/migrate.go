package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/templui/repcycle/internal/config"
	"github.com/templui/repcycle/internal/db"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}

	cmd.AddCommand(
		migrateAction("up", "Apply all pending migrations", func(ctx context.Context, database *sqlx.DB, driver string) error {
			return db.RunMigrationsContext(ctx, database.DB, driver)
		}),
		migrateAction("down", "Roll back the latest migration", func(ctx context.Context, database *sqlx.DB, driver string) error {
			return db.MigrateDown(ctx, database.DB, driver)
		}),
		migrateAction("status", "Print the current schema version", func(ctx context.Context, database *sqlx.DB, driver string) error {
			version, err := db.Version(ctx, database.DB, driver)
			if err != nil {
				return err
			}
			fmt.Printf("schema version: %d\n", version)
			return nil
		}),
	)
	return cmd
}

func migrateAction(use, short string, fn func(ctx context.Context, database *sqlx.DB, driver string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close(database)

			return fn(cmd.Context(), database, cfg.DBDriver)
		},
	}
}

func openDB(cfg *config.Config) (*sqlx.DB, error) {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}
