package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rundownapp/rundown/internal/config"
	"github.com/rundownapp/rundown/internal/db"
	"github.com/rundownapp/rundown/internal/logger"
)

func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), db.RunMigrations)
		},
	}
}

func MigrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), db.MigrateDown)
		},
	}
}

func withDB(ctx context.Context, fn func(ctx context.Context, database *sql.DB, driver string) error) error {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN, "worker")

	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(database); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	return fn(ctx, database.DB, cfg.DBDriver)
}
