package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/rundownapp/rundown/internal/app"
	"github.com/rundownapp/rundown/internal/config"
	"github.com/rundownapp/rundown/internal/logger"
)

// withApp loads config, builds the app and runs fn with it.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN, "worker")
	defer logger.Flush()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	return fn(ctx, a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
