package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type migrator interface {
	Migrate(ctx context.Context) error
}

func runDatabaseMigrations(ctx context.Context, m migrator, driver string, logger *slog.Logger) error {
	logger = logger.With("component", "migrations", "store", driver)
	logger.InfoContext(ctx, "applying database migrations")

	start := time.Now()
	if err := m.Migrate(ctx); err != nil {
		logger.ErrorContext(ctx, "database migrations failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("migrate %s store: %w", driver, err)
	}

	logger.InfoContext(ctx, "database migrations completed successfully", "duration", time.Since(start))
	return nil
}
