package testfixtures

import (
	"context"
	"os"
	"testing"

	"github.com/example/room-booking/internal/persistence/postgres"
)

// PostgresDSNEnv enables the PostgreSQL-backed tests when set.
const PostgresDSNEnv = "BOOKING_TEST_POSTGRES_DSN"

// NewPostgresStore opens, migrates and empties the database named by
// PostgresDSNEnv. The test is skipped when the variable is unset. Tests
// sharing the database must not run in parallel.
func NewPostgresStore(tb testing.TB) *postgres.Storage {
	tb.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		tb.Skipf("%s not set", PostgresDSNEnv)
	}

	ctx := context.Background()
	storage, err := postgres.Open(ctx, postgres.DefaultConfig(dsn), nil)
	if err != nil {
		tb.Fatalf("failed to open postgres: %v", err)
	}
	tb.Cleanup(func() {
		_ = storage.Close()
	})

	if err := storage.Migrate(ctx); err != nil {
		tb.Fatalf("failed to migrate postgres: %v", err)
	}
	if err := storage.Truncate(ctx); err != nil {
		tb.Fatalf("failed to truncate postgres: %v", err)
	}
	return storage
}
