package migration

import (
	"context"
	"time"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     string
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises applied and pending migrations.
type Status struct {
	CurrentVersion    string
	PendingCount      int
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}

// FileScanner discovers migration files.
type FileScanner interface {
	ScanMigrations() ([]Migration, error)
}

// Executor applies migrations and tracks what has been applied.
type Executor interface {
	InitializeVersionTable(ctx context.Context) error
	// ApplyMigration runs the migration and records it in one transaction.
	ApplyMigration(ctx context.Context, migration Migration) (time.Duration, error)
	AppliedMigrations(ctx context.Context) ([]AppliedMigration, error)
}
