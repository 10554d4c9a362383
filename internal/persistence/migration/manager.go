package migration

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Manager applies pending migrations in version order.
type Manager struct {
	scanner  FileScanner
	executor Executor
	logger   *slog.Logger
}

// NewManager wires a scanner and executor together.
func NewManager(scanner FileScanner, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		logger:   logger.With("component", "migration"),
	}
}

// RunMigrations applies every pending migration. It stops at the first
// failure; migrations applied before it stay applied.
func (m *Manager) RunMigrations(ctx context.Context) error {
	started := time.Now()

	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		m.logger.ErrorContext(ctx, "failed to initialize version table", "error", err)
		return fmt.Errorf("initialize version table: %w", err)
	}

	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "schema version",
		"current_version", status.CurrentVersion,
		"applied", len(status.AppliedMigrations),
		"pending", status.PendingCount,
	)

	for i, migration := range status.PendingMigrations {
		logger := m.logger.With("version", migration.Version, "description", migration.Description)
		logger.InfoContext(ctx, "applying migration",
			"file", migration.FilePath,
			"checksum", migration.Checksum,
			"position", fmt.Sprintf("%d/%d", i+1, status.PendingCount),
		)

		elapsed, err := m.executor.ApplyMigration(ctx, migration)
		if err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "apply",
				fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
		logger.InfoContext(ctx, "migration applied", "duration_ms", elapsed.Milliseconds())
	}

	if status.PendingCount > 0 {
		m.logger.InfoContext(ctx, "migrations complete",
			"applied", status.PendingCount,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
	return nil
}

// PendingMigrations returns the migrations not yet recorded.
func (m *Manager) PendingMigrations(ctx context.Context) ([]Migration, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	return status.PendingMigrations, nil
}

// Status compares the files on disk with the version table. An applied file
// whose checksum changed is reported as ErrChecksumMismatch.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	available, err := m.scanner.ScanMigrations()
	if err != nil {
		return nil, fmt.Errorf("scan migrations: %w", err)
	}

	applied, err := m.executor.AppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}

	checksums := make(map[int]string, len(applied))
	status := &Status{AppliedMigrations: applied}
	highest := -1
	for _, record := range applied {
		n, err := strconv.Atoi(record.Version)
		if err != nil {
			return nil, NewMigrationError(record.Version, versionTable, "parse version", err)
		}
		checksums[n] = record.Checksum
		if n > highest {
			highest = n
			status.CurrentVersion = record.Version
		}
	}

	for _, migration := range available {
		n, _ := strconv.Atoi(migration.Version)
		sum, ok := checksums[n]
		if !ok {
			status.PendingMigrations = append(status.PendingMigrations, migration)
			continue
		}
		if sum != "" && sum != migration.Checksum {
			return nil, NewMigrationError(migration.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	status.PendingCount = len(status.PendingMigrations)
	return status, nil
}
