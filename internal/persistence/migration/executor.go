package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
)

const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"

	versionTable = "schema_migrations"
)

var versionTableDDL = map[string]string{
	DialectSQLite: `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL,
		checksum TEXT NOT NULL,
		execution_time_ms INTEGER NOT NULL
	)`,
	DialectPostgres: `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL,
		checksum TEXT NOT NULL,
		execution_time_ms BIGINT NOT NULL
	)`,
}

// SQLExecutor runs migrations through database/sql.
type SQLExecutor struct {
	db      *sql.DB
	dialect string
	builder goqu.DialectWrapper
	now     func() time.Time
}

// NewExecutor returns an executor for db speaking the given dialect.
func NewExecutor(db *sql.DB, dialect string) (*SQLExecutor, error) {
	if _, ok := versionTableDDL[dialect]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, dialect)
	}
	return &SQLExecutor{
		db:      db,
		dialect: dialect,
		builder: goqu.Dialect(dialect),
		now:     time.Now,
	}, nil
}

// InitializeVersionTable creates schema_migrations when missing.
func (e *SQLExecutor) InitializeVersionTable(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, versionTableDDL[e.dialect]); err != nil {
		return fmt.Errorf("create %s: %w", versionTable, err)
	}
	return nil
}

// ApplyMigration executes every statement of the migration and records it,
// all inside one transaction.
func (e *SQLExecutor) ApplyMigration(ctx context.Context, migration Migration) (time.Duration, error) {
	started := e.now()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range splitStatements(migration.SQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("statement %d: %w", i+1, err)
		}
	}

	elapsed := e.now().Sub(started)
	insert, args, err := e.builder.Insert(versionTable).Prepared(true).
		Rows(goqu.Record{
			"version":           migration.Version,
			"applied_at":        e.now().UTC().Format(time.RFC3339),
			"checksum":          migration.Checksum,
			"execution_time_ms": elapsed.Milliseconds(),
		}).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build version insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		return 0, fmt.Errorf("record version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return elapsed, nil
}

// AppliedMigrations lists recorded migrations ordered by version.
func (e *SQLExecutor) AppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	query, args, err := e.builder.From(versionTable).Prepared(true).
		Select("version", "applied_at", "checksum", "execution_time_ms").
		Order(goqu.C("version").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build version query: %w", err)
	}

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", versionTable, err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			record    AppliedMigration
			appliedAt string
			elapsedMS int64
		)
		if err := rows.Scan(&record.Version, &appliedAt, &record.Checksum, &elapsedMS); err != nil {
			return nil, fmt.Errorf("scan %s: %w", versionTable, err)
		}
		if record.AppliedAt, err = time.Parse(time.RFC3339, appliedAt); err != nil {
			return nil, fmt.Errorf("parse applied_at for %s: %w", record.Version, err)
		}
		record.ExecutionTime = time.Duration(elapsedMS) * time.Millisecond
		applied = append(applied, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", versionTable, err)
	}
	return applied, nil
}
