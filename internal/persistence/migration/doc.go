// Package migration applies versioned SQL files to the booking database.
//
// Migration files live in an fs.FS (normally an embed.FS owned by the store
// package) and are named {version}_{description}.sql, for example
// "001_initial_schema.sql". Each file runs in its own transaction together
// with the schema_migrations row that records it, so a failed migration
// leaves no trace and is retried on the next start.
//
// The same manager serves SQLite and PostgreSQL; only the dialect passed to
// NewExecutor differs.
//
// Example usage:
//
//	executor := migration.NewExecutor(db, migration.DialectSQLite)
//	manager := migration.NewManager(migration.NewScanner(files, "migrations"), executor, logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
