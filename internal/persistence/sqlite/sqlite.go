package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/room-booking/internal/persistence/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the SQLite repositories over one connection pool.
type Storage struct {
	*RoomRepository
	*BookingRepository
	*UserRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

// Open connects to the database at config.Path.
func Open(config Config, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		RoomRepository:    NewRoomRepository(pool),
		BookingRepository: NewBookingRepository(pool),
		UserRepository:    NewUserRepository(pool),
		pool:              pool,
		logger:            logger,
	}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks that the database answers.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	executor, err := migration.NewExecutor(s.pool.DB().DB, migration.DialectSQLite)
	if err != nil {
		return err
	}
	manager := migration.NewManager(migration.NewScanner(migrationFiles, "migrations"), executor, s.logger)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}
