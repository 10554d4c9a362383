// Package postgres stores rooms, bookings and users in PostgreSQL through a
// pgx connection pool. Admission decisions for a room are serialized by
// locking the room row with SELECT ... FOR UPDATE.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq" // database/sql driver for migrations

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/migration"
	"github.com/example/room-booking/internal/persistence/sqlbuild"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Storage implements the persistence repositories on PostgreSQL.
type Storage struct {
	pool   *pgxpool.Pool
	dsn    string
	sql    sqlbuild.Builder
	logger *slog.Logger
}

var (
	_ persistence.UserRepository    = (*Storage)(nil)
	_ persistence.RoomRepository    = (*Storage)(nil)
	_ persistence.BookingRepository = (*Storage)(nil)
	_ persistence.HealthChecker     = (*Storage)(nil)
)

// Open creates the connection pool. The pool connects lazily, so Ping is the
// first call that proves the server is reachable.
func Open(ctx context.Context, config Config, logger *slog.Logger) (*Storage, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	pc, err := config.poolConfig()
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	return &Storage{
		pool:   pool,
		dsn:    config.DSN,
		sql:    sqlbuild.New(sqlbuild.DialectPostgres, nil),
		logger: logger,
	}, nil
}

// Close releases every pooled connection.
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks that the server answers.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations over a short-lived
// database/sql connection.
func (s *Storage) Migrate(ctx context.Context) error {
	db, err := sql.Open("postgres", s.dsn)
	if err != nil {
		return fmt.Errorf("postgres: open migration connection: %w", err)
	}
	defer db.Close()

	executor, err := migration.NewExecutor(db, migration.DialectPostgres)
	if err != nil {
		return err
	}
	manager := migration.NewManager(migration.NewScanner(migrationFiles, "migrations"), executor, s.logger)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// Truncate removes every row. Tests use it to isolate runs against a shared
// database.
func (s *Storage) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "TRUNCATE bookings, rooms, users")
	return MapError(err)
}

// ----------------------------- Rooms -----------------------------

// UpsertRoom inserts the room or refreshes its mutable columns.
func (s *Storage) UpsertRoom(ctx context.Context, room persistence.Room) error {
	stmt, err := s.sql.UpsertRoom(room)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, stmt.SQL, stmt.Args...)
	return MapError(err)
}

// GetRoom returns the room with id.
func (s *Storage) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	stmt, err := s.sql.SelectRoom(id)
	if err != nil {
		return persistence.Room{}, err
	}
	return selectRoom(ctx, s.pool, stmt)
}

// ListRooms returns every room ordered by name.
func (s *Storage) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	stmt, err := s.sql.SelectRooms()
	if err != nil {
		return nil, err
	}
	return selectRooms(ctx, s.pool, stmt)
}

// ListAvailableRooms returns rooms with no booking overlapping [start, end).
func (s *Storage) ListAvailableRooms(ctx context.Context, start, end time.Time) ([]persistence.Room, error) {
	stmt, err := s.sql.SelectAvailableRooms(start, end)
	if err != nil {
		return nil, err
	}
	return selectRooms(ctx, s.pool, stmt)
}

// ----------------------------- Users -----------------------------

// CreateUser inserts a user. A taken email maps to ErrDuplicate.
func (s *Storage) CreateUser(ctx context.Context, user persistence.User) error {
	stmt, err := s.sql.InsertUser(user)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, stmt.SQL, stmt.Args...)
	return MapError(err)
}

// GetUser returns the user with id.
func (s *Storage) GetUser(ctx context.Context, id string) (persistence.User, error) {
	stmt, err := s.sql.SelectUserByID(id)
	if err != nil {
		return persistence.User{}, err
	}
	return s.selectUser(ctx, stmt)
}

// GetUserByEmail returns the user registered with email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	stmt, err := s.sql.SelectUserByEmail(email)
	if err != nil {
		return persistence.User{}, err
	}
	return s.selectUser(ctx, stmt)
}

func (s *Storage) selectUser(ctx context.Context, stmt sqlbuild.Statement) (persistence.User, error) {
	rows, err := s.pool.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return persistence.User{}, MapError(err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[userRow])
	if err != nil {
		return persistence.User{}, MapError(err)
	}
	return row.model(), nil
}

// ---------------------------- Bookings ----------------------------

// WithRoomLock runs fn in a transaction holding the room's row lock, so
// concurrent admissions for the same room run one after another while other
// rooms proceed in parallel.
func (s *Storage) WithRoomLock(ctx context.Context, roomID string, fn func(tx persistence.BookingTx) error) (err error) {
	stmt, err := s.sql.SelectRoomForUpdate(roomID)
	if err != nil {
		return err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("postgres: rollback: %w", rbErr))
			}
		}
	}()

	room, err := selectRoom(ctx, tx, stmt)
	if err != nil {
		return err
	}
	if err = fn(&bookingTx{tx: tx, room: room, sql: s.sql}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return MapError(err)
	}
	return nil
}

// GetOwnedBooking returns the booking when it exists and belongs to userID.
func (s *Storage) GetOwnedBooking(ctx context.Context, id, userID string) (persistence.Booking, error) {
	stmt, err := s.sql.SelectOwnedBooking(id, userID)
	if err != nil {
		return persistence.Booking{}, err
	}
	rows, err := s.pool.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return persistence.Booking{}, MapError(err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[bookingRow])
	if err != nil {
		return persistence.Booking{}, MapError(err)
	}
	return row.model(), nil
}

// UpdateOwnedBooking applies changes when both id and owner match.
func (s *Storage) UpdateOwnedBooking(ctx context.Context, id, userID string, changes persistence.BookingChanges) error {
	return updateOwned(ctx, s.pool, s.sql, id, userID, changes)
}

// DeleteOwnedBooking removes the booking when both id and owner match.
func (s *Storage) DeleteOwnedBooking(ctx context.Context, id, userID string) error {
	stmt, err := s.sql.DeleteOwnedBooking(id, userID)
	if err != nil {
		return err
	}
	return execOwned(ctx, s.pool, stmt)
}

// ListBookingsByUser returns the user's bookings ordered by start time.
func (s *Storage) ListBookingsByUser(ctx context.Context, userID string) ([]persistence.Booking, error) {
	stmt, err := s.sql.SelectBookingsByUser(userID)
	if err != nil {
		return nil, err
	}
	return selectBookings(ctx, s.pool, stmt)
}

// ListBookingsByRoom returns the room's bookings starting in [from, to).
func (s *Storage) ListBookingsByRoom(ctx context.Context, roomID string, from, to time.Time) ([]persistence.Booking, error) {
	stmt, err := s.sql.SelectBookingsByRoom(roomID, from, to)
	if err != nil {
		return nil, err
	}
	return selectBookings(ctx, s.pool, stmt)
}

type bookingTx struct {
	tx   pgx.Tx
	room persistence.Room
	sql  sqlbuild.Builder
}

func (t *bookingTx) Room() persistence.Room {
	return t.room
}

func (t *bookingTx) ListOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]persistence.Booking, error) {
	stmt, err := t.sql.SelectOverlapping(t.room.ID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	return selectBookings(ctx, t.tx, stmt)
}

func (t *bookingTx) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.RoomID != t.room.ID {
		return fmt.Errorf("%w: booking for room %q inside lock of room %q",
			persistence.ErrConstraintViolation, booking.RoomID, t.room.ID)
	}
	stmt, err := t.sql.InsertBooking(booking)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, stmt.SQL, stmt.Args...)
	return MapError(err)
}

func (t *bookingTx) UpdateOwnedBooking(ctx context.Context, id, userID string, changes persistence.BookingChanges) error {
	return updateOwned(ctx, t.tx, t.sql, id, userID, changes)
}

func updateOwned(ctx context.Context, q querier, b sqlbuild.Builder, id, userID string, changes persistence.BookingChanges) error {
	stmt, err := b.UpdateOwnedBooking(id, userID, changes)
	if err != nil {
		return err
	}
	return execOwned(ctx, q, stmt)
}

func execOwned(ctx context.Context, q querier, stmt sqlbuild.Statement) error {
	tag, err := q.Exec(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func selectRoom(ctx context.Context, q querier, stmt sqlbuild.Statement) (persistence.Room, error) {
	rows, err := q.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return persistence.Room{}, MapError(err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[roomRow])
	if err != nil {
		return persistence.Room{}, MapError(err)
	}
	return row.model(), nil
}

func selectRooms(ctx context.Context, q querier, stmt sqlbuild.Statement) ([]persistence.Room, error) {
	rows, err := q.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, MapError(err)
	}
	collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[roomRow])
	if err != nil {
		return nil, MapError(err)
	}
	rooms := make([]persistence.Room, 0, len(collected))
	for _, row := range collected {
		rooms = append(rooms, row.model())
	}
	return rooms, nil
}

func selectBookings(ctx context.Context, q querier, stmt sqlbuild.Statement) ([]persistence.Booking, error) {
	rows, err := q.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, MapError(err)
	}
	collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[bookingRow])
	if err != nil {
		return nil, MapError(err)
	}
	bookings := make([]persistence.Booking, 0, len(collected))
	for _, row := range collected {
		bookings = append(bookings, row.model())
	}
	return bookings, nil
}
