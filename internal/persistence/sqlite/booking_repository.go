package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/sqlbuild"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
type BookingRepository struct {
	pool   *ConnectionPool
	sql    sqlbuild.Builder
	mapper *ErrorMapper
}

// NewBookingRepository creates a booking repository on pool.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		sql:    newBuilder(),
		mapper: NewErrorMapper(),
	}
}

// WithRoomLock runs fn inside a BEGIN IMMEDIATE transaction. SQLite has a
// single writer, so holding the write lock from the room lookup to commit
// serializes every admission decision, not just those for roomID.
func (r *BookingRepository) WithRoomLock(ctx context.Context, roomID string, fn func(tx persistence.BookingTx) error) error {
	return r.pool.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		room, err := getRoom(ctx, tx, r.sql, roomID)
		if err != nil {
			return err
		}
		return fn(&bookingTx{tx: tx, room: room, repo: r})
	})
}

// GetOwnedBooking returns the booking when it exists and belongs to userID.
func (r *BookingRepository) GetOwnedBooking(ctx context.Context, id, userID string) (persistence.Booking, error) {
	stmt, err := r.sql.SelectOwnedBooking(id, userID)
	if err != nil {
		return persistence.Booking{}, err
	}
	var row bookingRow
	if err := sqlx.GetContext(ctx, r.pool.db, &row, stmt.SQL, stmt.Args...); err != nil {
		return persistence.Booking{}, r.mapper.MapError(err)
	}
	return row.model()
}

// UpdateOwnedBooking applies changes when both id and owner match.
func (r *BookingRepository) UpdateOwnedBooking(ctx context.Context, id, userID string, changes persistence.BookingChanges) error {
	return r.pool.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		return r.updateOwned(ctx, tx, id, userID, changes)
	})
}

// DeleteOwnedBooking removes the booking when both id and owner match.
func (r *BookingRepository) DeleteOwnedBooking(ctx context.Context, id, userID string) error {
	stmt, err := r.sql.DeleteOwnedBooking(id, userID)
	if err != nil {
		return err
	}
	return r.pool.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		return r.execOwned(ctx, tx, stmt)
	})
}

// ListBookingsByUser returns the user's bookings ordered by start time.
func (r *BookingRepository) ListBookingsByUser(ctx context.Context, userID string) ([]persistence.Booking, error) {
	stmt, err := r.sql.SelectBookingsByUser(userID)
	if err != nil {
		return nil, err
	}
	return r.selectBookings(ctx, r.pool.db, stmt)
}

// ListBookingsByRoom returns the room's bookings starting in [from, to).
func (r *BookingRepository) ListBookingsByRoom(ctx context.Context, roomID string, from, to time.Time) ([]persistence.Booking, error) {
	stmt, err := r.sql.SelectBookingsByRoom(roomID, from, to)
	if err != nil {
		return nil, err
	}
	return r.selectBookings(ctx, r.pool.db, stmt)
}

func (r *BookingRepository) selectBookings(ctx context.Context, q sqlx.QueryerContext, stmt sqlbuild.Statement) ([]persistence.Booking, error) {
	var rows []bookingRow
	if err := sqlx.SelectContext(ctx, q, &rows, stmt.SQL, stmt.Args...); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return bookingModels(rows)
}

func (r *BookingRepository) updateOwned(ctx context.Context, tx *sqlx.Tx, id, userID string, changes persistence.BookingChanges) error {
	stmt, err := r.sql.UpdateOwnedBooking(id, userID, changes)
	if err != nil {
		return err
	}
	return r.execOwned(ctx, tx, stmt)
}

func (r *BookingRepository) execOwned(ctx context.Context, tx *sqlx.Tx, stmt sqlbuild.Statement) error {
	result, err := tx.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

type bookingTx struct {
	tx   *sqlx.Tx
	room persistence.Room
	repo *BookingRepository
}

func (t *bookingTx) Room() persistence.Room {
	return t.room
}

func (t *bookingTx) ListOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]persistence.Booking, error) {
	stmt, err := t.repo.sql.SelectOverlapping(t.room.ID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	return t.repo.selectBookings(ctx, t.tx, stmt)
}

func (t *bookingTx) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.RoomID != t.room.ID {
		return fmt.Errorf("%w: booking for room %q inside lock for %q",
			persistence.ErrConstraintViolation, booking.RoomID, t.room.ID)
	}
	stmt, err := t.repo.sql.InsertBooking(booking)
	if err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
		return t.repo.mapper.MapError(err)
	}
	return nil
}

func (t *bookingTx) UpdateOwnedBooking(ctx context.Context, id, userID string, changes persistence.BookingChanges) error {
	return t.repo.updateOwned(ctx, t.tx, id, userID, changes)
}
