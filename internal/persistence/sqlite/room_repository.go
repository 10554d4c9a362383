package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/sqlbuild"
)

// RoomRepository implements persistence.RoomRepository using SQLite.
type RoomRepository struct {
	pool   *ConnectionPool
	sql    sqlbuild.Builder
	mapper *ErrorMapper
	now    func() time.Time
}

// NewRoomRepository creates a room repository on pool.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		sql:    newBuilder(),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

func newBuilder() sqlbuild.Builder {
	return sqlbuild.New(sqlbuild.DialectSQLite, formatTime)
}

// UpsertRoom inserts the room or refreshes an existing row with the same id.
func (r *RoomRepository) UpsertRoom(ctx context.Context, room persistence.Room) error {
	if strings.TrimSpace(room.ID) == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	now := r.now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now

	stmt, err := r.sql.UpsertRoom(room)
	if err != nil {
		return err
	}
	return r.pool.retry.WithRetry(ctx, func() error {
		_, err := r.pool.db.ExecContext(ctx, stmt.SQL, stmt.Args...)
		return err
	})
}

// GetRoom returns the room with the given id.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return getRoom(ctx, r.pool.db, r.sql, id)
}

// ListRooms returns all rooms ordered by name then id.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	stmt, err := r.sql.SelectRooms()
	if err != nil {
		return nil, err
	}
	return r.selectRooms(ctx, stmt)
}

// ListAvailableRooms returns rooms with no booking overlapping [start, end).
func (r *RoomRepository) ListAvailableRooms(ctx context.Context, start, end time.Time) ([]persistence.Room, error) {
	stmt, err := r.sql.SelectAvailableRooms(start, end)
	if err != nil {
		return nil, err
	}
	return r.selectRooms(ctx, stmt)
}

func (r *RoomRepository) selectRooms(ctx context.Context, stmt sqlbuild.Statement) ([]persistence.Room, error) {
	var rows []roomRow
	if err := sqlx.SelectContext(ctx, r.pool.db, &rows, stmt.SQL, stmt.Args...); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return roomModels(rows)
}

func getRoom(ctx context.Context, q sqlx.QueryerContext, builder sqlbuild.Builder, id string) (persistence.Room, error) {
	stmt, err := builder.SelectRoom(id)
	if err != nil {
		return persistence.Room{}, err
	}
	var row roomRow
	if err := sqlx.GetContext(ctx, q, &row, stmt.SQL, stmt.Args...); err != nil {
		return persistence.Room{}, NewErrorMapper().MapError(err)
	}
	return row.model()
}
