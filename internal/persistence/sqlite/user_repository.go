package sqlite

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/sqlbuild"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool   *ConnectionPool
	sql    sqlbuild.Builder
	mapper *ErrorMapper
}

// NewUserRepository creates a user repository on pool.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool, sql: newBuilder(), mapper: NewErrorMapper()}
}

// CreateUser inserts a user. A taken email yields persistence.ErrDuplicate.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || strings.TrimSpace(user.Email) == "" {
		return persistence.ErrConstraintViolation
	}
	stmt, err := r.sql.InsertUser(user)
	if err != nil {
		return err
	}
	return r.pool.retry.WithRetry(ctx, func() error {
		_, err := r.pool.db.ExecContext(ctx, stmt.SQL, stmt.Args...)
		return err
	})
}

// GetUser returns the user with the given id.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	stmt, err := r.sql.SelectUserByID(id)
	if err != nil {
		return persistence.User{}, err
	}
	return r.get(ctx, stmt)
}

// GetUserByEmail returns the user with the given stored email.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	stmt, err := r.sql.SelectUserByEmail(email)
	if err != nil {
		return persistence.User{}, err
	}
	return r.get(ctx, stmt)
}

func (r *UserRepository) get(ctx context.Context, stmt sqlbuild.Statement) (persistence.User, error) {
	var row userRow
	if err := sqlx.GetContext(ctx, r.pool.db, &row, stmt.SQL, stmt.Args...); err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	return row.model()
}
