package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/example/room-booking/internal/persistence"
)

// SQLSTATE codes mapped onto persistence errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
)

// MapError maps pgx errors onto the persistence sentinels, keeping the
// driver message for logs.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return persistence.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %s", persistence.ErrDuplicate, pgErr.Message)
	case codeForeignKeyViolation, codeCheckViolation, codeNotNullViolation:
		return fmt.Errorf("%w: %s", persistence.ErrConstraintViolation, pgErr.Message)
	}
	return err
}
