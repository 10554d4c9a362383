package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrMigrationFailed indicates that a migration execution failed.
	ErrMigrationFailed = errors.New("migration: execution failed")
	// ErrInvalidMigrationFile indicates a malformed file name or empty file.
	ErrInvalidMigrationFile = errors.New("migration: invalid migration file")
	// ErrDuplicateVersion indicates that two files share a version.
	ErrDuplicateVersion = errors.New("migration: duplicate migration version")
	// ErrChecksumMismatch indicates an applied migration file was edited afterwards.
	ErrChecksumMismatch = errors.New("migration: checksum mismatch")
	// ErrUnsupportedDialect indicates an executor was built for an unknown dialect.
	ErrUnsupportedDialect = errors.New("migration: unsupported dialect")
)

// MigrationError adds the failing migration and operation to an error.
type MigrationError struct {
	Version   string
	FilePath  string
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("migration %s (%s): %s: %v", e.Version, e.FilePath, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration (%s): %s: %v", e.FilePath, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *MigrationError) Unwrap() error {
	return e.Err
}

// NewMigrationError creates a MigrationError.
func NewMigrationError(version, filePath, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, FilePath: filePath, Operation: operation, Err: err}
}
