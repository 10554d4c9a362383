package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds the PostgreSQL connection settings.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns pool settings suited to a single-node server.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:             dsn,
		MaxConns:        10,
		MinConns:        1,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Validate reports invalid settings.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.DSN) == "":
		return fmt.Errorf("postgres: dsn cannot be empty")
	case c.MaxConns < 0 || c.MinConns < 0 || c.ConnMaxLifetime < 0:
		return fmt.Errorf("postgres: pool settings cannot be negative")
	case c.MaxConns > 0 && c.MinConns > c.MaxConns:
		return fmt.Errorf("postgres: min conns %d exceeds max conns %d", c.MinConns, c.MaxConns)
	}
	return nil
}

func (c Config) poolConfig() (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if c.MaxConns > 0 {
		pc.MaxConns = c.MaxConns
	}
	if c.MinConns > 0 {
		pc.MinConns = c.MinConns
	}
	if c.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = c.ConnMaxLifetime
	}
	return pc, nil
}
