package sqlite

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the SQLite connection settings.
type Config struct {
	// Path is the database file, or ":memory:".
	Path            string
	BusyTimeout     time.Duration
	JournalMode     string
	Synchronous     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns settings suited to a single-node server.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		BusyTimeout:     5 * time.Second,
		JournalMode:     "WAL",
		Synchronous:     "NORMAL",
		MaxOpenConns:    8,
		MaxIdleConns:    4,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// TempFileConfig returns settings for throwaway test databases.
func TempFileConfig(path string) Config {
	cfg := DefaultConfig(path)
	cfg.JournalMode = "MEMORY"
	cfg.Synchronous = "OFF"
	cfg.MaxOpenConns = 4
	cfg.MaxIdleConns = 2
	cfg.ConnMaxLifetime = time.Minute
	return cfg
}

func (c Config) inMemory() bool {
	return c.Path == ":memory:"
}

// Validate reports invalid settings.
func (c Config) Validate() error {
	validJournal := map[string]bool{"DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "WAL": true, "OFF": true}
	validSync := map[string]bool{"OFF": true, "NORMAL": true, "FULL": true, "EXTRA": true}

	switch {
	case strings.TrimSpace(c.Path) == "":
		return fmt.Errorf("sqlite: path cannot be empty")
	case c.BusyTimeout < 0:
		return fmt.Errorf("sqlite: busy timeout cannot be negative")
	case c.JournalMode != "" && !validJournal[strings.ToUpper(c.JournalMode)]:
		return fmt.Errorf("sqlite: invalid journal mode %q", c.JournalMode)
	case c.Synchronous != "" && !validSync[strings.ToUpper(c.Synchronous)]:
		return fmt.Errorf("sqlite: invalid synchronous mode %q", c.Synchronous)
	case c.MaxOpenConns < 0 || c.MaxIdleConns < 0 || c.ConnMaxLifetime < 0:
		return fmt.Errorf("sqlite: pool settings cannot be negative")
	}
	return nil
}

// DSN renders the modernc.org/sqlite connection string. Pragmas travel in the
// DSN so every pooled connection gets them, and every transaction starts with
// BEGIN IMMEDIATE so a booking's capacity read and insert hold the write lock.
func (c Config) DSN() string {
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	params.Add("_pragma", "foreign_keys(1)")
	if c.JournalMode != "" {
		params.Add("_pragma", fmt.Sprintf("journal_mode(%s)", strings.ToUpper(c.JournalMode)))
	}
	if c.Synchronous != "" {
		params.Add("_pragma", fmt.Sprintf("synchronous(%s)", strings.ToUpper(c.Synchronous)))
	}
	params.Set("_txlock", "immediate")
	return "file:" + c.Path + "?" + params.Encode()
}

func (c Config) ensureDirectory() error {
	if c.inMemory() {
		return nil
	}
	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sqlite: create database directory %s: %w", dir, err)
	}
	return nil
}
