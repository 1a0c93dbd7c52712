// Package db provides the SQLite ticket store for campusdesk.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/campusdesk/campusdesk/internal/common"
	_ "modernc.org/sqlite"
)

const (
	// DefaultDBPath is the default location for the campusdesk database.
	DefaultDBPath = "~/.campusdesk/campusdesk.db"
	// DefaultDBDir is the directory containing the database.
	DefaultDBDir = "~/.campusdesk"
)

// DB wraps a sql.DB connection with campusdesk-specific functionality.
type DB struct {
	*sql.DB
	path string
}

// Open opens or creates a campusdesk database at the specified path.
// If path is empty, it uses the default path (~/.campusdesk/campusdesk.db).
func Open(path string) (*DB, error) {
	path = resolvePath(path)

	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{DB: db, path: path}, nil
}

// Path returns the file path of the database.
func (d *DB) Path() string {
	return d.path
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

func resolvePath(path string) string {
	if path == "" {
		path = DefaultDBPath
	}
	return ExpandPath(path)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) string {
	if len(path) == 0 {
		return path
	}

	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}

	return path
}

// Exists checks if the database file exists at the given path.
// If path is empty, it checks the default path.
func Exists(path string) bool {
	_, err := os.Stat(resolvePath(path))
	return err == nil
}

// Delete removes the database file along with its WAL and SHM files.
func Delete(path string) error {
	path = resolvePath(path)
	os.Remove(path + "-wal")
	os.Remove(path + "-shm")
	return os.Remove(path)
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime formats a time.Time as a UTC string for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// FormatTimePtr formats an optional time, or returns nil for SQL NULL.
func FormatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}

func formatOptionalTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return FormatTime(t)
}

// parseTime reads a stored timestamp back through the same normalizer the
// import path uses, so rows written by older versions still load.
func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return common.NormalizeTimestamp(s.String)
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	t, err := parseTime(s)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
