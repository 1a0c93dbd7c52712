package db

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const migrationsDir = "migrations"

func init() {
	goose.SetBaseFS(embedMigrations)
}

// useSQLite points goose at the sqlite3 dialect. The setting is global to
// goose, so it is applied before every call.
func useSQLite() error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// Migrate brings the schema up to date.
func (d *DB) Migrate() error {
	return Migrate(d.DB)
}

// Migrate applies every pending campusdesk migration to conn.
func Migrate(conn *sql.DB) error {
	if err := useSQLite(); err != nil {
		return err
	}
	if err := goose.Up(conn, migrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SchemaVersion reports the newest migration applied to the database,
// shown by init and version.
func (d *DB) SchemaVersion() (int64, error) {
	if err := useSQLite(); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersion(d.DB)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
