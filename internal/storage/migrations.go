package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/martinsuchenak/camdash/internal/log"
)

// migration is one schema step. Steps run in version order inside a
// transaction and are recorded in schema_migrations.
type migration struct {
	version     int
	description string
	statements  []string
}

var migrations = []migration{
	{
		version:     1,
		description: "create uploads table",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS uploads (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				format TEXT NOT NULL,
				size INTEGER NOT NULL DEFAULT 0,
				content BLOB NOT NULL,
				uploaded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_uploads_uploaded_at ON uploads(uploaded_at)`,
		},
	},
	{
		version:     2,
		description: "add upload checksum",
		statements: []string{
			`ALTER TABLE uploads ADD COLUMN checksum TEXT NOT NULL DEFAULT ''`,
			`CREATE INDEX IF NOT EXISTS idx_uploads_checksum ON uploads(checksum)`,
		},
	},
}

// migrate brings the schema up to the latest version
func (ss *SQLiteStorage) migrate() error {
	if _, err := ss.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	current, err := ss.SchemaVersion()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := ss.applyMigration(m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
		log.Info("Applied schema migration", "version", m.version, "description", m.description)
	}
	return nil
}

func (ss *SQLiteStorage) applyMigration(m migration) error {
	tx, err := ss.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.Exec(stmt); err != nil {
			// A column added by hand or by an interrupted run is fine.
			if isDuplicateColumnError(err) {
				continue
			}
			return err
		}
	}

	if _, err := tx.Exec(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`, m.version, m.description); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration, or 0 on a new database
func (ss *SQLiteStorage) SchemaVersion() (int, error) {
	var version sql.NullInt64
	err := ss.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("checking migration version: %w", err)
	}
	return int(version.Int64), nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate column name")
}
