package export

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: Initial schema
	`CREATE TABLE IF NOT EXISTS exports (
		id          TEXT PRIMARY KEY,
		kind        TEXT NOT NULL CHECK(kind IN ('boards', 'members')),
		row_count   INTEGER NOT NULL DEFAULT 0,
		exported_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS boards (
		export_id   TEXT NOT NULL REFERENCES exports(id),
		board_id    TEXT NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		owner       TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL DEFAULT '',
		modified_at TEXT NOT NULL DEFAULT '',
		link        TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_boards_export ON boards(export_id);

	CREATE TABLE IF NOT EXISTS members (
		export_id           TEXT NOT NULL REFERENCES exports(id),
		member_id           TEXT NOT NULL,
		active              TEXT NOT NULL DEFAULT '',
		admin_roles         TEXT NOT NULL DEFAULT '',
		email               TEXT NOT NULL DEFAULT '',
		last_activity_at    TEXT NOT NULL DEFAULT 'N/A',
		license             TEXT NOT NULL DEFAULT '',
		license_assigned_at TEXT NOT NULL DEFAULT 'N/A',
		role                TEXT NOT NULL DEFAULT '',
		type                TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_members_export ON members(export_id);
	CREATE INDEX IF NOT EXISTS idx_members_license ON members(license);

	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
