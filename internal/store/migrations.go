package store

import (
	"database/sql"
	"fmt"
)

// Schema versions:
// v1: session(token, email, created_at), dumpster_cache(id, payload, fetched_at), activity without detail
// v2: session.base_url, so a login is only reused against the backend it came from
// v3: dumpster_cache.position keeps the server's ordering; activity.detail
const CurrentSchemaVersion = 3

// Migration adds a column that older databases lack.
type Migration struct {
	Version int
	Table   string
	Column  string
	Def     string
}

// pendingMigrations upgrade databases written by older releases. Fresh
// databases already have every column.
var pendingMigrations = []Migration{
	{2, "session", "base_url", "TEXT NOT NULL DEFAULT ''"},
	{3, "dumpster_cache", "position", "INTEGER NOT NULL DEFAULT 0"},
	{3, "activity", "detail", "TEXT"},
}

// runMigrations applies missing columns and records the schema version in
// PRAGMA user_version.
func runMigrations(db *sql.DB) error {
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			continue
		}
		ok, err := columnExists(db, m.Table, m.Column)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("migration v%d %s.%s: %w", m.Version, m.Table, m.Column, err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", CurrentSchemaVersion)); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// SchemaVersion returns the version recorded in the database.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&v)
	return v, err
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table_info(%s): %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid          int
			name, ctype  string
			notnull, pk  int
			defaultValue any
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &defaultValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// tableExists checks if a table exists in the database.
func tableExists(db *sql.DB, table string) bool {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
	return err == nil && count > 0
}
