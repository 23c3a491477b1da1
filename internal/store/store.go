// Package store persists local client state in SQLite: the active session, the
// last dumpster listing fetched from the backend, and a journal of actions.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"binops/internal/model"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the local database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Session is the persisted login.
type Session struct {
	Token     string
	Email     string
	BaseURL   string
	CreatedAt time.Time
}

// Activity is one journal entry.
type Activity struct {
	ID        string
	Timestamp time.Time
	Action    string
	Subject   string
	Outcome   string
	Detail    string
}

// Activity outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Open creates or opens the database at path. ":memory:" is accepted for tests.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		token TEXT NOT NULL,
		email TEXT NOT NULL,
		base_url TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS dumpster_cache (
		id INTEGER PRIMARY KEY,
		position INTEGER NOT NULL,
		payload TEXT NOT NULL,
		fetched_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS activity (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		subject TEXT NOT NULL,
		outcome TEXT NOT NULL,
		detail TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON activity(timestamp);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return runMigrations(s.db)
}

// SaveSession replaces the stored session.
func (s *Store) SaveSession(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO session (id, token, email, base_url, created_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			email = excluded.email,
			base_url = excluded.base_url,
			created_at = excluded.created_at`,
		sess.Token, sess.Email, sess.BaseURL, sess.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSession returns the stored session, or nil when there is none.
func (s *Store) LoadSession() (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sess Session
	err := s.db.QueryRow(`SELECT token, email, base_url, created_at FROM session WHERE id = 1`).
		Scan(&sess.Token, &sess.Email, &sess.BaseURL, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &sess, nil
}

// ClearSession removes the stored session. Clearing an empty store is not an
// error.
func (s *Store) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// ReplaceDumpsters swaps the cached listing for ds, keeping their order.
// Dumpsters without an id are skipped.
func (s *Store) ReplaceDumpsters(ds []model.Dumpster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM dumpster_cache`); err != nil {
		return fmt.Errorf("failed to clear dumpster cache: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO dumpster_cache (id, position, payload, fetched_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, d := range ds {
		if d.ID == nil {
			continue
		}
		payload, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to encode dumpster %d: %w", *d.ID, err)
		}
		if _, err := stmt.Exec(*d.ID, i, string(payload), now); err != nil {
			return fmt.Errorf("failed to cache dumpster %d: %w", *d.ID, err)
		}
	}
	return tx.Commit()
}

// CachedDumpsters returns the cached listing and when it was fetched. The
// time is zero when the cache is empty.
func (s *Store) CachedDumpsters() ([]model.Dumpster, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT payload, fetched_at FROM dumpster_cache ORDER BY position`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query dumpster cache: %w", err)
	}
	defer rows.Close()

	var (
		out     []model.Dumpster
		fetched time.Time
	)
	for rows.Next() {
		var payload string
		var at time.Time
		if err := rows.Scan(&payload, &at); err != nil {
			return nil, time.Time{}, err
		}
		var d model.Dumpster
		if err := json.Unmarshal([]byte(payload), &d); err != nil {
			return nil, time.Time{}, fmt.Errorf("corrupt cache entry: %w", err)
		}
		out = append(out, d)
		fetched = at
	}
	return out, fetched, rows.Err()
}

// RecordActivity appends a journal entry and returns it with id and
// timestamp filled in.
func (s *Store) RecordActivity(a Activity) (Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	if a.Outcome == "" {
		a.Outcome = OutcomeOK
	}
	_, err := s.db.Exec(`INSERT INTO activity (id, timestamp, action, subject, outcome, detail) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Timestamp.UTC(), a.Action, a.Subject, a.Outcome, a.Detail)
	if err != nil {
		return Activity{}, fmt.Errorf("failed to record activity: %w", err)
	}
	return a, nil
}

// RecentActivity returns up to limit entries, newest first.
func (s *Store) RecentActivity(limit int) ([]Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, timestamp, action, subject, outcome, COALESCE(detail, '')
		FROM activity ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.Action, &a.Subject, &a.Outcome, &a.Detail); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
