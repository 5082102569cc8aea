package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/domains"

	_ "github.com/mattn/go-sqlite3"
)

// JournalStore records every sync attempt in a local SQLite database.
type JournalStore struct {
	db *sql.DB
}

// NewJournalStore creates a new SQLite journal
func NewJournalStore(dbPath string) (*JournalStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases alive and serialises writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &JournalStore{db: db}

	if err := store.runMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *JournalStore) Close() error {
	return s.db.Close()
}

func (s *JournalStore) runMigrations() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sync_attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT UNIQUE NOT NULL,
			hostname TEXT NOT NULL,
			outcome TEXT CHECK (outcome IN ('inserted','updated','touched','failed')) NOT NULL,
			changes TEXT,
			error_msg TEXT,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_attempts_started ON sync_attempts(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// RecordAttempt appends an attempt and returns its row id.
func (s *JournalStore) RecordAttempt(ctx context.Context, attempt domains.SyncAttempt) (int64, error) {
	var changes *string
	if len(attempt.Changes) > 0 {
		raw, err := json.Marshal(attempt.Changes)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal changes: %w", err)
		}
		v := string(raw)
		changes = &v
	}

	query := `
		INSERT INTO sync_attempts (run_id, hostname, outcome, changes, error_msg, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		attempt.RunID, attempt.Hostname, string(attempt.Outcome), changes, attempt.Error,
		attempt.StartedAt.UTC().UnixNano(), attempt.FinishedAt.UTC().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record attempt: %w", err)
	}
	return res.LastInsertId()
}

// ListAttempts returns up to limit attempts, newest first.
func (s *JournalStore) ListAttempts(ctx context.Context, limit int) ([]domains.SyncAttempt, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, run_id, hostname, outcome, changes, error_msg, started_at, finished_at
		FROM sync_attempts
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []domains.SyncAttempt
	for rows.Next() {
		var (
			a                 domains.SyncAttempt
			outcome           string
			changes           sql.NullString
			started, finished int64
		)
		if err := rows.Scan(&a.ID, &a.RunID, &a.Hostname, &outcome, &changes, &a.Error, &started, &finished); err != nil {
			return nil, err
		}

		a.Outcome = domains.SyncOutcome(outcome)
		a.StartedAt = time.Unix(0, started).UTC()
		a.FinishedAt = time.Unix(0, finished).UTC()
		if changes.Valid && changes.String != "" {
			if err := json.Unmarshal([]byte(changes.String), &a.Changes); err != nil {
				return nil, fmt.Errorf("failed to unmarshal changes for %s: %w", a.RunID, err)
			}
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

// CleanupAttempts deletes attempts that started before now minus retention and
// returns how many rows were removed.
func (s *JournalStore) CleanupAttempts(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().UnixNano()
	res, err := s.db.ExecContext(ctx, `DELETE FROM sync_attempts WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up attempts: %w", err)
	}
	return res.RowsAffected()
}
