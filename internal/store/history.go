// Package store persists returned generation results to SQLite. Minimal
// read/write surface: save a set, list recent sets.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"parlaygen/internal/types"
)

// HistoryStore writes every returned GeneratedSet to a local SQLite file.
type HistoryStore struct {
	db *sql.DB
}

// Entry is one persisted generation result.
type Entry struct {
	ID        string              `json:"id"`
	Backend   string              `json:"backend"`
	Event     string              `json:"event"`
	CreatedAt time.Time           `json:"createdAt"`
	Set       *types.GeneratedSet `json:"set"`
}

// NewHistoryStore opens (and if needed creates) the database at path.
func NewHistoryStore(path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	schema := `CREATE TABLE IF NOT EXISTS generated_sets (
		id TEXT PRIMARY KEY,
		backend TEXT NOT NULL,
		event TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_generated_sets_created_at ON generated_sets(created_at DESC);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &HistoryStore{db: db}, nil
}

// Save persists a returned set with its producing backend and event label.
func (s *HistoryStore) Save(ctx context.Context, set *types.GeneratedSet, backend, event string) error {
	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode set: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO generated_sets (id, backend, event, created_at, payload) VALUES (?, ?, ?, ?, ?)`,
		set.ID, backend, event, time.Now().UnixMilli(), string(payload))
	if err != nil {
		return fmt.Errorf("failed to save set: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, backend, event, created_at, payload FROM generated_sets ORDER BY created_at DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var createdMilli int64
		var payload string
		if err := rows.Scan(&e.ID, &e.Backend, &e.Event, &createdMilli, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.CreatedAt = time.UnixMilli(createdMilli)
		var set types.GeneratedSet
		if err := json.Unmarshal([]byte(payload), &set); err != nil {
			return nil, fmt.Errorf("failed to decode stored set %s: %w", e.ID, err)
		}
		e.Set = &set
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}
