package persistence

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// ProcessedStore is the durable set of transport-assigned message IDs the
// poller has already forwarded. Membership is checked and inserted under one
// lock so each ID is forwarded at most once, and every insert is written
// through to SQLite before the caller proceeds.
//
// The full set is loaded into memory at startup; entries are never removed.
type ProcessedStore struct {
	db  *sql.DB
	ids map[string]struct{}
	mu  sync.Mutex
}

// OpenProcessedStore opens (creating if needed) the SQLite database at path
// and loads all known IDs.
func OpenProcessedStore(path string) (*ProcessedStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open processed db: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS processed_messages (
		id TEXT PRIMARY KEY,
		seen_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init processed db: %w", err)
	}

	s := &ProcessedStore{
		db:  db,
		ids: make(map[string]struct{}),
	}

	rows, err := db.Query(`SELECT id FROM processed_messages`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load processed ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			db.Close()
			return nil, fmt.Errorf("scan processed id: %w", err)
		}
		s.ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("iterate processed ids: %w", err)
	}

	return s, nil
}

// MarkProcessed inserts id and reports whether it was new. The in-memory
// insert happens before the durable write so a concurrent caller can never
// observe the ID as unseen; a failed write is surfaced but does not undo the
// in-memory claim (the ID stays suppressed for this process lifetime).
func (s *ProcessedStore) MarkProcessed(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.ids[id]; seen {
		return false, nil
	}
	s.ids[id] = struct{}{}

	if _, err := s.db.Exec(`INSERT OR IGNORE INTO processed_messages (id) VALUES (?)`, id); err != nil {
		return true, fmt.Errorf("persist processed id %s: %w", id, err)
	}
	return true, nil
}

// Seen reports whether id has already been processed.
func (s *ProcessedStore) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Count returns the number of processed IDs.
func (s *ProcessedStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Close releases the underlying database handle.
func (s *ProcessedStore) Close() error {
	return s.db.Close()
}
