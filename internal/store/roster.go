// Package store is the local SQLite cache of the session roster, so the list
// of past conversations survives restarts and connectivity failures. Chat
// history itself is never stored locally.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ambuassist/internal/logging"
	"ambuassist/internal/types"

	_ "modernc.org/sqlite"
)

// RosterCache persists roster previews per scope.
type RosterCache struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// OpenRosterCache initializes the SQLite database at the given path.
// ":memory:" opens a private in-memory cache.
func OpenRosterCache(path string) (*RosterCache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	c := &RosterCache{db: db, dbPath: path}
	if err := c.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("Roster cache opened at %s", path)
	return c, nil
}

func (c *RosterCache) initialize() error {
	_, err := c.db.Exec(`
	CREATE TABLE IF NOT EXISTS session_roster (
		scope TEXT NOT NULL,
		session_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		last_message TEXT,
		last_timestamp TEXT,
		cached_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (scope, session_id)
	);
	CREATE INDEX IF NOT EXISTS idx_roster_scope ON session_roster(scope, position);
	`)
	if err != nil {
		return fmt.Errorf("failed to create roster table: %w", err)
	}
	return nil
}

// Path returns the database path.
func (c *RosterCache) Path() string { return c.dbPath }

// ReplaceRoster stores sessions as the full roster of scope, keeping their order.
func (c *RosterCache) ReplaceRoster(scope string, sessions []types.SessionSummary) error {
	timer := logging.StartTimer(logging.CategoryStore, "ReplaceRoster")
	defer timer.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin roster update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM session_roster WHERE scope = ?", scope); err != nil {
		return fmt.Errorf("clear roster: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO session_roster (scope, session_id, position, last_message, last_timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare roster insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range sessions {
		if _, err := stmt.Exec(scope, s.ID, i, s.LastMessage, s.LastTimestamp); err != nil {
			return fmt.Errorf("insert roster entry %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster update: %w", err)
	}

	logging.StoreDebug("Cached %d roster entries for scope=%s", len(sessions), scope)
	return nil
}

// Roster returns the cached roster of scope in its original order.
func (c *RosterCache) Roster(scope string) ([]types.SessionSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.Query(
		`SELECT session_id, COALESCE(last_message, ''), COALESCE(last_timestamp, '')
		 FROM session_roster
		 WHERE scope = ?
		 ORDER BY position ASC`,
		scope,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to query roster for %s: %v", scope, err)
		return nil, err
	}
	defer rows.Close()

	var out []types.SessionSummary
	for rows.Next() {
		var s types.SessionSummary
		if err := rows.Scan(&s.ID, &s.LastMessage, &s.LastTimestamp); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Remove drops one session from the cached roster.
func (c *RosterCache) Remove(scope, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec("DELETE FROM session_roster WHERE scope = ? AND session_id = ?", scope, sessionID); err != nil {
		logging.Get(logging.CategoryStore).Warn("Failed to remove roster entry %s: %v", sessionID, err)
		return err
	}
	return nil
}

// Clear empties the cached roster of scope.
func (c *RosterCache) Clear(scope string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec("DELETE FROM session_roster WHERE scope = ?", scope); err != nil {
		return err
	}
	return nil
}

// Close closes the database.
func (c *RosterCache) Close() error {
	return c.db.Close()
}
