// Package memory implements the durable conversation store: an
// append-only message log plus a key/value preference table, backed by
// a single SQLite file.
package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver.
)

// schema is the DDL executed on every startup (idempotent via IF NOT EXISTS).
const schema = `
CREATE TABLE IF NOT EXISTS conversation_messages (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    ts_ms   INTEGER NOT NULL,
    role    TEXT NOT NULL,
    content TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversation_ts ON conversation_messages(ts_ms);

CREATE TABLE IF NOT EXISTS preferences (
    key           TEXT PRIMARY KEY,
    value         TEXT NOT NULL,
    updated_ts_ms INTEGER NOT NULL
);
`

// maxRecentLimit caps how many messages RecentMessages may return.
const maxRecentLimit = 200

// Message is one conversation turn as stored.
type Message struct {
	ID      int64
	TsMs    int64
	Role    string // "user", "assistant", "tool"
	Content string
}

// Store is the durable conversation + preference store. Every call
// takes the store mutex; each operation is a single atomic
// read-modify-write against the shared database handle.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the store at the given sqlite path.
// WAL mode is enabled for concurrent read performance.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "./data/memory.db"
	}

	// Ensure parent directory exists.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory %q: %w", dir, err)
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// AddMessage appends one message to the conversation log. Empty content
// (after trimming) is silently ignored.
func (s *Store) AddMessage(role, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO conversation_messages (ts_ms, role, content) VALUES (?, ?, ?)",
		time.Now().UnixMilli(), role, content,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit messages in chronological order
// (oldest first). The limit is clamped to [0, 200].
func (s *Store) RecentMessages(limit int) ([]Message, error) {
	if limit < 0 {
		limit = 0
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT id, ts_ms, role, content FROM conversation_messages ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.TsMs, &m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Reverse to chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// SetPreference upserts one preference keyed by key. An empty key
// (after trimming) is silently ignored.
func (s *Store) SetPreference(key, value string) error {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO preferences (key, value, updated_ts_ms) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_ts_ms = excluded.updated_ts_ms`,
		key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set preference %q: %w", key, err)
	}
	return nil
}

// Preferences returns all stored preferences as a map.
func (s *Store) Preferences() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT key, value FROM preferences ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preferences: %w", err)
	}
	return prefs, nil
}

// PreferenceKeys returns the sorted preference keys. The map iteration
// order of Preferences is unstable; rendering code that needs a stable
// listing should use this.
func (s *Store) PreferenceKeys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT key FROM preferences ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("query preference keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan preference key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
