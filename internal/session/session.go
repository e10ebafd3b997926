// Package session persists the shell session in SQLite: the open tab list
// as a wholesale snapshot, plus a string key-value table for shell
// preferences (active tab, debounce override, default markdown mode).
package session

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/ansuz/internal/board"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tabs (
	id          TEXT PRIMARY KEY,
	position    INTEGER NOT NULL DEFAULT 0,
	kind        TEXT NOT NULL DEFAULT 'board',
	board_path  TEXT NOT NULL DEFAULT '',
	base_path   TEXT NOT NULL DEFAULT '',
	handle_name TEXT NOT NULL DEFAULT '',
	created_on  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);
`

// activeTabKey is the settings key holding the active tab id.
const activeTabKey = "active_tab"

// DB wraps a sql.DB with session-specific operations.
type DB struct {
	conn *sql.DB
}

// dsnEscaper percent-encodes the characters a sqlite file: URI would
// otherwise treat as query or fragment delimiters.
var dsnEscaper = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

// Open opens (or creates) the SQLite session database at path and applies
// the schema. The DSN is assembled as a file: URI so reserved characters in
// the path survive.
func Open(path string) (*DB, error) {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")
	dsn := "file:" + dsnEscaper.Replace(path) + "?" + q.Encode()

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("session: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("session: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("session: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// SaveTabs replaces the persisted tab list wholesale: delete and re-insert
// in one transaction, the same unit the shell saves and restores. The
// active tab id rides along in the settings table.
func (db *DB) SaveTabs(tabs []board.Tab, active string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("session: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM tabs`); err != nil {
		return fmt.Errorf("session: clear tabs: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO tabs (id, position, kind, board_path, base_path, handle_name, created_on)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("session: prepare tab insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tabs {
		created := t.CreatedOn
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := stmt.Exec(t.ID, t.Position, string(t.Kind), t.BoardPath, t.BasePath, t.HandleName, created); err != nil {
			return fmt.Errorf("session: insert tab %s: %w", t.ID, err)
		}
	}

	if _, err := tx.Exec(`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, activeTabKey, active); err != nil {
		return fmt.Errorf("session: store active tab: %w", err)
	}

	return tx.Commit()
}

// LoadTabs returns the persisted tab list in position order, plus the
// active tab id.
func (db *DB) LoadTabs() ([]board.Tab, string, error) {
	rows, err := db.conn.Query(`
		SELECT id, position, kind, board_path, base_path, handle_name, created_on
		FROM tabs ORDER BY position, id
	`)
	if err != nil {
		return nil, "", fmt.Errorf("session: load tabs: %w", err)
	}
	defer rows.Close()

	var tabs []board.Tab
	for rows.Next() {
		var t board.Tab
		var kind string
		if err := rows.Scan(&t.ID, &t.Position, &kind, &t.BoardPath, &t.BasePath, &t.HandleName, &t.CreatedOn); err != nil {
			return nil, "", fmt.Errorf("session: scan tab: %w", err)
		}
		t.Kind = board.TabKind(kind)
		tabs = append(tabs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("session: load tabs: %w", err)
	}

	active, _, err := db.GetSetting(activeTabKey)
	if err != nil {
		return nil, "", err
	}
	return tabs, active, nil
}

// SetSetting stores a shell preference.
func (db *DB) SetSetting(key, value string) error {
	if _, err := db.conn.Exec(`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value); err != nil {
		return fmt.Errorf("session: set %s: %w", key, err)
	}
	return nil
}

// GetSetting returns a shell preference. The second return reports whether
// the key was present.
func (db *DB) GetSetting(key string) (string, bool, error) {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: get %s: %w", key, err)
	}
	return v, true, nil
}
