// Package index is the SQLite store behind the agora: subnodes keyed by
// (user, title) and one revision cursor per user.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS subnodes (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	user    TEXT NOT NULL,
	title   TEXT NOT NULL,
	body    TEXT NOT NULL DEFAULT '',
	links   TEXT NOT NULL DEFAULT '[]',
	pushes  TEXT NOT NULL DEFAULT '[]',
	updated DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user, title)
);

CREATE INDEX IF NOT EXISTS idx_subnodes_title ON subnodes(title);

CREATE TABLE IF NOT EXISTS shas (
	user       TEXT NOT NULL UNIQUE,
	last_sha   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// DB wraps a sql.DB with store-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
