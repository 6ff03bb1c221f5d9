//go:build sqlite_fts5

package index

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS subnodes_fts USING fts5(
			user UNINDEXED,
			title,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, tx *sql.Tx, user, title, body string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM subnodes_fts WHERE user = ? AND title = ?`, user, title); err != nil {
		return fmt.Errorf("index: clear fts: %w", err)
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO subnodes_fts (user, title, body) VALUES (?, ?, ?)`, user, title, body)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching results with snippets.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user,
		       title,
		       snippet(subnodes_fts, 2, '<b>', '</b>', '...', 64)
		FROM subnodes_fts
		WHERE subnodes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.User, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
