package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/flancian/agora-import/internal/apperr"
)

// LastRevision returns the last imported revision for user. ok is false when
// the user has never been imported. A cursor may hold an empty revision when
// the garden was imported without version control.
func (db *DB) LastRevision(ctx context.Context, user string) (string, bool, error) {
	var rev string
	err := db.conn.QueryRowContext(ctx, `SELECT last_sha FROM shas WHERE user = ?`, user).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("index: last revision: %w", err)
	}
	return rev, true, nil
}

// RecordInitialRevision creates the cursor for user. It fails with
// apperr.ErrConflict when one already exists.
func (db *DB) RecordInitialRevision(ctx context.Context, user, rev string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO shas (user, last_sha, updated_at) VALUES (?, ?, ?)`, user, rev, time.Now().UTC())
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("index: cursor for %q: %w", user, apperr.ErrConflict)
		}
		return fmt.Errorf("index: record revision: %w", err)
	}
	return nil
}

// AdvanceRevision moves an existing cursor to rev. It fails with
// apperr.ErrNotFound when user has no cursor yet.
func (db *DB) AdvanceRevision(ctx context.Context, user, rev string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE shas SET last_sha = ?, updated_at = ? WHERE user = ?`, rev, time.Now().UTC(), user)
	if err != nil {
		return fmt.Errorf("index: advance revision: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("index: advance revision: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("index: cursor for %q: %w", user, apperr.ErrNotFound)
	}
	return nil
}
