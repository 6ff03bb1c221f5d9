package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/flancian/agora-import/internal/apperr"
	"github.com/flancian/agora-import/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	User    string `json:"user"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// PushRef is a push item together with the subnode it was pushed from.
type PushRef struct {
	From   models.Ref `json:"from"`
	Markup string     `json:"markup"`
}

// UpsertSubnodes writes all subnodes in one transaction, keyed on
// (user, title). Existing rows get body, links, pushes and updated replaced
// in place; no duplicate rows are created. An empty slice is a no-op.
func (db *DB) UpsertSubnodes(ctx context.Context, subnodes []models.Subnode) error {
	if len(subnodes) == 0 {
		return nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO subnodes (user, title, body, links, pushes, updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user, title) DO UPDATE SET
			body    = excluded.body,
			links   = excluded.links,
			pushes  = excluded.pushes,
			updated = excluded.updated
	`)
	if err != nil {
		return fmt.Errorf("index: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, sn := range subnodes {
		links, err := models.EncodeLinks(sn.Links)
		if err != nil {
			return err
		}
		pushes, err := models.EncodePushes(sn.Pushes)
		if err != nil {
			return err
		}
		updated := sn.Updated
		if updated.IsZero() {
			updated = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, sn.User, sn.Title, sn.Body, links, pushes, updated.UTC()); err != nil {
			return fmt.Errorf("index: upsert %s/%s: %w", sn.User, sn.Title, err)
		}
		if err := ftsUpsert(ctx, tx, sn.User, sn.Title, sn.Body); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w", err)
	}
	return nil
}

const subnodeColumns = `user, title, body, links, pushes, updated`

func scanSubnode(row interface{ Scan(...any) error }) (*models.Subnode, error) {
	var (
		sn            models.Subnode
		links, pushes string
	)
	if err := row.Scan(&sn.User, &sn.Title, &sn.Body, &links, &pushes, &sn.Updated); err != nil {
		return nil, err
	}
	var err error
	if sn.Links, err = models.DecodeLinks(links); err != nil {
		return nil, err
	}
	if sn.Pushes, err = models.DecodePushes(pushes); err != nil {
		return nil, err
	}
	return &sn, nil
}

// GetSubnode returns one user's subnode for title.
func (db *DB) GetSubnode(ctx context.Context, user, title string) (*models.Subnode, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+subnodeColumns+` FROM subnodes WHERE user = ? AND title = ?`, user, title)
	sn, err := scanSubnode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: subnode %s/%s: %w", user, title, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get subnode: %w", err)
	}
	return sn, nil
}

// SubnodesByTitle returns every user's subnode for title, ordered by user.
func (db *DB) SubnodesByTitle(ctx context.Context, title string) ([]models.Subnode, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+subnodeColumns+` FROM subnodes WHERE title = ? ORDER BY user`, title)
	if err != nil {
		return nil, fmt.Errorf("index: subnodes by title: %w", err)
	}
	defer rows.Close()

	var out []models.Subnode
	for rows.Next() {
		sn, err := scanSubnode(rows)
		if err != nil {
			return nil, fmt.Errorf("index: scan subnode: %w", err)
		}
		out = append(out, *sn)
	}
	return out, rows.Err()
}

// ListSubnodes returns the titles a user has, ordered by title.
func (db *DB) ListSubnodes(ctx context.Context, user string) ([]models.Ref, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user, title FROM subnodes WHERE user = ? ORDER BY title`, user)
	if err != nil {
		return nil, fmt.Errorf("index: list subnodes: %w", err)
	}
	return scanRefs(rows)
}

// CountSubnodes returns the number of subnodes a user has.
func (db *DB) CountSubnodes(ctx context.Context, user string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM subnodes WHERE user = ?`, user).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("index: count subnodes: %w", err)
	}
	return n, nil
}

// Backlinks returns the subnodes whose links name title, case-insensitively.
func (db *DB) Backlinks(ctx context.Context, title string) ([]models.Ref, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT s.user, s.title
		FROM subnodes s, json_each(s.links) l
		WHERE lower(l.value) = lower(?)
		ORDER BY s.title, s.user
	`, title)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	return scanRefs(rows)
}

// PushesTo returns every push item addressed to title, case-insensitively.
func (db *DB) PushesTo(ctx context.Context, title string) ([]PushRef, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT s.user, s.title, json_extract(p.value, '$.markup')
		FROM subnodes s, json_each(s.pushes) p
		WHERE lower(json_extract(p.value, '$.title')) = lower(?)
		ORDER BY s.updated DESC, s.user
	`, title)
	if err != nil {
		return nil, fmt.Errorf("index: pushes: %w", err)
	}
	defer rows.Close()

	var out []PushRef
	for rows.Next() {
		var p PushRef
		if err := rows.Scan(&p.From.User, &p.From.Title, &p.Markup); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanRefs(rows *sql.Rows) ([]models.Ref, error) {
	defer rows.Close()
	var out []models.Ref
	for rows.Next() {
		var r models.Ref
		if err := rows.Scan(&r.User, &r.Title); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
