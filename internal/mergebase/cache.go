// Package mergebase memoizes merge-base queries in a persistent table.
// Merge bases never change for a given pair of commits, so the cache is
// never invalidated.
package mergebase

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS merge_base_oid (
    lhs_oid TEXT NOT NULL,
    rhs_oid TEXT NOT NULL,
    merge_base_oid TEXT,
    PRIMARY KEY (lhs_oid, rhs_oid)
);
`

// Oracle answers merge-base queries against the live repository.
type Oracle interface {
	MergeBase(ctx context.Context, lhs, rhs string) (string, error)
}

// Cache is the persistent merge-base cache. It shares the event log's
// database file.
type Cache struct {
	db *sql.DB
}

// NewCache initializes the cache table on the given database.
func NewCache(ctx context.Context, db *sql.DB) (*Cache, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("initializing merge-base cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// GetMergeBaseOID returns the merge base of the two commits, or "" when
// they share no history. Results, including the negative ones, are
// cached.
func (c *Cache) GetMergeBaseOID(ctx context.Context, repo Oracle, lhs, rhs string) (string, error) {
	// The pair is unordered; canonicalize by byte order.
	if rhs < lhs {
		lhs, rhs = rhs, lhs
	}

	var cached sql.NullString
	err := c.db.QueryRowContext(ctx, `
		SELECT merge_base_oid
		FROM merge_base_oid
		WHERE lhs_oid = ? AND rhs_oid = ?
	`, lhs, rhs).Scan(&cached)
	switch {
	case err == nil:
		if cached.Valid {
			return cached.String, nil
		}
		return "", nil
	case err != sql.ErrNoRows:
		return "", fmt.Errorf("querying merge-base cache: %w", err)
	}

	mergeBase, err := repo.MergeBase(ctx, lhs, rhs)
	if err != nil {
		return "", err
	}
	var value interface{}
	if mergeBase != "" {
		value = mergeBase
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO merge_base_oid (lhs_oid, rhs_oid, merge_base_oid)
		VALUES (?, ?, ?)
		ON CONFLICT (lhs_oid, rhs_oid) DO UPDATE SET merge_base_oid = excluded.merge_base_oid
	`, lhs, rhs, value)
	if err != nil {
		return "", fmt.Errorf("storing merge-base cache entry: %w", err)
	}
	return mergeBase, nil
}
