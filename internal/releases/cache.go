// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package releases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DefaultCacheTTL is how long fetched releases are served from the cache.
const DefaultCacheTTL = 12 * time.Hour

const cacheSchema = `
CREATE TABLE IF NOT EXISTS releases (
	source        TEXT    NOT NULL,
	position      INTEGER NOT NULL,
	title         TEXT    NOT NULL,
	notes         TEXT    NOT NULL DEFAULT '',
	opening_date  TEXT    NOT NULL DEFAULT '',
	original_date TEXT    NOT NULL DEFAULT '',
	fetched_at    INTEGER NOT NULL,
	PRIMARY KEY (source, position)
);`

// ErrCacheClosed is returned after Close.
var ErrCacheClosed = errors.New("release cache closed")

// CachedSource serves records from SQLite while they are fresh and refetches
// from the wrapped Source once they expire.
type CachedSource struct {
	db     *sql.DB
	src    Source
	key    string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewCachedSource opens (or creates) the cache database at path. key names
// the wrapped source so several sources can share one database.
func NewCachedSource(path, key string, src Source, ttl time.Duration) (*CachedSource, error) {
	if src == nil {
		return nil, errors.New("source cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open release cache: %w", err)
	}
	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL", cacheSchema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize release cache: %w", err)
		}
	}

	return &CachedSource{
		db:     db,
		src:    src,
		key:    key,
		ttl:    ttl,
		now:    time.Now,
		logger: slog.Default(),
	}, nil
}

// Releases implements Source.
func (c *CachedSource) Releases(ctx context.Context) ([]Record, error) {
	if c.db == nil {
		return nil, ErrCacheClosed
	}

	recs, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(recs) > 0 {
		c.logger.Debug("release cache hit", "source", c.key, "count", len(recs))
		return recs, nil
	}

	c.logger.Debug("release cache miss", "source", c.key)
	recs, err = c.src.Releases(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.store(ctx, recs); err != nil {
		c.logger.Warn("failed to write release cache", "source", c.key, "error", err)
	}
	return recs, nil
}

// Invalidate drops every cached record for this source.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	if c.db == nil {
		return ErrCacheClosed
	}
	_, err := c.db.ExecContext(ctx, "DELETE FROM releases WHERE source = ?", c.key)
	return err
}

// Close closes the database.
func (c *CachedSource) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func (c *CachedSource) load(ctx context.Context) ([]Record, error) {
	cutoff := c.now().Add(-c.ttl).Unix()
	rows, err := c.db.QueryContext(ctx, `
		SELECT title, notes, opening_date, original_date
		FROM releases
		WHERE source = ? AND fetched_at > ?
		ORDER BY position`, c.key, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query release cache: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Title, &r.Notes, &r.OpeningDate, &r.OriginalDate); err != nil {
			return nil, fmt.Errorf("failed to scan cached release: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (c *CachedSource) store(ctx context.Context, recs []Record) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM releases WHERE source = ?", c.key); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO releases (source, position, title, notes, opening_date, original_date, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	fetched := c.now().Unix()
	for i, r := range recs {
		if _, err := stmt.ExecContext(ctx, c.key, i, r.Title, r.Notes, r.OpeningDate, r.OriginalDate, fetched); err != nil {
			return err
		}
	}
	return tx.Commit()
}
