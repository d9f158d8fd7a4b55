// Package cache persists averaged material colors in SQLite so repeated runs
// over the same material set skip decoding.
//
// Entries are keyed by material identifier and sampling resolution; a
// material whose content changes under the same identifier must be evicted
// with Delete.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ivlev/photomosaic/internal/pixel"
)

const schema = `
CREATE TABLE IF NOT EXISTS material_colors (
	id         TEXT    NOT NULL,
	sample_w   INTEGER NOT NULL,
	sample_h   INTEGER NOT NULL,
	r          INTEGER NOT NULL,
	g          INTEGER NOT NULL,
	b          INTEGER NOT NULL,
	a          INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (id, sample_w, sample_h)
)`

// Key addresses one cached color.
type Key struct {
	ID            string
	Width, Height int
}

// Store is a SQLite-backed color cache. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the cache at path. ":memory:" gives a private
// in-process cache.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("cache: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and ":memory:" is
	// per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range append(pragmas, schema) {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("cache: %s: %w", p, err)
		}
	}

	return &Store{db: db}, nil
}

// Get returns the cached color for k, reporting whether it was present.
func (s *Store) Get(ctx context.Context, k Key) (pixel.Color, bool, error) {
	var r, g, b, a int
	err := s.db.QueryRowContext(ctx,
		`SELECT r, g, b, a FROM material_colors WHERE id = ? AND sample_w = ? AND sample_h = ?`,
		k.ID, k.Width, k.Height,
	).Scan(&r, &g, &b, &a)
	if errors.Is(err, sql.ErrNoRows) {
		return pixel.Color{}, false, nil
	}
	if err != nil {
		return pixel.Color{}, false, fmt.Errorf("cache: get %s: %w", k.ID, err)
	}
	return pixel.Color{R: uint8(r), G: uint8(g), B: uint8(b), A: uint8(a)}, true, nil
}

// Put stores c under k, replacing any previous value.
func (s *Store) Put(ctx context.Context, k Key, c pixel.Color) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO material_colors (id, sample_w, sample_h, r, g, b, a, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id, sample_w, sample_h) DO UPDATE SET
			r = excluded.r, g = excluded.g, b = excluded.b, a = excluded.a,
			updated_at = excluded.updated_at`,
		k.ID, k.Width, k.Height, int(c.R), int(c.G), int(c.B), int(c.A), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache: put %s: %w", k.ID, err)
	}
	return nil
}

// Delete evicts every resolution cached for id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM material_colors WHERE id = ?`, id); err != nil {
		return fmt.Errorf("cache: delete %s: %w", id, err)
	}
	return nil
}

// Len returns the number of cached entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM material_colors`).Scan(&n)
	return n, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
