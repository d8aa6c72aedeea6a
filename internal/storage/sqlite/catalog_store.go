// Package sqlite provides an embedded catalog store for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/SashaDiz/autoved-sub000/internal/catalog"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultTable is the catalog table name.
const DefaultTable = "cars"

const schema = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL CHECK (length(title) > 0),
	engine     TEXT NOT NULL DEFAULT '',
	drive      TEXT NOT NULL DEFAULT '',
	trim       TEXT NOT NULL DEFAULT '',
	distance   TEXT NOT NULL DEFAULT '',
	image_url  TEXT NOT NULL DEFAULT '',
	link       TEXT NOT NULL DEFAULT '',
	price      TEXT NOT NULL DEFAULT '',
	year       TEXT NOT NULL DEFAULT '',
	location   TEXT NOT NULL DEFAULT '',
	is_new     INTEGER NOT NULL DEFAULT 0,
	date       TEXT NOT NULL DEFAULT '',
	sort_order INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS %[1]s_sort_order_idx ON %[1]s (sort_order);`

// CatalogStore implements catalog.Store on SQLite. It keeps a single open connection so
// appends are serialised and an in-memory database survives between calls.
type CatalogStore struct {
	db    *sql.DB
	table string
	ids   catalog.IDGenerator
	clock catalog.Clock
}

// Option customises a CatalogStore.
type Option func(*CatalogStore)

// WithTable stores entries in table instead of DefaultTable. Empty keeps the default.
func WithTable(table string) Option {
	return func(s *CatalogStore) {
		if table != "" {
			s.table = table
		}
	}
}

// Open opens (or creates) the database at path; ":memory:" is accepted.
func Open(ctx context.Context, path string, ids catalog.IDGenerator, clock catalog.Clock, opts ...Option) (*CatalogStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if ids == nil || clock == nil {
		return nil, fmt.Errorf("id generator and clock are required")
	}
	store := &CatalogStore{table: DefaultTable, ids: ids, clock: clock}
	for _, opt := range opts {
		opt(store)
	}
	if !validTableName.MatchString(store.table) {
		return nil, fmt.Errorf("invalid table name %q", store.table)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	store.db = db
	return store, nil
}

// Close closes the database.
func (s *CatalogStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the catalog table and index when missing.
func (s *CatalogStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(schema, s.table)); err != nil {
		return fmt.Errorf("ensure %s schema: %w", s.table, err)
	}
	return nil
}

// Append inserts entry after every existing entry within one transaction.
func (s *CatalogStore) Append(ctx context.Context, entry catalog.CatalogEntry) (catalog.CatalogEntry, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return catalog.CatalogEntry{}, fmt.Errorf("generate entry id: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return catalog.CatalogEntry{}, fmt.Errorf("begin append: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var maxSort int
	if err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT COALESCE(MAX(sort_order), 0) FROM %s", s.table)).Scan(&maxSort); err != nil {
		return catalog.CatalogEntry{}, fmt.Errorf("read max sort order: %w", err)
	}

	now := s.clock.Now().UTC()
	entry.ID = id
	entry.SortOrder = maxSort + 1
	entry.CreatedAt = now
	entry.UpdatedAt = now

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (
	id, title, engine, drive, trim, distance, image_url, link,
	price, year, location, is_new, date, sort_order, created_at, updated_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, s.table),
		entry.ID, entry.Title, entry.Engine, entry.Drive, entry.Trim, entry.Distance, entry.ImageURL, entry.Link,
		entry.Price, entry.Year, entry.Location, entry.IsNew, entry.Date, entry.SortOrder,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return catalog.CatalogEntry{}, fmt.Errorf("insert entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return catalog.CatalogEntry{}, fmt.Errorf("commit append: %w", err)
	}
	return entry, nil
}

// List returns all entries ordered by sort position.
func (s *CatalogStore) List(ctx context.Context) ([]catalog.CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT id, title, engine, drive, trim, distance, image_url, link,
	price, year, location, is_new, date, sort_order, created_at, updated_at
FROM %s
ORDER BY sort_order ASC, created_at ASC`, s.table))
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := make([]catalog.CatalogEntry, 0)
	for rows.Next() {
		var (
			e                  catalog.CatalogEntry
			created, updated string
		)
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Engine, &e.Drive, &e.Trim, &e.Distance, &e.ImageURL, &e.Link,
			&e.Price, &e.Year, &e.Location, &e.IsNew, &e.Date, &e.SortOrder, &created, &updated,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if e.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of catalog rows.
func (s *CatalogStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}
