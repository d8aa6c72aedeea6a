// Package postgres provides the Postgres-backed catalog store.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SashaDiz/autoved-sub000/internal/catalog"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultTable is the catalog table name.
const DefaultTable = "cars"

// Config controls the Postgres connection pool used for catalog rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// CatalogStore appends and lists catalog entries.
type CatalogStore struct {
	pool  pool
	table string
	ids   catalog.IDGenerator
	clock catalog.Clock
}

// NewCatalogStore connects to Postgres using cfg.
func NewCatalogStore(ctx context.Context, cfg Config, ids catalog.IDGenerator, clock catalog.Clock) (*CatalogStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewCatalogStoreWithPool(p, cfg.Table, ids, clock)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewCatalogStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewCatalogStoreWithPool(p pool, table string, ids catalog.IDGenerator, clock catalog.Clock) (*CatalogStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if ids == nil || clock == nil {
		return nil, fmt.Errorf("id generator and clock are required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &CatalogStore{pool: p, table: table, ids: ids, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (s *CatalogStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// EnsureSchema creates the catalog table and its sort index when missing.
func (s *CatalogStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
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
	is_new     BOOLEAN NOT NULL DEFAULT FALSE,
	date       TEXT NOT NULL DEFAULT '',
	sort_order INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS %[1]s_sort_order_idx ON %[1]s (sort_order);`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure %s schema: %w", s.table, err)
	}
	return nil
}

// Append inserts entry at the end of the catalog. The max sort position is read and the
// row inserted in one transaction; the table lock serialises concurrent appenders so
// positions stay dense.
func (s *CatalogStore) Append(ctx context.Context, entry catalog.CatalogEntry) (catalog.CatalogEntry, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return catalog.CatalogEntry{}, fmt.Errorf("generate entry id: %w", err)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return catalog.CatalogEntry{}, fmt.Errorf("begin append: %w", err)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf("LOCK TABLE %s IN SHARE ROW EXCLUSIVE MODE", s.table)); err != nil {
		return catalog.CatalogEntry{}, rollback(ctx, tx, fmt.Errorf("lock %s: %w", s.table, err))
	}

	var maxSort int
	row := tx.QueryRow(ctx, fmt.Sprintf("SELECT COALESCE(MAX(sort_order), 0) FROM %s", s.table))
	if err := row.Scan(&maxSort); err != nil {
		return catalog.CatalogEntry{}, rollback(ctx, tx, fmt.Errorf("read max sort order: %w", err))
	}

	now := s.clock.Now()
	entry.ID = id
	entry.SortOrder = maxSort + 1
	entry.CreatedAt = now
	entry.UpdatedAt = now

	query := fmt.Sprintf(`
INSERT INTO %s (
	id, title, engine, drive, trim, distance, image_url, link,
	price, year, location, is_new, date, sort_order, created_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
)`, s.table)
	if _, err := tx.Exec(ctx, query, insertArgs(entry)...); err != nil {
		return catalog.CatalogEntry{}, rollback(ctx, tx, fmt.Errorf("insert entry: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return catalog.CatalogEntry{}, fmt.Errorf("commit append: %w", err)
	}
	return entry, nil
}

// List returns all entries ordered by sort position.
func (s *CatalogStore) List(ctx context.Context) ([]catalog.CatalogEntry, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
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
		var e catalog.CatalogEntry
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Engine, &e.Drive, &e.Trim, &e.Distance, &e.ImageURL, &e.Link,
			&e.Price, &e.Year, &e.Location, &e.IsNew, &e.Date, &e.SortOrder, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func insertArgs(e catalog.CatalogEntry) []any {
	return []any{
		e.ID, e.Title, e.Engine, e.Drive, e.Trim, e.Distance, e.ImageURL, e.Link,
		e.Price, e.Year, e.Location, e.IsNew, e.Date, e.SortOrder, e.CreatedAt, e.UpdatedAt,
	}
}

func rollback(ctx context.Context, tx pgx.Tx, cause error) error {
	if err := tx.Rollback(ctx); err != nil {
		return fmt.Errorf("%w (rollback: %v)", cause, err)
	}
	return cause
}
