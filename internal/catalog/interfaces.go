package catalog

import (
	"context"
	"io"
	"time"
)

// Store persists catalog entries. Append runs inside a single transaction and assigns
// the next sort position after every existing entry.
type Store interface {
	Append(ctx context.Context, entry CatalogEntry) (CatalogEntry, error)
	List(ctx context.Context) ([]CatalogEntry, error)
	EnsureSchema(ctx context.Context) error
	Close() error
}

// BlobStore writes raw bytes and returns the public URL of the stored object.
type BlobStore interface {
	PutObject(ctx context.Context, key string, contentType string, r io.Reader) (string, error)
}

// Publisher pushes catalog events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Deduper claims inbound message keys so redelivered updates are written once.
type Deduper interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces catalog entry IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
