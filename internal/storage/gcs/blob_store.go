// Package gcs re-hosts listing photos in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// DefaultPublicBaseURL serves objects from publicly readable buckets.
const DefaultPublicBaseURL = "https://storage.googleapis.com"

// Config captures the parameters required to write to GCS.
type Config struct {
	Bucket string
	// PublicBaseURL overrides the host used to build object URLs (for example a CDN).
	PublicBaseURL string
	// CacheControl is set on every uploaded object when non-empty.
	CacheControl string
}

// BlobStore writes photos to a configured GCS bucket.
type BlobStore struct {
	client  *storage.Client
	bucket  string
	baseURL string
	cache   string
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: PublicURLBase(cfg),
		cache:   cfg.CacheControl,
	}, nil
}

// PublicURLBase returns the prefix object keys are appended to.
func PublicURLBase(cfg Config) string {
	if base := strings.TrimRight(cfg.PublicBaseURL, "/"); base != "" {
		return base
	}
	return DefaultPublicBaseURL + "/" + cfg.Bucket
}

// PutObject uploads data and returns the object's public HTTPS URL.
func (s *BlobStore) PutObject(ctx context.Context, key string, contentType string, r io.Reader) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("object key is required")
	}
	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if s.cache != "" {
		writer.CacheControl = s.cache
	}
	if _, err := io.Copy(writer, r); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("upload object %s: %w (close writer: %v)", key, err, closeErr)
		}
		return "", fmt.Errorf("upload object %s: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}
