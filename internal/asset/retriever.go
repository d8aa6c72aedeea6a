// Package asset resolves Telegram photo references and re-hosts them in durable storage.
package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/SashaDiz/autoved-sub000/internal/catalog"
	"github.com/SashaDiz/autoved-sub000/internal/telegram"
)

// ErrRetrieval wraps every failure to resolve, download or re-host a photo.
var ErrRetrieval = errors.New("asset retrieval failed")

// Defaults applied by New when Config leaves them empty.
const (
	DefaultContentType = "image/jpeg"
	DefaultImageURL    = "/images/car-placeholder.jpg"
)

// Resolver turns a provider file identifier into a download URL.
type Resolver interface {
	GetFile(ctx context.Context, fileID string) (telegram.File, error)
	FileURL(filePath string) string
}

// Downloader fetches the bytes at a URL.
type Downloader interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// KeyGenerator returns fresh, collision-resistant object keys.
type KeyGenerator interface {
	NewKey() string
}

// redactor is implemented by resolvers whose download URLs embed credentials.
type redactor interface {
	RedactError(err error) error
}

// Config tunes the retriever.
type Config struct {
	// DefaultImageURL is returned when a message carries no photo reference.
	DefaultImageURL string
	// ContentType is stored with every re-hosted object.
	ContentType string
}

// Retriever runs metadata lookup, download and re-host for one reference at a time.
// It surfaces failures; the fallback policy belongs to the caller.
type Retriever struct {
	resolver   Resolver
	downloader Downloader
	blobs      catalog.BlobStore
	keys       KeyGenerator
	cfg        Config
}

// New wires a Retriever.
func New(resolver Resolver, downloader Downloader, blobs catalog.BlobStore, keys KeyGenerator, cfg Config) (*Retriever, error) {
	if resolver == nil || downloader == nil || blobs == nil || keys == nil {
		return nil, fmt.Errorf("asset retriever requires resolver, downloader, blob store and key generator")
	}
	if cfg.DefaultImageURL == "" {
		cfg.DefaultImageURL = DefaultImageURL
	}
	if cfg.ContentType == "" {
		cfg.ContentType = DefaultContentType
	}
	return &Retriever{
		resolver:   resolver,
		downloader: downloader,
		blobs:      blobs,
		keys:       keys,
		cfg:        cfg,
	}, nil
}

// DefaultURL is the placeholder image URL.
func (r *Retriever) DefaultURL() string {
	return r.cfg.DefaultImageURL
}

// Retrieve returns the public URL of the re-hosted photo. An empty reference returns the
// placeholder without touching the network.
func (r *Retriever) Retrieve(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return r.cfg.DefaultImageURL, nil
	}

	file, err := r.resolver.GetFile(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("%w: resolve %s: %w", ErrRetrieval, ref, err)
	}

	body, err := r.downloader.Get(ctx, r.resolver.FileURL(file.FilePath))
	if err != nil {
		if rd, ok := r.resolver.(redactor); ok {
			err = rd.RedactError(err)
		}
		return "", fmt.Errorf("%w: download %s: %w", ErrRetrieval, file.FilePath, err)
	}

	key := r.keys.NewKey()
	url, err := r.blobs.PutObject(ctx, key, r.cfg.ContentType, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: store %s: %w", ErrRetrieval, key, err)
	}
	return url, nil
}
