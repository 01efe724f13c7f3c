// Package storage hosts blog banner images in an S3 bucket.
package storage

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
)

// BannerStore uploads and removes banner objects.
type BannerStore interface {
	// Upload stores body under key, replacing any existing object, and
	// returns the public URL of the object.
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys []string) error
	// NewKey returns a fresh object key under the configured prefix.
	NewKey() string
}

// NewKey joins prefix and a random id, e.g. blog-api/2f1c....
func NewKey(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "/" + uuid.NewString()
}
