package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when no content exists for a key.
var ErrNotFound = errors.New("storage: key not found")

// Storage is the backend for uploaded chat files and avatars.
type Storage interface {
	// Write stores content from the reader under the given key.
	// size is the expected content size (-1 if unknown).
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Read retrieves content for the given key. The caller closes the
	// returned ReadCloser.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the content with the given key.
	Delete(ctx context.Context, key string) error

	// Exists checks if content with the given key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns a URL for accessing the content. For local storage
	// this is a server-relative path; for S3 a presigned URL valid for
	// the given duration.
	GetURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
