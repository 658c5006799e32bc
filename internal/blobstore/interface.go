package blobstore

import (
	"context"
	"errors"
	"io"

	"inkpost/internal/models"
)

// ErrNotFound is returned by Open for keys with no stored object.
var ErrNotFound = errors.New("blob not found")

// PutResult describes one persisted object.
type PutResult struct {
	Key       string
	SHA256    string
	SizeBytes int64
}

// Store is the byte-storage abstraction used by the upload service. Keys
// are slash-separated relative paths such as "post/abc123.mp4".
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, mediaType string) (PutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Backend() models.StorageBackend
}
