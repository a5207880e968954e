package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("object not found")

// Object is the metadata of a stored blob.
type Object struct {
	Key         string
	Size        int64
	ContentType string
}

// BlobStore persists uploaded files under slash-separated keys.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, Object, error)
	Delete(ctx context.Context, key string) error
}
