package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrKeyExists is returned by Put when the key is already occupied.
	// Lecture uploads never overwrite, they always mint a fresh key.
	ErrKeyExists = errors.New("storage: key already exists")

	// ErrNotFound is returned when the requested object does not exist.
	ErrNotFound = errors.New("storage: object not found")
)

// ObjectStore is the blob store the upload pipeline writes lecture files to.
type ObjectStore interface {
	// Put streams size bytes from r into key. Fails with ErrKeyExists when
	// the key is already present.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get opens the object at key for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Remove deletes the object at key. Removing a missing key is not an
	// error.
	Remove(ctx context.Context, key string) error
	// PublicURL returns the address the object is served from.
	PublicURL(key string) string
}
