package interfaces

import (
	"context"
	"io"
	"time"
)

// ObjectMetadata describes a stored object without requiring its bytes.
type ObjectMetadata struct {
	Key         string
	SizeBytes   int64
	ContentType string
	ModifiedAt  time.Time
}

// ObjectStore abstracts the durable byte storage backing raw PDFs, chunk
// text, and model artifacts. The local filesystem and S3-compatible
// backends implement this identically from the caller's point of view;
// neither backend's error types or path conventions leak through it.
type ObjectStore interface {
	// Put uploads the full content of r under key, replacing any existing
	// object at that key.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get returns a reader for the object at key. The caller must Close it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// GetRange returns a reader for the byte range [offset, offset+length)
	// of the object at key, used to stream individual PDF page windows
	// without pulling the whole (possibly 500MB) document into memory.
	GetRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error)

	// Stat returns metadata for key without reading its content.
	Stat(ctx context.Context, key string) (*ObjectMetadata, error)

	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the keys under prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// PresignGet returns a time-limited URL a caller can use to download the
	// object directly, bypassing the application. Local-filesystem backends
	// return an error; only remote backends can issue these.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
