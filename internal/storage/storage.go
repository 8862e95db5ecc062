// Package storage stores trade attachments (chart screenshots) in an
// object store. MinIO and Google Cloud Storage backends are provided.
package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the object operations the attachment handlers use.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}
