package storage

import (
	"context"
	"io"
)

// Provider is the object store the snapshot archive writes to.
type Provider interface {
	// CheckBucket makes sure the bucket exists, creating it when missing.
	CheckBucket(ctx context.Context) error

	// PutObject overwrites objectKey with the size bytes read from r.
	PutObject(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) error
}
