// Package storage defines the object storage boundary of the service.
// The MinIO implementation works with any S3-compatible provider (MinIO,
// AWS S3, Aliyun OSS); MemoryStorage stands in when no credentials are
// configured.
package storage

import (
	"context"
	"io"
)

// Storage uploads and removes objects in named buckets.
type Storage interface {
	// Put uploads size bytes from r to bucket under key in a single call.
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
	// Delete removes the object identified by bucket and key.
	Delete(ctx context.Context, bucket, key string) error
	// PublicURL returns the browser-accessible URL of an object, or "" when
	// the endpoint cannot be expressed as one.
	PublicURL(bucket, key string) string
}
