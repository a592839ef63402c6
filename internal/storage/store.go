// Package storage holds binary content (uploaded photos, rendered policy documents)
// behind opaque references. Records in other stores point at content by reference only.
package storage

import (
	"context"
	"time"
)

// Blob is stored content plus its metadata.
type Blob struct {
	Ref         string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// BlobStore is the contract services depend on. Content is immutable: Put always
// allocates a new reference.
type BlobStore interface {
	Put(ctx context.Context, contentType string, data []byte) (string, error)
	Get(ctx context.Context, ref string) (*Blob, error)
	Delete(ctx context.Context, ref string) error
}
