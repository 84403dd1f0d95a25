// Package storage defines the blob store the file sink writes its output to.
// Implementations live in the local, gcs and memory subpackages.
package storage

import (
	"context"
	"io"
)

// BlobStore writes one object and returns a URI for it. Writing an existing
// path replaces it.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}
