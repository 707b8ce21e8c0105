// Package storage defines the artifact storage abstraction. Implementations
// live in the local, gcs, and memory subpackages so the service is
// independent of any one backend.
package storage

import (
	"context"
	"io"
)

// Provider stores crawl artifacts and retrieves them for download.
type Provider interface {
	// Save persists the artifact under name and returns its URI.
	Save(ctx context.Context, name string, data []byte) (string, error)
	// Open returns a reader over a previously saved artifact.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}
