// Package memory stores artifacts and job rows in-memory for development
// and tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// BlobStore stores artifacts in-memory and returns pseudo URIs.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewBlobStore creates a new in-memory artifact store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		data: make(map[string][]byte),
	}
}

// Save persists the content and returns a memory:// URI.
func (s *BlobStore) Save(_ context.Context, name string, data []byte) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", name), nil
}

// Open returns a reader over a saved artifact.
func (s *BlobStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.data[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("artifact %q not found", name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
