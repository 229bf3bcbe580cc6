// Package memory provides an in-memory implementation of the
// imageslots.BlobStore interface, intended for tests and development.
package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/tendant/image-slots/pkg/imageslots"
)

// Backend is an in-memory implementation of the imageslots.BlobStore interface
type Backend struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		blobs: make(map[string][]byte),
	}
}

// Upload reads the content into memory under the given key
func (b *Backend) Upload(ctx context.Context, key string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.blobs[key] = data
	return nil
}

// Download returns the stored content for the key
func (b *Backend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.blobs[key]
	if !exists {
		return nil, imageslots.ErrBlobNotFound
	}

	// Copy so later writes to the same key cannot mutate an open reader.
	buf := make([]byte, len(data))
	copy(buf, data)
	return io.NopCloser(bytes.NewReader(buf)), nil
}

// Delete removes the content for the key. Missing keys are not an error.
func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.blobs, key)
	return nil
}

// Exists reports whether content is stored at the key
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.blobs[key]
	return exists, nil
}
