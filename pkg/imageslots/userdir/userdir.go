// Package userdir provides implementations of the
// imageslots.UserDirectory predicate.
//
// The slot store follows the "directory existence equals user existence"
// convention: a user exists once its namespace was created, with no user
// entity persisted beyond that. The implementations here realize the
// convention as a real directory (FS), a marker blob (Marker) or a set
// entry (Memory).
package userdir

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tendant/image-slots/pkg/imageslots"
)

// FS realizes user namespaces as directories under Root.
type FS struct {
	root string
}

// NewFS creates a directory-backed user directory rooted at root.
func NewFS(root string) (*FS, error) {
	if root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return &FS{root: root}, nil
}

func (d *FS) Exists(ctx context.Context, userID string) (bool, error) {
	info, err := os.Stat(filepath.Join(d.root, userID))
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to stat user directory: %w", err)
	}
	return info.IsDir(), nil
}

func (d *FS) Create(ctx context.Context, userID string) error {
	if err := os.MkdirAll(filepath.Join(d.root, userID), 0755); err != nil {
		return fmt.Errorf("failed to create user directory: %w", err)
	}
	return nil
}

// Memory tracks user namespaces as an in-memory set.
type Memory struct {
	mu    sync.RWMutex
	users map[string]bool
}

// NewMemory creates a set-backed user directory.
func NewMemory() *Memory {
	return &Memory{users: make(map[string]bool)}
}

func (d *Memory) Exists(ctx context.Context, userID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.users[userID], nil
}

func (d *Memory) Create(ctx context.Context, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[userID] = true
	return nil
}

// Marker realizes user namespaces as zero-byte marker blobs in a blob
// store, for backends without a directory concept such as S3.
type Marker struct {
	store imageslots.BlobStore
}

// NewMarker creates a blob-marker-backed user directory.
func NewMarker(store imageslots.BlobStore) *Marker {
	return &Marker{store: store}
}

func markerKey(userID string) string {
	return path.Join("users", userID, ".user")
}

func (d *Marker) Exists(ctx context.Context, userID string) (bool, error) {
	return d.store.Exists(ctx, markerKey(userID))
}

func (d *Marker) Create(ctx context.Context, userID string) error {
	return d.store.Upload(ctx, markerKey(userID), strings.NewReader(""))
}
