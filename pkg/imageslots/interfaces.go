package imageslots

import (
	"context"
	"io"
)

// BlobStore defines the interface for blob storage backends. Keys are
// slash-separated paths produced by ObjectKey.
type BlobStore interface {
	// Upload streams content to the given key, replacing any existing blob
	Upload(ctx context.Context, key string, reader io.Reader) error

	// Download returns the blob content, or ErrBlobNotFound
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a blob. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a blob is present at the key
	Exists(ctx context.Context, key string) (bool, error)
}

// SlotRepository defines the interface for slot record persistence.
type SlotRepository interface {
	// Snapshot returns all occupied slots for a user, ordered by
	// (created_at, index) ascending
	Snapshot(ctx context.Context, userID string) ([]Slot, error)

	// Insert creates a slot record. Returns ErrConflict if a record
	// already exists at (user, index); the conditional insert is the
	// compare-and-swap that guards concurrent allocation.
	Insert(ctx context.Context, slot Slot) error

	// Delete removes a slot record. Deleting a missing record is not an error.
	Delete(ctx context.Context, userID string, index int) error

	// Get returns the record at (user, index), or ErrSlotNotFound
	Get(ctx context.Context, userID string, index int) (Slot, error)

	// DeleteAll removes every record for a user and returns what was
	// removed, ordered by index
	DeleteAll(ctx context.Context, userID string) ([]Slot, error)
}

// UserDirectory is the user-namespace existence predicate. A user "exists"
// once Create was called for its id; what that means physically (a directory,
// a marker object, a set entry) is up to the implementation.
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Create(ctx context.Context, userID string) error
}

// EventSink defines the interface for slot lifecycle notifications. Sink
// errors are logged and never fail the triggering operation.
type EventSink interface {
	// SlotStored is fired after a successful upload commit
	SlotStored(ctx context.Context, slot Slot) error

	// SlotEvicted is fired after an occupied slot was evicted to make room
	SlotEvicted(ctx context.Context, slot Slot) error

	// UserCleared is fired after a clear-all, with the number of slots removed
	UserCleared(ctx context.Context, userID string, removed int) error
}
