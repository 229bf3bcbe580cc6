package imageslots

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrInvalidUserID indicates a malformed user identifier (empty or
	// containing path separators / traversal segments). Rejected before any I/O.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrUserNotFound indicates an operation against a user namespace that
	// was never created
	ErrUserNotFound = errors.New("user not found")

	// ErrUnsupportedMediaType indicates a declared content type outside the
	// allowed image types
	ErrUnsupportedMediaType = errors.New("unsupported image type")

	// ErrSlotNotFound indicates a slot with no record, or a record whose
	// blob is missing. Callers cannot distinguish the two cases.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrBlobNotFound indicates a blob store read against a missing key
	ErrBlobNotFound = errors.New("blob not found")

	// ErrConflict indicates a concurrent metadata write collision at the
	// same (user, index). Surfaced only after upload retries are exhausted.
	ErrConflict = errors.New("slot record conflict")
)

// SlotError represents an error related to slot operations
type SlotError struct {
	UserID string
	Index  int
	Op     string
	Err    error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("slot operation %s failed for user %s index %d: %v", e.Op, e.UserID, e.Index, e.Err)
}

func (e *SlotError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
