package imageslots

import (
	"context"
	"io"
)

// Service is the slot store's operation surface.
type Service interface {
	// CreateUser creates the user's namespace. Idempotent.
	CreateUser(ctx context.Context, userID string) error

	// Upload stores one image in the user's next slot, evicting the oldest
	// slot first when the user is at capacity
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)

	// Download returns the blob stream for a slot together with the content
	// type derived from its stored key
	Download(ctx context.Context, userID string, index int) (io.ReadCloser, string, error)

	// List returns the user's occupied slots ordered by index
	List(ctx context.Context, userID string) ([]SlotInfo, error)

	// Clear removes every slot record for a user and best-effort deletes
	// the blobs. Idempotent.
	Clear(ctx context.Context, userID string) error
}
