package imageslots

import (
	"fmt"
	"io"
	"path"
	"strconv"
	"time"
)

// DefaultCapacity is the number of slots a user owns unless the service is
// configured otherwise.
const DefaultCapacity = 10

// Slot is one occupied image position. The pair (UserID, Index) is the
// primary key; at most one record exists per index per user. Records are
// replaced whole on reuse (delete then insert), never updated in place, so
// CreatedAt always reflects the current occupant.
type Slot struct {
	UserID    string    `json:"user_id"`
	Index     int       `json:"index"`
	ObjectKey string    `json:"object_key"`
	CreatedAt time.Time `json:"created_at"`
}

// Placement is the allocator's decision for one upload: the index the new
// image takes, and the slot that must be evicted first, if any.
type Placement struct {
	Index int
	Evict *Slot
}

// UploadRequest carries one incoming image. Reader is consumed exactly once
// and streamed to the blob store; the payload is never buffered whole.
type UploadRequest struct {
	UserID      string
	Reader      io.Reader
	Filename    string
	ContentType string
}

// UploadResult reports where an upload landed.
type UploadResult struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
}

// SlotInfo is the listing projection of an occupied slot.
type SlotInfo struct {
	Index     int       `json:"index"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// ObjectKey derives the blob key for a slot. The key is a pure function of
// (user, index, extension) so it can be recomputed without reading the
// record back.
func ObjectKey(userID string, index int, ext string) string {
	return path.Join("users", userID, strconv.Itoa(index)+ext)
}

// SlotURL is the retrieval URL for a slot index.
func SlotURL(userID string, index int) string {
	return fmt.Sprintf("/users/%s/images/%d", userID, index)
}
