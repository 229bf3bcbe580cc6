package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tendant/image-slots/pkg/imageslots"
)

// Repository implements imageslots.SlotRepository using in-memory storage
type Repository struct {
	mu    sync.RWMutex
	slots map[string]map[int]imageslots.Slot // user_id -> index -> slot
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		slots: make(map[string]map[int]imageslots.Slot),
	}
}

func (r *Repository) Snapshot(ctx context.Context, userID string) ([]imageslots.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []imageslots.Slot
	for _, slot := range r.slots[userID] {
		result = append(result, slot)
	}

	// Eviction ordering: created_at ascending, index breaks ties.
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].Index < result[j].Index
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (r *Repository) Insert(ctx context.Context, slot imageslots.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.slots[slot.UserID]
	if !ok {
		user = make(map[int]imageslots.Slot)
		r.slots[slot.UserID] = user
	}
	if _, exists := user[slot.Index]; exists {
		return imageslots.ErrConflict
	}
	user[slot.Index] = slot

	return nil
}

func (r *Repository) Delete(ctx context.Context, userID string, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.slots[userID], index)
	return nil
}

func (r *Repository) Get(ctx context.Context, userID string, index int) (imageslots.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slot, exists := r.slots[userID][index]
	if !exists {
		return imageslots.Slot{}, imageslots.ErrSlotNotFound
	}
	return slot, nil
}

func (r *Repository) DeleteAll(ctx context.Context, userID string) ([]imageslots.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []imageslots.Slot
	for _, slot := range r.slots[userID] {
		removed = append(removed, slot)
	}
	delete(r.slots, userID)

	sort.Slice(removed, func(i, j int) bool { return removed[i].Index < removed[j].Index })

	return removed, nil
}
