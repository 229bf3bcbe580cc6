package imageslots

// Allocate decides which index an incoming upload takes, given the complete
// set of a user's occupied slots. It is a pure function over the snapshot:
// no I/O, no side effects.
//
// While free indices remain, the smallest free index in [0, capacity) wins,
// so the lowest-numbered slots fill first regardless of upload order. Once
// the user is at capacity the oldest record (minimum created_at, ties broken
// by minimum index) is evicted and its index reused.
//
// A snapshot larger than capacity should never occur, but is treated the
// same as full so that a corrupted table still converges instead of
// allocating out of range. An empty snapshot takes index 0 even when
// capacity is non-positive, so there is never anything to evict.
func Allocate(occupied []Slot, capacity int) Placement {
	if len(occupied) == 0 {
		return Placement{Index: 0}
	}

	if len(occupied) < capacity {
		used := make(map[int]bool, len(occupied))
		for _, s := range occupied {
			used[s.Index] = true
		}
		for i := 0; i < capacity; i++ {
			if !used[i] {
				return Placement{Index: i}
			}
		}
	}

	oldest := occupied[0]
	for _, s := range occupied[1:] {
		if s.CreatedAt.Before(oldest.CreatedAt) ||
			(s.CreatedAt.Equal(oldest.CreatedAt) && s.Index < oldest.Index) {
			oldest = s
		}
	}
	evict := oldest
	return Placement{Index: evict.Index, Evict: &evict}
}
