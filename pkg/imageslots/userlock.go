package imageslots

import "sync"

// lockTable hands out one mutex per user id so that uploads for the same
// user serialize while uploads for different users never contend. Entries
// are reference counted and removed when the last holder releases, keeping
// the table bounded by the number of in-flight uploads.
type lockTable struct {
	mu    sync.Mutex
	users map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{users: make(map[string]*userLock)}
}

func (t *lockTable) lock(userID string) {
	t.mu.Lock()
	l, ok := t.users[userID]
	if !ok {
		l = &userLock{}
		t.users[userID] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
}

func (t *lockTable) unlock(userID string) {
	t.mu.Lock()
	l := t.users[userID]
	l.refs--
	if l.refs == 0 {
		delete(t.users, userID)
	}
	t.mu.Unlock()

	l.mu.Unlock()
}
