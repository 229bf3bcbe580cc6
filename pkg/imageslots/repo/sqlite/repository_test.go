package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/image-slots/pkg/imageslots"
	"github.com/tendant/image-slots/pkg/imageslots/repo/sqlite"
)

func openTestRepo(t *testing.T) *sqlite.Repository {
	t.Helper()

	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "slots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return repo
}

func slot(userID string, index int, createdAt time.Time) imageslots.Slot {
	return imageslots.Slot{
		UserID:    userID,
		Index:     index,
		ObjectKey: imageslots.ObjectKey(userID, index, ".png"),
		CreatedAt: createdAt,
	}
}

func TestRepository_RoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.Insert(ctx, slot("alice", 0, now)))

	got, err := repo.Get(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, 0, got.Index)
	assert.Equal(t, "users/alice/0.png", got.ObjectKey)
	assert.True(t, got.CreatedAt.Equal(now), "created_at survives the round trip")
}

func TestRepository_InsertConflict(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Insert(ctx, slot("alice", 3, now)))

	err := repo.Insert(ctx, slot("alice", 3, now.Add(time.Second)))
	assert.ErrorIs(t, err, imageslots.ErrConflict)

	// The original record survives the losing insert.
	got, err := repo.Get(ctx, "alice", 3)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(now))
}

func TestRepository_SnapshotOrder(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, slot("alice", 2, base.Add(2*time.Second))))
	require.NoError(t, repo.Insert(ctx, slot("alice", 0, base.Add(time.Second))))
	require.NoError(t, repo.Insert(ctx, slot("alice", 1, base)))

	occupied, err := repo.Snapshot(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, occupied, 3)

	assert.Equal(t, 1, occupied[0].Index)
	assert.Equal(t, 0, occupied[1].Index)
	assert.Equal(t, 2, occupied[2].Index)
}

func TestRepository_SnapshotOrderSubSecond(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Variable-width fractional seconds would sort "12:00:00.15" before
	// "12:00:00.1" in the TEXT column; the stored layout must keep
	// chronological and lexicographic order the same.
	require.NoError(t, repo.Insert(ctx, slot("alice", 0, base.Add(150*time.Millisecond))))
	require.NoError(t, repo.Insert(ctx, slot("alice", 1, base.Add(100*time.Millisecond))))
	require.NoError(t, repo.Insert(ctx, slot("alice", 2, base)))

	occupied, err := repo.Snapshot(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, occupied, 3)

	assert.Equal(t, 2, occupied[0].Index)
	assert.Equal(t, 1, occupied[1].Index)
	assert.Equal(t, 0, occupied[2].Index)
	for i := 1; i < len(occupied); i++ {
		assert.True(t, occupied[i-1].CreatedAt.Before(occupied[i].CreatedAt))
	}
}

func TestRepository_DeleteAll(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Insert(ctx, slot("alice", 1, now)))
	require.NoError(t, repo.Insert(ctx, slot("alice", 0, now.Add(time.Second))))
	require.NoError(t, repo.Insert(ctx, slot("bob", 0, now)))

	removed, err := repo.DeleteAll(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, removed, 2)
	assert.Equal(t, 0, removed[0].Index)
	assert.Equal(t, 1, removed[1].Index)

	occupied, err := repo.Snapshot(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, occupied)

	occupied, err = repo.Snapshot(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, occupied, 1)
}
