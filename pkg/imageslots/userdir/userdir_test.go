package userdir_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memorystorage "github.com/tendant/image-slots/pkg/imageslots/storage/memory"
	"github.com/tendant/image-slots/pkg/imageslots/userdir"
)

func TestFS(t *testing.T) {
	dir, err := userdir.NewFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := dir.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, dir.Create(ctx, "alice"))

	ok, err = dir.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	// Create is idempotent.
	require.NoError(t, dir.Create(ctx, "alice"))
}

func TestMemory(t *testing.T) {
	dir := userdir.NewMemory()
	ctx := context.Background()

	ok, err := dir.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, dir.Create(ctx, "alice"))

	ok, err = dir.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMarker(t *testing.T) {
	store := memorystorage.New()
	dir := userdir.NewMarker(store)
	ctx := context.Background()

	ok, err := dir.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, dir.Create(ctx, "alice"))

	ok, err = dir.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	// The marker lives under the user's own prefix.
	ok, err = store.Exists(ctx, "users/alice/.user")
	require.NoError(t, err)
	assert.True(t, ok)
}
