package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/playforge-server/internal/domain"
)

func createTestPlaylist(id, ownerID string) *domain.Playlist {
	return &domain.Playlist{
		ID:     id,
		UserID: ownerID,
		Title:  "Math Warmups",
	}
}

func TestCreatePlaylist(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	playlist := createTestPlaylist("pl-001", "user-001")

	require.NoError(t, store.CreatePlaylist(ctx, playlist))

	retrieved, err := store.GetPlaylist(ctx, playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, playlist.Title, retrieved.Title)
	assert.Equal(t, playlist.UserID, retrieved.UserID)
}

func TestCreatePlaylist_Duplicate(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	playlist := createTestPlaylist("pl-001", "user-001")
	require.NoError(t, store.CreatePlaylist(ctx, playlist))

	err := store.CreatePlaylist(ctx, playlist)
	assert.ErrorIs(t, err, ErrPlaylistExists)
}

func TestUpdatePlaylist_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.UpdatePlaylist(context.Background(), createTestPlaylist("pl-missing", "user-001"))
	assert.ErrorIs(t, err, ErrPlaylistNotFound)
}

func TestDeletePlaylist(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	playlist := createTestPlaylist("pl-001", "user-001")
	require.NoError(t, store.CreatePlaylist(ctx, playlist))

	require.NoError(t, store.DeletePlaylist(ctx, playlist.ID))

	_, err := store.GetPlaylist(ctx, playlist.ID)
	assert.ErrorIs(t, err, ErrPlaylistNotFound)

	owned, err := store.ListPlaylistsByOwner(ctx, "user-001")
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestListPlaylistsByOwner_ScopedToOwner(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.CreatePlaylist(ctx, createTestPlaylist("pl-001", "user-001")))
	require.NoError(t, store.CreatePlaylist(ctx, createTestPlaylist("pl-002", "user-001")))
	require.NoError(t, store.CreatePlaylist(ctx, createTestPlaylist("pl-003", "user-002")))

	owned, err := store.ListPlaylistsByOwner(ctx, "user-001")
	require.NoError(t, err)
	assert.Len(t, owned, 2)
}

func TestRemoveGameFromAllPlaylists(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	first := createTestPlaylist("pl-001", "user-001")
	first.GameIDs = []string{"game-a", "game-b"}
	second := createTestPlaylist("pl-002", "user-002")
	second.GameIDs = []string{"game-b", "game-c"}
	require.NoError(t, store.CreatePlaylist(ctx, first))
	require.NoError(t, store.CreatePlaylist(ctx, second))

	require.NoError(t, store.RemoveGameFromAllPlaylists(ctx, "game-b"))

	updated, err := store.GetPlaylist(ctx, "pl-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"game-a"}, updated.GameIDs)

	updated, err = store.GetPlaylist(ctx, "pl-002")
	require.NoError(t, err)
	assert.Equal(t, []string{"game-c"}, updated.GameIDs)
}
