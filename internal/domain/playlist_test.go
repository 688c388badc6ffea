package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaylist_AddGame_PreservesOrder(t *testing.T) {
	playlist := &Playlist{ID: "pl-1", UserID: "user-1", Title: "Math Warmups"}

	assert.True(t, playlist.AddGame("game-1"))
	assert.True(t, playlist.AddGame("game-2"))
	assert.True(t, playlist.AddGame("game-3"))

	assert.Equal(t, []string{"game-1", "game-2", "game-3"}, playlist.GameIDs)
}

func TestPlaylist_AddGame_IgnoresDuplicates(t *testing.T) {
	playlist := &Playlist{ID: "pl-1", GameIDs: []string{"game-1", "game-2"}}

	added := playlist.AddGame("game-1")

	assert.False(t, added)
	assert.Equal(t, []string{"game-1", "game-2"}, playlist.GameIDs)
}

func TestPlaylist_RemoveGame_KeepsRemainingOrder(t *testing.T) {
	playlist := &Playlist{ID: "pl-1", GameIDs: []string{"game-1", "game-2", "game-3"}}

	removed := playlist.RemoveGame("game-2")

	assert.True(t, removed)
	assert.Equal(t, []string{"game-1", "game-3"}, playlist.GameIDs)
}

func TestPlaylist_RemoveGame_AbsentIsNoop(t *testing.T) {
	playlist := &Playlist{ID: "pl-1", GameIDs: []string{"game-1"}}

	removed := playlist.RemoveGame("game-9")

	assert.False(t, removed)
	assert.Equal(t, []string{"game-1"}, playlist.GameIDs)
}
