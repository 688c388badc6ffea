package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestHistory(t *testing.T) *Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "history-test-*")
	require.NoError(t, err)

	s, err := Open(filepath.Join(tmpDir, "history.db"), nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	})
	return s
}

func TestRecord_AndEvents(t *testing.T) {
	s := setupTestHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, "user-1", "game-a", base))
	require.NoError(t, s.Record(ctx, "user-1", "game-b", base.Add(time.Minute)))
	require.NoError(t, s.Record(ctx, "user-2", "game-a", base.Add(2*time.Minute)))

	events, err := s.Events(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "game-b", events[0].GameID)
	assert.Equal(t, "game-a", events[1].GameID)
	assert.True(t, events[0].PlayedAt.Equal(base.Add(time.Minute)))
}

func TestRecent_DeduplicatesByLatestPlay(t *testing.T) {
	s := setupTestHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, "user-1", "game-a", base))
	require.NoError(t, s.Record(ctx, "user-1", "game-b", base.Add(time.Minute)))
	require.NoError(t, s.Record(ctx, "user-1", "game-a", base.Add(2*time.Minute)))

	recent, err := s.Recent(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"game-a", "game-b"}, recent)
}

func TestRecent_RespectsLimit(t *testing.T) {
	s := setupTestHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, "user-1", "game-a", base))
	require.NoError(t, s.Record(ctx, "user-1", "game-b", base.Add(time.Minute)))
	require.NoError(t, s.Record(ctx, "user-1", "game-c", base.Add(2*time.Minute)))

	recent, err := s.Recent(ctx, "user-1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"game-c", "game-b"}, recent)
}

func TestPurgeGame(t *testing.T) {
	s := setupTestHistory(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Record(ctx, "user-1", "game-a", now))
	require.NoError(t, s.Record(ctx, "user-2", "game-a", now))
	require.NoError(t, s.Record(ctx, "user-1", "game-b", now))

	require.NoError(t, s.PurgeGame(ctx, "game-a"))

	recent, err := s.Recent(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"game-b"}, recent)

	recent, err = s.Recent(ctx, "user-2", 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
