package settings

import (
	"context"
	"encoding/json/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/playforge-server/internal/domain"
	domainerrors "github.com/playforge/playforge-server/internal/errors"
)

const validPrompt = "Build a colorful HTML game with sound effects, a score display, and keyboard controls."

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := New(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestNew_CreatesDefaultFile(t *testing.T) {
	s, path := newTestService(t)

	assert.FileExists(t, path)
	assert.False(t, s.Generation().UseCustomPrompts)
}

func TestNew_LoadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	data, err := json.Marshal(&domain.GenerationSettings{
		UseCustomPrompts: true,
		CustomMainPrompt: validPrompt,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	s, err := New(path, nil)
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, s.Generation().UseCustomPrompts)
	assert.Equal(t, validPrompt, s.Generation().CustomMainPrompt)
}

func TestUpdate_PersistsAndApplies(t *testing.T) {
	s, path := newTestService(t)

	require.NoError(t, s.Update(domain.GenerationSettings{
		UseCustomPrompts: true,
		CustomMainPrompt: validPrompt,
	}))

	assert.Equal(t, validPrompt, s.Generation().CustomMainPrompt)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var stored domain.GenerationSettings
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, validPrompt, stored.CustomMainPrompt)
}

func TestUpdate_RejectsInvalidCustomPrompt(t *testing.T) {
	s, _ := newTestService(t)

	err := s.Update(domain.GenerationSettings{
		UseCustomPrompts: true,
		CustomMainPrompt: "too short",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	// The rejected settings must not have been applied.
	assert.False(t, s.Generation().UseCustomPrompts)
}

func TestUpdate_RejectsEnabledWithoutPrompts(t *testing.T) {
	s, _ := newTestService(t)

	err := s.Update(domain.GenerationSettings{UseCustomPrompts: true})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestWatch_ReloadsOnExternalEdit(t *testing.T) {
	s, path := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Watch(ctx) }()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)

	data, err := json.Marshal(&domain.GenerationSettings{
		UseCustomPrompts: true,
		CustomMainPrompt: validPrompt,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	assert.Eventually(t, func() bool {
		return s.Generation().UseCustomPrompts
	}, 3*time.Second, 50*time.Millisecond)
}
