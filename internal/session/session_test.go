package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/playforge-server/internal/domain"
)

type fakeRemote struct {
	mu        sync.Mutex
	owned     []*domain.Game
	deleted   []string
	played    []string
	deleteErr error
	listErr   error
}

func (f *fakeRemote) ListOwned(ctx context.Context, userID string) ([]*domain.Game, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.owned, nil
}

func (f *fakeRemote) Delete(ctx context.Context, gameID, ownerID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, gameID)
	return nil
}

func (f *fakeRemote) Play(ctx context.Context, gameID, callerID string) (*domain.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, gameID)
	return nil, nil
}

func (f *fakeRemote) playedGames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

func newTestStore(remote *fakeRemote) *Store {
	return New(remote, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func draftGame(id, title string) *domain.Game {
	return &domain.Game{
		ID:          id,
		Title:       title,
		Description: "a game",
		HTMLContent: "<html><body>v1</body></html>",
		CreatedAt:   time.Now(),
	}
}

func savedGame(id, title, ownerID string) *domain.Game {
	g := draftGame(id, title)
	g.UserID = ownerID
	g.IsSavedToDB = true
	return g
}

func TestStore_CreateGame_PrependsAndActivates(t *testing.T) {
	s := newTestStore(nil)

	s.CreateGame(draftGame("g1", "First"))
	s.CreateGame(draftGame("g2", "Second"))

	games := s.Games()
	require.Len(t, games, 2)

	active := s.ActiveGame()
	require.NotNil(t, active)
	assert.Equal(t, "g2", active.ID)
}

func TestStore_UpdateGameContent_ListAndActiveAgree(t *testing.T) {
	s := newTestStore(nil)
	s.CreateGame(draftGame("g1", "First"))

	require.True(t, s.UpdateGameContent("g1", "<html><body>v2</body></html>"))

	active := s.ActiveGame()
	require.NotNil(t, active)
	assert.Equal(t, "<html><body>v2</body></html>", active.HTMLContent)

	games := s.Games()
	assert.Equal(t, "<html><body>v2</body></html>", games[0].HTMLContent)
}

func TestStore_UpdateGameContent_UnknownGame(t *testing.T) {
	s := newTestStore(nil)
	assert.False(t, s.UpdateGameContent("nope", "<html></html>"))
}

func TestStore_UpdateGameDetails_PartialFields(t *testing.T) {
	s := newTestStore(nil)
	s.CreateGame(draftGame("g1", "First"))

	grade := 4
	subject := domain.SubjectMath
	require.True(t, s.UpdateGameDetails("g1", DetailUpdate{Grade: &grade, Subject: &subject}))

	active := s.ActiveGame()
	assert.Equal(t, 4, active.Grade)
	assert.Equal(t, domain.SubjectMath, active.Subject)
	assert.Equal(t, "First", active.Title)
}

func TestStore_ReconcileSaved_MergesServerFields(t *testing.T) {
	s := newTestStore(nil)
	s.CreateGame(draftGame("g1", "First"))

	saved := savedGame("g1", "First", "user-1")
	saved.Likes = 3
	saved.PlayCount = 7
	s.ReconcileSaved(saved)

	games := s.Games()
	require.Len(t, games, 1)
	assert.True(t, games[0].IsSavedToDB)
	assert.Equal(t, 3, games[0].Likes)
	assert.Equal(t, 7, games[0].PlayCount)
	assert.Equal(t, "user-1", games[0].UserID)
}

func TestStore_ReconcileSaved_ServerAssignedID(t *testing.T) {
	s := newTestStore(nil)
	s.CreateGame(draftGame("draft-1", "First"))

	// The server assigned a fresh id; the draft keeps its own entry.
	s.ReconcileSaved(savedGame("game-xyz", "First", "user-1"))
	assert.Equal(t, 2, s.Len())
}

func TestStore_DeleteGame_DraftIsLocalOnly(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestStore(remote)
	s.CreateGame(draftGame("g1", "First"))

	require.NoError(t, s.DeleteGame(context.Background(), "g1"))
	assert.Zero(t, s.Len())
	assert.Empty(t, remote.deleted)
	assert.Nil(t, s.ActiveGame())
}

func TestStore_DeleteGame_RemoteFailureLeavesStateUnchanged(t *testing.T) {
	remote := &fakeRemote{deleteErr: assert.AnError}
	s := newTestStore(remote)
	s.CreateGame(savedGame("g1", "First", "user-1"))

	err := s.DeleteGame(context.Background(), "g1")
	require.Error(t, err)
	assert.Equal(t, 1, s.Len())

	active := s.ActiveGame()
	require.NotNil(t, active)
	assert.Equal(t, "g1", active.ID)
}

func TestStore_DeleteGame_RemoteFirst(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestStore(remote)
	s.CreateGame(savedGame("g1", "First", "user-1"))

	require.NoError(t, s.DeleteGame(context.Background(), "g1"))
	assert.Zero(t, s.Len())
	assert.Equal(t, []string{"g1"}, remote.deleted)
}

func TestStore_PlayGame_FiresPlayForSavedGames(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestStore(remote)
	s.CreateGame(savedGame("g1", "First", "user-1"))

	_, err := s.PlayGame(context.Background(), "g1")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(remote.playedGames()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestStore_PlayGame_DraftSkipsRemote(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestStore(remote)
	s.CreateGame(draftGame("g1", "First"))

	game, err := s.PlayGame(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", game.ID)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, remote.playedGames())
}

func TestStore_SetIdentity_MergesDraftsWithOwned(t *testing.T) {
	remote := &fakeRemote{owned: []*domain.Game{
		savedGame("g1", "Owned", "user-1"),
	}}
	s := newTestStore(remote)
	s.CreateGame(draftGame("draft-1", "Draft"))
	s.CreateGame(draftGame("g1", "Stale local copy"))

	require.NoError(t, s.SetIdentity(context.Background(), "user-1"))

	games := s.Games()
	require.Len(t, games, 2)
	assert.Equal(t, "user-1", s.UserID())

	ref, ok := s.Ref("g1")
	require.True(t, ok)
	assert.False(t, ref.IsDraft())
	assert.Equal(t, "user-1", ref.OwnerID())

	ref, ok = s.Ref("draft-1")
	require.True(t, ok)
	assert.True(t, ref.IsDraft())
}

func TestStore_SetIdentity_LogoutResets(t *testing.T) {
	remote := &fakeRemote{owned: []*domain.Game{savedGame("g1", "Owned", "user-1")}}
	s := newTestStore(remote)
	require.NoError(t, s.SetIdentity(context.Background(), "user-1"))
	require.Equal(t, 1, s.Len())

	require.NoError(t, s.SetIdentity(context.Background(), ""))
	assert.Zero(t, s.Len())
	assert.Empty(t, s.UserID())
	assert.Nil(t, s.ActiveGame())
}

func TestStore_SetIdentity_LoadFailureKeepsSession(t *testing.T) {
	remote := &fakeRemote{listErr: assert.AnError}
	s := newTestStore(remote)
	s.CreateGame(draftGame("draft-1", "Draft"))

	err := s.SetIdentity(context.Background(), "user-1")
	require.Error(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.UserID())
}

func TestStore_Games_FilterAndSort(t *testing.T) {
	s := newTestStore(nil)

	math := draftGame("g1", "Fraction Frenzy")
	math.Grade = 4
	math.Subject = domain.SubjectMath
	math.Likes = 1

	science := draftGame("g2", "Volcano Lab")
	science.Grade = 4
	science.Subject = domain.SubjectScience
	science.Likes = 5

	art := draftGame("g3", "Color Mixer")
	art.Grade = 2
	art.Subject = domain.SubjectArt
	art.PlayCount = 9

	s.CreateGame(math)
	s.CreateGame(science)
	s.CreateGame(art)

	s.SetFilter(Filter{Grade: 4})
	games := s.Games()
	require.Len(t, games, 2)

	s.SetFilter(Filter{Subject: domain.SubjectScience})
	games = s.Games()
	require.Len(t, games, 1)
	assert.Equal(t, "g2", games[0].ID)

	s.SetFilter(Filter{SearchTerm: "frenzy"})
	games = s.Games()
	require.Len(t, games, 1)
	assert.Equal(t, "g1", games[0].ID)

	s.SetFilter(Filter{Sort: SortLikes})
	games = s.Games()
	require.Len(t, games, 3)
	assert.Equal(t, "g2", games[0].ID)

	s.SetFilter(Filter{Sort: SortPlays})
	games = s.Games()
	assert.Equal(t, "g3", games[0].ID)
}

func TestStore_Games_ReturnsClones(t *testing.T) {
	s := newTestStore(nil)
	s.CreateGame(draftGame("g1", "First"))

	games := s.Games()
	games[0].Title = "Mutated"

	fresh := s.Games()
	assert.Equal(t, "First", fresh[0].Title)
}
