package api

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/playforge-server/internal/auth"
	"github.com/playforge/playforge-server/internal/generator"
	"github.com/playforge/playforge-server/internal/history"
	"github.com/playforge/playforge-server/internal/service"
	"github.com/playforge/playforge-server/internal/settings"
	"github.com/playforge/playforge-server/internal/store"
	"github.com/playforge/playforge-server/internal/validation"
)

// fakeGenerator returns canned content so handler tests never reach a
// model backend.
type fakeGenerator struct {
	html        string
	title       string
	description string
	refined     string
	err         error
}

func (f *fakeGenerator) Generate(ctx context.Context, req generator.GenerateRequest) (*generator.GenerateResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &generator.GenerateResult{HTML: f.html}, nil
}

func (f *fakeGenerator) Refine(ctx context.Context, req generator.RefineRequest) (*generator.GenerateResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &generator.GenerateResult{HTML: f.refined}, nil
}

func (f *fakeGenerator) Describe(ctx context.Context, prompt string) (string, error) {
	return f.description, f.err
}

func (f *fakeGenerator) Title(ctx context.Context, prompt string) (string, error) {
	return f.title, f.err
}

func (f *fakeGenerator) Ideas(ctx context.Context, req generator.IdeasRequest) ([]generator.IdeaSuggestion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []generator.IdeaSuggestion{
		{Title: "Idea One", Description: "First concept"},
		{Title: "Idea Two", Description: "Second concept"},
		{Title: "Idea Three", Description: "Third concept"},
	}, nil
}

// testServer wraps the API server for handler testing.
type testServer struct {
	*Server
	api     humatest.TestAPI
	tokens  *auth.TokenService
	cleanup func()
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "playforge-api-test-*")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	st, err := store.New(filepath.Join(tmpDir, "games.badger"), logger)
	require.NoError(t, err)

	hist, err := history.Open(filepath.Join(tmpDir, "history.db"), logger)
	require.NoError(t, err)

	settingsService, err := settings.New(filepath.Join(tmpDir, "settings.json"), logger)
	require.NoError(t, err)

	keyHex, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(keyHex, 15*time.Minute)
	require.NoError(t, err)

	v := validation.New()
	services := Services{
		Games:     service.NewGameService(st, hist, nil, v, logger),
		Playlists: service.NewPlaylistService(st, v, logger),
		Generator: &fakeGenerator{
			html:        "<html><body>Generated</body></html>",
			title:       "Fraction Frenzy",
			description: "Match equivalent fractions",
			refined:     "<html><body>Refined</body></html>",
		},
		Settings: settingsService,
	}

	s := NewServer(services, tokens, logger, Options{})

	cleanup := func() {
		s.Close()
		_ = settingsService.Close()
		_ = hist.Close()
		_ = st.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return &testServer{
		Server:  s,
		api:     humatest.Wrap(t, s.api),
		tokens:  tokens,
		cleanup: cleanup,
	}
}

// issueToken mints a verified identity for a test user.
func (ts *testServer) issueToken(t *testing.T, userID, name string) string {
	t.Helper()
	token, err := ts.tokens.IssueToken(userID, name)
	require.NoError(t, err)
	return token
}

func validGameBody() map[string]any {
	return map[string]any{
		"title":       "Fraction Frenzy",
		"description": "Match equivalent fractions",
		"grade":       4,
		"subject":     "Math",
		"htmlContent": "<html><body>game</body></html>",
		"isPublic":    true,
	}
}

// createGame saves a game for the token's user and returns its ID.
func (ts *testServer) createGame(t *testing.T, token string, mutate func(map[string]any)) string {
	t.Helper()

	body := validGameBody()
	if mutate != nil {
		mutate(body)
	}
	resp := ts.api.Post("/api/v1/games", "Authorization: Bearer "+token, body)
	require.Equal(t, http.StatusOK, resp.Code, "save failed: %s", resp.Body.String())

	var game GameResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &game))
	require.NotEmpty(t, game.ID)
	return game.ID
}

// === Tests ===

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
}

func TestSaveGame_RequiresToken(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Post("/api/v1/games", validGameBody())
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSaveGame_OwnerFromToken(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token := ts.issueToken(t, "user-1", "Alice")
	resp := ts.api.Post("/api/v1/games", "Authorization: Bearer "+token, validGameBody())
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var game GameResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &game))
	assert.Equal(t, "user-1", game.UserID)
	assert.Equal(t, "Alice", game.CreatorName)
	assert.True(t, game.IsSavedToDB)
}

func TestSaveGame_MissingFields(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token := ts.issueToken(t, "user-1", "Alice")
	resp := ts.api.Post("/api/v1/games", "Authorization: Bearer "+token, map[string]any{
		"title": "Only a title",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetGame_PrivateHiddenFromOthers(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	owner := ts.issueToken(t, "user-1", "Alice")
	gameID := ts.createGame(t, owner, func(b map[string]any) { b["isPublic"] = false })

	// Anonymous caller sees nothing.
	resp := ts.api.Get("/api/v1/games/" + gameID)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// A different user sees the same 404 as a missing game.
	other := ts.issueToken(t, "user-2", "Bob")
	resp = ts.api.Get("/api/v1/games/"+gameID, "Authorization: Bearer "+other)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// The owner sees it.
	resp = ts.api.Get("/api/v1/games/"+gameID, "Authorization: Bearer "+owner)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestUpdateGame_OwnerScoped(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	owner := ts.issueToken(t, "user-1", "Alice")
	gameID := ts.createGame(t, owner, nil)

	other := ts.issueToken(t, "user-2", "Bob")
	resp := ts.api.Put("/api/v1/games/"+gameID, "Authorization: Bearer "+other, map[string]any{
		"title": "Hijacked",
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Put("/api/v1/games/"+gameID, "Authorization: Bearer "+owner, map[string]any{
		"title": "Renamed",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var game GameResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &game))
	assert.Equal(t, "Renamed", game.Title)
	assert.Equal(t, 4, game.Grade, "untouched fields survive a partial update")
}

func TestDeleteGame(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	owner := ts.issueToken(t, "user-1", "Alice")
	gameID := ts.createGame(t, owner, nil)

	resp := ts.api.Delete("/api/v1/games/"+gameID, "Authorization: Bearer "+owner)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/games/"+gameID, "Authorization: Bearer "+owner)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListOwnedGames_FallsBackToUserIDParam(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	owner := ts.issueToken(t, "user-1", "Alice")
	ts.createGame(t, owner, nil)
	ts.createGame(t, owner, func(b map[string]any) {
		b["title"] = "Second Game"
		b["isPublic"] = false
	})

	// Reads accept a client-asserted user id.
	resp := ts.api.Get("/api/v1/games?userId=user-1")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var list GamesResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	assert.Len(t, list.Games, 2, "owner listing includes private games")

	// No identity at all is rejected.
	resp = ts.api.Get("/api/v1/games")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestExploreGames_PagesAndFilters(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	owner := ts.issueToken(t, "user-1", "Alice")
	for i := 0; i < 3; i++ {
		ts.createGame(t, owner, func(b map[string]any) { b["subject"] = "Math" })
	}
	ts.createGame(t, owner, func(b map[string]any) {
		b["title"] = "Volcano Lab"
		b["subject"] = "Science"
	})
	ts.createGame(t, owner, func(b map[string]any) { b["isPublic"] = false })

	resp := ts.api.Get("/api/v1/games/explore?page=1&limit=2")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var page ExploreResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	assert.Equal(t, 4, page.TotalGames, "private games stay out of the catalog")
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Games, 2)

	resp = ts.api.Get("/api/v1/games/explore?subject=Science")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	assert.Equal(t, 1, page.TotalGames)
	assert.Equal(t, "Volcano Lab", page.Games[0].Title)
}

func TestPlayGame_AnonymousAllowed(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	owner := ts.issueToken(t, "user-1", "Alice")
	gameID := ts.createGame(t, owner, nil)

	resp := ts.api.Post("/api/v1/games/" + gameID + "/play")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var game GameResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &game))
	assert.Equal(t, 1, game.PlayCount)
}

func TestLikeGame_ToggleAndMutualExclusion(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	owner := ts.issueToken(t, "user-1", "Alice")
	gameID := ts.createGame(t, owner, nil)

	reactor := ts.issueToken(t, "user-2", "Bob")

	resp := ts.api.Post("/api/v1/games/"+gameID+"/like", "Authorization: Bearer "+reactor)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var reaction ReactionResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &reaction))
	assert.True(t, reaction.Liked)
	assert.Equal(t, 1, reaction.Game.Likes)

	// Disliking clears the like.
	resp = ts.api.Post("/api/v1/games/"+gameID+"/dislike", "Authorization: Bearer "+reactor)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &reaction))
	assert.True(t, reaction.Disliked)
	assert.False(t, reaction.Liked)
	assert.Equal(t, 0, reaction.Game.Likes)
	assert.Equal(t, 1, reaction.Game.Dislikes)
}

func TestLikeGame_RequiresToken(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	owner := ts.issueToken(t, "user-1", "Alice")
	gameID := ts.createGame(t, owner, nil)

	resp := ts.api.Post("/api/v1/games/" + gameID + "/like")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestShareGame(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	owner := ts.issueToken(t, "user-1", "Alice")
	gameID := ts.createGame(t, owner, func(b map[string]any) { b["isPublic"] = false })

	resp := ts.api.Post("/api/v1/games/"+gameID+"/share", "Authorization: Bearer "+owner, map[string]any{
		"isPublic": true,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// Now visible anonymously.
	resp = ts.api.Get("/api/v1/games/" + gameID)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestForkGame(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	owner := ts.issueToken(t, "user-1", "Alice")
	gameID := ts.createGame(t, owner, nil)

	// Bump source counters so the fork's reset is observable.
	ts.api.Post("/api/v1/games/" + gameID + "/play")

	forker := ts.issueToken(t, "user-2", "Bob")
	resp := ts.api.Post("/api/v1/games/"+gameID+"/fork", "Authorization: Bearer "+forker, map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var fork GameResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &fork))
	assert.Equal(t, "user-2", fork.UserID)
	assert.Equal(t, gameID, fork.ForkedFrom)
	assert.Equal(t, "Fraction Frenzy (Remix)", fork.Title)
	assert.False(t, fork.IsPublic)
	assert.Equal(t, 0, fork.PlayCount)
	assert.Equal(t, 0, fork.Likes)
}

func TestGameHistory_RecordedByPlay(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	owner := ts.issueToken(t, "user-1", "Alice")
	first := ts.createGame(t, owner, nil)
	second := ts.createGame(t, owner, func(b map[string]any) { b["title"] = "Second Game" })

	player := ts.issueToken(t, "user-2", "Bob")
	resp := ts.api.Post("/api/v1/games/"+first+"/play", "Authorization: Bearer "+player)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = ts.api.Post("/api/v1/games/"+second+"/play", "Authorization: Bearer "+player)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/games/history", "Authorization: Bearer "+player)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var list GamesResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Games, 2)
	assert.Equal(t, second, list.Games[0].ID, "most recent play first")
}

func TestLikedGames(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	owner := ts.issueToken(t, "user-1", "Alice")
	gameID := ts.createGame(t, owner, nil)

	reactor := ts.issueToken(t, "user-2", "Bob")
	resp := ts.api.Post("/api/v1/games/"+gameID+"/like", "Authorization: Bearer "+reactor)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/games/liked", "Authorization: Bearer "+reactor)
	require.Equal(t, http.StatusOK, resp.Code)

	var list GamesResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Games, 1)
	assert.Equal(t, gameID, list.Games[0].ID)
}

func TestSpotlight_NullWhenEmpty(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Get("/api/v1/games/spotlight")
	require.Equal(t, http.StatusOK, resp.Code)

	var spotlight SpotlightResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &spotlight))
	assert.Nil(t, spotlight.Game)
}
