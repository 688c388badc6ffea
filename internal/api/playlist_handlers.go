package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playforge/playforge-server/internal/domain"
	"github.com/playforge/playforge-server/internal/service"
)

func (s *Server) registerPlaylistRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createPlaylist",
		Method:      http.MethodPost,
		Path:        "/api/v1/playlists",
		Summary:     "Create playlist",
		Tags:        []string{"Playlists"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreatePlaylist)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPlaylists",
		Method:      http.MethodGet,
		Path:        "/api/v1/playlists",
		Summary:     "List playlists",
		Description: "Returns the caller's playlists with game counts, newest first",
		Tags:        []string{"Playlists"},
	}, s.handleListPlaylists)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPlaylist",
		Method:      http.MethodGet,
		Path:        "/api/v1/playlists/{id}",
		Summary:     "Get playlist",
		Description: "Resolves the playlist's games in stored order, skipping games that were deleted or made private",
		Tags:        []string{"Playlists"},
	}, s.handleGetPlaylist)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePlaylist",
		Method:      http.MethodPut,
		Path:        "/api/v1/playlists/{id}",
		Summary:     "Update playlist",
		Tags:        []string{"Playlists"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdatePlaylist)

	huma.Register(s.api, huma.Operation{
		OperationID: "deletePlaylist",
		Method:      http.MethodDelete,
		Path:        "/api/v1/playlists/{id}",
		Summary:     "Delete playlist",
		Description: "Deletes the playlist only; the games it references are untouched",
		Tags:        []string{"Playlists"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeletePlaylist)

	huma.Register(s.api, huma.Operation{
		OperationID: "addPlaylistGame",
		Method:      http.MethodPost,
		Path:        "/api/v1/playlists/{id}/games",
		Summary:     "Add game to playlist",
		Description: "Appends a game; adding a game already present is a no-op",
		Tags:        []string{"Playlists"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAddPlaylistGame)

	huma.Register(s.api, huma.Operation{
		OperationID: "removePlaylistGame",
		Method:      http.MethodDelete,
		Path:        "/api/v1/playlists/{id}/games/{gameId}",
		Summary:     "Remove game from playlist",
		Tags:        []string{"Playlists"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemovePlaylistGame)
}

// === DTOs ===

// PlaylistResponse contains playlist data in API responses.
type PlaylistResponse struct {
	ID          string    `json:"id" doc:"Playlist ID"`
	UserID      string    `json:"userId" doc:"Owner user ID"`
	Title       string    `json:"title" doc:"Playlist title"`
	Description string    `json:"description,omitempty" doc:"Playlist description"`
	IsPublic    bool      `json:"isPublic" doc:"Whether the playlist is shareable"`
	GameIDs     []string  `json:"gameIds" doc:"Ordered game IDs"`
	CreatedAt   time.Time `json:"createdAt" doc:"Creation time"`
	UpdatedAt   time.Time `json:"updatedAt" doc:"Last update time"`
}

func toPlaylistResponse(playlist *domain.Playlist) PlaylistResponse {
	return PlaylistResponse{
		ID:          playlist.ID,
		UserID:      playlist.UserID,
		Title:       playlist.Title,
		Description: playlist.Description,
		IsPublic:    playlist.IsPublic,
		GameIDs:     playlist.GameIDs,
		CreatedAt:   playlist.CreatedAt,
		UpdatedAt:   playlist.UpdatedAt,
	}
}

// PlaylistRequest is the request body for creating or updating a playlist.
type PlaylistRequest struct {
	Title       string `json:"title" doc:"Playlist title"`
	Description string `json:"description,omitempty" doc:"Playlist description"`
	IsPublic    bool   `json:"isPublic,omitempty" doc:"Make the playlist shareable"`
}

// PlaylistInput wraps the playlist request for Huma.
type PlaylistInput struct {
	Authorization string `header:"Authorization"`
	Body          PlaylistRequest
}

// PlaylistOutput wraps a single playlist for Huma.
type PlaylistOutput struct {
	Body PlaylistResponse
}

// ListPlaylistsInput selects whose playlists to list.
type ListPlaylistsInput struct {
	Authorization string `header:"Authorization"`
	UserID        string `query:"userId" doc:"Owner user ID; ignored when a valid token is sent"`
}

// PlaylistSummaryResponse is a playlist plus its game count.
type PlaylistSummaryResponse struct {
	PlaylistResponse
	GameCount int `json:"gameCount" doc:"Number of games in the playlist"`
}

// PlaylistsResponse contains a list of playlist summaries.
type PlaylistsResponse struct {
	Playlists []PlaylistSummaryResponse `json:"playlists" doc:"Playlists"`
}

// PlaylistsOutput wraps a playlist list for Huma.
type PlaylistsOutput struct {
	Body PlaylistsResponse
}

// PlaylistIDInput addresses a single playlist.
type PlaylistIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Playlist ID"`
}

// PlaylistDetailResponse is a playlist with its games resolved.
type PlaylistDetailResponse struct {
	PlaylistResponse
	Games []GameResponse `json:"games" doc:"Resolved games in stored order"`
}

// PlaylistDetailOutput wraps a resolved playlist for Huma.
type PlaylistDetailOutput struct {
	Body PlaylistDetailResponse
}

// UpdatePlaylistInput wraps a playlist update for Huma.
type UpdatePlaylistInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Playlist ID"`
	Body          PlaylistRequest
}

// AddPlaylistGameRequest names the game to append.
type AddPlaylistGameRequest struct {
	GameID string `json:"gameId" doc:"Game ID to append"`
}

// AddPlaylistGameInput wraps the append request for Huma.
type AddPlaylistGameInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Playlist ID"`
	Body          AddPlaylistGameRequest
}

// RemovePlaylistGameInput addresses a playlist membership entry.
type RemovePlaylistGameInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Playlist ID"`
	GameID        string `path:"gameId" doc:"Game ID to remove"`
}

// DeletePlaylistOutput is an empty success response.
type DeletePlaylistOutput struct {
	Status int
}

// === Handlers ===

func (s *Server) handleCreatePlaylist(ctx context.Context, input *PlaylistInput) (*PlaylistOutput, error) {
	identity, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	playlist, err := s.services.Playlists.Create(ctx, identity.UserID, service.PlaylistInput{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		IsPublic:    input.Body.IsPublic,
	})
	if err != nil {
		return nil, err
	}

	return &PlaylistOutput{Body: toPlaylistResponse(playlist)}, nil
}

func (s *Server) handleListPlaylists(ctx context.Context, input *ListPlaylistsInput) (*PlaylistsOutput, error) {
	userID := s.optionalIdentity(input.Authorization, input.UserID)
	if userID == "" {
		return nil, huma.Error401Unauthorized("A user ID or token is required")
	}

	summaries, err := s.services.Playlists.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	playlists := make([]PlaylistSummaryResponse, len(summaries))
	for i, summary := range summaries {
		playlists[i] = PlaylistSummaryResponse{
			PlaylistResponse: toPlaylistResponse(summary.Playlist),
			GameCount:        summary.GameCount,
		}
	}

	return &PlaylistsOutput{Body: PlaylistsResponse{Playlists: playlists}}, nil
}

func (s *Server) handleGetPlaylist(ctx context.Context, input *PlaylistIDInput) (*PlaylistDetailOutput, error) {
	callerID := s.optionalIdentity(input.Authorization, "")

	detail, err := s.services.Playlists.Get(ctx, input.ID, callerID)
	if err != nil {
		return nil, err
	}

	return &PlaylistDetailOutput{Body: PlaylistDetailResponse{
		PlaylistResponse: toPlaylistResponse(detail.Playlist),
		Games:            toGameResponses(detail.Games),
	}}, nil
}

func (s *Server) handleUpdatePlaylist(ctx context.Context, input *UpdatePlaylistInput) (*PlaylistOutput, error) {
	identity, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	playlist, err := s.services.Playlists.Update(ctx, input.ID, identity.UserID, service.PlaylistInput{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		IsPublic:    input.Body.IsPublic,
	})
	if err != nil {
		return nil, err
	}

	return &PlaylistOutput{Body: toPlaylistResponse(playlist)}, nil
}

func (s *Server) handleDeletePlaylist(ctx context.Context, input *PlaylistIDInput) (*DeletePlaylistOutput, error) {
	identity, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Playlists.Delete(ctx, input.ID, identity.UserID); err != nil {
		return nil, err
	}

	return &DeletePlaylistOutput{Status: http.StatusNoContent}, nil
}

func (s *Server) handleAddPlaylistGame(ctx context.Context, input *AddPlaylistGameInput) (*PlaylistOutput, error) {
	identity, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	playlist, err := s.services.Playlists.AddGame(ctx, input.ID, identity.UserID, input.Body.GameID)
	if err != nil {
		return nil, err
	}

	return &PlaylistOutput{Body: toPlaylistResponse(playlist)}, nil
}

func (s *Server) handleRemovePlaylistGame(ctx context.Context, input *RemovePlaylistGameInput) (*PlaylistOutput, error) {
	identity, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	playlist, err := s.services.Playlists.RemoveGame(ctx, input.ID, identity.UserID, input.GameID)
	if err != nil {
		return nil, err
	}

	return &PlaylistOutput{Body: toPlaylistResponse(playlist)}, nil
}
