package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/playforge/playforge-server/internal/domain"
	domainerrors "github.com/playforge/playforge-server/internal/errors"
	"github.com/playforge/playforge-server/internal/id"
	"github.com/playforge/playforge-server/internal/store"
	"github.com/playforge/playforge-server/internal/validation"
)

// PlaylistService orchestrates playlist operations.
type PlaylistService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewPlaylistService creates a new playlist service.
func NewPlaylistService(st *store.Store, validator *validation.Validator, logger *slog.Logger) *PlaylistService {
	return &PlaylistService{
		store:     st,
		validator: validator,
		logger:    logger,
	}
}

// PlaylistInput carries the caller-editable playlist fields.
type PlaylistInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	IsPublic    bool   `json:"is_public"`
}

// PlaylistSummary is a playlist plus its resolved game count.
type PlaylistSummary struct {
	*domain.Playlist
	GameCount int `json:"game_count"`
}

// PlaylistDetail is a playlist with its games resolved in stored order.
// Games deleted since they were added are skipped.
type PlaylistDetail struct {
	*domain.Playlist
	Games []*domain.Game `json:"games"`
}

// Create makes a new, empty playlist for the caller.
func (s *PlaylistService) Create(ctx context.Context, ownerID string, input PlaylistInput) (*domain.Playlist, error) {
	if ownerID == "" {
		return nil, domainerrors.Unauthorized("sign in to create playlists")
	}
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	playlistID, err := id.Generate("playlist")
	if err != nil {
		return nil, fmt.Errorf("generate playlist id: %w", err)
	}

	now := time.Now()
	playlist := &domain.Playlist{
		ID:          playlistID,
		UserID:      ownerID,
		Title:       input.Title,
		Description: input.Description,
		IsPublic:    input.IsPublic,
		GameIDs:     []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreatePlaylist(ctx, playlist); err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}

	s.logger.Info("playlist created", "playlist_id", playlistID, "owner", ownerID)
	return playlist, nil
}

// List returns the caller's playlists with game counts, newest first.
func (s *PlaylistService) List(ctx context.Context, ownerID string) ([]PlaylistSummary, error) {
	playlists, err := s.store.ListPlaylistsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	summaries := make([]PlaylistSummary, 0, len(playlists))
	for _, p := range playlists {
		summaries = append(summaries, PlaylistSummary{Playlist: p, GameCount: len(p.GameIDs)})
	}
	sortSummariesNewest(summaries)
	return summaries, nil
}

// Get returns a playlist with its games resolved, preserving the stored
// order. Private playlists are visible only to their owner; within a
// visible playlist, each game is shown only if it is public or owned by
// the caller.
func (s *PlaylistService) Get(ctx context.Context, playlistID, callerID string) (*PlaylistDetail, error) {
	playlist, err := s.store.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, mapPlaylistErr(err)
	}
	if !playlist.IsPublic && playlist.UserID != callerID {
		return nil, domainerrors.NotFound("playlist not found")
	}

	games := make([]*domain.Game, 0, len(playlist.GameIDs))
	for _, gameID := range playlist.GameIDs {
		game, err := s.store.GetGame(ctx, gameID)
		if err != nil {
			if errors.Is(err, store.ErrGameNotFound) {
				continue
			}
			return nil, err
		}
		if !game.IsPublic && game.UserID != callerID {
			continue
		}
		game.IsSavedToDB = true
		games = append(games, game)
	}

	return &PlaylistDetail{Playlist: playlist, Games: games}, nil
}

// Update rewrites a playlist's metadata, owner-only.
func (s *PlaylistService) Update(ctx context.Context, playlistID, ownerID string, input PlaylistInput) (*domain.Playlist, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	playlist, err := s.getOwned(ctx, playlistID, ownerID)
	if err != nil {
		return nil, err
	}

	playlist.Title = input.Title
	playlist.Description = input.Description
	playlist.IsPublic = input.IsPublic
	playlist.UpdatedAt = time.Now()

	if err := s.store.UpdatePlaylist(ctx, playlist); err != nil {
		return nil, fmt.Errorf("update playlist: %w", err)
	}
	return playlist, nil
}

// Delete removes a playlist, owner-only. Games in the playlist are
// untouched.
func (s *PlaylistService) Delete(ctx context.Context, playlistID, ownerID string) error {
	if _, err := s.getOwned(ctx, playlistID, ownerID); err != nil {
		return err
	}
	if err := s.store.DeletePlaylist(ctx, playlistID); err != nil {
		return mapPlaylistErr(err)
	}
	return nil
}

// AddGame appends a game to an owned playlist. The game must exist and
// be visible to the caller. Adding a game already present is a no-op.
func (s *PlaylistService) AddGame(ctx context.Context, playlistID, ownerID, gameID string) (*domain.Playlist, error) {
	playlist, err := s.getOwned(ctx, playlistID, ownerID)
	if err != nil {
		return nil, err
	}

	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, mapGameErr(err)
	}
	if !game.IsPublic && game.UserID != ownerID {
		return nil, domainerrors.NotFound("game not found")
	}

	if !playlist.AddGame(gameID) {
		return playlist, nil
	}
	playlist.UpdatedAt = time.Now()

	if err := s.store.UpdatePlaylist(ctx, playlist); err != nil {
		return nil, fmt.Errorf("add game to playlist: %w", err)
	}
	return playlist, nil
}

// RemoveGame drops a game from an owned playlist. Removing an absent
// game is a no-op.
func (s *PlaylistService) RemoveGame(ctx context.Context, playlistID, ownerID, gameID string) (*domain.Playlist, error) {
	playlist, err := s.getOwned(ctx, playlistID, ownerID)
	if err != nil {
		return nil, err
	}

	if !playlist.RemoveGame(gameID) {
		return playlist, nil
	}
	playlist.UpdatedAt = time.Now()

	if err := s.store.UpdatePlaylist(ctx, playlist); err != nil {
		return nil, fmt.Errorf("remove game from playlist: %w", err)
	}
	return playlist, nil
}

func (s *PlaylistService) getOwned(ctx context.Context, playlistID, ownerID string) (*domain.Playlist, error) {
	if ownerID == "" {
		return nil, domainerrors.Unauthorized("sign in to manage playlists")
	}
	playlist, err := s.store.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, mapPlaylistErr(err)
	}
	if playlist.UserID != ownerID {
		return nil, domainerrors.NotFound("playlist not found")
	}
	return playlist, nil
}

func mapPlaylistErr(err error) error {
	if errors.Is(err, store.ErrPlaylistNotFound) {
		return domainerrors.NotFound("playlist not found")
	}
	return err
}

func sortSummariesNewest(summaries []PlaylistSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
}
