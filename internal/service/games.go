// Package service provides the business logic layer: game lifecycle,
// social interactions, and playlists, on top of the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playforge/playforge-server/internal/domain"
	domainerrors "github.com/playforge/playforge-server/internal/errors"
	"github.com/playforge/playforge-server/internal/id"
	"github.com/playforge/playforge-server/internal/search"
	"github.com/playforge/playforge-server/internal/store"
	"github.com/playforge/playforge-server/internal/validation"
)

// PlayHistory is the best-effort play log the game service writes to.
type PlayHistory interface {
	Record(ctx context.Context, userID, gameID string, playedAt time.Time) error
	Recent(ctx context.Context, userID string, limit int) ([]string, error)
	PurgeGame(ctx context.Context, gameID string) error
}

// GameSearcher runs full-text queries over the public catalog. Index
// writes happen at the store layer, so the service only queries.
type GameSearcher interface {
	Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error)
}

// GameService orchestrates game operations.
type GameService struct {
	store     *store.Store
	history   PlayHistory
	searcher  GameSearcher
	validator *validation.Validator
	logger    *slog.Logger
}

// NewGameService creates a new game service. history and searcher may
// be nil; the corresponding features degrade gracefully.
func NewGameService(st *store.Store, history PlayHistory, searcher GameSearcher, validator *validation.Validator, logger *slog.Logger) *GameService {
	return &GameService{
		store:     st,
		history:   history,
		searcher:  searcher,
		validator: validator,
		logger:    logger,
	}
}

// SaveGameInput carries the full game payload for an upsert. The owner
// comes from verified identity, never from the payload.
type SaveGameInput struct {
	ID          string `json:"id"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Grade       int    `json:"grade" validate:"required,min=1,max=13"`
	Subject     string `json:"subject" validate:"required,oneof=Math 'Language Arts' Science 'Social Studies' Art"`
	HTMLContent string `json:"html_content" validate:"required"`
	IsPublic    bool   `json:"is_public"`
	CreatorName string `json:"creator_name"`
}

// Save upserts a game keyed by (id, owner). Missing required fields
// reject the save before any write. New records get a server-assigned
// id when the client sent none or a local draft reference.
func (s *GameService) Save(ctx context.Context, ownerID, ownerName string, input SaveGameInput) (*domain.Game, error) {
	if ownerID == "" {
		return nil, domainerrors.Unauthorized("sign in to save games")
	}
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	now := time.Now()
	creatorName := input.CreatorName
	if creatorName == "" {
		creatorName = ownerName
	}

	if input.ID != "" {
		existing, err := s.store.GetGame(ctx, input.ID)
		switch {
		case err == nil:
			if existing.UserID != ownerID {
				// Same shape as a nonexistent record: no information leak.
				return nil, domainerrors.NotFound("game not found")
			}
			existing.Title = input.Title
			existing.Description = input.Description
			existing.Grade = input.Grade
			existing.Subject = domain.Subject(input.Subject)
			existing.HTMLContent = input.HTMLContent
			existing.IsPublic = input.IsPublic
			existing.CreatorName = creatorName
			existing.UpdatedAt = now
			if err := s.store.UpdateGame(ctx, existing); err != nil {
				return nil, fmt.Errorf("update game: %w", err)
			}
			existing.IsSavedToDB = true
			return existing, nil
		case !errors.Is(err, store.ErrGameNotFound):
			return nil, fmt.Errorf("get game: %w", err)
		}
	}

	game := &domain.Game{
		ID:          input.ID,
		Title:       input.Title,
		Description: input.Description,
		Grade:       input.Grade,
		Subject:     domain.Subject(input.Subject),
		HTMLContent: input.HTMLContent,
		UserID:      ownerID,
		CreatorName: creatorName,
		IsPublic:    input.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if game.ID == "" {
		newID, err := id.Generate("game")
		if err != nil {
			return nil, fmt.Errorf("generate game id: %w", err)
		}
		game.ID = newID
	}

	if err := s.store.CreateGame(ctx, game); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	game.IsSavedToDB = true

	s.logger.Info("game saved", "game_id", game.ID, "owner", ownerID, "public", game.IsPublic)
	return game, nil
}

// ListOwned returns a user's games, newest first, regardless of
// visibility.
func (s *GameService) ListOwned(ctx context.Context, userID string) ([]*domain.Game, error) {
	games, err := s.store.ListGamesByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	domain.SortGames(games, domain.SortNewest)
	markSaved(games)
	return games, nil
}

// Explore pages the public catalog with conjunctive filters.
func (s *GameService) Explore(ctx context.Context, query store.ExploreQuery) (*store.ExploreResult, error) {
	result, err := s.store.ExploreGames(ctx, query)
	if err != nil {
		return nil, err
	}
	markSaved(result.Games)
	return result, nil
}

// Spotlight returns the single most-engaged public game, or nil when
// the catalog is empty.
func (s *GameService) Spotlight(ctx context.Context) (*domain.Game, error) {
	games, err := s.store.SpotlightGames(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, nil
	}
	games[0].IsSavedToDB = true
	return games[0], nil
}

// Search runs a full-text query over public games.
func (s *GameService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if s.searcher == nil {
		return &search.SearchResult{Query: params.Query, Hits: []search.SearchHit{}}, nil
	}
	return s.searcher.Search(ctx, params)
}

// Get returns a game visible to the caller: public games for anyone,
// private games only to their owner.
func (s *GameService) Get(ctx context.Context, gameID, callerID string) (*domain.Game, error) {
	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, mapGameErr(err)
	}
	if !game.IsPublic && game.UserID != callerID {
		return nil, domainerrors.NotFound("game not found")
	}
	game.IsSavedToDB = true
	return game, nil
}

// UpdateGameInput holds the partial fields an owner may change. Nil
// pointers leave the field untouched.
type UpdateGameInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Grade       *int    `json:"grade,omitempty" validate:"omitempty,min=1,max=13"`
	Subject     *string `json:"subject,omitempty" validate:"omitempty,oneof=Math 'Language Arts' Science 'Social Studies' Art"`
	HTMLContent *string `json:"html_content,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
	CreatorName *string `json:"creator_name,omitempty"`
}

// Update applies a partial update to an owned game. A mismatched owner
// is indistinguishable from a missing game.
func (s *GameService) Update(ctx context.Context, gameID, ownerID string, input UpdateGameInput) (*domain.Game, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	game, err := s.getOwned(ctx, gameID, ownerID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		game.Title = *input.Title
	}
	if input.Description != nil {
		game.Description = *input.Description
	}
	if input.Grade != nil {
		game.Grade = *input.Grade
	}
	if input.Subject != nil {
		game.Subject = domain.Subject(*input.Subject)
	}
	if input.HTMLContent != nil {
		game.HTMLContent = *input.HTMLContent
	}
	if input.IsPublic != nil {
		game.IsPublic = *input.IsPublic
	}
	if input.CreatorName != nil {
		game.CreatorName = *input.CreatorName
	}
	game.UpdatedAt = time.Now()

	if err := s.store.UpdateGame(ctx, game); err != nil {
		return nil, fmt.Errorf("update game: %w", err)
	}
	game.IsSavedToDB = true
	return game, nil
}

// SetVisibility flips only the public flag, owner-scoped.
func (s *GameService) SetVisibility(ctx context.Context, gameID, ownerID string, isPublic bool) (*domain.Game, error) {
	game, err := s.getOwned(ctx, gameID, ownerID)
	if err != nil {
		return nil, err
	}

	game.IsPublic = isPublic
	game.UpdatedAt = time.Now()
	if err := s.store.UpdateGame(ctx, game); err != nil {
		return nil, fmt.Errorf("set visibility: %w", err)
	}
	game.IsSavedToDB = true
	return game, nil
}

// Delete removes an owned game. A mismatched owner is indistinguishable
// from a missing game.
func (s *GameService) Delete(ctx context.Context, gameID, ownerID string) error {
	if _, err := s.getOwned(ctx, gameID, ownerID); err != nil {
		return err
	}

	if err := s.store.DeleteGame(ctx, gameID); err != nil {
		return fmt.Errorf("delete game: %w", err)
	}

	// History purge is cleanup, not correctness: a failure leaves
	// dangling ids that listing filters out anyway.
	if s.history != nil {
		if err := s.history.PurgeGame(ctx, gameID); err != nil {
			s.logger.Warn("failed to purge play history", "game_id", gameID, "error", err)
		}
	}
	return nil
}

// Play bumps the play counter. Not owner-scoped: anyone may play. When
// a caller identity is present, a history entry is recorded best-effort;
// a history failure never fails the play.
func (s *GameService) Play(ctx context.Context, gameID, callerID string) (*domain.Game, error) {
	game, err := s.store.IncrementPlayCount(ctx, gameID)
	if err != nil {
		return nil, mapGameErr(err)
	}

	if callerID != "" && s.history != nil {
		if err := s.history.Record(ctx, callerID, gameID, time.Now()); err != nil {
			s.logger.Warn("failed to record play history", "game_id", gameID, "user_id", callerID, "error", err)
		}
	}

	game.IsSavedToDB = true
	return game, nil
}

// ToggleLike flips the caller's like. Returns the updated game and the
// resulting liked state.
func (s *GameService) ToggleLike(ctx context.Context, gameID, callerID string) (*domain.Game, bool, error) {
	if callerID == "" {
		return nil, false, domainerrors.Unauthorized("sign in to react to games")
	}
	game, liked, err := s.store.ToggleLikeGame(ctx, gameID, callerID)
	if err != nil {
		return nil, false, mapGameErr(err)
	}
	game.IsSavedToDB = true
	return game, liked, nil
}

// ToggleDislike flips the caller's dislike. Returns the updated game
// and the resulting disliked state.
func (s *GameService) ToggleDislike(ctx context.Context, gameID, callerID string) (*domain.Game, bool, error) {
	if callerID == "" {
		return nil, false, domainerrors.Unauthorized("sign in to react to games")
	}
	game, disliked, err := s.store.ToggleDislikeGame(ctx, gameID, callerID)
	if err != nil {
		return nil, false, mapGameErr(err)
	}
	game.IsSavedToDB = true
	return game, disliked, nil
}

// Fork copies a visible game into a fresh private record owned by the
// caller, with zeroed counters and provenance set.
func (s *GameService) Fork(ctx context.Context, gameID, newOwnerID, creatorName string) (*domain.Game, error) {
	if newOwnerID == "" {
		return nil, domainerrors.Unauthorized("sign in to remix games")
	}

	source, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, mapGameErr(err)
	}
	if !source.IsPublic && source.UserID != newOwnerID {
		return nil, domainerrors.NotFound("game not found")
	}

	forkID, err := id.Generate("fork")
	if err != nil {
		return nil, fmt.Errorf("generate fork id: %w", err)
	}

	fork := source.Fork(forkID, newOwnerID, creatorName, time.Now())
	if err := s.store.CreateGame(ctx, fork); err != nil {
		return nil, fmt.Errorf("create fork: %w", err)
	}
	fork.IsSavedToDB = true

	s.logger.Info("game forked", "source_id", gameID, "fork_id", forkID, "owner", newOwnerID)
	return fork, nil
}

// History returns the caller's most recently played distinct games,
// most recent play first, skipping games deleted since.
func (s *GameService) History(ctx context.Context, callerID string, limit int) ([]*domain.Game, error) {
	if s.history == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	gameIDs, err := s.history.Recent(ctx, callerID, limit)
	if err != nil {
		return nil, fmt.Errorf("load play history: %w", err)
	}

	games := make([]*domain.Game, 0, len(gameIDs))
	for _, gameID := range gameIDs {
		game, err := s.store.GetGame(ctx, gameID)
		if err != nil {
			if errors.Is(err, store.ErrGameNotFound) {
				continue
			}
			return nil, err
		}
		game.IsSavedToDB = true
		games = append(games, game)
	}
	return games, nil
}

// LikedGames returns every game the caller currently likes, newest
// first. Likes survive visibility changes, so private games the caller
// liked while public still appear.
func (s *GameService) LikedGames(ctx context.Context, callerID string) ([]*domain.Game, error) {
	games, err := s.store.ListLikedGames(ctx, callerID)
	if err != nil {
		return nil, err
	}
	domain.SortGames(games, domain.SortNewest)
	markSaved(games)
	return games, nil
}

// getOwned loads a game and verifies ownership, collapsing "not yours"
// and "not found" into the same error.
func (s *GameService) getOwned(ctx context.Context, gameID, ownerID string) (*domain.Game, error) {
	if ownerID == "" {
		return nil, domainerrors.Unauthorized("sign in to manage games")
	}
	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, mapGameErr(err)
	}
	if game.UserID != ownerID {
		return nil, domainerrors.NotFound("game not found")
	}
	return game, nil
}

func mapGameErr(err error) error {
	if errors.Is(err, store.ErrGameNotFound) {
		return domainerrors.NotFound("game not found")
	}
	return err
}

func markSaved(games []*domain.Game) {
	for _, g := range games {
		g.IsSavedToDB = true
	}
}
