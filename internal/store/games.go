package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/text/cases"

	"github.com/playforge/playforge-server/internal/domain"
)

const (
	gamePrefix        = "game:"
	gameByOwnerPrefix = "idx:games:owner:"
	gamePublicPrefix  = "idx:games:public:"
	defaultPageSize   = 12
	maxPageSize       = 100
	defaultSpotlight  = 6

	// Badger detects write-write conflicts at commit time and does not
	// retry them itself.
	maxTxnRetries = 10
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameExists   = errors.New("game already exists")
)

// gameOwnerKey builds the owner secondary key for a game.
func gameOwnerKey(ownerID, gameID string) []byte {
	return []byte(gameByOwnerPrefix + ownerID + ":" + gameID)
}

// gamePublicKey builds the public-listing secondary key for a game.
func gamePublicKey(gameID string) []byte {
	return []byte(gamePublicPrefix + gameID)
}

// Game Operations

// CreateGame creates a new game together with its secondary keys.
// Games are keyed globally by id; ids carry a nanoid so cross-owner
// collisions do not occur in practice.
func (s *Store) CreateGame(ctx context.Context, game *domain.Game) error {
	key := []byte(gamePrefix + game.ID)

	err := s.db.Update(func(txn *badger.Txn) error {
		switch _, err := txn.Get(key); {
		case err == nil:
			return ErrGameExists
		case !errors.Is(err, badger.ErrKeyNotFound):
			return fmt.Errorf("check game exists: %w", err)
		}

		data, err := json.Marshal(game)
		if err != nil {
			return fmt.Errorf("marshal game: %w", err)
		}

		if err := txn.Set(key, data); err != nil {
			return err
		}

		if err := txn.Set(gameOwnerKey(game.UserID, game.ID), []byte(game.ID)); err != nil {
			return err
		}

		if game.IsPublic {
			if err := txn.Set(gamePublicKey(game.ID), []byte(game.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrGameExists) {
			return ErrGameExists
		}
		return fmt.Errorf("create game: %w", err)
	}

	if game.IsPublic {
		s.indexGame(ctx, game)
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "game created",
			slog.String("id", game.ID),
			slog.String("title", game.Title),
			slog.String("owner", game.UserID),
			slog.Bool("public", game.IsPublic),
		)
	}
	return nil
}

// GetGame retrieves a game by ID.
func (s *Store) GetGame(ctx context.Context, id string) (*domain.Game, error) {
	key := []byte(gamePrefix + id)

	var game domain.Game
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &game)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("get game: %w", err)
	}
	return &game, nil
}

// UpdateGame replaces an existing game, keeping secondary keys in step
// with visibility changes.
func (s *Store) UpdateGame(ctx context.Context, game *domain.Game) error {
	key := []byte(gamePrefix + game.ID)

	old, err := s.GetGame(ctx, game.ID)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(game)
		if err != nil {
			return fmt.Errorf("marshal game: %w", err)
		}

		if err := txn.Set(key, data); err != nil {
			return err
		}

		if old.IsPublic != game.IsPublic {
			if game.IsPublic {
				if err := txn.Set(gamePublicKey(game.ID), []byte(game.ID)); err != nil {
					return err
				}
			} else {
				if err := txn.Delete(gamePublicKey(game.ID)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}

	if game.IsPublic {
		s.indexGame(ctx, game)
	} else if old.IsPublic {
		s.unindexGame(ctx, game.ID)
	}

	if s.logger != nil {
		s.logger.Info("game updated", "id", game.ID, "title", game.Title)
	}

	return nil
}

// DeleteGame deletes a game, its secondary keys, and every playlist
// membership pointing at it.
func (s *Store) DeleteGame(ctx context.Context, id string) error {
	game, err := s.GetGame(ctx, id)
	if err != nil {
		return err
	}

	if err := s.RemoveGameFromAllPlaylists(ctx, id); err != nil {
		return fmt.Errorf("remove game from playlists: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(gamePrefix + id)); err != nil {
			return err
		}
		if err := txn.Delete(gameOwnerKey(game.UserID, id)); err != nil {
			return err
		}
		if game.IsPublic {
			if err := txn.Delete(gamePublicKey(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}

	s.unindexGame(ctx, id)

	if s.logger != nil {
		s.logger.Info("game deleted", "id", id, "title", game.Title)
	}

	return nil
}

// mutateGame applies fn to a game inside a read-modify-write
// transaction, retrying on commit conflicts so concurrent reactions and
// plays never lose updates.
func (s *Store) mutateGame(ctx context.Context, id string, fn func(*domain.Game)) (*domain.Game, error) {
	key := []byte(gamePrefix + id)

	var game domain.Game
	var err error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		game = domain.Game{}
		err = s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &game)
			}); err != nil {
				return err
			}

			fn(&game)

			data, err := json.Marshal(&game)
			if err != nil {
				return fmt.Errorf("marshal game: %w", err)
			}
			return txn.Set(key, data)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("mutate game: %w", err)
	}

	if game.IsPublic {
		s.indexGame(ctx, &game)
	}
	return &game, nil
}

// ToggleLikeGame flips the user's like on a game in a single
// transaction, clearing any dislike. Returns the updated game and the
// resulting liked state.
func (s *Store) ToggleLikeGame(ctx context.Context, gameID, userID string) (*domain.Game, bool, error) {
	var liked bool
	game, err := s.mutateGame(ctx, gameID, func(g *domain.Game) {
		liked = g.ToggleLike(userID)
	})
	if err != nil {
		return nil, false, err
	}
	return game, liked, nil
}

// ToggleDislikeGame flips the user's dislike on a game in a single
// transaction, clearing any like. Returns the updated game and the
// resulting disliked state.
func (s *Store) ToggleDislikeGame(ctx context.Context, gameID, userID string) (*domain.Game, bool, error) {
	var disliked bool
	game, err := s.mutateGame(ctx, gameID, func(g *domain.Game) {
		disliked = g.ToggleDislike(userID)
	})
	if err != nil {
		return nil, false, err
	}
	return game, disliked, nil
}

// IncrementPlayCount bumps a game's play counter. Plays are not scoped
// to the owner: any caller who can see the game can play it.
func (s *Store) IncrementPlayCount(ctx context.Context, gameID string) (*domain.Game, error) {
	return s.mutateGame(ctx, gameID, func(g *domain.Game) {
		g.PlayCount++
	})
}

// ListGamesByOwner returns every game owned by a user, regardless of
// visibility, via the owner secondary keys.
func (s *Store) ListGamesByOwner(ctx context.Context, ownerID string) ([]*domain.Game, error) {
	prefix := []byte(gameByOwnerPrefix + ownerID + ":")

	var games []*domain.Game
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var gameID string
			if err := it.Item().Value(func(val []byte) error {
				gameID = string(val)
				return nil
			}); err != nil {
				return err
			}

			game, err := getGameTxn(txn, gameID)
			if err != nil {
				if s.logger != nil {
					s.logger.Warn("dangling owner index entry", "game_id", gameID, "error", err)
				}
				continue
			}
			games = append(games, game)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list games by owner: %w", err)
	}
	return games, nil
}

// ListPublicGames returns every public game. Used for search index
// rebuilds.
func (s *Store) ListPublicGames(ctx context.Context) ([]*domain.Game, error) {
	return s.listPublicGames(ctx)
}

// listPublicGames loads every public game via the public secondary keys.
func (s *Store) listPublicGames(ctx context.Context) ([]*domain.Game, error) {
	prefix := []byte(gamePublicPrefix)

	var games []*domain.Game
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var gameID string
			if err := it.Item().Value(func(val []byte) error {
				gameID = string(val)
				return nil
			}); err != nil {
				return err
			}

			game, err := getGameTxn(txn, gameID)
			if err != nil {
				if s.logger != nil {
					s.logger.Warn("dangling public index entry", "game_id", gameID, "error", err)
				}
				continue
			}
			games = append(games, game)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list public games: %w", err)
	}
	return games, nil
}

// ExploreQuery selects, orders, and pages the public catalog.
type ExploreQuery struct {
	Grade    int // 0 means any grade
	Subject  domain.Subject
	Search   string
	Sort     domain.SortOption
	Page     int
	PageSize int
}

// normalize clamps the query to sane paging values.
func (q *ExploreQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
}

// ExploreResult is one page of the public catalog.
type ExploreResult struct {
	Games       []*domain.Game
	CurrentPage int
	TotalPages  int
	TotalGames  int
}

// ExploreGames filters, sorts, and pages the public catalog. Totals
// describe the filtered set, not the page. A page past the end yields an
// empty page with the real totals.
func (s *Store) ExploreGames(ctx context.Context, query ExploreQuery) (*ExploreResult, error) {
	query.normalize()

	all, err := s.listPublicGames(ctx)
	if err != nil {
		return nil, err
	}

	// Unicode case folding, so "STRASSE" matches "straße".
	fold := cases.Fold()
	search := fold.String(strings.TrimSpace(query.Search))
	filtered := make([]*domain.Game, 0, len(all))
	for _, g := range all {
		if query.Grade != 0 && g.Grade != query.Grade {
			continue
		}
		if query.Subject != "" && g.Subject != query.Subject {
			continue
		}
		if search != "" &&
			!strings.Contains(fold.String(g.Title), search) &&
			!strings.Contains(fold.String(g.Description), search) {
			continue
		}
		filtered = append(filtered, g)
	}

	domain.SortGames(filtered, query.Sort)

	total := len(filtered)
	totalPages := (total + query.PageSize - 1) / query.PageSize
	if totalPages == 0 {
		totalPages = 1
	}

	start := (query.Page - 1) * query.PageSize
	end := start + query.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &ExploreResult{
		Games:       filtered[start:end],
		CurrentPage: query.Page,
		TotalPages:  totalPages,
		TotalGames:  total,
	}, nil
}

// SpotlightGames returns the top trending public games: most liked,
// then most played, then newest.
func (s *Store) SpotlightGames(ctx context.Context, limit int) ([]*domain.Game, error) {
	if limit <= 0 {
		limit = defaultSpotlight
	}

	games, err := s.listPublicGames(ctx)
	if err != nil {
		return nil, err
	}

	domain.SortGames(games, domain.SortTrending)
	if len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}

// ListLikedGames returns every game whose like set contains the user.
// Likes survive visibility changes, so this scans all games rather than
// the public keys.
func (s *Store) ListLikedGames(ctx context.Context, userID string) ([]*domain.Game, error) {
	prefix := []byte(gamePrefix)

	var games []*domain.Game
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var game domain.Game
				if err := json.Unmarshal(val, &game); err != nil {
					return err
				}
				if game.LikedByUser(userID) {
					games = append(games, &game)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list liked games: %w", err)
	}
	return games, nil
}

// getGameTxn loads and unmarshals a game inside an open transaction.
func getGameTxn(txn *badger.Txn, id string) (*domain.Game, error) {
	item, err := txn.Get([]byte(gamePrefix + id))
	if err != nil {
		return nil, err
	}

	var game domain.Game
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &game)
	}); err != nil {
		return nil, err
	}
	return &game, nil
}
