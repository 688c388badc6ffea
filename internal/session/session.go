// Package session holds the in-memory working set of games for one
// signed-in (or anonymous) user: local drafts mixed with cached
// repository records, the active game, and the filter view over them.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/playforge/playforge-server/internal/domain"
)

// Remote is the durable repository the working set mirrors. Only the
// operations the session store triggers itself are required.
type Remote interface {
	ListOwned(ctx context.Context, userID string) ([]*domain.Game, error)
	Delete(ctx context.Context, gameID, ownerID string) error
	Play(ctx context.Context, gameID, callerID string) (*domain.Game, error)
}

// Sort orders the derived view.
type Sort string

const (
	SortNewest Sort = "newest"
	SortLikes  Sort = "likes"
	SortPlays  Sort = "plays"
)

// Filter is the ephemeral view criteria. Zero values mean "all".
type Filter struct {
	Grade      int
	Subject    domain.Subject
	SearchTerm string
	Sort       Sort
}

// DetailUpdate carries the editable metadata fields. Nil pointers leave
// the field untouched.
type DetailUpdate struct {
	Title       *string
	Description *string
	Grade       *int
	Subject     *domain.Subject
}

// Store is the thread-safe session game store. The active game is a
// lookup by id into the list, so content updates can never leave the
// list and the open viewer showing different versions.
type Store struct {
	remote Remote
	logger *slog.Logger

	mu       sync.RWMutex
	userID   string
	games    []*domain.Game
	activeID string
	filter   Filter
}

// New creates an empty session store. remote may be nil for a purely
// local (signed-out) session.
func New(remote Remote, logger *slog.Logger) *Store {
	return &Store{
		remote: remote,
		logger: logger,
		filter: Filter{Sort: SortNewest},
	}
}

// CreateGame prepends a freshly generated game and makes it active.
func (s *Store) CreateGame(game *domain.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.games = append([]*domain.Game{game.Clone()}, s.games...)
	s.activeID = game.ID
}

// PlayGame opens a game in the viewer. For repository-backed games the
// play-count bump is fired off without waiting; a failure is logged and
// otherwise ignored.
func (s *Store) PlayGame(ctx context.Context, gameID string) (*domain.Game, error) {
	s.mu.Lock()
	idx := s.indexOf(gameID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("game %s not in session", gameID)
	}
	s.activeID = gameID
	game := s.games[idx].Clone()
	userID := s.userID
	s.mu.Unlock()

	if game.IsSavedToDB && s.remote != nil {
		go func() {
			if _, err := s.remote.Play(context.WithoutCancel(ctx), game.ID, userID); err != nil {
				s.logger.Warn("play count update failed", "game_id", game.ID, "error", err)
			}
		}()
	}
	return game, nil
}

// ActiveGame returns the open game, or nil when nothing is open. It is
// always resolved from the list, never a stale copy.
func (s *Store) ActiveGame() *domain.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(s.activeID)
	if idx < 0 {
		return nil
	}
	return s.games[idx].Clone()
}

// CloseActive clears the open viewer without touching the list.
func (s *Store) CloseActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = ""
}

// UpdateGameContent replaces the document for a game. Because the
// active game is resolved by id, the list and the viewer can never
// diverge. Reports whether the game was found.
func (s *Store) UpdateGameContent(gameID, html string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(gameID)
	if idx < 0 {
		return false
	}
	s.games[idx].HTMLContent = html
	return true
}

// UpdateGameDetails applies a partial metadata update.
func (s *Store) UpdateGameDetails(gameID string, update DetailUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(gameID)
	if idx < 0 {
		return false
	}
	game := s.games[idx]
	if update.Title != nil {
		game.Title = *update.Title
	}
	if update.Description != nil {
		game.Description = *update.Description
	}
	if update.Grade != nil {
		game.Grade = *update.Grade
	}
	if update.Subject != nil {
		game.Subject = *update.Subject
	}
	return true
}

// Apply runs a mutation against the stored game under the lock, so a
// caller can perform a compound transition without intermediate states
// being observable. Reports whether the game was found.
func (s *Store) Apply(gameID string, fn func(*domain.Game)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(gameID)
	if idx < 0 {
		return false
	}
	fn(s.games[idx])
	return true
}

// ReconcileSaved merges a freshly persisted record back into the
// working set, so server-assigned fields (timestamps, counters,
// ownership) propagate. Unknown ids are prepended, which covers a save
// that assigned a fresh server id to a local draft.
func (s *Store) ReconcileSaved(saved *domain.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := saved.Clone()
	record.IsSavedToDB = true

	if idx := s.indexOf(saved.ID); idx >= 0 {
		s.games[idx] = record
		return
	}
	s.games = append([]*domain.Game{record}, s.games...)
}

// DeleteGame removes a game. Repository-backed games are deleted
// remotely first; a remote failure leaves the session untouched. Local
// drafts are removed directly.
func (s *Store) DeleteGame(ctx context.Context, gameID string) error {
	s.mu.RLock()
	idx := s.indexOf(gameID)
	if idx < 0 {
		s.mu.RUnlock()
		return fmt.Errorf("game %s not in session", gameID)
	}
	saved := s.games[idx].IsSavedToDB
	userID := s.userID
	s.mu.RUnlock()

	if saved && s.remote != nil {
		if err := s.remote.Delete(ctx, gameID, userID); err != nil {
			return fmt.Errorf("delete game: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(gameID); idx >= 0 {
		s.games = append(s.games[:idx], s.games[idx+1:]...)
	}
	if s.activeID == gameID {
		s.activeID = ""
	}
	return nil
}

// SetIdentity switches the session to a new user. Signing in loads the
// owner's repository games and merges them with any unsaved local
// drafts; signing out resets to an empty set so nothing leaks into the
// next user's session.
func (s *Store) SetIdentity(ctx context.Context, userID string) error {
	if userID == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.userID = ""
		s.games = nil
		s.activeID = ""
		return nil
	}

	var owned []*domain.Game
	if s.remote != nil {
		var err error
		owned, err = s.remote.ListOwned(ctx, userID)
		if err != nil {
			return fmt.Errorf("load owned games: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]*domain.Game, 0, len(owned)+len(s.games))
	seen := make(map[string]bool, len(owned))
	for _, game := range owned {
		record := game.Clone()
		record.IsSavedToDB = true
		merged = append(merged, record)
		seen[game.ID] = true
	}
	// Local drafts survive sign-in; drafts the server already knows
	// about were just confirmed as saved above.
	for _, game := range s.games {
		if !game.IsSavedToDB && !seen[game.ID] {
			merged = append(merged, game)
		}
	}

	s.userID = userID
	s.games = merged
	s.activeID = ""
	return nil
}

// Ref returns the provenance reference for a game in the working set:
// a local draft or a persisted record with its owner.
func (s *Store) Ref(gameID string) (domain.GameRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(gameID)
	if idx < 0 {
		return domain.GameRef{}, false
	}
	game := s.games[idx]
	if !game.IsSavedToDB {
		return domain.LocalDraft(game.ID), true
	}
	return domain.Persisted(game.ID, game.UserID), true
}

// UserID returns the session's current identity, empty when signed out.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// SetFilter replaces the view criteria.
func (s *Store) SetFilter(filter Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if filter.Sort == "" {
		filter.Sort = SortNewest
	}
	s.filter = filter
}

// Filter returns the current view criteria.
func (s *Store) Filter() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Games returns the filtered, sorted view of the working set. Filters
// are conjunctive; sorting is stable so equal keys keep their original
// order.
func (s *Store) Games() []*domain.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fold := cases.Fold()
	term := fold.String(s.filter.SearchTerm)
	view := make([]*domain.Game, 0, len(s.games))
	for _, game := range s.games {
		if s.filter.Grade != 0 && game.Grade != s.filter.Grade {
			continue
		}
		if s.filter.Subject != "" && game.Subject != s.filter.Subject {
			continue
		}
		if term != "" &&
			!strings.Contains(fold.String(game.Title), term) &&
			!strings.Contains(fold.String(game.Description), term) {
			continue
		}
		view = append(view, game.Clone())
	}

	switch s.filter.Sort {
	case SortLikes:
		sort.SliceStable(view, func(i, j int) bool { return view[i].Likes > view[j].Likes })
	case SortPlays:
		sort.SliceStable(view, func(i, j int) bool { return view[i].PlayCount > view[j].PlayCount })
	default:
		sort.SliceStable(view, func(i, j int) bool { return view[i].CreatedAt.After(view[j].CreatedAt) })
	}
	return view
}

// Len returns the unfiltered working-set size.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

// indexOf must be called with the lock held.
func (s *Store) indexOf(gameID string) int {
	if gameID == "" {
		return -1
	}
	for i, game := range s.games {
		if game.ID == gameID {
			return i
		}
	}
	return -1
}
