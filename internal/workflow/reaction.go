package workflow

import (
	"context"

	"github.com/playforge/playforge-server/internal/domain"
	domainerrors "github.com/playforge/playforge-server/internal/errors"
)

// ReactionKind selects which reaction a toggle targets.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// reactionState is a user's observable reaction on one game. It is the
// unit the optimistic reducer works in: a toggle computes the target
// state, applies it locally, and on a repository failure the captured
// prior state is replayed as the inverse transition.
type reactionState struct {
	liked    bool
	disliked bool
}

func captureReaction(game *domain.Game, userID string) reactionState {
	return reactionState{
		liked:    game.LikedByUser(userID),
		disliked: game.DislikedByUser(userID),
	}
}

// next computes the state after toggling one reaction, honoring the
// mutual-exclusion invariant.
func (r reactionState) next(kind ReactionKind) reactionState {
	switch kind {
	case ReactionDislike:
		return reactionState{disliked: !r.disliked}
	default:
		return reactionState{liked: !r.liked}
	}
}

// applyReaction forces the user's reaction on the game to match target,
// keeping counters equal to the set sizes. Because it is driven purely
// by the target state it serves as both the forward and the inverse
// transition.
func applyReaction(game *domain.Game, userID string, target reactionState) {
	if game.LikedByUser(userID) != target.liked {
		game.ToggleLike(userID)
	}
	if game.DislikedByUser(userID) != target.disliked {
		game.ToggleDislike(userID)
	}
}

// ToggleReaction optimistically flips the caller's reaction in the
// session, then confirms it with the repository. On success the server
// record is merged back; on failure the prior state is replayed and the
// error surfaced.
func (c *Controller) ToggleReaction(ctx context.Context, gameID, callerID string, kind ReactionKind) (*domain.Game, error) {
	var prior reactionState
	found := c.session.Apply(gameID, func(game *domain.Game) {
		prior = captureReaction(game, callerID)
		applyReaction(game, callerID, prior.next(kind))
	})
	if !found {
		return nil, domainerrors.NotFound("game not found")
	}

	var (
		updated *domain.Game
		err     error
	)
	switch kind {
	case ReactionDislike:
		updated, _, err = c.repo.ToggleDislike(ctx, gameID, callerID)
	default:
		updated, _, err = c.repo.ToggleLike(ctx, gameID, callerID)
	}
	if err != nil {
		c.session.Apply(gameID, func(game *domain.Game) {
			applyReaction(game, callerID, prior)
		})
		return nil, err
	}

	c.session.ReconcileSaved(updated)
	return updated, nil
}
