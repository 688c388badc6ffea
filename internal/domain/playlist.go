package domain

import (
	"slices"
	"time"
)

// Playlist is an ordered, user-owned collection of game ids.
type Playlist struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsPublic    bool      `json:"is_public"`
	GameIDs     []string  `json:"game_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ContainsGame reports whether the playlist already holds the game.
func (p *Playlist) ContainsGame(gameID string) bool {
	return slices.Contains(p.GameIDs, gameID)
}

// AddGame appends a game id, preserving insertion order. Adding an id
// already present is a no-op; returns whether the playlist changed.
func (p *Playlist) AddGame(gameID string) bool {
	if p.ContainsGame(gameID) {
		return false
	}
	p.GameIDs = append(p.GameIDs, gameID)
	return true
}

// RemoveGame drops a game id, keeping the remaining order. Removing an
// absent id is a no-op; returns whether the playlist changed.
func (p *Playlist) RemoveGame(gameID string) bool {
	for i, id := range p.GameIDs {
		if id == gameID {
			p.GameIDs = append(p.GameIDs[:i], p.GameIDs[i+1:]...)
			return true
		}
	}
	return false
}
