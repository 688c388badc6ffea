package domain

import "time"

// PlayEvent records a single play of a game by a user. Play history is
// best effort: losing an event never fails the play itself.
type PlayEvent struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	GameID   string    `json:"game_id"`
	PlayedAt time.Time `json:"played_at"`
}
