package domain

import "time"

// ChatRole identifies who authored a transcript entry.
type ChatRole string

// Transcript roles.
const (
	ChatRoleUser   ChatRole = "user"
	ChatRoleAI     ChatRole = "ai"
	ChatRoleSystem ChatRole = "system"
)

// ChatMessage is one entry in a game's generation transcript.
type ChatMessage struct {
	Role ChatRole  `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}
