// Package domain contains the core entities for PlayForge: generated
// minigames, playlists, generation settings, and their invariants.
package domain

import (
	"slices"
	"strings"
	"time"
)

// Subject is the fixed set of educational subjects a game can belong to.
type Subject string

// Valid subjects.
const (
	SubjectMath          Subject = "Math"
	SubjectLanguageArts  Subject = "Language Arts"
	SubjectScience       Subject = "Science"
	SubjectSocialStudies Subject = "Social Studies"
	SubjectArt           Subject = "Art"
)

// Subjects lists every valid subject, in display order.
func Subjects() []Subject {
	return []Subject{SubjectMath, SubjectLanguageArts, SubjectScience, SubjectSocialStudies, SubjectArt}
}

// Valid checks if the subject is a member of the fixed subject set.
// The empty string (unset sentinel on freshly generated games) is not valid.
func (s Subject) Valid() bool {
	switch s {
	case SubjectMath, SubjectLanguageArts, SubjectScience, SubjectSocialStudies, SubjectArt:
		return true
	default:
		return false
	}
}

// Grade bounds. Grade 0 is the unset sentinel on freshly generated games
// and is never a valid persisted value.
const (
	GradeMin = 1
	GradeMax = 13
)

// ValidGrade checks if a grade is within the allowed range.
func ValidGrade(grade int) bool {
	return grade >= GradeMin && grade <= GradeMax
}

// Game is the central entity: a generated, self-contained HTML minigame
// plus its social state.
type Game struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Grade       int     `json:"grade"`
	Subject     Subject `json:"subject"`

	// HTMLContent is a complete standalone HTML document (inline CSS/JS,
	// no external resources). It is the executable artifact.
	HTMLContent string `json:"html_content"`

	UserID      string `json:"user_id"`
	CreatorName string `json:"creator_name"`
	IsPublic    bool   `json:"is_public"`

	// IsSavedToDB is true once a repository round-trip has succeeded.
	// It is a client-side projection field and is not authoritative in
	// stored records (stored records are saved by definition).
	IsSavedToDB bool `json:"is_saved_to_db"`

	PlayCount int `json:"play_count"`
	Likes     int `json:"likes"`
	Dislikes  int `json:"dislikes"`

	// LikedBy and DislikedBy are mutually exclusive per user. Likes and
	// Dislikes always equal the respective set sizes.
	LikedBy    []string `json:"liked_by,omitempty"`
	DislikedBy []string `json:"disliked_by,omitempty"`

	// ForkedFrom points at the source game's id for remixed copies.
	ForkedFrom string `json:"forked_from,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LikedByUser reports whether the user currently likes this game.
func (g *Game) LikedByUser(userID string) bool {
	return slices.Contains(g.LikedBy, userID)
}

// DislikedByUser reports whether the user currently dislikes this game.
func (g *Game) DislikedByUser(userID string) bool {
	return slices.Contains(g.DislikedBy, userID)
}

// ToggleLike flips the user's like state, clearing any dislike in the same
// transition. Counters are kept equal to the set sizes. Returns the
// resulting liked state.
func (g *Game) ToggleLike(userID string) bool {
	if g.LikedByUser(userID) {
		g.LikedBy = removeID(g.LikedBy, userID)
		g.Likes = len(g.LikedBy)
		return false
	}
	if g.DislikedByUser(userID) {
		g.DislikedBy = removeID(g.DislikedBy, userID)
		g.Dislikes = len(g.DislikedBy)
	}
	g.LikedBy = append(g.LikedBy, userID)
	g.Likes = len(g.LikedBy)
	return true
}

// ToggleDislike flips the user's dislike state, clearing any like in the
// same transition. Returns the resulting disliked state.
func (g *Game) ToggleDislike(userID string) bool {
	if g.DislikedByUser(userID) {
		g.DislikedBy = removeID(g.DislikedBy, userID)
		g.Dislikes = len(g.DislikedBy)
		return false
	}
	if g.LikedByUser(userID) {
		g.LikedBy = removeID(g.LikedBy, userID)
		g.Likes = len(g.LikedBy)
	}
	g.DislikedBy = append(g.DislikedBy, userID)
	g.Dislikes = len(g.DislikedBy)
	return true
}

// ForkTitleSuffix marks remixed copies in their title.
const ForkTitleSuffix = " (Remix)"

// Fork creates an owned private copy with zeroed social state and
// provenance pointing back at the source.
func (g *Game) Fork(newID, ownerID, creatorName string, now time.Time) *Game {
	title := g.Title
	if !strings.HasSuffix(title, ForkTitleSuffix) {
		title += ForkTitleSuffix
	}
	return &Game{
		ID:          newID,
		Title:       title,
		Description: g.Description,
		Grade:       g.Grade,
		Subject:     g.Subject,
		HTMLContent: g.HTMLContent,
		UserID:      ownerID,
		CreatorName: creatorName,
		IsPublic:    false,
		ForkedFrom:  g.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MissingFields returns the names of required fields that are absent,
// in a stable order. A game is saveable only when this is empty.
func (g *Game) MissingFields() []string {
	var missing []string
	if g.ID == "" {
		missing = append(missing, "id")
	}
	if g.Title == "" {
		missing = append(missing, "title")
	}
	if g.Description == "" {
		missing = append(missing, "description")
	}
	if !ValidGrade(g.Grade) {
		missing = append(missing, "grade")
	}
	if !g.Subject.Valid() {
		missing = append(missing, "subject")
	}
	if g.HTMLContent == "" {
		missing = append(missing, "html_content")
	}
	return missing
}

// Clone returns a deep copy, so session-store callers can hand out
// snapshots without aliasing the reaction sets.
func (g *Game) Clone() *Game {
	c := *g
	c.LikedBy = slices.Clone(g.LikedBy)
	c.DislikedBy = slices.Clone(g.DislikedBy)
	return &c
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
