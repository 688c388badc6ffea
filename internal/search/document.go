// Package search provides full-text game search using Bleve. Only
// public games are indexed; the index is derived data and can always be
// rebuilt from the store.
package search

import (
	"regexp"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/playforge/playforge-server/internal/domain"
)

// GameDocument is the document structure for the Bleve index.
//
// Game HTML is flattened to markdown text so searches can hit visible
// in-game copy (instructions, labels) without matching markup noise.
type GameDocument struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`
	Subject     string `json:"subject,omitempty"`
	CreatorName string `json:"creator_name,omitempty"`
	Grade       int    `json:"grade,omitempty"`
	Likes       int    `json:"likes,omitempty"`
	PlayCount   int    `json:"play_count,omitempty"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

// NewGameDocument builds an index document from a game.
func NewGameDocument(game *domain.Game) *GameDocument {
	return &GameDocument{
		ID:          game.ID,
		Title:       game.Title,
		Description: game.Description,
		Content:     extractText(game.HTMLContent),
		Subject:     string(game.Subject),
		CreatorName: game.CreatorName,
		Grade:       game.Grade,
		Likes:       game.Likes,
		PlayCount:   game.PlayCount,
		CreatedAt:   game.CreatedAt.Unix(),
	}
}

// ToMap converts the document to a map so field names match the mapping.
func (d *GameDocument) ToMap() map[string]any {
	return map[string]any{
		"id":           d.ID,
		"title":        d.Title,
		"description":  d.Description,
		"content":      d.Content,
		"subject":      d.Subject,
		"creator_name": d.CreatorName,
		"grade":        d.Grade,
		"likes":        d.Likes,
		"play_count":   d.PlayCount,
		"created_at":   d.CreatedAt,
	}
}

// scriptStylePattern strips script and style blocks before text
// extraction; their contents are code, not searchable copy.
var scriptStylePattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)

const maxContentLength = 4096

// extractText flattens a game's HTML document to plain text suitable
// for indexing, capped so giant generated documents don't bloat the
// index.
func extractText(html string) string {
	if html == "" {
		return ""
	}

	stripped := scriptStylePattern.ReplaceAllString(html, " ")

	text, err := htmltomarkdown.ConvertString(stripped)
	if err != nil {
		// If conversion fails, fall back to the raw markup.
		text = stripped
	}
	text = strings.Join(strings.Fields(text), " ")

	if len(text) > maxContentLength {
		cut := maxContentLength
		// Back up to a rune boundary so the cap never splits a
		// multi-byte character.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}
