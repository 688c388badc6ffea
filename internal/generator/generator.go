// Package generator adapts an external generative model into game
// content: complete HTML documents plus auxiliary titles, descriptions,
// and idea suggestions.
package generator

import (
	"context"

	"github.com/playforge/playforge-server/internal/domain"
)

// Mode selects the generation model tier.
type Mode string

// Generation modes.
const (
	ModeFast     Mode = "fast"
	ModeThinking Mode = "thinking"
)

// GenerateRequest describes a create-mode generation.
type GenerateRequest struct {
	Prompt      string
	Attachments []FileAttachment
	Mode        Mode
}

// RefineRequest describes a revision of existing game content.
// Refinement is always relative to the current document, never the
// original.
type RefineRequest struct {
	Instruction string
	CurrentHTML string
	Attachments []FileAttachment
}

// GenerateResult is a successful generation: the document plus any
// warnings for attachments that were dropped along the way.
type GenerateResult struct {
	HTML     string
	Warnings []AttachmentWarning
}

// IdeaSuggestion is one proposed game concept.
type IdeaSuggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// IdeasRequest parameterizes idea suggestions.
type IdeasRequest struct {
	Subject  domain.Subject
	Grade    int
	Keywords string
}

// Adapter is the content-generation contract the workflow depends on.
type Adapter interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	Refine(ctx context.Context, req RefineRequest) (*GenerateResult, error)
	Describe(ctx context.Context, prompt string) (string, error)
	Title(ctx context.Context, prompt string) (string, error)
	Ideas(ctx context.Context, req IdeasRequest) ([]IdeaSuggestion, error)
}

// SettingsProvider supplies the current generation settings at call
// time, so prompt customization takes effect without restarting.
type SettingsProvider interface {
	Generation() domain.GenerationSettings
}

// StaticSettings is a SettingsProvider returning a fixed value, for
// tests and defaults.
type StaticSettings struct {
	Settings domain.GenerationSettings
}

// Generation implements SettingsProvider.
func (s StaticSettings) Generation() domain.GenerationSettings {
	return s.Settings
}
