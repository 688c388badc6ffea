package generator

import (
	"strings"

	"github.com/playforge/playforge-server/internal/domain"
)

// Built-in instruction templates. Custom prompts from settings replace
// these verbatim when they pass validation; otherwise the defaults apply
// silently.
const (
	defaultMainPrompt = `You are an expert educational game developer. Build a complete,
self-contained HTML game from the user's request.

Rules:
- Output exactly one complete HTML document and nothing else.
- All CSS and JavaScript must be inline; never reference external
  scripts, stylesheets, images, fonts, or frames.
- The game must work standalone inside a sandboxed iframe that permits
  only script execution and form submission.
- Keep the game playable with mouse, touch, and keyboard.
- Show the score or progress on screen and make instructions part of
  the game itself.`

	defaultRefinementPrompt = `You are an expert educational game developer revising an existing
HTML game. Apply the user's requested change to the current document.

Rules:
- Output exactly one complete HTML document and nothing else.
- Preserve everything the user did not ask to change.
- All CSS and JavaScript must stay inline; never add external
  resources or frames.`

	describePrompt = `Write a single-sentence, student-friendly description (under 25 words)
for an educational game built from this request. Output only the
description text.`

	titlePrompt = `Write a short, catchy title (at most 6 words) for an educational game
built from this request. Output only the title text, no quotes.`
)

// Custom prompt validation bounds.
const minCustomPromptLength = 50

// unsafePatterns are signatures that disqualify a custom prompt. They
// push the generator toward DOM injection primitives the sandbox
// contract forbids.
var unsafePatterns = []string{"eval(", "document.write", "innerHTML=", "outerHTML="}

// ValidateCustomPrompt checks a candidate custom instruction prompt.
// Returns a human-readable reason when invalid. Generation never calls
// this to fail a request; an invalid custom prompt just means the
// default instruction is used.
func ValidateCustomPrompt(prompt string) (bool, string) {
	if len(prompt) < minCustomPromptLength {
		return false, "prompt must be at least 50 characters"
	}

	lower := strings.ToLower(prompt)
	if !strings.Contains(lower, "html") {
		return false, `prompt must mention "HTML"`
	}
	if !strings.Contains(lower, "game") {
		return false, `prompt must mention "game"`
	}

	normalized := strings.ReplaceAll(lower, " ", "")
	for _, pattern := range unsafePatterns {
		if strings.Contains(normalized, strings.ToLower(pattern)) {
			return false, "prompt contains an unsafe pattern"
		}
	}

	return true, ""
}

// resolveMainPrompt picks the instruction for create-mode generation.
func resolveMainPrompt(settings domain.GenerationSettings) string {
	if settings.UseCustomPrompts {
		if ok, _ := ValidateCustomPrompt(settings.CustomMainPrompt); ok {
			return settings.CustomMainPrompt
		}
	}
	return defaultMainPrompt
}

// resolveRefinementPrompt picks the instruction for refine-mode generation.
func resolveRefinementPrompt(settings domain.GenerationSettings) string {
	if settings.UseCustomPrompts {
		if ok, _ := ValidateCustomPrompt(settings.CustomRefinementPrompt); ok {
			return settings.CustomRefinementPrompt
		}
	}
	return defaultRefinementPrompt
}
