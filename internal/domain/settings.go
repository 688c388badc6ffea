package domain

// GenerationSettings holds the operator-tunable prompt configuration for
// the content generator. When UseCustomPrompts is false, or a custom
// prompt fails validation, the built-in defaults apply.
type GenerationSettings struct {
	UseCustomPrompts       bool   `json:"use_custom_prompts"`
	CustomMainPrompt       string `json:"custom_main_prompt,omitempty"`
	CustomRefinementPrompt string `json:"custom_refinement_prompt,omitempty"`
}
