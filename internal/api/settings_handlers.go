package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playforge/playforge-server/internal/domain"
)

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getGenerationSettings",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings",
		Summary:     "Get generation settings",
		Tags:        []string{"Settings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateGenerationSettings",
		Method:      http.MethodPut,
		Path:        "/api/v1/settings",
		Summary:     "Update generation settings",
		Description: "Custom prompts must pass validation before they take effect; a rejected prompt leaves the stored settings unchanged",
		Tags:        []string{"Settings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateSettings)
}

// === DTOs ===

// SettingsResponse mirrors the stored generation settings.
type SettingsResponse struct {
	UseCustomPrompts       bool   `json:"useCustomPrompts" doc:"Whether custom prompts are active"`
	CustomMainPrompt       string `json:"customMainPrompt,omitempty" doc:"Custom generation prompt"`
	CustomRefinementPrompt string `json:"customRefinementPrompt,omitempty" doc:"Custom refinement prompt"`
}

// SettingsGetInput carries only the auth header.
type SettingsGetInput struct {
	Authorization string `header:"Authorization"`
}

// SettingsOutput wraps the settings response for Huma.
type SettingsOutput struct {
	Body SettingsResponse
}

// UpdateSettingsInput wraps a settings update for Huma.
type UpdateSettingsInput struct {
	Authorization string `header:"Authorization"`
	Body          SettingsResponse
}

// === Handlers ===

func (s *Server) handleGetSettings(ctx context.Context, input *SettingsGetInput) (*SettingsOutput, error) {
	if _, err := s.authenticateRequest(input.Authorization); err != nil {
		return nil, err
	}

	current := s.services.Settings.Generation()
	return &SettingsOutput{Body: SettingsResponse{
		UseCustomPrompts:       current.UseCustomPrompts,
		CustomMainPrompt:       current.CustomMainPrompt,
		CustomRefinementPrompt: current.CustomRefinementPrompt,
	}}, nil
}

func (s *Server) handleUpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*SettingsOutput, error) {
	if _, err := s.authenticateRequest(input.Authorization); err != nil {
		return nil, err
	}

	next := domain.GenerationSettings{
		UseCustomPrompts:       input.Body.UseCustomPrompts,
		CustomMainPrompt:       input.Body.CustomMainPrompt,
		CustomRefinementPrompt: input.Body.CustomRefinementPrompt,
	}
	if err := s.services.Settings.Update(next); err != nil {
		return nil, err
	}

	applied := s.services.Settings.Generation()
	return &SettingsOutput{Body: SettingsResponse{
		UseCustomPrompts:       applied.UseCustomPrompts,
		CustomMainPrompt:       applied.CustomMainPrompt,
		CustomRefinementPrompt: applied.CustomRefinementPrompt,
	}}, nil
}
