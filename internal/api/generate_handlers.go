package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playforge/playforge-server/internal/domain"
	"github.com/playforge/playforge-server/internal/generator"
)

func (s *Server) registerGenerateRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "generateGame",
		Method:      http.MethodPost,
		Path:        "/api/v1/generate",
		Summary:     "Generate game",
		Description: "Turns a natural-language prompt into a standalone HTML game, with a title and description derived from the same prompt",
		Tags:        []string{"Generation"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGenerateGame)

	huma.Register(s.api, huma.Operation{
		OperationID: "refineGame",
		Method:      http.MethodPost,
		Path:        "/api/v1/refine",
		Summary:     "Refine game",
		Description: "Revises the supplied HTML document per the instruction; refinement is relative to the current document, never the original prompt",
		Tags:        []string{"Generation"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRefineGame)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggestIdeas",
		Method:      http.MethodPost,
		Path:        "/api/v1/ideas",
		Summary:     "Suggest game ideas",
		Tags:        []string{"Generation"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSuggestIdeas)
}

// === DTOs ===

// AttachmentRequest is one uploaded reference file. Data is base64 on
// the wire.
type AttachmentRequest struct {
	Name string `json:"name" doc:"Original filename"`
	MIME string `json:"mime" doc:"MIME type"`
	Data []byte `json:"data" doc:"File contents, base64-encoded"`
}

func toFileAttachments(attachments []AttachmentRequest) []generator.FileAttachment {
	if len(attachments) == 0 {
		return nil
	}
	out := make([]generator.FileAttachment, len(attachments))
	for i, a := range attachments {
		out[i] = generator.FileAttachment{Name: a.Name, MIME: a.MIME, Data: a.Data}
	}
	return out
}

// AttachmentWarningResponse explains why an attachment was dropped.
type AttachmentWarningResponse struct {
	Name   string `json:"name" doc:"Attachment filename"`
	Reason string `json:"reason" doc:"Why it was dropped"`
}

func toWarningResponses(warnings []generator.AttachmentWarning) []AttachmentWarningResponse {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]AttachmentWarningResponse, len(warnings))
	for i, w := range warnings {
		out[i] = AttachmentWarningResponse{Name: w.Name, Reason: w.Reason}
	}
	return out
}

// GenerateRequest is the request body for a generation.
type GenerateRequest struct {
	Prompt      string              `json:"prompt" doc:"Natural-language description of the game"`
	Mode        string              `json:"mode,omitempty" validate:"omitempty,oneof=fast thinking" doc:"fast | thinking"`
	Attachments []AttachmentRequest `json:"attachments,omitempty" doc:"Reference files"`
}

// GenerateInput wraps the generate request for Huma.
type GenerateInput struct {
	Authorization string `header:"Authorization"`
	Body          GenerateRequest
}

// GenerateResponse is a finished generation.
type GenerateResponse struct {
	HTMLContent string                      `json:"htmlContent" doc:"Standalone HTML document"`
	Title       string                      `json:"title" doc:"Suggested title"`
	Description string                      `json:"description" doc:"Suggested description"`
	Warnings    []AttachmentWarningResponse `json:"warnings,omitempty" doc:"Dropped attachments"`
}

// GenerateOutput wraps the generate response for Huma.
type GenerateOutput struct {
	Body GenerateResponse
}

// RefineGameRequest is the request body for a refinement.
type RefineGameRequest struct {
	Instruction string              `json:"instruction" doc:"Change to apply"`
	CurrentHTML string              `json:"currentHtml" doc:"Document to revise"`
	Attachments []AttachmentRequest `json:"attachments,omitempty" doc:"Reference files"`
}

// RefineInput wraps the refine request for Huma.
type RefineInput struct {
	Authorization string `header:"Authorization"`
	Body          RefineGameRequest
}

// RefineResponse is a finished refinement.
type RefineResponse struct {
	HTMLContent string                      `json:"htmlContent" doc:"Revised HTML document"`
	Warnings    []AttachmentWarningResponse `json:"warnings,omitempty" doc:"Dropped attachments"`
}

// RefineOutput wraps the refine response for Huma.
type RefineOutput struct {
	Body RefineResponse
}

// IdeasRequest is the request body for idea suggestions.
type IdeasRequest struct {
	Subject  string `json:"subject" doc:"Educational subject"`
	Grade    int    `json:"grade" validate:"omitempty,gte=1,lte=13" doc:"Target grade"`
	Keywords string `json:"keywords,omitempty" doc:"Optional topic keywords"`
}

// IdeasInput wraps the ideas request for Huma.
type IdeasInput struct {
	Authorization string `header:"Authorization"`
	Body          IdeasRequest
}

// IdeaResponse is one proposed game concept.
type IdeaResponse struct {
	Title       string `json:"title" doc:"Concept title"`
	Description string `json:"description" doc:"Concept description"`
}

// IdeasResponse contains the suggested concepts.
type IdeasResponse struct {
	Ideas []IdeaResponse `json:"ideas" doc:"Suggested concepts"`
}

// IdeasOutput wraps the ideas response for Huma.
type IdeasOutput struct {
	Body IdeasResponse
}

// === Handlers ===

func (s *Server) handleGenerateGame(ctx context.Context, input *GenerateInput) (*GenerateOutput, error) {
	if _, err := s.authenticateRequest(input.Authorization); err != nil {
		return nil, err
	}

	mode := generator.Mode(input.Body.Mode)
	if mode == "" {
		mode = generator.ModeFast
	}

	// The document, title, and description come from independent model
	// calls, so run them concurrently. The document call is the one
	// that can fail the request; title and description fall back to
	// empty strings.
	var (
		wg          sync.WaitGroup
		result      *generator.GenerateResult
		genErr      error
		title       string
		description string
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		result, genErr = s.services.Generator.Generate(ctx, generator.GenerateRequest{
			Prompt:      input.Body.Prompt,
			Attachments: toFileAttachments(input.Body.Attachments),
			Mode:        mode,
		})
	}()
	go func() {
		defer wg.Done()
		t, err := s.services.Generator.Title(ctx, input.Body.Prompt)
		if err != nil {
			s.logger.Warn("title generation failed", "error", err)
			return
		}
		title = t
	}()
	go func() {
		defer wg.Done()
		d, err := s.services.Generator.Describe(ctx, input.Body.Prompt)
		if err != nil {
			s.logger.Warn("description generation failed", "error", err)
			return
		}
		description = d
	}()
	wg.Wait()

	if genErr != nil {
		return nil, genErr
	}

	return &GenerateOutput{Body: GenerateResponse{
		HTMLContent: result.HTML,
		Title:       title,
		Description: description,
		Warnings:    toWarningResponses(result.Warnings),
	}}, nil
}

func (s *Server) handleRefineGame(ctx context.Context, input *RefineInput) (*RefineOutput, error) {
	if _, err := s.authenticateRequest(input.Authorization); err != nil {
		return nil, err
	}

	result, err := s.services.Generator.Refine(ctx, generator.RefineRequest{
		Instruction: input.Body.Instruction,
		CurrentHTML: input.Body.CurrentHTML,
		Attachments: toFileAttachments(input.Body.Attachments),
	})
	if err != nil {
		return nil, err
	}

	return &RefineOutput{Body: RefineResponse{
		HTMLContent: result.HTML,
		Warnings:    toWarningResponses(result.Warnings),
	}}, nil
}

func (s *Server) handleSuggestIdeas(ctx context.Context, input *IdeasInput) (*IdeasOutput, error) {
	if _, err := s.authenticateRequest(input.Authorization); err != nil {
		return nil, err
	}

	suggestions, err := s.services.Generator.Ideas(ctx, generator.IdeasRequest{
		Subject:  domain.Subject(input.Body.Subject),
		Grade:    input.Body.Grade,
		Keywords: input.Body.Keywords,
	})
	if err != nil {
		return nil, err
	}

	ideas := make([]IdeaResponse, len(suggestions))
	for i, sg := range suggestions {
		ideas[i] = IdeaResponse{Title: sg.Title, Description: sg.Description}
	}

	return &IdeasOutput{Body: IdeasResponse{Ideas: ideas}}, nil
}
