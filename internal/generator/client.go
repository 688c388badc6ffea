package generator

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	domainerrors "github.com/playforge/playforge-server/internal/errors"
	"github.com/playforge/playforge-server/internal/htmldoc"
)

// ClientConfig configures the generation client.
type ClientConfig struct {
	ResponsesURL  string
	APIKey        string
	FastModel     string
	ThinkingModel string
	Timeout       time.Duration
	RPS           float64
	Burst         int
}

// Client calls an OpenAI-compatible "responses" endpoint. It implements
// Adapter.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	settings   SettingsProvider
	logger     *slog.Logger
}

// NewClient creates a generation client. settings may be nil, in which
// case the built-in prompts are always used.
func NewClient(cfg ClientConfig, settings SettingsProvider, logger *slog.Logger) *Client {
	if cfg.ResponsesURL == "" {
		cfg.ResponsesURL = "https://api.openai.com/v1/responses"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 3
	}
	if settings == nil {
		settings = StaticSettings{}
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		settings:   settings,
		logger:     logger,
	}
}

// Generate produces a complete HTML game document from a prompt and
// optional attachments. The prompt may be empty only when at least one
// attachment survives filtering.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	accepted, warnings := FilterAttachments(req.Attachments)

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" && len(accepted) == 0 {
		return nil, domainerrors.Validation("describe your game or attach a file").WithDetails(warnings)
	}

	var sb strings.Builder
	sb.WriteString(resolveMainPrompt(c.settings.Generation()))
	sb.WriteString("\n\nUser request:\n")
	sb.WriteString(prompt)
	for _, att := range accepted {
		sb.WriteString("\n")
		sb.WriteString(describeAttachment(att))
	}

	html, err := c.invoke(ctx, c.modelFor(req.Mode), sb.String())
	if err != nil {
		return nil, err
	}

	html = stripCodeFence(html)
	if err := htmldoc.Validate(html); err != nil {
		return nil, domainerrors.Generation("generated content is not a playable game").WithCause(err)
	}

	return &GenerateResult{HTML: html, Warnings: warnings}, nil
}

// Refine revises existing game content per the user's instruction.
func (c *Client) Refine(ctx context.Context, req RefineRequest) (*GenerateResult, error) {
	instruction := strings.TrimSpace(req.Instruction)
	if instruction == "" {
		return nil, domainerrors.Validation("describe the change you want")
	}
	if strings.TrimSpace(req.CurrentHTML) == "" {
		return nil, domainerrors.Validation("no game content to refine")
	}

	accepted, warnings := FilterAttachments(req.Attachments)

	var sb strings.Builder
	sb.WriteString(resolveRefinementPrompt(c.settings.Generation()))
	sb.WriteString("\n\nRequested change:\n")
	sb.WriteString(instruction)
	for _, att := range accepted {
		sb.WriteString("\n")
		sb.WriteString(describeAttachment(att))
	}
	sb.WriteString("\n\nCurrent document:\n")
	sb.WriteString(req.CurrentHTML)

	html, err := c.invoke(ctx, c.cfg.ThinkingModel, sb.String())
	if err != nil {
		return nil, err
	}

	html = stripCodeFence(html)
	if err := htmldoc.Validate(html); err != nil {
		return nil, domainerrors.Generation("refined content is not a playable game").WithCause(err)
	}

	return &GenerateResult{HTML: html, Warnings: warnings}, nil
}

// Describe produces a one-sentence game description.
func (c *Client) Describe(ctx context.Context, prompt string) (string, error) {
	out, err := c.invoke(ctx, c.cfg.FastModel, describePrompt+"\n\nRequest:\n"+prompt)
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(out), `"`), nil
}

// Title produces a short game title.
func (c *Client) Title(ctx context.Context, prompt string) (string, error) {
	out, err := c.invoke(ctx, c.cfg.FastModel, titlePrompt+"\n\nRequest:\n"+prompt)
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(out), `"`), nil
}

// Ideas suggests three game concepts for a subject and grade.
func (c *Client) Ideas(ctx context.Context, req IdeasRequest) ([]IdeaSuggestion, error) {
	var sb strings.Builder
	sb.WriteString(`Suggest exactly 3 educational minigame ideas as a JSON array of objects with "title" and "description" fields. Output only the JSON array.`)
	fmt.Fprintf(&sb, "\n\nSubject: %s\nGrade: %d\n", req.Subject, req.Grade)
	if req.Keywords != "" {
		fmt.Fprintf(&sb, "Keywords: %s\n", req.Keywords)
	}

	out, err := c.invoke(ctx, c.cfg.FastModel, sb.String())
	if err != nil {
		return nil, err
	}

	var ideas []IdeaSuggestion
	if err := json.Unmarshal([]byte(stripCodeFence(out)), &ideas); err != nil {
		return nil, domainerrors.Generation("could not parse idea suggestions").WithCause(err)
	}
	if len(ideas) > 3 {
		ideas = ideas[:3]
	}
	return ideas, nil
}

// modelFor maps a mode onto a configured model name.
func (c *Client) modelFor(mode Mode) string {
	if mode == ModeThinking {
		return c.cfg.ThinkingModel
	}
	return c.cfg.FastModel
}

// invoke posts a single-input request to the responses endpoint and
// extracts the output text.
func (c *Client) invoke(ctx context.Context, model, input string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", domainerrors.Generation("generation canceled").WithCause(err)
	}

	requestBody, err := json.Marshal(map[string]any{
		"model": model,
		"input": input,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ResponsesURL, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Credential material is sent only as an Authorization header and is
	// never echoed in errors or log output.
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", domainerrors.Generation("generation service unreachable").WithCause(err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		if c.logger != nil {
			c.logger.Warn("generation request failed",
				"status", res.StatusCode,
				"model", model,
				"body", strings.TrimSpace(string(body)),
			)
		}
		return "", domainerrors.Generationf("generation service returned status %d", res.StatusCode)
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.UnmarshalRead(res.Body, &payload); err != nil {
		return "", domainerrors.Generation("malformed generation response").WithCause(err)
	}

	outputText := strings.TrimSpace(payload.OutputText)
	if outputText == "" {
		for _, item := range payload.Output {
			for _, content := range item.Content {
				if strings.TrimSpace(content.Text) != "" {
					outputText = strings.TrimSpace(content.Text)
					break
				}
			}
			if outputText != "" {
				break
			}
		}
	}
	if outputText == "" {
		return "", domainerrors.Generation("generation response missing output text")
	}

	if c.logger != nil {
		c.logger.Debug("generation completed",
			"model", model,
			"duration_ms", time.Since(start).Milliseconds(),
			"output_bytes", len(outputText),
		)
	}
	return outputText, nil
}

// stripCodeFence unwraps output the model wrapped in a markdown fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	lines := strings.SplitN(s, "\n", 2)
	if len(lines) < 2 {
		return s
	}
	body := lines[1]
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
