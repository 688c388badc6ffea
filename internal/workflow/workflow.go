// Package workflow drives the create/refine/save authoring flow: it
// validates input, calls the content generator, merges results into the
// session store, and gates the save with the grade/subject check.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playforge/playforge-server/internal/domain"
	domainerrors "github.com/playforge/playforge-server/internal/errors"
	"github.com/playforge/playforge-server/internal/generator"
	"github.com/playforge/playforge-server/internal/id"
	"github.com/playforge/playforge-server/internal/service"
	"github.com/playforge/playforge-server/internal/session"
)

// State is the authoring state machine position.
type State string

const (
	StateIdle             State = "idle"
	StateGenerating       State = "generating"
	StateGeneratedUnsaved State = "generated_unsaved"
	StateRefining         State = "refining"
	StateSaving           State = "saving"
	StateSaved            State = "saved"
)

// stable reports whether the state can be returned to after an error.
func (s State) stable() bool {
	switch s {
	case StateIdle, StateGeneratedUnsaved, StateSaved:
		return true
	default:
		return false
	}
}

// Repository is the durable side of the workflow: saving, forking, and
// reactions. *service.GameService satisfies it.
type Repository interface {
	Save(ctx context.Context, ownerID, ownerName string, input service.SaveGameInput) (*domain.Game, error)
	Fork(ctx context.Context, gameID, newOwnerID, creatorName string) (*domain.Game, error)
	ToggleLike(ctx context.Context, gameID, callerID string) (*domain.Game, bool, error)
	ToggleDislike(ctx context.Context, gameID, callerID string) (*domain.Game, bool, error)
}

// Controller runs one user's authoring session. Operations that call
// the generator or the repository are single-flight: a second submit
// while one is in flight is rejected, which is the only serialization
// the flow needs.
type Controller struct {
	adapter generator.Adapter
	repo    Repository
	session *session.Store
	logger  *slog.Logger

	mu         sync.Mutex
	state      State
	transcript []domain.ChatMessage
}

// New creates a controller in the idle state.
func New(adapter generator.Adapter, repo Repository, sess *session.Store, logger *slog.Logger) *Controller {
	return &Controller{
		adapter: adapter,
		repo:    repo,
		session: sess,
		logger:  logger,
		state:   StateIdle,
	}
}

// State returns the current state machine position.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns the chat history for the open authoring session.
func (c *Controller) Transcript() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ChatMessage, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// begin moves into a transient state, rejecting concurrent submissions.
// It returns the state to restore on failure.
func (c *Controller) begin(next State) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.stable() {
		return "", domainerrors.Conflict(fmt.Sprintf("another operation is in progress (%s)", c.state))
	}
	prior := c.state
	c.state = next
	return prior, nil
}

func (c *Controller) finish(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Controller) appendMessage(role domain.ChatRole, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = append(c.transcript, domain.ChatMessage{Role: role, Text: text, At: time.Now()})
}

// CreateInput is the create-flow submission.
type CreateInput struct {
	Prompt      string
	Attachments []generator.FileAttachment
	Mode        generator.Mode
	CreatorName string
}

// CreateResult is the generated draft plus any attachment warnings.
type CreateResult struct {
	Game     *domain.Game
	Warnings []generator.AttachmentWarning
}

// Create runs the full generation flow: document, description, and
// title are produced concurrently, then combined into a new local draft
// with grade and subject left unset for the author to fill in.
func (c *Controller) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	prior, err := c.begin(StateGenerating)
	if err != nil {
		return nil, err
	}

	result, err := c.generate(ctx, input)
	if err != nil {
		c.finish(prior)
		return nil, err
	}

	c.session.CreateGame(result.Game)
	c.finish(StateGeneratedUnsaved)
	c.logger.Info("game generated", "game_id", result.Game.ID, "title", result.Game.Title)
	return result, nil
}

func (c *Controller) generate(ctx context.Context, input CreateInput) (*CreateResult, error) {
	var (
		wg          sync.WaitGroup
		genResult   *generator.GenerateResult
		description string
		title       string
		genErr      error
		descErr     error
		titleErr    error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		genResult, genErr = c.adapter.Generate(ctx, generator.GenerateRequest{
			Prompt:      input.Prompt,
			Attachments: input.Attachments,
			Mode:        input.Mode,
		})
	}()
	go func() {
		defer wg.Done()
		description, descErr = c.adapter.Describe(ctx, input.Prompt)
	}()
	go func() {
		defer wg.Done()
		title, titleErr = c.adapter.Title(ctx, input.Prompt)
	}()
	wg.Wait()

	for _, err := range []error{genErr, descErr, titleErr} {
		if err != nil {
			return nil, err
		}
	}

	gameID, err := id.Generate("game")
	if err != nil {
		return nil, fmt.Errorf("generate game id: %w", err)
	}

	now := time.Now()
	game := &domain.Game{
		ID:          gameID,
		Title:       title,
		Description: description,
		HTMLContent: genResult.HTML,
		CreatorName: input.CreatorName,
		UserID:      c.session.UserID(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return &CreateResult{Game: game, Warnings: genResult.Warnings}, nil
}

// RefineInput is one refinement turn against the active game.
type RefineInput struct {
	Instruction string
	Attachments []generator.FileAttachment
}

// Refine rewrites the active game's document from the user's
// instruction. The call always uses the current content, so successive
// refinements compound. Content is only replaced on success; a failure
// leaves the document as it was and records a system-turn message.
func (c *Controller) Refine(ctx context.Context, input RefineInput) (*domain.Game, error) {
	prior, err := c.begin(StateRefining)
	if err != nil {
		return nil, err
	}

	active := c.session.ActiveGame()
	if active == nil {
		c.finish(prior)
		return nil, domainerrors.Validation("no game is open")
	}

	c.appendMessage(domain.ChatRoleUser, input.Instruction)

	result, err := c.adapter.Refine(ctx, generator.RefineRequest{
		Instruction: input.Instruction,
		CurrentHTML: active.HTMLContent,
		Attachments: input.Attachments,
	})
	if err != nil {
		c.appendMessage(domain.ChatRoleSystem, fmt.Sprintf("Refinement failed: %v", err))
		c.finish(prior)
		return nil, err
	}

	c.session.UpdateGameContent(active.ID, result.HTML)
	c.appendMessage(domain.ChatRoleAI, "Updated the game as requested.")
	c.finish(prior)

	return c.session.ActiveGame(), nil
}

// SaveGate checks the fields an author must set before a generated game
// can be saved. Returns field-specific messages, empty when saveable.
func SaveGate(game *domain.Game) map[string]string {
	problems := make(map[string]string)
	if !domain.ValidGrade(game.Grade) {
		problems["grade"] = fmt.Sprintf("choose a grade between %d and %d", domain.GradeMin, domain.GradeMax)
	}
	if !game.Subject.Valid() {
		problems["subject"] = "choose a subject"
	}
	return problems
}

// Save persists the active game. The grade/subject gate runs first and
// a violation blocks the save without reaching the repository.
func (c *Controller) Save(ctx context.Context, ownerID, ownerName string) (*domain.Game, error) {
	prior, err := c.begin(StateSaving)
	if err != nil {
		return nil, err
	}

	active := c.session.ActiveGame()
	if active == nil {
		c.finish(prior)
		return nil, domainerrors.Validation("no game is open")
	}

	if problems := SaveGate(active); len(problems) > 0 {
		c.finish(prior)
		return nil, domainerrors.ValidationWithDetails("set the missing fields before saving", problems)
	}

	saved, err := c.repo.Save(ctx, ownerID, ownerName, service.SaveGameInput{
		ID:          active.ID,
		Title:       active.Title,
		Description: active.Description,
		Grade:       active.Grade,
		Subject:     string(active.Subject),
		HTMLContent: active.HTMLContent,
		IsPublic:    active.IsPublic,
		CreatorName: active.CreatorName,
	})
	if err != nil {
		// The draft stays editable so the author can retry.
		c.finish(prior)
		return nil, err
	}

	c.session.ReconcileSaved(saved)
	c.finish(StateSaved)
	return saved, nil
}

// Fork copies a game into a new private record owned by the caller and
// opens it, so the author can refine and save without touching the
// original.
func (c *Controller) Fork(ctx context.Context, gameID, ownerID, creatorName string) (*domain.Game, error) {
	prior, err := c.begin(StateSaving)
	if err != nil {
		return nil, err
	}

	fork, err := c.repo.Fork(ctx, gameID, ownerID, creatorName)
	if err != nil {
		c.finish(prior)
		return nil, err
	}

	c.session.CreateGame(fork)
	c.finish(StateSaved)
	return fork, nil
}

// Reset closes the open game, clears the transcript, and returns to
// idle. Called when the viewer session ends.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.CloseActive()
	c.state = StateIdle
	c.transcript = nil
}
