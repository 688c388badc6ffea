package workflow

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/playforge-server/internal/domain"
	domainerrors "github.com/playforge/playforge-server/internal/errors"
	"github.com/playforge/playforge-server/internal/generator"
	"github.com/playforge/playforge-server/internal/service"
	"github.com/playforge/playforge-server/internal/session"
)

type fakeAdapter struct {
	html        string
	description string
	title       string
	refined     string
	genErr      error
	refineErr   error

	lastRefine generator.RefineRequest
}

func (f *fakeAdapter) Generate(ctx context.Context, req generator.GenerateRequest) (*generator.GenerateResult, error) {
	if f.genErr != nil {
		return nil, f.genErr
	}
	return &generator.GenerateResult{HTML: f.html}, nil
}

func (f *fakeAdapter) Refine(ctx context.Context, req generator.RefineRequest) (*generator.GenerateResult, error) {
	f.lastRefine = req
	if f.refineErr != nil {
		return nil, f.refineErr
	}
	return &generator.GenerateResult{HTML: f.refined}, nil
}

func (f *fakeAdapter) Describe(ctx context.Context, prompt string) (string, error) {
	return f.description, nil
}

func (f *fakeAdapter) Title(ctx context.Context, prompt string) (string, error) {
	return f.title, nil
}

func (f *fakeAdapter) Ideas(ctx context.Context, req generator.IdeasRequest) ([]generator.IdeaSuggestion, error) {
	return nil, nil
}

type fakeRepo struct {
	saved     []*domain.Game
	saveErr   error
	toggleErr error
	forked    *domain.Game
}

func (f *fakeRepo) Save(ctx context.Context, ownerID, ownerName string, input service.SaveGameInput) (*domain.Game, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	game := &domain.Game{
		ID:          input.ID,
		Title:       input.Title,
		Description: input.Description,
		Grade:       input.Grade,
		Subject:     domain.Subject(input.Subject),
		HTMLContent: input.HTMLContent,
		UserID:      ownerID,
		CreatorName: input.CreatorName,
		IsPublic:    input.IsPublic,
		IsSavedToDB: true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.saved = append(f.saved, game)
	return game, nil
}

func (f *fakeRepo) Fork(ctx context.Context, gameID, newOwnerID, creatorName string) (*domain.Game, error) {
	return f.forked, nil
}

func (f *fakeRepo) ToggleLike(ctx context.Context, gameID, callerID string) (*domain.Game, bool, error) {
	if f.toggleErr != nil {
		return nil, false, f.toggleErr
	}
	game := &domain.Game{ID: gameID, IsSavedToDB: true, Likes: 1, LikedBy: []string{callerID}}
	return game, true, nil
}

func (f *fakeRepo) ToggleDislike(ctx context.Context, gameID, callerID string) (*domain.Game, bool, error) {
	if f.toggleErr != nil {
		return nil, false, f.toggleErr
	}
	game := &domain.Game{ID: gameID, IsSavedToDB: true, Dislikes: 1, DislikedBy: []string{callerID}}
	return game, true, nil
}

func setupController(adapter *fakeAdapter, repo *fakeRepo) (*Controller, *session.Store) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess := session.New(nil, logger)
	return New(adapter, repo, sess, logger), sess
}

func TestController_Create_ProducesUnsetDraft(t *testing.T) {
	adapter := &fakeAdapter{
		html:        "<html><body>quiz</body></html>",
		description: "A number line quiz",
		title:       "Fraction Quiz",
	}
	ctrl, sess := setupController(adapter, &fakeRepo{})

	result, err := ctrl.Create(context.Background(), CreateInput{Prompt: "Fraction number line quiz"})
	require.NoError(t, err)

	assert.Equal(t, StateGeneratedUnsaved, ctrl.State())
	assert.Equal(t, "Fraction Quiz", result.Game.Title)
	assert.Equal(t, "A number line quiz", result.Game.Description)
	assert.Zero(t, result.Game.Grade)
	assert.Empty(t, result.Game.Subject)
	assert.False(t, result.Game.IsSavedToDB)

	active := sess.ActiveGame()
	require.NotNil(t, active)
	assert.Equal(t, result.Game.ID, active.ID)
}

func TestController_Create_FailureReturnsToIdle(t *testing.T) {
	adapter := &fakeAdapter{genErr: domainerrors.Generation("model unavailable")}
	ctrl, sess := setupController(adapter, &fakeRepo{})

	_, err := ctrl.Create(context.Background(), CreateInput{Prompt: "anything"})
	require.Error(t, err)
	assert.Equal(t, StateIdle, ctrl.State())
	assert.Zero(t, sess.Len())
}

func TestController_Save_GateBlocksWithoutRepositoryCall(t *testing.T) {
	adapter := &fakeAdapter{html: "<html></html>", title: "T", description: "D"}
	repo := &fakeRepo{}
	ctrl, _ := setupController(adapter, repo)

	_, err := ctrl.Create(context.Background(), CreateInput{Prompt: "p"})
	require.NoError(t, err)

	_, err = ctrl.Save(context.Background(), "user-1", "Ada")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
	assert.Empty(t, repo.saved)

	var domainErr *domainerrors.Error
	require.True(t, domainerrors.As(err, &domainErr))
	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "grade")
	assert.Contains(t, details, "subject")
}

func TestController_Save_AfterSettingFields(t *testing.T) {
	adapter := &fakeAdapter{html: "<html></html>", title: "T", description: "D"}
	repo := &fakeRepo{}
	ctrl, sess := setupController(adapter, repo)

	result, err := ctrl.Create(context.Background(), CreateInput{Prompt: "p"})
	require.NoError(t, err)

	grade := 4
	subject := domain.SubjectMath
	sess.UpdateGameDetails(result.Game.ID, session.DetailUpdate{Grade: &grade, Subject: &subject})

	saved, err := ctrl.Save(context.Background(), "user-1", "Ada")
	require.NoError(t, err)

	assert.Equal(t, StateSaved, ctrl.State())
	assert.True(t, saved.IsSavedToDB)
	assert.False(t, saved.IsPublic)
	assert.Zero(t, saved.Likes)

	active := sess.ActiveGame()
	require.NotNil(t, active)
	assert.True(t, active.IsSavedToDB)
}

func TestController_Save_FailureKeepsDraftEditable(t *testing.T) {
	adapter := &fakeAdapter{html: "<html></html>", title: "T", description: "D"}
	repo := &fakeRepo{saveErr: domainerrors.Internal("disk full")}
	ctrl, sess := setupController(adapter, repo)

	result, err := ctrl.Create(context.Background(), CreateInput{Prompt: "p"})
	require.NoError(t, err)

	grade := 4
	subject := domain.SubjectMath
	sess.UpdateGameDetails(result.Game.ID, session.DetailUpdate{Grade: &grade, Subject: &subject})

	_, err = ctrl.Save(context.Background(), "user-1", "Ada")
	require.Error(t, err)
	assert.Equal(t, StateGeneratedUnsaved, ctrl.State())

	active := sess.ActiveGame()
	require.NotNil(t, active)
	assert.False(t, active.IsSavedToDB)
}

func TestController_Refine_UsesCurrentContentAndAppendsTranscript(t *testing.T) {
	adapter := &fakeAdapter{html: "<html>H1</html>", title: "T", description: "D", refined: "<html>H2</html>"}
	ctrl, sess := setupController(adapter, &fakeRepo{})

	result, err := ctrl.Create(context.Background(), CreateInput{Prompt: "p"})
	require.NoError(t, err)

	refined, err := ctrl.Refine(context.Background(), RefineInput{Instruction: "add a timer"})
	require.NoError(t, err)
	assert.Equal(t, "<html>H2</html>", refined.HTMLContent)
	assert.Equal(t, "<html>H1</html>", adapter.lastRefine.CurrentHTML)

	// List and viewer agree.
	games := sess.Games()
	assert.Equal(t, "<html>H2</html>", games[0].HTMLContent)

	transcript := ctrl.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, domain.ChatRoleUser, transcript[0].Role)
	assert.Equal(t, "add a timer", transcript[0].Text)
	assert.Equal(t, domain.ChatRoleAI, transcript[1].Role)

	// Second refine compounds on the first result.
	adapter.refined = "<html>H3</html>"
	_, err = ctrl.Refine(context.Background(), RefineInput{Instruction: "bigger buttons"})
	require.NoError(t, err)
	assert.Equal(t, "<html>H2</html>", adapter.lastRefine.CurrentHTML)
	_ = result
}

func TestController_Refine_FailureKeepsContent(t *testing.T) {
	adapter := &fakeAdapter{html: "<html>H1</html>", title: "T", description: "D"}
	ctrl, sess := setupController(adapter, &fakeRepo{})

	_, err := ctrl.Create(context.Background(), CreateInput{Prompt: "p"})
	require.NoError(t, err)

	adapter.refineErr = domainerrors.Generation("quota exceeded")
	_, err = ctrl.Refine(context.Background(), RefineInput{Instruction: "add a timer"})
	require.Error(t, err)

	active := sess.ActiveGame()
	assert.Equal(t, "<html>H1</html>", active.HTMLContent)
	assert.Equal(t, StateGeneratedUnsaved, ctrl.State())

	transcript := ctrl.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, domain.ChatRoleSystem, transcript[1].Role)
}

func TestController_Refine_NoOpenGame(t *testing.T) {
	ctrl, _ := setupController(&fakeAdapter{}, &fakeRepo{})

	_, err := ctrl.Refine(context.Background(), RefineInput{Instruction: "x"})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
	assert.Equal(t, StateIdle, ctrl.State())
}

func TestController_Fork_OpensTheCopy(t *testing.T) {
	fork := &domain.Game{
		ID:          "fork-1",
		Title:       "Quiz (Remix)",
		ForkedFrom:  "game-1",
		UserID:      "user-2",
		IsSavedToDB: true,
	}
	ctrl, sess := setupController(&fakeAdapter{}, &fakeRepo{forked: fork})

	got, err := ctrl.Fork(context.Background(), "game-1", "user-2", "Grace")
	require.NoError(t, err)
	assert.Equal(t, "fork-1", got.ID)

	active := sess.ActiveGame()
	require.NotNil(t, active)
	assert.Equal(t, "fork-1", active.ID)
	assert.Equal(t, StateSaved, ctrl.State())
}

func TestController_Reset_ClearsTranscriptAndActiveGame(t *testing.T) {
	adapter := &fakeAdapter{html: "<html>H1</html>", title: "T", description: "D", refined: "<html>H2</html>"}
	ctrl, sess := setupController(adapter, &fakeRepo{})

	_, err := ctrl.Create(context.Background(), CreateInput{Prompt: "p"})
	require.NoError(t, err)
	_, err = ctrl.Refine(context.Background(), RefineInput{Instruction: "x"})
	require.NoError(t, err)
	require.NotEmpty(t, ctrl.Transcript())
	require.NotNil(t, sess.ActiveGame())

	ctrl.Reset()
	assert.Empty(t, ctrl.Transcript())
	assert.Equal(t, StateIdle, ctrl.State())
	assert.Nil(t, sess.ActiveGame(), "ending the session closes the open game")

	// The game itself stays in the working set.
	assert.Len(t, sess.Games(), 1)
}
