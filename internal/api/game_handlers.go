package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playforge/playforge-server/internal/domain"
	"github.com/playforge/playforge-server/internal/search"
	"github.com/playforge/playforge-server/internal/service"
	"github.com/playforge/playforge-server/internal/store"
)

func (s *Server) registerGameRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "saveGame",
		Method:      http.MethodPost,
		Path:        "/api/v1/games",
		Summary:     "Save game",
		Description: "Creates or updates a game, upserting by id and owner",
		Tags:        []string{"Games"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSaveGame)

	huma.Register(s.api, huma.Operation{
		OperationID: "listOwnedGames",
		Method:      http.MethodGet,
		Path:        "/api/v1/games",
		Summary:     "List owned games",
		Description: "Returns a user's games, newest first",
		Tags:        []string{"Games"},
	}, s.handleListOwnedGames)

	huma.Register(s.api, huma.Operation{
		OperationID: "exploreGames",
		Method:      http.MethodGet,
		Path:        "/api/v1/games/explore",
		Summary:     "Explore public games",
		Description: "Pages the public catalog with conjunctive filters",
		Tags:        []string{"Games"},
	}, s.handleExploreGames)

	huma.Register(s.api, huma.Operation{
		OperationID: "spotlightGame",
		Method:      http.MethodGet,
		Path:        "/api/v1/games/spotlight",
		Summary:     "Spotlight game",
		Description: "Returns the single most-engaged public game",
		Tags:        []string{"Games"},
	}, s.handleSpotlightGame)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchGames",
		Method:      http.MethodGet,
		Path:        "/api/v1/games/search",
		Summary:     "Search public games",
		Description: "Full-text, relevance-ranked search over the public catalog",
		Tags:        []string{"Games"},
	}, s.handleSearchGames)

	huma.Register(s.api, huma.Operation{
		OperationID: "gameHistory",
		Method:      http.MethodGet,
		Path:        "/api/v1/games/history",
		Summary:     "Recently played games",
		Description: "Returns the caller's most recently played distinct games",
		Tags:        []string{"Games"},
	}, s.handleGameHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "likedGames",
		Method:      http.MethodGet,
		Path:        "/api/v1/games/liked",
		Summary:     "Liked games",
		Description: "Returns every game the caller currently likes",
		Tags:        []string{"Games"},
	}, s.handleLikedGames)

	huma.Register(s.api, huma.Operation{
		OperationID: "getGame",
		Method:      http.MethodGet,
		Path:        "/api/v1/games/{id}",
		Summary:     "Get game",
		Description: "Returns a public game, or a private game to its owner",
		Tags:        []string{"Games"},
	}, s.handleGetGame)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateGame",
		Method:      http.MethodPut,
		Path:        "/api/v1/games/{id}",
		Summary:     "Update game",
		Description: "Partial update of an owned game",
		Tags:        []string{"Games"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateGame)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteGame",
		Method:      http.MethodDelete,
		Path:        "/api/v1/games/{id}",
		Summary:     "Delete game",
		Description: "Hard delete of an owned game",
		Tags:        []string{"Games"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteGame)

	huma.Register(s.api, huma.Operation{
		OperationID: "playGame",
		Method:      http.MethodPost,
		Path:        "/api/v1/games/{id}/play",
		Summary:     "Record a play",
		Description: "Bumps the play counter; anonymous callers allowed",
		Tags:        []string{"Games"},
	}, s.handlePlayGame)

	huma.Register(s.api, huma.Operation{
		OperationID: "likeGame",
		Method:      http.MethodPost,
		Path:        "/api/v1/games/{id}/like",
		Summary:     "Toggle like",
		Tags:        []string{"Games"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLikeGame)

	huma.Register(s.api, huma.Operation{
		OperationID: "dislikeGame",
		Method:      http.MethodPost,
		Path:        "/api/v1/games/{id}/dislike",
		Summary:     "Toggle dislike",
		Tags:        []string{"Games"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDislikeGame)

	huma.Register(s.api, huma.Operation{
		OperationID: "shareGame",
		Method:      http.MethodPost,
		Path:        "/api/v1/games/{id}/share",
		Summary:     "Set visibility",
		Description: "Flips the public flag on an owned game",
		Tags:        []string{"Games"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleShareGame)

	huma.Register(s.api, huma.Operation{
		OperationID: "forkGame",
		Method:      http.MethodPost,
		Path:        "/api/v1/games/{id}/fork",
		Summary:     "Fork game",
		Description: "Copies a visible game into a new private record owned by the caller",
		Tags:        []string{"Games"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleForkGame)
}

// === DTOs ===

// GameResponse contains game data in API responses.
type GameResponse struct {
	ID          string    `json:"id" doc:"Game ID"`
	Title       string    `json:"title" doc:"Game title"`
	Description string    `json:"description" doc:"Short description"`
	Grade       int       `json:"grade" doc:"Target grade, 1-13"`
	Subject     string    `json:"subject" doc:"Educational subject"`
	HTMLContent string    `json:"htmlContent" doc:"Standalone HTML document"`
	UserID      string    `json:"userId" doc:"Owner user ID"`
	CreatorName string    `json:"creatorName,omitempty" doc:"Display name of the creator"`
	IsPublic    bool      `json:"isPublic" doc:"Whether the game is publicly listed"`
	IsSavedToDB bool      `json:"isSavedToDB" doc:"Whether the record is persisted"`
	PlayCount   int       `json:"playCount" doc:"Total recorded plays"`
	Likes       int       `json:"likes" doc:"Like count"`
	Dislikes    int       `json:"dislikes" doc:"Dislike count"`
	ForkedFrom  string    `json:"forkedFrom,omitempty" doc:"Source game ID for remixes"`
	CreatedAt   time.Time `json:"createdAt" doc:"Creation time"`
	UpdatedAt   time.Time `json:"updatedAt" doc:"Last update time"`
}

func toGameResponse(game *domain.Game) GameResponse {
	return GameResponse{
		ID:          game.ID,
		Title:       game.Title,
		Description: game.Description,
		Grade:       game.Grade,
		Subject:     string(game.Subject),
		HTMLContent: game.HTMLContent,
		UserID:      game.UserID,
		CreatorName: game.CreatorName,
		IsPublic:    game.IsPublic,
		IsSavedToDB: game.IsSavedToDB,
		PlayCount:   game.PlayCount,
		Likes:       game.Likes,
		Dislikes:    game.Dislikes,
		ForkedFrom:  game.ForkedFrom,
		CreatedAt:   game.CreatedAt,
		UpdatedAt:   game.UpdatedAt,
	}
}

func toGameResponses(games []*domain.Game) []GameResponse {
	out := make([]GameResponse, len(games))
	for i, g := range games {
		out[i] = toGameResponse(g)
	}
	return out
}

// SaveGameRequest is the request body for saving a game.
type SaveGameRequest struct {
	ID          string `json:"id,omitempty" doc:"Game ID; empty for a new record"`
	Title       string `json:"title" doc:"Game title"`
	Description string `json:"description" doc:"Short description"`
	Grade       int    `json:"grade" doc:"Target grade, 1-13"`
	Subject     string `json:"subject" doc:"Educational subject"`
	HTMLContent string `json:"htmlContent" doc:"Standalone HTML document"`
	IsPublic    bool   `json:"isPublic,omitempty" doc:"Publish to the public catalog"`
	CreatorName string `json:"creatorName,omitempty" doc:"Display name override"`
}

// SaveGameInput wraps the save request for Huma.
type SaveGameInput struct {
	Authorization string `header:"Authorization"`
	Body          SaveGameRequest
}

// GameOutput wraps a single game for Huma.
type GameOutput struct {
	Body GameResponse
}

// ListGamesInput selects whose games to list.
type ListGamesInput struct {
	Authorization string `header:"Authorization"`
	UserID        string `query:"userId" doc:"Owner user ID; ignored when a valid token is sent"`
}

// GamesResponse contains a flat list of games.
type GamesResponse struct {
	Games []GameResponse `json:"games" doc:"Games"`
}

// GamesOutput wraps a game list for Huma.
type GamesOutput struct {
	Body GamesResponse
}

// ExploreInput carries the public catalog filters.
type ExploreInput struct {
	Page    int    `query:"page" validate:"omitempty,gte=1" doc:"Page number, 1-based"`
	Limit   int    `query:"limit" validate:"omitempty,gte=1,lte=100" doc:"Page size (default 12)"`
	Subject string `query:"subject" doc:"Subject filter"`
	Grade   int    `query:"grade" validate:"omitempty,gte=1,lte=13" doc:"Grade filter"`
	Search  string `query:"search" doc:"Case-insensitive substring over title and description"`
	Sort    string `query:"sort" doc:"newest | mostLiked | mostPlayed | trending"`
}

// ExploreResponse is one page of the public catalog.
type ExploreResponse struct {
	Games       []GameResponse `json:"games" doc:"Games on this page"`
	CurrentPage int            `json:"currentPage" doc:"Page number"`
	TotalPages  int            `json:"totalPages" doc:"Total pages for the filtered set"`
	TotalGames  int            `json:"totalGames" doc:"Total games in the filtered set"`
}

// ExploreOutput wraps the explore response for Huma.
type ExploreOutput struct {
	Body ExploreResponse
}

// SpotlightResponse holds the featured game, null when none exists.
type SpotlightResponse struct {
	Game *GameResponse `json:"game" doc:"Most-engaged public game, or null"`
}

// SpotlightOutput wraps the spotlight response for Huma.
type SpotlightOutput struct {
	Body SpotlightResponse
}

// SearchGamesInput contains full-text search parameters.
type SearchGamesInput struct {
	Query    string `query:"q" validate:"required,min=1,max=200" doc:"Search query"`
	Subject  string `query:"subject" doc:"Subject filter"`
	MinGrade int    `query:"minGrade" validate:"omitempty,gte=1,lte=13" doc:"Minimum grade"`
	MaxGrade int    `query:"maxGrade" validate:"omitempty,gte=1,lte=13" doc:"Maximum grade"`
	Limit    int    `query:"limit" validate:"omitempty,gte=1,lte=100" doc:"Max results (default 20)"`
	Offset   int    `query:"offset" validate:"omitempty,gte=0" doc:"Pagination offset"`
}

// SearchHitResponse is one full-text match.
type SearchHitResponse struct {
	ID         string            `json:"id" doc:"Game ID"`
	Score      float64           `json:"score" doc:"Relevance score"`
	Title      string            `json:"title" doc:"Game title"`
	Subject    string            `json:"subject,omitempty" doc:"Educational subject"`
	Grade      int               `json:"grade,omitempty" doc:"Target grade"`
	Highlights map[string]string `json:"highlights,omitempty" doc:"Highlighted fragments"`
}

// SearchGamesResponse contains search results.
type SearchGamesResponse struct {
	Query string              `json:"query" doc:"Original query"`
	Total uint64              `json:"total" doc:"Total matches"`
	Hits  []SearchHitResponse `json:"hits" doc:"Matches"`
}

// SearchGamesOutput wraps search results for Huma.
type SearchGamesOutput struct {
	Body SearchGamesResponse
}

// HistoryInput selects the caller for the play-history listing.
type HistoryInput struct {
	Authorization string `header:"Authorization"`
	UserID        string `query:"userId" doc:"Caller user ID; ignored when a valid token is sent"`
	Limit         int    `query:"limit" validate:"omitempty,gte=1,lte=100" doc:"Max games (default 50)"`
}

// GameIDInput addresses a single game.
type GameIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Game ID"`
}

// UpdateGameRequest is the request body for a partial update.
type UpdateGameRequest struct {
	Title       *string `json:"title,omitempty" doc:"Game title"`
	Description *string `json:"description,omitempty" doc:"Short description"`
	Grade       *int    `json:"grade,omitempty" doc:"Target grade, 1-13"`
	Subject     *string `json:"subject,omitempty" doc:"Educational subject"`
	HTMLContent *string `json:"htmlContent,omitempty" doc:"Standalone HTML document"`
	IsPublic    *bool   `json:"isPublic,omitempty" doc:"Publish to the public catalog"`
	CreatorName *string `json:"creatorName,omitempty" doc:"Display name override"`
}

// UpdateGameInput wraps the update request for Huma.
type UpdateGameInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Game ID"`
	Body          UpdateGameRequest
}

// PlayGameInput addresses a play bump; identity is optional.
type PlayGameInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Game ID"`
	UserID        string `query:"userId" doc:"Caller user ID for the history entry; ignored when a valid token is sent"`
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
}

// ReactionInput addresses a like/dislike toggle.
type ReactionInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Game ID"`
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
}

// ReactionResponse is the updated record plus the caller's resulting
// reaction state.
type ReactionResponse struct {
	Game     GameResponse `json:"game" doc:"Updated game"`
	Liked    bool         `json:"liked" doc:"Whether the caller now likes the game"`
	Disliked bool         `json:"disliked" doc:"Whether the caller now dislikes the game"`
}

// ReactionOutput wraps the reaction response for Huma.
type ReactionOutput struct {
	Body ReactionResponse
}

// ShareGameRequest is the request body for a visibility change.
type ShareGameRequest struct {
	IsPublic bool `json:"isPublic" doc:"Publish to the public catalog"`
}

// ShareGameInput wraps the share request for Huma.
type ShareGameInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Game ID"`
	Body          ShareGameRequest
}

// ForkGameRequest is the request body for a fork.
type ForkGameRequest struct {
	CreatorName string `json:"creatorName,omitempty" doc:"Display name for the new copy"`
}

// ForkGameInput wraps the fork request for Huma.
type ForkGameInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Game ID"`
	Body          ForkGameRequest
}

// === Handlers ===

func (s *Server) handleSaveGame(ctx context.Context, input *SaveGameInput) (*GameOutput, error) {
	identity, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	game, err := s.services.Games.Save(ctx, identity.UserID, identity.DisplayName, service.SaveGameInput{
		ID:          input.Body.ID,
		Title:       input.Body.Title,
		Description: input.Body.Description,
		Grade:       input.Body.Grade,
		Subject:     input.Body.Subject,
		HTMLContent: input.Body.HTMLContent,
		IsPublic:    input.Body.IsPublic,
		CreatorName: input.Body.CreatorName,
	})
	if err != nil {
		return nil, err
	}

	return &GameOutput{Body: toGameResponse(game)}, nil
}

func (s *Server) handleListOwnedGames(ctx context.Context, input *ListGamesInput) (*GamesOutput, error) {
	userID := s.optionalIdentity(input.Authorization, input.UserID)
	if userID == "" {
		return nil, huma.Error401Unauthorized("A user ID or token is required")
	}

	games, err := s.services.Games.ListOwned(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &GamesOutput{Body: GamesResponse{Games: toGameResponses(games)}}, nil
}

// exploreSortOptions maps API sort names to listing orders.
var exploreSortOptions = map[string]domain.SortOption{
	"":           domain.SortNewest,
	"newest":     domain.SortNewest,
	"mostLiked":  domain.SortMostLiked,
	"mostPlayed": domain.SortPopular,
	"trending":   domain.SortTrending,
}

func (s *Server) handleExploreGames(ctx context.Context, input *ExploreInput) (*ExploreOutput, error) {
	sort, ok := exploreSortOptions[input.Sort]
	if !ok {
		sort = domain.SortNewest
	}

	result, err := s.services.Games.Explore(ctx, store.ExploreQuery{
		Grade:    input.Grade,
		Subject:  domain.Subject(input.Subject),
		Search:   input.Search,
		Sort:     sort,
		Page:     input.Page,
		PageSize: input.Limit,
	})
	if err != nil {
		return nil, err
	}

	return &ExploreOutput{Body: ExploreResponse{
		Games:       toGameResponses(result.Games),
		CurrentPage: result.CurrentPage,
		TotalPages:  result.TotalPages,
		TotalGames:  result.TotalGames,
	}}, nil
}

func (s *Server) handleSpotlightGame(ctx context.Context, _ *struct{}) (*SpotlightOutput, error) {
	game, err := s.services.Games.Spotlight(ctx)
	if err != nil {
		return nil, err
	}

	resp := SpotlightResponse{}
	if game != nil {
		r := toGameResponse(game)
		resp.Game = &r
	}
	return &SpotlightOutput{Body: resp}, nil
}

func (s *Server) handleSearchGames(ctx context.Context, input *SearchGamesInput) (*SearchGamesOutput, error) {
	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.Subject = domain.Subject(input.Subject)
	params.MinGrade = input.MinGrade
	params.MaxGrade = input.MaxGrade
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset

	result, err := s.services.Games.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHitResponse, len(result.Hits))
	for i, h := range result.Hits {
		hits[i] = SearchHitResponse{
			ID:         h.ID,
			Score:      h.Score,
			Title:      h.Title,
			Subject:    h.Subject,
			Grade:      h.Grade,
			Highlights: h.Highlights,
		}
	}

	return &SearchGamesOutput{Body: SearchGamesResponse{
		Query: result.Query,
		Total: result.Total,
		Hits:  hits,
	}}, nil
}

func (s *Server) handleGameHistory(ctx context.Context, input *HistoryInput) (*GamesOutput, error) {
	userID := s.optionalIdentity(input.Authorization, input.UserID)
	if userID == "" {
		return nil, huma.Error401Unauthorized("A user ID or token is required")
	}

	games, err := s.services.Games.History(ctx, userID, input.Limit)
	if err != nil {
		return nil, err
	}

	return &GamesOutput{Body: GamesResponse{Games: toGameResponses(games)}}, nil
}

func (s *Server) handleLikedGames(ctx context.Context, input *ListGamesInput) (*GamesOutput, error) {
	userID := s.optionalIdentity(input.Authorization, input.UserID)
	if userID == "" {
		return nil, huma.Error401Unauthorized("A user ID or token is required")
	}

	games, err := s.services.Games.LikedGames(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &GamesOutput{Body: GamesResponse{Games: toGameResponses(games)}}, nil
}

func (s *Server) handleGetGame(ctx context.Context, input *GameIDInput) (*GameOutput, error) {
	callerID := s.optionalIdentity(input.Authorization, "")

	game, err := s.services.Games.Get(ctx, input.ID, callerID)
	if err != nil {
		return nil, err
	}

	return &GameOutput{Body: toGameResponse(game)}, nil
}

func (s *Server) handleUpdateGame(ctx context.Context, input *UpdateGameInput) (*GameOutput, error) {
	identity, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	game, err := s.services.Games.Update(ctx, input.ID, identity.UserID, service.UpdateGameInput{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		Grade:       input.Body.Grade,
		Subject:     input.Body.Subject,
		HTMLContent: input.Body.HTMLContent,
		IsPublic:    input.Body.IsPublic,
		CreatorName: input.Body.CreatorName,
	})
	if err != nil {
		return nil, err
	}

	return &GameOutput{Body: toGameResponse(game)}, nil
}

// DeleteGameOutput is an empty success response.
type DeleteGameOutput struct {
	Status int
}

func (s *Server) handleDeleteGame(ctx context.Context, input *GameIDInput) (*DeleteGameOutput, error) {
	identity, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Games.Delete(ctx, input.ID, identity.UserID); err != nil {
		return nil, err
	}

	return &DeleteGameOutput{Status: http.StatusNoContent}, nil
}

func (s *Server) handlePlayGame(ctx context.Context, input *PlayGameInput) (*GameOutput, error) {
	if err := s.allowCounter(input.XForwardedFor, input.XRealIP); err != nil {
		return nil, err
	}

	callerID := s.optionalIdentity(input.Authorization, input.UserID)

	game, err := s.services.Games.Play(ctx, input.ID, callerID)
	if err != nil {
		return nil, err
	}

	return &GameOutput{Body: toGameResponse(game)}, nil
}

func (s *Server) handleLikeGame(ctx context.Context, input *ReactionInput) (*ReactionOutput, error) {
	if err := s.allowCounter(input.XForwardedFor, input.XRealIP); err != nil {
		return nil, err
	}

	identity, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	game, liked, err := s.services.Games.ToggleLike(ctx, input.ID, identity.UserID)
	if err != nil {
		return nil, err
	}

	return &ReactionOutput{Body: ReactionResponse{
		Game:     toGameResponse(game),
		Liked:    liked,
		Disliked: game.DislikedByUser(identity.UserID),
	}}, nil
}

func (s *Server) handleDislikeGame(ctx context.Context, input *ReactionInput) (*ReactionOutput, error) {
	if err := s.allowCounter(input.XForwardedFor, input.XRealIP); err != nil {
		return nil, err
	}

	identity, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	game, disliked, err := s.services.Games.ToggleDislike(ctx, input.ID, identity.UserID)
	if err != nil {
		return nil, err
	}

	return &ReactionOutput{Body: ReactionResponse{
		Game:     toGameResponse(game),
		Liked:    game.LikedByUser(identity.UserID),
		Disliked: disliked,
	}}, nil
}

func (s *Server) handleShareGame(ctx context.Context, input *ShareGameInput) (*GameOutput, error) {
	identity, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	game, err := s.services.Games.SetVisibility(ctx, input.ID, identity.UserID, input.Body.IsPublic)
	if err != nil {
		return nil, err
	}

	return &GameOutput{Body: toGameResponse(game)}, nil
}

func (s *Server) handleForkGame(ctx context.Context, input *ForkGameInput) (*GameOutput, error) {
	identity, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	creatorName := input.Body.CreatorName
	if creatorName == "" {
		creatorName = identity.DisplayName
	}

	game, err := s.services.Games.Fork(ctx, input.ID, identity.UserID, creatorName)
	if err != nil {
		return nil, err
	}

	return &GameOutput{Body: toGameResponse(game)}, nil
}
