package api

import (
	"github.com/playforge/playforge-server/internal/generator"
	"github.com/playforge/playforge-server/internal/service"
	"github.com/playforge/playforge-server/internal/settings"
)

// Services groups the business logic the API server fronts. Grouping
// keeps the NewServer signature small and lets tests swap pieces out.
type Services struct {
	Games     *service.GameService
	Playlists *service.PlaylistService
	Generator generator.Adapter
	Settings  *settings.Service
}
