// Package di provides dependency injection configuration for the
// PlayForge server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/playforge/playforge-server/internal/auth"
	"github.com/playforge/playforge-server/internal/config"
	"github.com/playforge/playforge-server/internal/di/providers"
	"github.com/playforge/playforge-server/internal/logger"
	"github.com/playforge/playforge-server/internal/service"
	"github.com/playforge/playforge-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideHistory)
	do.Provide(injector, providers.ProvideSettings)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Generator layer
	do.Provide(injector, providers.ProvideGenerator)

	// Auth layer
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideGameService)
	do.Provide(injector, providers.ProvidePlaylistService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once everything is
// running. This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)

	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.HistoryHandle](injector)
	_ = do.MustInvoke[*providers.SettingsHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)

	_ = do.MustInvoke[providers.Generator](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	_ = do.MustInvoke[*service.GameService](injector)
	_ = do.MustInvoke[*service.PlaylistService](injector)

	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Rebuild the search index when it is empty but public games exist.
	providers.TriggerSearchRebuildIfNeeded(injector)

	return nil
}
