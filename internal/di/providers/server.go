package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/playforge/playforge-server/internal/api"
	"github.com/playforge/playforge-server/internal/auth"
	"github.com/playforge/playforge-server/internal/config"
	"github.com/playforge/playforge-server/internal/logger"
	"github.com/playforge/playforge-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	apiServer *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.apiServer.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	settingsHandle := do.MustInvoke[*SettingsHandle](i)

	services := api.Services{
		Games:     do.MustInvoke[*service.GameService](i),
		Playlists: do.MustInvoke[*service.PlaylistService](i),
		Generator: do.MustInvoke[Generator](i),
		Settings:  settingsHandle.Service,
	}

	handler := api.NewServer(services, tokens, log.Logger, api.Options{
		CORSOrigins:  cfg.Server.CORSOrigins,
		CounterRPS:   cfg.Server.CounterRPS,
		CounterBurst: cfg.Server.CounterBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr, "name", cfg.Server.Name)

	return &HTTPServerHandle{Server: srv, apiServer: handler}, nil
}
