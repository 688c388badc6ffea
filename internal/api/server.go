// Package api provides the HTTP API server and handlers for PlayForge.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/playforge/playforge-server/internal/auth"
	"github.com/playforge/playforge-server/internal/ratelimit"
)

// Options tunes the HTTP surface.
type Options struct {
	// CORSOrigins lists allowed browser origins. Empty means "*".
	CORSOrigins []string
	// CounterRPS/CounterBurst bound unauthenticated counter endpoints
	// per client address. Zero RPS disables the limiter.
	CounterRPS   float64
	CounterBurst int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services       Services
	tokens         *auth.TokenService
	router         *chi.Mux
	api            huma.API
	logger         *slog.Logger
	counterLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(services Services, tokens *auth.TokenService, logger *slog.Logger, opts Options) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	humaConfig := huma.DefaultConfig("PlayForge API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}

	humaAPI := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	var limiter *ratelimit.KeyedRateLimiter
	if opts.CounterRPS > 0 {
		limiter = ratelimit.New(opts.CounterRPS, opts.CounterBurst)
	}

	s := &Server{
		services:       services,
		tokens:         tokens,
		router:         router,
		api:            humaAPI,
		logger:         logger,
		counterLimiter: limiter,
	}

	s.registerHealthRoutes()
	s.registerGameRoutes()
	s.registerPlaylistRoutes()
	s.registerGenerateRoutes()
	s.registerSettingsRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases server-held resources.
func (s *Server) Close() {
	if s.counterLimiter != nil {
		s.counterLimiter.Stop()
	}
}
