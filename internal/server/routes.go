package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/martyndavies/hubapi-example-langchain/internal/handler"
	"github.com/martyndavies/hubapi-example-langchain/internal/middleware"
	"github.com/martyndavies/hubapi-example-langchain/internal/security"
)

func (s *Server) setupRoutes() http.Handler {
	cfg := s.cfg

	log.Info().
		Str("model", s.deps.ModelName).
		Str("hub", cfg.HubBaseURL).
		Bool("auth_enabled", cfg.EnableAuth && len(cfg.APIKeys) > 0).
		Bool("audit_logging", cfg.EnableAudit).
		Bool("require_tools", cfg.RequireTools).
		Msg("service configuration")

	if cfg.EnableAuth && len(cfg.APIKeys) == 0 {
		log.Warn().Msg("WARNING: auth enabled but no API keys configured - API routes are unprotected")
	}

	// ─── Security ───────────────────────────────────────────────────────────────
	promptVal := security.NewPromptValidator(cfg.MaxPromptLength)
	auditLogger := security.NewAuditLogger(cfg.EnableAudit)

	// ─── Handlers ────────────────────────────────────────────────────────────────
	healthH := handler.NewHealthHandler(s.deps.Catalog, s.deps.ModelName)
	toolsH := handler.NewToolsHandler(s.deps.Catalog)
	askH := handler.NewAskHandler(s.deps.Runner, promptVal, auditLogger, cfg.Prompt, s.deps.ModelName, cfg.APIKeyHeader)

	// ─── Router ──────────────────────────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	r.Use(chiMiddleware.RealIP)

	// Public routes
	r.Get("/health", healthH.Health)
	r.Get("/", healthH.Health)

	apiMiddleware := []func(http.Handler) http.Handler{
		middleware.RateLimit(cfg.RateLimitPerMinute, cfg.APIKeyHeader),
	}
	if cfg.EnableAuth && len(cfg.APIKeys) > 0 {
		apiMiddleware = append(apiMiddleware, middleware.Auth(cfg.APIKeys, cfg.APIKeyHeader))
	}

	r.Group(func(r chi.Router) {
		for _, m := range apiMiddleware {
			r.Use(m)
		}
		r.Route(cfg.APIPrefix, func(r chi.Router) {
			r.Get("/tools", toolsH.List)
			r.Post("/ask", askH.Ask)
		})
	})

	return r
}
