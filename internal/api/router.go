// Package api provides the HTTP surface of CarbonTrack: the server-rendered
// tracker page and the JSON API.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/carbontrack/carbontrack/internal/api/handler"
	"github.com/carbontrack/carbontrack/internal/api/middleware"
	"github.com/carbontrack/carbontrack/internal/environment"
	"github.com/carbontrack/carbontrack/internal/provider/resilience"
	"github.com/carbontrack/carbontrack/internal/session"
	"github.com/carbontrack/carbontrack/internal/web"
)

type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	Metrics   *middleware.Metrics

	SessionService *session.Service
	Fetcher        *environment.Fetcher
	Registry       *resilience.Registry
	Renderer       *web.Renderer

	// Subsystems are checked by the readiness and status endpoints.
	Subsystems []handler.Subsystem

	// RequireTLS rejects plain HTTP requests and marks cookies Secure.
	RequireTLS bool
}

// NewRouter wires the page, the JSON API and the ops endpoints.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// The request ID must exist before anything logs or traces.
	r.Use(middleware.RequestID, middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(
		middleware.Logger(cfg.Logger),
		middleware.Recovery(cfg.Logger),
		chimiddleware.RealIP,
		middleware.RequireTLS(cfg.RequireTLS),
	)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.Subsystems...)
	sessionHandler := handler.NewSessionHandler(cfg.SessionService, cfg.Logger)
	environmentHandler := handler.NewEnvironmentHandler(cfg.Fetcher, cfg.Logger)
	pageHandler := handler.NewPageHandler(handler.PageConfig{
		Sessions:     cfg.SessionService,
		Fetcher:      cfg.Fetcher,
		Renderer:     cfg.Renderer,
		Logger:       cfg.Logger,
		SecureCookie: cfg.RequireTLS,
	})

	sessionAuth := middleware.SessionAuth(cfg.SessionService.Tokens())

	sessionStartRateLimit := middleware.SessionStartLimit.ByIP()
	refreshRateLimit := middleware.RefreshLimit.ByIP()
	standardRateLimit := middleware.StandardLimit.ByIP()

	// HTML page
	r.Group(func(r chi.Router) {
		r.Use(middleware.PageSecurityHeaders)
		r.With(sessionStartRateLimit).Get("/", pageHandler.Index)
		r.With(standardRateLimit).Post("/activity", pageHandler.SubmitActivity)
		r.With(standardRateLimit).Post("/reduction", pageHandler.SubmitReduction)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireJSON)

		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.With(standardRateLimit).Get("/environment", environmentHandler.GetEnvironment)
		r.With(refreshRateLimit).Post("/environment:refresh", environmentHandler.Refresh)

		// Sessions
		r.Route("/sessions", func(r chi.Router) {
			r.With(sessionStartRateLimit).Post("/", sessionHandler.CreateSession)

			r.Route("/{sessionId}", func(r chi.Router) {
				r.Use(sessionAuth)
				r.Use(middleware.StandardLimit.BySession())
				r.Get("/", sessionHandler.GetSession)

				r.Post("/activity:toggle", sessionHandler.ToggleActivity)
				r.Put("/activity/quantities/{name}", sessionHandler.SetQuantity)
				r.Post("/footprint:calculate", sessionHandler.Calculate)

				r.Put("/reduction/trees", sessionHandler.SetTrees)
				r.Put("/reduction/earth-hours", sessionHandler.SetEarthHours)
				r.Post("/reduction/led:toggle", sessionHandler.ToggleLED)
				r.Post("/reduction:apply", sessionHandler.ApplyReduction)
			})
		})
	})

	return r
}
