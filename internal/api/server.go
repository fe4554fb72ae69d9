// Package api assembles the HTTP control surface: middleware stack, CORS,
// rate limiting, and the route tree.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"

	"github.com/powellbutte/streamwatch/internal/api/handler"
	"github.com/powellbutte/streamwatch/internal/config"
	"github.com/powellbutte/streamwatch/internal/db"
	"github.com/powellbutte/streamwatch/internal/kvstore"
	"github.com/powellbutte/streamwatch/internal/monitor"
	"github.com/powellbutte/streamwatch/internal/notify"
	"github.com/powellbutte/streamwatch/internal/oracle"
	"github.com/powellbutte/streamwatch/internal/planner"
	"github.com/powellbutte/streamwatch/internal/playback"
)

// Deps carries the wired subsystems the router exposes.
type Deps struct {
	Store   kvstore.Store
	Pool    *db.Pool // nil when memory-backed
	Monitor *monitor.Monitor
	Planner *planner.Planner
	Machine *playback.Machine
	Oracle  *oracle.Client
	Deduper *notify.Deduper
	Emitter notify.Emitter
	Logger  *slog.Logger
}

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(deps Deps, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "Retry-After"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(deps.Store, deps.Pool, deps.Monitor, deps.Planner, deps.Machine,
		deps.Oracle, deps.Deduper, deps.Emitter, config.ServiceRegistry, deps.Logger)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Monitor
		r.Get("/status", h.GetStatus)
		r.Post("/monitor/wake", h.Wake)
		r.Post("/probe", h.ProbeNow)

		// Services and reminders
		r.Get("/services", h.GetServices)
		r.Get("/preferences", h.GetPreferences)
		r.Put("/preferences", h.PutPreferences)
		r.Get("/reminders", h.GetReminders)

		// Notifications
		r.Post("/notifications/test", h.TestNotification)

		// Playback retry machine
		r.Get("/playback", h.GetPlayback)
		r.Post("/playback/loading", h.PostPlaybackLoading)
		r.Post("/playback/failure", h.PostPlaybackFailure)
		r.Post("/playback/loaded", h.PostPlaybackLoaded)
		r.Post("/playback/retry", h.PostPlaybackRetry)
	})

	return r
}
