// Package handler implements the control API endpoints: monitor status,
// service preferences, one-shot probes, test notifications, and the
// playback failure feed.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/powellbutte/streamwatch/internal/api/respond"
	"github.com/powellbutte/streamwatch/internal/db"
	"github.com/powellbutte/streamwatch/internal/kvstore"
	"github.com/powellbutte/streamwatch/internal/monitor"
	"github.com/powellbutte/streamwatch/internal/notify"
	"github.com/powellbutte/streamwatch/internal/oracle"
	"github.com/powellbutte/streamwatch/internal/planner"
	"github.com/powellbutte/streamwatch/internal/playback"
	"github.com/powellbutte/streamwatch/internal/schedule"
)

// Handler holds dependencies for all API handlers.
type Handler struct {
	store   kvstore.Store
	pool    *db.Pool // nil when running on the in-memory store
	monitor *monitor.Monitor
	planner *planner.Planner
	machine *playback.Machine
	oracle  *oracle.Client
	deduper *notify.Deduper
	emitter notify.Emitter
	rules   []schedule.Rule
	logger  *slog.Logger
}

// New creates the handler set.
func New(store kvstore.Store, pool *db.Pool, mon *monitor.Monitor, plan *planner.Planner, machine *playback.Machine, oc *oracle.Client, deduper *notify.Deduper, emitter notify.Emitter, rules []schedule.Rule, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:   store,
		pool:    pool,
		monitor: mon,
		planner: plan,
		machine: machine,
		oracle:  oc,
		deduper: deduper,
		emitter: emitter,
		rules:   rules,
		logger:  logger,
	}
}

// Root describes the service.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service": "streamwatch",
		"endpoints": []string{
			"/health",
			"/health/db",
			"/api/v1/status",
			"/api/v1/services",
			"/api/v1/preferences",
			"/api/v1/reminders",
			"/api/v1/probe",
			"/api/v1/monitor/wake",
			"/api/v1/notifications/test",
			"/api/v1/playback",
		},
	})
}

// HealthCheck reports process liveness.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthCheckDB reports database reachability. A memory-backed deployment
// reports "disabled" rather than failing.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	if err := h.pool.HealthCheck(r.Context()); err != nil {
		respond.WriteErrorDetail(w, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unreachable", err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetServices lists the registered recurring services.
func (h *Handler) GetServices(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"services": h.rules})
}
