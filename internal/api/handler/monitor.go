package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/powellbutte/streamwatch/internal/api/respond"
	"github.com/powellbutte/streamwatch/internal/notify"
	"github.com/powellbutte/streamwatch/internal/oracle"
	"github.com/powellbutte/streamwatch/internal/planner"
)

// --------------------------------------------------------------------------
// Monitor status and lifecycle
// --------------------------------------------------------------------------

// GetStatus reports the monitor state plus the last notification instants.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := h.monitor.Status(ctx)

	resp := map[string]interface{}{
		"monitor":          status,
		"oracleConfigured": h.oracle.IsConfigured(),
	}
	if last, ok := h.deduper.LastEmission(ctx, notify.ClassLiveDetected); ok {
		resp["lastLiveNotification"] = last.UTC().Format(time.RFC3339)
	}
	if last, ok := h.deduper.LastEmission(ctx, notify.ClassScheduledReminder); ok {
		resp["lastReminder"] = last.UTC().Format(time.RFC3339)
	}
	respond.WriteJSON(w, http.StatusOK, resp)
}

// Wake requests an immediate probe cycle, bypassing the interval. Used when
// the client app returns to the foreground.
func (h *Handler) Wake(w http.ResponseWriter, r *http.Request) {
	h.monitor.Wake()
	respond.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "wake requested"})
}

// ProbeNow performs one synchronous probe, ignoring windows and cooldowns.
// Diagnostic only: it never emits a notification.
func (h *Handler) ProbeNow(w http.ResponseWriter, r *http.Request) {
	if !h.oracle.IsConfigured() {
		respond.WriteError(w, http.StatusServiceUnavailable, "ORACLE_NOT_CONFIGURED", "No API key configured")
		return
	}

	status, err := h.oracle.Probe(r.Context())
	if err != nil {
		var upstream *oracle.UpstreamError
		var parse *oracle.ParseError
		switch {
		case errors.Is(err, oracle.ErrTimeout):
			respond.WriteError(w, http.StatusGatewayTimeout, "PROBE_TIMEOUT", "Probe timed out")
		case errors.As(err, &upstream):
			respond.WriteErrorDetail(w, http.StatusBadGateway, "PROBE_UPSTREAM", "Upstream API error", upstream.Error())
		case errors.As(err, &parse):
			respond.WriteErrorDetail(w, http.StatusBadGateway, "PROBE_PARSE", "Malformed upstream response", parse.Error())
		default:
			respond.WriteErrorDetail(w, http.StatusBadGateway, "PROBE_FAILED", "Probe failed", err.Error())
		}
		return
	}

	resp := map[string]interface{}{"live": status.Live}
	if status.Live {
		resp["streamId"] = status.StreamID
		resp["watchUrl"] = h.oracle.WatchURL(status.StreamID)
	}
	respond.WriteJSON(w, http.StatusOK, resp)
}

// --------------------------------------------------------------------------
// Preferences and reminders
// --------------------------------------------------------------------------

// GetPreferences returns the stored service subscription set.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := planner.LoadPreferences(r.Context(), h.store, h.rules)
	if err != nil {
		h.logger.Warn("preferences load failed, returning defaults", "error", err)
	}
	respond.WriteJSON(w, http.StatusOK, prefs)
}

// PutPreferences replaces the subscription set and re-arms reminders.
func (h *Handler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var prefs planner.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON with an 'enabled' array")
		return
	}
	if prefs.Enabled == nil {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_FIELD", "'enabled' array is required")
		return
	}

	if err := h.planner.Apply(r.Context(), prefs); err != nil {
		if errors.Is(err, planner.ErrUnknownService) {
			respond.WriteErrorDetail(w, http.StatusBadRequest, "UNKNOWN_SERVICE", "Unknown service in 'enabled'", err.Error())
			return
		}
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "APPLY_FAILED", "Failed to apply preferences", err.Error())
		return
	}

	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"preferences": prefs,
		"reminders":   h.planner.Armed(),
	})
}

// GetReminders returns the currently armed reminders.
func (h *Handler) GetReminders(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"reminders": h.planner.Armed()})
}

// --------------------------------------------------------------------------
// Test notification
// --------------------------------------------------------------------------

// TestNotification emits a test notification through the real pipeline so
// device-side delivery can be verified end to end.
func (h *Handler) TestNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now()

	if !h.deduper.ShouldEmit(ctx, notify.ClassTest, now) {
		respond.WriteError(w, http.StatusTooManyRequests, "COOLDOWN", "Test notification in cooldown")
		return
	}

	n := notify.Test()
	if err := h.emitter.Emit(ctx, n); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadGateway, "EMIT_FAILED", "Notification emission failed", err.Error())
		return
	}
	if err := h.deduper.RecordEmission(ctx, notify.ClassTest, now); err != nil {
		h.logger.Warn("failed to record test emission", "error", err)
	}

	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"sent": true, "notification": n})
}
