package handler

import (
	"encoding/json"
	"net/http"

	"github.com/powellbutte/streamwatch/internal/api/respond"
	"github.com/powellbutte/streamwatch/internal/playback"
)

// GetPlayback returns the retry machine's current snapshot.
func (h *Handler) GetPlayback(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, h.machine.Snapshot())
}

// PostPlaybackFailure records a load failure reported by the rendering
// surface and returns the resulting state.
func (h *Handler) PostPlaybackFailure(w http.ResponseWriter, r *http.Request) {
	var sig playback.FailureSignal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be a JSON failure signal")
		return
	}

	h.machine.Fail(sig)
	respond.WriteJSON(w, http.StatusAccepted, h.machine.Snapshot())
}

// PostPlaybackLoaded records a successful load, resetting the retry budget.
func (h *Handler) PostPlaybackLoaded(w http.ResponseWriter, r *http.Request) {
	h.machine.Loaded()
	respond.WriteJSON(w, http.StatusOK, h.machine.Snapshot())
}

// PostPlaybackRetry is the user-initiated retry action.
func (h *Handler) PostPlaybackRetry(w http.ResponseWriter, r *http.Request) {
	h.machine.ManualRetry()
	respond.WriteJSON(w, http.StatusOK, h.machine.Snapshot())
}

// PostPlaybackLoading records that the surface began a load.
func (h *Handler) PostPlaybackLoading(w http.ResponseWriter, r *http.Request) {
	h.machine.Loading()
	respond.WriteJSON(w, http.StatusOK, h.machine.Snapshot())
}
