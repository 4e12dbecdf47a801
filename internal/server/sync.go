package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/shared"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/tasks"
)

// SyncHandler exposes the sync engine over HTTP.
type SyncHandler struct {
	engine tasks.SyncEngine
}

// NewSyncHandler creates a handler backed by the given engine.
func NewSyncHandler(engine tasks.SyncEngine) *SyncHandler {
	return &SyncHandler{engine: engine}
}

// Routes returns the HTTP routes this handler serves.
func (h *SyncHandler) Routes() []string {
	return []string{
		"POST /api/sync",
		"POST /api/sync/cancel",
		"GET /api/sync/status",
		"GET /api/sync/history",
	}
}

// ServeHTTP dispatches to the route-specific handlers.
func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/sync":
		h.start(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/api/sync/cancel":
		h.cancel(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/api/sync/status":
		h.status(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/api/sync/history":
		h.history(w, r)
	default:
		http.NotFound(w, r)
	}
}

// start accepts a sync request body and launches a background sync.
// Responds 202 with the pending task snapshot.
func (h *SyncHandler) start(w http.ResponseWriter, r *http.Request) {
	var req tasks.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.engine.StartSync(r.Context(), nil, req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, task)
}

func (h *SyncHandler) cancel(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "task_id is required")
		return
	}

	if err := h.engine.Cancel(taskID); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID, "status": "cancelling"})
}

func (h *SyncHandler) status(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "task_id is required")
		return
	}

	task, err := h.engine.Status(taskID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *SyncHandler) history(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	history, err := h.engine.History(userID, limit)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "tasks": history})
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
