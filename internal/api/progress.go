package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/trellislearn/trellis-server/internal/domain"
	"github.com/trellislearn/trellis-server/internal/identity"
	"github.com/trellislearn/trellis-server/internal/store"
)

// ProgressHandler handles progress and profile endpoints.
type ProgressHandler struct {
	*Handler
	leaderboardLimit int
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(base *Handler, leaderboardLimit int) *ProgressHandler {
	return &ProgressHandler{Handler: base, leaderboardLimit: leaderboardLimit}
}

// RegisterRoutes registers progress routes.
func (h *ProgressHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.Me)
		r.Patch("/progress", h.UpdateProgress)
		r.Put("/settings", h.UpdateSettings)
		r.Get("/leaderboard", h.Leaderboard)
		r.Get("/users/count", h.UserCount)
	})
}

// Me returns the user's snapshot after settling any drift: daily
// rollover, title migration, journey repair and cursor sync all happen
// before the response is built.
func (h *ProgressHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	snap, err := h.eng.FetchAndReconcile(r.Context(), userID)
	if err != nil {
		writeEngineError(w, userID, err)
		return
	}

	JSON(w, http.StatusOK, snap)
}

// UpdateProgress applies a progress delta and returns the reconciled
// snapshot.
func (h *ProgressHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var delta domain.Delta
	if err := json.NewDecoder(r.Body).Decode(&delta); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.eng.ApplyDelta(r.Context(), userID, delta)
	if err != nil {
		writeEngineError(w, userID, err)
		return
	}

	JSON(w, http.StatusOK, snap)
}

// settingsRequest is the settings write payload. Pointer fields so an
// absent field is distinguishable from an explicit empty value.
type settingsRequest struct {
	Username      *string `json:"username,omitempty"`
	SelectedTitle *string `json:"selectedTitle,omitempty"`
}

// UpdateSettings updates profile fields. A legacy selectedTitle value is
// canonicalized before it is stored.
func (h *ProgressHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.eng.UpdateProfile(r.Context(), userID, req.Username, req.SelectedTitle)
	if err != nil {
		writeEngineError(w, userID, err)
		return
	}

	JSON(w, http.StatusOK, snap)
}

// Leaderboard returns the top users by XP.
func (h *ProgressHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.repo.Leaderboard(r.Context(), h.leaderboardLimit)
	if err != nil {
		slog.Error("Failed to query leaderboard", "error", err)
		Error(w, http.StatusInternalServerError, "server_error")
		return
	}
	if entries == nil {
		entries = []store.LeaderboardEntry{}
	}
	JSON(w, http.StatusOK, entries)
}

// UserCount returns the total number of users.
func (h *ProgressHandler) UserCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.repo.CountUsers(r.Context())
	if err != nil {
		slog.Error("Failed to count users", "error", err)
		Error(w, http.StatusInternalServerError, "server_error")
		return
	}
	JSON(w, http.StatusOK, map[string]int64{"count": count})
}

// writeEngineError maps engine/store errors onto HTTP statuses. Store
// failures are reported as retryable server errors; no partial snapshot
// is ever returned.
func writeEngineError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		Error(w, http.StatusNotFound, "user not found")
	case errors.Is(err, domain.ErrInvalidDelta):
		Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Reconciliation failed", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "server_error")
	}
}
