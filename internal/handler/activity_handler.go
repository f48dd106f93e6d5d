package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"squadhub/internal/service"
	"squadhub/internal/session"
	apperrors "squadhub/pkg/errors"
	"squadhub/pkg/logger"
)

// ActivityHandler serves freshness indicators to clients that poll instead of
// holding a socket. The opened marker belongs to the client, so it is passed
// in on every request.
type ActivityHandler struct {
	activity service.ActivityTracker
	log      *logger.Logger
}

func NewActivityHandler(activity service.ActivityTracker, log *logger.Logger) *ActivityHandler {
	return &ActivityHandler{activity: activity, log: log}
}

// Team handles GET /api/teams/{teamID}/activity?last_opened=RFC3339
func (h *ActivityHandler) Team(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	teamID := chi.URLParam(r, "teamID")

	sess := session.New(actor)
	defer sess.Close()
	if raw := r.URL.Query().Get("last_opened"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, r, h.log, apperrors.NewValidationError("last_opened must be an RFC3339 timestamp", nil))
			return
		}
		sess.MarkOpened(teamID, at.UTC())
	}

	ind, err := h.activity.Indicators(r.Context(), sess, teamID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, ind)
}

// Mine handles GET /api/me/activity
func (h *ActivityHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	sess := session.New(actor)
	defer sess.Close()
	summary, err := h.activity.Summary(r.Context(), sess)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
