package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"squadhub/internal/domain"
	"squadhub/internal/service"
	"squadhub/pkg/logger"
)

// TeamHandler serves roster and application routes of a team
type TeamHandler struct {
	membership   service.MembershipManager
	applications service.ApplicationWorkflow
	log          *logger.Logger
}

func NewTeamHandler(membership service.MembershipManager, applications service.ApplicationWorkflow, log *logger.Logger) *TeamHandler {
	return &TeamHandler{membership: membership, applications: applications, log: log}
}

type rosterChange func(r *http.Request, actor domain.Identity, teamID, uid string) (*domain.RecruitmentPost, error)

func (h *TeamHandler) rosterRoute(change rosterChange) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := identity(r)
		if err != nil {
			respondError(w, r, h.log, err)
			return
		}
		post, err := change(r, actor, chi.URLParam(r, "teamID"), chi.URLParam(r, "uid"))
		if err != nil {
			respondError(w, r, h.log, err)
			return
		}
		respondJSON(w, http.StatusOK, post)
	}
}

// Promote handles POST /api/teams/{teamID}/members/{uid}/promote
func (h *TeamHandler) Promote(w http.ResponseWriter, r *http.Request) {
	h.rosterRoute(func(r *http.Request, actor domain.Identity, teamID, uid string) (*domain.RecruitmentPost, error) {
		return h.membership.Promote(r.Context(), actor, teamID, uid)
	})(w, r)
}

// Demote handles POST /api/teams/{teamID}/members/{uid}/demote
func (h *TeamHandler) Demote(w http.ResponseWriter, r *http.Request) {
	h.rosterRoute(func(r *http.Request, actor domain.Identity, teamID, uid string) (*domain.RecruitmentPost, error) {
		return h.membership.Demote(r.Context(), actor, teamID, uid)
	})(w, r)
}

// Kick handles DELETE /api/teams/{teamID}/members/{uid}
func (h *TeamHandler) Kick(w http.ResponseWriter, r *http.Request) {
	h.rosterRoute(func(r *http.Request, actor domain.Identity, teamID, uid string) (*domain.RecruitmentPost, error) {
		return h.membership.Kick(r.Context(), actor, teamID, uid)
	})(w, r)
}

// Leave handles POST /api/teams/{teamID}/leave
func (h *TeamHandler) Leave(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.membership.Leave(r.Context(), actor, chi.URLParam(r, "teamID")); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Disband handles DELETE /api/teams/{teamID}
func (h *TeamHandler) Disband(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.membership.Disband(r.Context(), actor, chi.URLParam(r, "teamID")); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Apply handles POST /api/teams/{teamID}/applications
func (h *TeamHandler) Apply(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req domain.ApplyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	app, err := h.applications.Apply(r.Context(), actor, chi.URLParam(r, "teamID"), &req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, app)
}

// ListApplications handles GET /api/teams/{teamID}/applications?status=
func (h *TeamHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	apps, err := h.applications.ListForTeam(r.Context(), actor, chi.URLParam(r, "teamID"), r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, apps)
}

// Accept handles POST /api/teams/{teamID}/applications/{appID}/accept
func (h *TeamHandler) Accept(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	app, err := h.applications.Accept(r.Context(), actor, chi.URLParam(r, "teamID"), chi.URLParam(r, "appID"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, app)
}

// Reject handles POST /api/teams/{teamID}/applications/{appID}/reject
func (h *TeamHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	app, err := h.applications.Reject(r.Context(), actor, chi.URLParam(r, "teamID"), chi.URLParam(r, "appID"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, app)
}

// Withdraw handles DELETE /api/teams/{teamID}/applications/{appID}
func (h *TeamHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.applications.Withdraw(r.Context(), actor, chi.URLParam(r, "teamID"), chi.URLParam(r, "appID")); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MyApplications handles GET /api/me/applications?status=
func (h *TeamHandler) MyApplications(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	apps, err := h.applications.ListMine(r.Context(), actor, r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, apps)
}

// Notices handles GET /api/me/notices
func (h *TeamHandler) Notices(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	notices, err := h.applications.RemovalNotices(r.Context(), actor)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, notices)
}

// DismissNotice handles DELETE /api/me/notices/{teamID}/{appID}
func (h *TeamHandler) DismissNotice(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.applications.DismissNotice(r.Context(), actor, chi.URLParam(r, "teamID"), chi.URLParam(r, "appID")); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
