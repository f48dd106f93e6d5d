package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"squadhub/internal/domain"
	"squadhub/internal/service"
	"squadhub/pkg/logger"
)

// TournamentHandler serves tournament reads and admin mutations
type TournamentHandler struct {
	tournaments service.TournamentAdmin
	log         *logger.Logger
}

func NewTournamentHandler(tournaments service.TournamentAdmin, log *logger.Logger) *TournamentHandler {
	return &TournamentHandler{tournaments: tournaments, log: log}
}

type participantsRequest struct {
	Participants []string `json:"participants"`
}

// List handles GET /api/tournaments
func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.tournaments.List(r.Context())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// Get handles GET /api/tournaments/{tournamentID}
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.tournaments.Get(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// Create handles POST /api/tournaments
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req domain.CreateTournamentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	t, err := h.tournaments.Create(r.Context(), actor, &req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// UpdateParticipants handles PUT /api/tournaments/{tournamentID}/participants
func (h *TournamentHandler) UpdateParticipants(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req participantsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	h.respond(w, r)(h.tournaments.UpdateParticipants(r.Context(), actor, chi.URLParam(r, "tournamentID"), req.Participants))
}

// GenerateBracket handles POST /api/tournaments/{tournamentID}/bracket
func (h *TournamentHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	h.respond(w, r)(h.tournaments.GenerateBracket(r.Context(), actor, chi.URLParam(r, "tournamentID")))
}

// DeclareWinner handles POST /api/tournaments/{tournamentID}/matches/{matchID}/winner
func (h *TournamentHandler) DeclareWinner(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req domain.DeclareWinnerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	h.respond(w, r)(h.tournaments.DeclareWinner(r.Context(), actor,
		chi.URLParam(r, "tournamentID"), chi.URLParam(r, "matchID"), req.Winner))
}

// UpdateScores handles PUT /api/tournaments/{tournamentID}/matches/{matchID}/scores
func (h *TournamentHandler) UpdateScores(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req domain.UpdateScoresRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	h.respond(w, r)(h.tournaments.UpdateScores(r.Context(), actor,
		chi.URLParam(r, "tournamentID"), chi.URLParam(r, "matchID"), &req))
}

// ResetMatch handles POST /api/tournaments/{tournamentID}/matches/{matchID}/reset
func (h *TournamentHandler) ResetMatch(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	h.respond(w, r)(h.tournaments.ResetMatch(r.Context(), actor,
		chi.URLParam(r, "tournamentID"), chi.URLParam(r, "matchID")))
}

func (h *TournamentHandler) respond(w http.ResponseWriter, r *http.Request) func(*domain.Tournament, error) {
	return func(t *domain.Tournament, err error) {
		if err != nil {
			respondError(w, r, h.log, err)
			return
		}
		respondJSON(w, http.StatusOK, t)
	}
}
