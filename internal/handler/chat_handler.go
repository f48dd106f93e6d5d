package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"squadhub/internal/domain"
	"squadhub/internal/service"
	"squadhub/pkg/logger"
)

// ChatHandler serves team and match channels over plain HTTP
type ChatHandler struct {
	chat   service.ChatChannels
	window int
	log    *logger.Logger
}

// NewChatHandler creates a chat handler. window is the default history size.
func NewChatHandler(chat service.ChatChannels, window int, log *logger.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, window: window, log: log}
}

func teamChannel(r *http.Request) domain.ChannelID {
	return domain.TeamChannel(chi.URLParam(r, "teamID"))
}

func matchChannel(r *http.Request) domain.ChannelID {
	return domain.MatchChannel(chi.URLParam(r, "tournamentID"), chi.URLParam(r, "matchID"))
}

// TeamHistory handles GET /api/teams/{teamID}/messages?limit=
func (h *ChatHandler) TeamHistory(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, teamChannel(r))
}

// TeamSend handles POST /api/teams/{teamID}/messages
func (h *ChatHandler) TeamSend(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, teamChannel(r))
}

// MatchHistory handles GET /api/tournaments/{tournamentID}/matches/{matchID}/messages?limit=
func (h *ChatHandler) MatchHistory(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, matchChannel(r))
}

// MatchSend handles POST /api/tournaments/{tournamentID}/matches/{matchID}/messages
func (h *ChatHandler) MatchSend(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, matchChannel(r))
}

func (h *ChatHandler) history(w http.ResponseWriter, r *http.Request, channel domain.ChannelID) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	limit, err := intQuery(r, "limit", h.window)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	msgs, err := h.chat.History(r.Context(), actor, channel, limit)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

func (h *ChatHandler) send(w http.ResponseWriter, r *http.Request, channel domain.ChannelID) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req domain.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	msg, err := h.chat.Send(r.Context(), actor, channel, &req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}
