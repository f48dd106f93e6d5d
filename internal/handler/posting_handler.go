package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"squadhub/internal/domain"
	"squadhub/internal/service"
	"squadhub/pkg/logger"
)

// PostingHandler serves the recruitment board
type PostingHandler struct {
	registry service.RecruitmentRegistry
	log      *logger.Logger
}

func NewPostingHandler(registry service.RecruitmentRegistry, log *logger.Logger) *PostingHandler {
	return &PostingHandler{registry: registry, log: log}
}

// List handles GET /api/posts
func (h *PostingHandler) List(w http.ResponseWriter, r *http.Request) {
	viewer, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	q := r.URL.Query()
	posts, err := h.registry.ListPostings(r.Context(), viewer, domain.PostFilter{
		View:       domain.PostView(q.Get("view")),
		Membership: domain.MembershipFilter(q.Get("membership")),
		Game:       q.Get("game"),
		Search:     q.Get("search"),
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

// Create handles POST /api/posts
func (h *PostingHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := identity(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	var req domain.CreatePostingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	post, err := h.registry.CreatePosting(r.Context(), actor, &req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, post)
}

// Get handles GET /api/posts/{postID}
func (h *PostingHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.registry.GetPosting(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}
