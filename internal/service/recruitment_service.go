package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"squadhub/internal/domain"
	"squadhub/internal/feed"
	"squadhub/internal/repository"
	apperrors "squadhub/pkg/errors"
)

const minTeamSize = 2

type RecruitmentService struct {
	base
	posts       repository.PostRepository
	maxTeamSize int
}

func NewRecruitmentService(posts repository.PostRepository, broker feed.Broker, logger *zap.Logger, maxTeamSize int, opts ...Option) *RecruitmentService {
	return &RecruitmentService{
		base:        newBase(broker, logger, opts),
		posts:       posts,
		maxTeamSize: maxTeamSize,
	}
}

// CreatePosting validates the kind-specific fields and stores the posting.
// Team postings start with the author as sole captain. Contact links are a
// premium feature and are dropped for other accounts.
func (s *RecruitmentService) CreatePosting(ctx context.Context, actor domain.Identity, req *domain.CreatePostingRequest) (*domain.RecruitmentPost, error) {
	details := map[string]interface{}{}

	kind, err := domain.ParsePostKind(req.Kind)
	if err != nil {
		details["kind"] = "must be team or player"
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		details["display_name"] = "required"
	}
	game := strings.TrimSpace(req.Game)
	if game == "" {
		details["game"] = "required"
	}
	if kind == domain.PostKindTeam && (req.MaxMembers < minTeamSize || req.MaxMembers > s.maxTeamSize) {
		details["max_members"] = fmt.Sprintf("must be between %d and %d", minTeamSize, s.maxTeamSize)
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid posting", details)
	}

	now := s.now()
	post := &domain.RecruitmentPost{
		ID:          s.newID(),
		Kind:        kind,
		Game:        game,
		DisplayName: displayName,
		Description: strings.TrimSpace(req.Description),
		Image:       strings.TrimSpace(req.Image),
		IsPremium:   actor.Premium,
		AuthorID:    actor.ID,
		CreatedAt:   now,
		LastActive:  now,
	}
	if actor.Premium {
		post.ContactLink = strings.TrimSpace(req.ContactLink)
	}
	if kind == domain.PostKindTeam {
		post.MaxMembers = req.MaxMembers
		post.RoleTags = cleanTags(req.RoleTags)
		post.Members = domain.NewRoster(domain.Member{
			UID:      actor.ID,
			Name:     actor.DisplayName(),
			JoinedAt: now,
		})
	}

	if err := s.posts.Create(ctx, post); err != nil {
		s.logger.Error("Failed to create posting", zap.String("author_id", actor.ID), zap.Error(err))
		return nil, storeError(err, "posting")
	}

	s.logger.Info("Posting created",
		zap.String("post_id", post.ID),
		zap.String("kind", string(post.Kind)),
		zap.String("author_id", actor.ID))
	return post, nil
}

// ListPostings applies the viewer-relative filter
func (s *RecruitmentService) ListPostings(ctx context.Context, viewer domain.Identity, filter domain.PostFilter) ([]*domain.RecruitmentPost, error) {
	filter.ViewerID = viewer.ID
	normalized, err := filter.Normalize()
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}

	posts, err := s.posts.List(ctx, normalized)
	if err != nil {
		return nil, storeError(err, "posting")
	}
	if posts == nil {
		posts = []*domain.RecruitmentPost{}
	}
	return posts, nil
}

func (s *RecruitmentService) GetPosting(ctx context.Context, id string) (*domain.RecruitmentPost, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "posting")
	}
	return post, nil
}

// cleanTags trims, drops empties and removes case-insensitive duplicates
func cleanTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
