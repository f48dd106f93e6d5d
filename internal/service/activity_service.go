package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"squadhub/internal/domain"
	"squadhub/internal/feed"
	"squadhub/internal/repository"
	"squadhub/internal/session"
)

// ActivityService derives per-viewer freshness indicators. Shared state
// (last_active, pending applications) comes from the store; the last-opened
// marker belongs to the session and is never persisted.
type ActivityService struct {
	base
	posts repository.PostRepository
	apps  repository.ApplicationRepository
}

func NewActivityService(posts repository.PostRepository, apps repository.ApplicationRepository, broker feed.Broker, logger *zap.Logger, opts ...Option) *ActivityService {
	return &ActivityService{
		base:  newBase(broker, logger, opts),
		posts: posts,
		apps:  apps,
	}
}

// Indicators computes the signals of one team for the session's viewer
func (s *ActivityService) Indicators(ctx context.Context, sess *session.Session, teamID string) (*domain.Indicators, error) {
	post, err := loadTeam(ctx, s.posts, teamID)
	if err != nil {
		return nil, err
	}
	if _, err := roleIn(post, sess.Identity); err != nil {
		return nil, err
	}
	ind, err := s.compute(ctx, sess, post)
	if err != nil {
		return nil, err
	}
	return &ind, nil
}

// MarkOpened clears the unread chat signal for this session only
func (s *ActivityService) MarkOpened(sess *session.Session, teamID string) {
	sess.MarkOpened(teamID, s.now())
}

// Summary computes indicators for every team the viewer belongs to
func (s *ActivityService) Summary(ctx context.Context, sess *session.Session) ([]domain.Indicators, error) {
	posts, err := s.posts.List(ctx, domain.PostFilter{
		View:       domain.PostViewTeams,
		Membership: domain.MembershipMine,
		ViewerID:   sess.Identity.ID,
	})
	if err != nil {
		return nil, storeError(err, "team")
	}

	out := make([]domain.Indicators, len(posts))
	g, gctx := errgroup.WithContext(ctx)
	for i, post := range posts {
		i, post := i, post
		g.Go(func() error {
			ind, err := s.compute(gctx, sess, post)
			if err != nil {
				return err
			}
			out[i] = ind
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Watch recomputes the team's indicators on every roster, chat or
// application change and whenever this session marks a team opened
func (s *ActivityService) Watch(ctx context.Context, sess *session.Session, teamID string, onChange func(domain.Indicators)) (*feed.Subscription, error) {
	topics := []string{feed.TeamTopic(teamID), feed.ApplicationsTopic(teamID)}
	changes, stop := sess.Changes()
	sub, err := s.watch(ctx, sess, topics, changes, func(ctx context.Context) error {
		ind, err := s.Indicators(ctx, sess, teamID)
		if err != nil {
			return err
		}
		onChange(*ind)
		return nil
	})
	if err != nil {
		stop()
		return nil, err
	}
	go func() {
		<-sub.Done()
		stop()
	}()
	return sub, nil
}

func (s *ActivityService) compute(ctx context.Context, sess *session.Session, post *domain.RecruitmentPost) (domain.Indicators, error) {
	pending := 0
	if role, ok := post.Members.RoleOf(sess.Identity.ID); ok && role.CanManageApplications() {
		n, err := s.apps.CountPending(ctx, post.ID)
		if err != nil {
			return domain.Indicators{}, storeError(err, "application")
		}
		pending = n
	}
	return domain.ComputeIndicators(post, sess.Identity.ID, sess.LastOpened(post.ID), pending), nil
}
