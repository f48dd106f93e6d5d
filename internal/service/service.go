package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"squadhub/internal/domain"
	"squadhub/internal/feed"
	"squadhub/internal/repository"
	"squadhub/internal/session"
	"squadhub/pkg/database"
	apperrors "squadhub/pkg/errors"
)

// Option customizes the collaborators shared by every service
type Option func(*base)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithIDs replaces the id generator
func WithIDs(newID func() string) Option {
	return func(b *base) { b.newID = newID }
}

type base struct {
	feed   feed.Broker
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func newBase(broker feed.Broker, logger *zap.Logger, opts []Option) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	if broker == nil {
		broker = feed.NewLocalBroker()
	}
	b := base{
		feed:   broker,
		logger: logger,
		// Postgres keeps microseconds; truncating keeps both stores comparable
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// publish announces committed changes. Failures are logged and swallowed:
// the write already happened and watchers catch up on the next event.
func (b base) publish(ctx context.Context, events ...feed.Event) {
	ctx = context.WithoutCancel(ctx)
	at := b.now()
	for _, e := range events {
		if e.At.IsZero() {
			e.At = at
		}
		if err := b.feed.Publish(ctx, e); err != nil {
			b.logger.Warn("failed to publish change",
				zap.String("topic", e.Topic),
				zap.String("kind", string(e.Kind)),
				zap.Error(err))
		}
	}
}

// watch subscribes to topics, renders once, then renders again on every
// event or local signal until the subscription, the session or ctx ends.
// Subscribing before the first render means no change can slip between them.
// A render that reports not_found or permission ends the watch.
func (b base) watch(ctx context.Context, sess *session.Session, topics []string, local <-chan struct{}, render func(context.Context) error) (*feed.Subscription, error) {
	sub, err := b.feed.Subscribe(ctx, topics...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("live updates are unavailable", err)
	}
	if err := sess.Own(sub); err != nil {
		return nil, apperrors.NewConflictError("session is closed")
	}
	if err := render(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	renderCtx := context.WithoutCancel(ctx)
	go func() {
		defer sub.Close()
		for {
			select {
			case <-sub.Done():
				return
			case <-sess.Done():
				return
			case <-ctx.Done():
				return
			case <-sub.C():
			case <-local:
			}

			if err := render(renderCtx); err != nil {
				if apperrors.IsType(err, apperrors.ErrorTypeNotFound) || apperrors.IsType(err, apperrors.ErrorTypePermission) {
					b.logger.Debug("watch ended", zap.Strings("topics", topics), zap.Error(err))
					return
				}
				b.logger.Warn("watch render failed", zap.Strings("topics", topics), zap.Error(err))
			}
		}
	}()

	return sub, nil
}

// loadTeam returns a team posting or a not_found error
func loadTeam(ctx context.Context, posts repository.PostRepository, teamID string) (*domain.RecruitmentPost, error) {
	post, err := posts.GetByID(ctx, teamID)
	if err != nil {
		return nil, storeError(err, "team")
	}
	if !post.IsTeam() {
		return nil, apperrors.NewNotFoundError("team not found")
	}
	return post, nil
}

// roleIn authorizes purely by the role recorded in the roster
func roleIn(post *domain.RecruitmentPost, actor domain.Identity) (domain.Role, error) {
	role, ok := post.Members.RoleOf(actor.ID)
	if !ok {
		return "", apperrors.NewPermissionError("you are not a member of this team")
	}
	return role, nil
}

// storeError translates repository errors into application errors
func storeError(err error, what string) error {
	var appErr *apperrors.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, domain.ErrNotFound):
		return apperrors.NewNotFoundError(what + " not found")
	case errors.Is(err, domain.ErrConflict):
		return apperrors.NewConflictError(what + " was changed by someone else; reload and try again")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), database.IsTransient(err):
		return apperrors.NewUnavailableError("the store is temporarily unavailable", err)
	default:
		return apperrors.NewInternalError("store operation failed", err)
	}
}

func teamEvents(teamID string, kind feed.Kind, topics ...string) []feed.Event {
	events := make([]feed.Event, 0, len(topics))
	for _, t := range topics {
		events = append(events, feed.Event{Topic: t, Kind: kind, SubjectID: teamID})
	}
	return events
}
