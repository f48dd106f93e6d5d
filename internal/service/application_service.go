package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"squadhub/internal/domain"
	"squadhub/internal/feed"
	"squadhub/internal/repository"
	"squadhub/internal/session"
	apperrors "squadhub/pkg/errors"
)

type ApplicationService struct {
	base
	posts repository.PostRepository
	apps  repository.ApplicationRepository
}

func NewApplicationService(posts repository.PostRepository, apps repository.ApplicationRepository, broker feed.Broker, logger *zap.Logger, opts ...Option) *ApplicationService {
	return &ApplicationService{
		base:  newBase(broker, logger, opts),
		posts: posts,
		apps:  apps,
	}
}

// Apply creates a pending application. Membership and capacity are checked
// at accept time, not here.
func (s *ApplicationService) Apply(ctx context.Context, applicant domain.Identity, teamID string, req *domain.ApplyRequest) (*domain.Application, error) {
	post, err := s.posts.GetByID(ctx, teamID)
	if err != nil {
		return nil, storeError(err, "team")
	}
	if !post.IsTeam() {
		return nil, apperrors.NewValidationError("applications can only be sent to team postings", nil)
	}

	now := s.now()
	app := &domain.Application{
		ID:            s.newID(),
		TeamID:        teamID,
		ApplicantID:   applicant.ID,
		ApplicantName: applicant.DisplayName(),
		Rank:          strings.TrimSpace(req.Rank),
		Role:          strings.TrimSpace(req.Role),
		Note:          strings.TrimSpace(req.Note),
		Status:        domain.ApplicationPending,
		AppliedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, storeError(err, "team")
	}

	s.logger.Info("Application submitted",
		zap.String("team_id", teamID),
		zap.String("application_id", app.ID),
		zap.String("applicant_id", applicant.ID))
	s.publish(ctx, teamEvents(teamID, feed.KindApplicationsChanged,
		feed.TeamTopic(teamID), feed.ApplicationsTopic(teamID))...)
	return app, nil
}

// manager loads the team and checks the actor may act on its applications
func (s *ApplicationService) manager(ctx context.Context, actor domain.Identity, teamID string) (*domain.RecruitmentPost, error) {
	post, err := loadTeam(ctx, s.posts, teamID)
	if err != nil {
		return nil, err
	}
	role, err := roleIn(post, actor)
	if err != nil {
		return nil, err
	}
	if !role.CanManageApplications() {
		return nil, apperrors.NewPermissionError("only the captain or a vice captain can manage applications")
	}
	return post, nil
}

// Accept adds the applicant to the roster. The capacity check and the
// roster append are one store operation.
func (s *ApplicationService) Accept(ctx context.Context, actor domain.Identity, teamID, applicationID string) (*domain.Application, error) {
	post, err := s.manager(ctx, actor, teamID)
	if err != nil {
		return nil, err
	}

	app, err := s.apps.Get(ctx, teamID, applicationID)
	if err != nil {
		return nil, storeError(err, "application")
	}
	if app.Status != domain.ApplicationPending {
		return nil, apperrors.NewConflictError("application is already " + string(app.Status))
	}

	actorRole, _ := post.Members.RoleOf(actor.ID)
	now := s.now()
	_, accepted, err := s.apps.Accept(ctx, repository.AcceptParams{
		TeamID:        teamID,
		ApplicationID: applicationID,
		ActorID:       actor.ID,
		ActorRole:     actorRole,
		Member: domain.Member{
			UID:      app.ApplicantID,
			Name:     app.ApplicantName,
			Role:     domain.RoleMember,
			JoinedAt: now,
		},
		Message: domain.SystemMessage(s.newID(), domain.TeamChannel(teamID), domain.JoinedText(app.ApplicantName)),
		At:      now,
	})
	switch {
	case errors.Is(err, domain.ErrRosterFull):
		s.logger.Info("Accept refused, roster full",
			zap.String("team_id", teamID),
			zap.String("application_id", applicationID))
		return nil, apperrors.NewRosterFullError(teamID, post.MaxMembers)
	case errors.Is(err, domain.ErrConflict):
		return nil, apperrors.NewConflictError("application can no longer be accepted; reload and try again")
	case err != nil:
		return nil, storeError(err, "application")
	}

	s.logger.Info("Application accepted",
		zap.String("team_id", teamID),
		zap.String("application_id", applicationID),
		zap.String("actor_id", actor.ID))
	events := teamEvents(teamID, feed.KindApplicationsChanged,
		feed.TeamTopic(teamID), feed.ApplicationsTopic(teamID), feed.ChatTopic(domain.TeamChannel(teamID)))
	events = append(events, feed.Event{Topic: feed.ApplicantTopic(app.ApplicantID), Kind: feed.KindApplicationsChanged, SubjectID: applicationID})
	s.publish(ctx, events...)
	return accepted, nil
}

// Reject is terminal
func (s *ApplicationService) Reject(ctx context.Context, actor domain.Identity, teamID, applicationID string) (*domain.Application, error) {
	if _, err := s.manager(ctx, actor, teamID); err != nil {
		return nil, err
	}

	rejected, err := s.apps.Reject(ctx, teamID, applicationID, s.now())
	if errors.Is(err, domain.ErrConflict) {
		return nil, apperrors.NewConflictError("application is no longer pending")
	}
	if err != nil {
		return nil, storeError(err, "application")
	}

	s.logger.Info("Application rejected",
		zap.String("team_id", teamID),
		zap.String("application_id", applicationID),
		zap.String("actor_id", actor.ID))
	events := teamEvents(teamID, feed.KindApplicationsChanged, feed.ApplicationsTopic(teamID))
	events = append(events, feed.Event{Topic: feed.ApplicantTopic(rejected.ApplicantID), Kind: feed.KindApplicationsChanged, SubjectID: applicationID})
	s.publish(ctx, events...)
	return rejected, nil
}

// ListForTeam is visible to the captain and vice captains
func (s *ApplicationService) ListForTeam(ctx context.Context, actor domain.Identity, teamID, status string) ([]*domain.Application, error) {
	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	if _, err := s.manager(ctx, actor, teamID); err != nil {
		return nil, err
	}

	apps, err := s.apps.ListByTeam(ctx, teamID, st)
	if err != nil {
		return nil, storeError(err, "application")
	}
	return nonNilApps(apps), nil
}

// ListMine lists the actor's own applications across teams
func (s *ApplicationService) ListMine(ctx context.Context, actor domain.Identity, status string) ([]*domain.Application, error) {
	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	apps, err := s.apps.ListByApplicant(ctx, actor.ID, st)
	if err != nil {
		return nil, storeError(err, "application")
	}
	return nonNilApps(apps), nil
}

// Withdraw deletes the actor's own pending application
func (s *ApplicationService) Withdraw(ctx context.Context, actor domain.Identity, teamID, applicationID string) error {
	if err := s.deleteOwn(ctx, actor, teamID, applicationID, domain.ApplicationPending); err != nil {
		return err
	}
	s.publish(ctx, teamEvents(teamID, feed.KindApplicationsChanged,
		feed.TeamTopic(teamID), feed.ApplicationsTopic(teamID))...)
	return nil
}

// RemovalNotices lists the kicked applications the actor has not dismissed
func (s *ApplicationService) RemovalNotices(ctx context.Context, actor domain.Identity) ([]domain.RemovalNotice, error) {
	apps, err := s.apps.ListByApplicant(ctx, actor.ID, domain.ApplicationKicked)
	if err != nil {
		return nil, storeError(err, "application")
	}
	notices := make([]domain.RemovalNotice, 0, len(apps))
	for _, a := range apps {
		notices = append(notices, a.Notice())
	}
	return notices, nil
}

// DismissNotice deletes a kicked application once the client has shown it
func (s *ApplicationService) DismissNotice(ctx context.Context, actor domain.Identity, teamID, applicationID string) error {
	if err := s.deleteOwn(ctx, actor, teamID, applicationID, domain.ApplicationKicked); err != nil {
		return err
	}
	s.publish(ctx, feed.Event{Topic: feed.ApplicantTopic(actor.ID), Kind: feed.KindNoticeCreated, SubjectID: applicationID})
	return nil
}

// WatchNotices pushes the actor's removal notices on every change
func (s *ApplicationService) WatchNotices(ctx context.Context, sess *session.Session, onUpdate func([]domain.RemovalNotice)) (*feed.Subscription, error) {
	return s.watch(ctx, sess, []string{feed.ApplicantTopic(sess.Identity.ID)}, nil, func(ctx context.Context) error {
		notices, err := s.RemovalNotices(ctx, sess.Identity)
		if err != nil {
			return err
		}
		onUpdate(notices)
		return nil
	})
}

func (s *ApplicationService) deleteOwn(ctx context.Context, actor domain.Identity, teamID, applicationID string, status domain.ApplicationStatus) error {
	app, err := s.apps.Get(ctx, teamID, applicationID)
	if err != nil {
		return storeError(err, "application")
	}
	if app.ApplicantID != actor.ID {
		return apperrors.NewPermissionError("this application belongs to someone else")
	}
	if app.Status != status {
		return apperrors.NewConflictError("application is " + string(app.Status))
	}
	if err := s.apps.Delete(ctx, teamID, applicationID, status); err != nil {
		return storeError(err, "application")
	}
	return nil
}

func parseStatusFilter(status string) (domain.ApplicationStatus, error) {
	if status == "" {
		return "", nil
	}
	st, err := domain.ParseApplicationStatus(status)
	if err != nil {
		return "", apperrors.NewValidationError(err.Error(), nil)
	}
	return st, nil
}

func nonNilApps(apps []*domain.Application) []*domain.Application {
	if apps == nil {
		return []*domain.Application{}
	}
	return apps
}
