package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"squadhub/internal/domain"
	"squadhub/internal/feed"
	"squadhub/internal/repository"
	apperrors "squadhub/pkg/errors"
)

// MembershipService runs the role transitions of a team roster. Guards are
// evaluated against the roster as read; the store write re-checks the target
// role, so a concurrent change surfaces as a conflict instead of a lost update.
type MembershipService struct {
	base
	posts repository.PostRepository
}

func NewMembershipService(posts repository.PostRepository, broker feed.Broker, logger *zap.Logger, opts ...Option) *MembershipService {
	return &MembershipService{
		base:  newBase(broker, logger, opts),
		posts: posts,
	}
}

// Promote makes a member vice captain. Captain only.
func (s *MembershipService) Promote(ctx context.Context, actor domain.Identity, teamID, uid string) (*domain.RecruitmentPost, error) {
	return s.changeRole(ctx, actor, teamID, uid, domain.RoleMember, domain.RoleViceCaptain, domain.PromotedText)
}

// Demote makes a vice captain a plain member. Captain only.
func (s *MembershipService) Demote(ctx context.Context, actor domain.Identity, teamID, uid string) (*domain.RecruitmentPost, error) {
	return s.changeRole(ctx, actor, teamID, uid, domain.RoleViceCaptain, domain.RoleMember, domain.DemotedText)
}

func (s *MembershipService) changeRole(ctx context.Context, actor domain.Identity, teamID, uid string, from, to domain.Role, text func(string) string) (*domain.RecruitmentPost, error) {
	post, err := loadTeam(ctx, s.posts, teamID)
	if err != nil {
		return nil, err
	}
	actorRole, err := roleIn(post, actor)
	if err != nil {
		return nil, err
	}
	if actorRole != domain.RoleCaptain {
		return nil, apperrors.NewPermissionError("only the captain can change roles")
	}

	target, ok := post.Members.Get(uid)
	if !ok {
		return nil, apperrors.NewNotFoundError("member not found")
	}
	if target.Role != from {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("%s is %s, expected %s", target.Name, target.Role.Title(), from.Title()), nil)
	}

	updated, err := s.posts.ChangeRole(ctx, repository.ChangeRoleParams{
		TeamID:  teamID,
		UID:     uid,
		From:    from,
		To:      to,
		Message: domain.SystemMessage(s.newID(), domain.TeamChannel(teamID), text(target.Name)),
		At:      s.now(),
	})
	if err != nil {
		return nil, storeError(err, "member")
	}

	s.logger.Info("Member role changed",
		zap.String("team_id", teamID),
		zap.String("uid", uid),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.ID))
	s.publish(ctx, teamEvents(teamID, feed.KindTeamUpdated,
		feed.TeamTopic(teamID), feed.ChatTopic(domain.TeamChannel(teamID)))...)
	return updated, nil
}

// Kick removes uid from the roster. Captains may remove anyone but
// themselves; vice captains may remove plain members only. The removed
// member's outstanding applications become removal notices.
func (s *MembershipService) Kick(ctx context.Context, actor domain.Identity, teamID, uid string) (*domain.RecruitmentPost, error) {
	post, err := loadTeam(ctx, s.posts, teamID)
	if err != nil {
		return nil, err
	}
	actorRole, err := roleIn(post, actor)
	if err != nil {
		return nil, err
	}

	target, ok := post.Members.Get(uid)
	if !ok {
		return nil, apperrors.NewNotFoundError("member not found")
	}
	if !actorRole.CanKick(target.Role) {
		return nil, apperrors.NewPermissionError(
			fmt.Sprintf("a %s cannot remove a %s", actorRole.Title(), target.Role.Title()))
	}

	updated, err := s.posts.RemoveMember(ctx, repository.RemoveMemberParams{
		TeamID:       teamID,
		UID:          uid,
		ExpectedRole: target.Role,
		ActorID:      actor.ID,
		ActorRole:    actorRole,
		Cascade:      repository.CascadeMarkKicked,
		Message:      domain.SystemMessage(s.newID(), domain.TeamChannel(teamID), domain.RemovedText(target.Name)),
		At:           s.now(),
	})
	if err != nil {
		return nil, storeError(err, "member")
	}

	s.logger.Info("Member removed",
		zap.String("team_id", teamID),
		zap.String("uid", uid),
		zap.String("actor_id", actor.ID))
	events := teamEvents(teamID, feed.KindTeamUpdated,
		feed.TeamTopic(teamID), feed.ApplicationsTopic(teamID), feed.ChatTopic(domain.TeamChannel(teamID)))
	events = append(events, feed.Event{Topic: feed.ApplicantTopic(uid), Kind: feed.KindNoticeCreated, SubjectID: teamID})
	s.publish(ctx, events...)
	return updated, nil
}

// Leave removes the actor from the roster and deletes their outstanding
// applications to the team. A captain can only disband.
func (s *MembershipService) Leave(ctx context.Context, actor domain.Identity, teamID string) error {
	post, err := loadTeam(ctx, s.posts, teamID)
	if err != nil {
		return err
	}
	role, err := roleIn(post, actor)
	if err != nil {
		return err
	}
	if !role.CanLeave() {
		return apperrors.NewPermissionError("the captain cannot leave the team; disband it instead")
	}

	self, _ := post.Members.Get(actor.ID)
	if _, err := s.posts.RemoveMember(ctx, repository.RemoveMemberParams{
		TeamID:       teamID,
		UID:          actor.ID,
		ExpectedRole: role,
		Cascade:      repository.CascadeDelete,
		Message:      domain.SystemMessage(s.newID(), domain.TeamChannel(teamID), domain.LeftText(self.Name)),
		At:           s.now(),
	}); err != nil {
		return storeError(err, "member")
	}

	s.logger.Info("Member left", zap.String("team_id", teamID), zap.String("uid", actor.ID))
	s.publish(ctx, teamEvents(teamID, feed.KindTeamUpdated,
		feed.TeamTopic(teamID), feed.ApplicationsTopic(teamID), feed.ChatTopic(domain.TeamChannel(teamID)))...)
	return nil
}

// Disband deletes the team. Every outstanding application becomes a removal
// notice for its applicant.
func (s *MembershipService) Disband(ctx context.Context, actor domain.Identity, teamID string) error {
	post, err := loadTeam(ctx, s.posts, teamID)
	if err != nil {
		return err
	}
	role, err := roleIn(post, actor)
	if err != nil {
		return err
	}
	if role != domain.RoleCaptain {
		return apperrors.NewPermissionError("only the captain can disband the team")
	}

	affected, err := s.posts.Disband(ctx, repository.DisbandParams{
		TeamID:    teamID,
		CaptainID: actor.ID,
		At:        s.now(),
	})
	if err != nil {
		return storeError(err, "team")
	}

	s.logger.Info("Team disbanded",
		zap.String("team_id", teamID),
		zap.String("actor_id", actor.ID),
		zap.Int("notices", len(affected)))

	events := teamEvents(teamID, feed.KindTeamDisbanded,
		feed.TeamTopic(teamID), feed.ApplicationsTopic(teamID), feed.ChatTopic(domain.TeamChannel(teamID)))
	seen := map[string]struct{}{}
	for _, uid := range affected {
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		events = append(events, feed.Event{Topic: feed.ApplicantTopic(uid), Kind: feed.KindNoticeCreated, SubjectID: teamID})
	}
	s.publish(ctx, events...)
	return nil
}
