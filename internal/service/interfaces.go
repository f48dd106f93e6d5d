package service

import (
	"context"

	"squadhub/internal/domain"
	"squadhub/internal/feed"
	"squadhub/internal/session"
)

// RecruitmentRegistry defines posting operations
type RecruitmentRegistry interface {
	// CreatePosting validates and stores a team or player posting
	CreatePosting(ctx context.Context, actor domain.Identity, req *domain.CreatePostingRequest) (*domain.RecruitmentPost, error)

	// ListPostings lists postings relative to the viewer
	ListPostings(ctx context.Context, viewer domain.Identity, filter domain.PostFilter) ([]*domain.RecruitmentPost, error)

	GetPosting(ctx context.Context, id string) (*domain.RecruitmentPost, error)
}

// MembershipManager defines roster role transitions
type MembershipManager interface {
	Promote(ctx context.Context, actor domain.Identity, teamID, uid string) (*domain.RecruitmentPost, error)
	Demote(ctx context.Context, actor domain.Identity, teamID, uid string) (*domain.RecruitmentPost, error)
	Kick(ctx context.Context, actor domain.Identity, teamID, uid string) (*domain.RecruitmentPost, error)
	Leave(ctx context.Context, actor domain.Identity, teamID string) error
	Disband(ctx context.Context, actor domain.Identity, teamID string) error
}

// ApplicationWorkflow defines the join request lifecycle
type ApplicationWorkflow interface {
	Apply(ctx context.Context, applicant domain.Identity, teamID string, req *domain.ApplyRequest) (*domain.Application, error)
	Accept(ctx context.Context, actor domain.Identity, teamID, applicationID string) (*domain.Application, error)
	Reject(ctx context.Context, actor domain.Identity, teamID, applicationID string) (*domain.Application, error)
	ListForTeam(ctx context.Context, actor domain.Identity, teamID, status string) ([]*domain.Application, error)
	ListMine(ctx context.Context, actor domain.Identity, status string) ([]*domain.Application, error)
	Withdraw(ctx context.Context, actor domain.Identity, teamID, applicationID string) error
	RemovalNotices(ctx context.Context, actor domain.Identity) ([]domain.RemovalNotice, error)
	DismissNotice(ctx context.Context, actor domain.Identity, teamID, applicationID string) error
	WatchNotices(ctx context.Context, sess *session.Session, onUpdate func([]domain.RemovalNotice)) (*feed.Subscription, error)
}

// ChatChannels defines team and match chat
type ChatChannels interface {
	Send(ctx context.Context, actor domain.Identity, channel domain.ChannelID, req *domain.SendMessageRequest) (*domain.ChatMessage, error)
	History(ctx context.Context, actor domain.Identity, channel domain.ChannelID, limit int) ([]domain.ChatMessage, error)
	Subscribe(ctx context.Context, sess *session.Session, channel domain.ChannelID, window int, onUpdate func([]domain.ChatMessage)) (*feed.Subscription, error)
}

// ActivityTracker defines freshness indicators
type ActivityTracker interface {
	Indicators(ctx context.Context, sess *session.Session, teamID string) (*domain.Indicators, error)
	MarkOpened(sess *session.Session, teamID string)
	Summary(ctx context.Context, sess *session.Session) ([]domain.Indicators, error)
	Watch(ctx context.Context, sess *session.Session, teamID string, onChange func(domain.Indicators)) (*feed.Subscription, error)
}

// TournamentAdmin defines bracket administration
type TournamentAdmin interface {
	IsAdmin(id string) bool
	Create(ctx context.Context, actor domain.Identity, req *domain.CreateTournamentRequest) (*domain.Tournament, error)
	Get(ctx context.Context, id string) (*domain.Tournament, error)
	List(ctx context.Context) ([]*domain.Tournament, error)
	UpdateParticipants(ctx context.Context, actor domain.Identity, id string, participants []string) (*domain.Tournament, error)
	GenerateBracket(ctx context.Context, actor domain.Identity, id string) (*domain.Tournament, error)
	DeclareWinner(ctx context.Context, actor domain.Identity, id, matchID, winner string) (*domain.Tournament, error)
	UpdateScores(ctx context.Context, actor domain.Identity, id, matchID string, req *domain.UpdateScoresRequest) (*domain.Tournament, error)
	ResetMatch(ctx context.Context, actor domain.Identity, id, matchID string) (*domain.Tournament, error)
	Watch(ctx context.Context, sess *session.Session, id string, onUpdate func(*domain.Tournament)) (*feed.Subscription, error)
}

// Services aggregates all service interfaces
type Services struct {
	Recruitment  RecruitmentRegistry
	Membership   MembershipManager
	Applications ApplicationWorkflow
	Chat         ChatChannels
	Activity     ActivityTracker
	Tournaments  TournamentAdmin
}

var (
	_ RecruitmentRegistry = (*RecruitmentService)(nil)
	_ MembershipManager   = (*MembershipService)(nil)
	_ ApplicationWorkflow = (*ApplicationService)(nil)
	_ ChatChannels        = (*ChatService)(nil)
	_ ActivityTracker     = (*ActivityService)(nil)
	_ TournamentAdmin     = (*TournamentService)(nil)
)
