package repository

import (
	"context"
	"time"

	"squadhub/internal/domain"
	"squadhub/pkg/database"
)

// ApplicationCascade selects what happens to a departing member's applications
type ApplicationCascade int

const (
	// CascadeMarkKicked turns outstanding applications into removal notices
	CascadeMarkKicked ApplicationCascade = iota
	// CascadeDelete removes outstanding applications
	CascadeDelete
)

// ChangeRoleParams describes a compare-and-set role change
type ChangeRoleParams struct {
	TeamID  string
	UID     string
	From    domain.Role
	To      domain.Role
	Message domain.ChatMessage
	At      time.Time
}

// RemoveMemberParams describes a conditional roster removal. ExpectedRole is
// the role the caller's guard observed for the target and ActorRole the one
// it observed for the actor; either differing from the stored role fails
// with domain.ErrConflict. An empty ActorID skips the actor check.
type RemoveMemberParams struct {
	TeamID       string
	UID          string
	ExpectedRole domain.Role
	ActorID      string
	ActorRole    domain.Role
	Cascade      ApplicationCascade
	Message      domain.ChatMessage
	At           time.Time
}

// DisbandParams deletes a team whose captain is still CaptainID
type DisbandParams struct {
	TeamID    string
	CaptainID string
	At        time.Time
}

// AcceptParams describes the atomic accept: capacity check, roster append,
// status change, system message and activity bump in one write. The actor
// must still hold ActorRole when the write runs, unless ActorID is empty.
type AcceptParams struct {
	TeamID        string
	ApplicationID string
	ActorID       string
	ActorRole     domain.Role
	Member        domain.Member
	Message       domain.ChatMessage
	At            time.Time
}

// PostRepository stores recruitment postings and team rosters
type PostRepository interface {
	// Create stores a new posting with its initial roster
	Create(ctx context.Context, post *domain.RecruitmentPost) error

	// GetByID returns domain.ErrNotFound when the posting does not exist
	GetByID(ctx context.Context, id string) (*domain.RecruitmentPost, error)

	// List returns postings matching filter, premium first then newest first
	List(ctx context.Context, filter domain.PostFilter) ([]*domain.RecruitmentPost, error)

	ChangeRole(ctx context.Context, p ChangeRoleParams) (*domain.RecruitmentPost, error)

	RemoveMember(ctx context.Context, p RemoveMemberParams) (*domain.RecruitmentPost, error)

	// Disband deletes the team and returns the applicants whose outstanding
	// applications were turned into removal notices
	Disband(ctx context.Context, p DisbandParams) ([]string, error)
}

// ApplicationRepository stores join requests
type ApplicationRepository interface {
	// Create stores a pending application and advances the team's last_active
	Create(ctx context.Context, app *domain.Application) error

	Get(ctx context.Context, teamID, applicationID string) (*domain.Application, error)

	// ListByTeam lists a team's applications; an empty status lists all
	ListByTeam(ctx context.Context, teamID string, status domain.ApplicationStatus) ([]*domain.Application, error)

	ListByApplicant(ctx context.Context, applicantID string, status domain.ApplicationStatus) ([]*domain.Application, error)

	CountPending(ctx context.Context, teamID string) (int, error)

	// Accept fails with domain.ErrRosterFull without mutating anything when
	// the roster is at capacity
	Accept(ctx context.Context, p AcceptParams) (*domain.RecruitmentPost, *domain.Application, error)

	// Reject moves a pending application to rejected
	Reject(ctx context.Context, teamID, applicationID string, at time.Time) (*domain.Application, error)

	// Delete removes an application only while it still has status
	Delete(ctx context.Context, teamID, applicationID string, status domain.ApplicationStatus) error
}

// MessageRepository is the append-only chat log
type MessageRepository interface {
	// Append assigns Seq. Messages on a team channel also advance the team's
	// last_active to CreatedAt.
	Append(ctx context.Context, msg *domain.ChatMessage) error

	// ListRecent returns the newest limit messages in ascending order; limit 0
	// returns the whole channel
	ListRecent(ctx context.Context, channel domain.ChannelID, limit int) ([]domain.ChatMessage, error)
}

// TournamentRepository stores tournaments as whole documents
type TournamentRepository interface {
	Create(ctx context.Context, t *domain.Tournament) error

	Get(ctx context.Context, id string) (*domain.Tournament, error)

	List(ctx context.Context) ([]*domain.Tournament, error)

	// Save replaces the document when its stored version equals
	// expectedVersion and bumps t.Version; otherwise domain.ErrConflict
	Save(ctx context.Context, t *domain.Tournament, expectedVersion int) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Posts        PostRepository
	Applications ApplicationRepository
	Messages     MessageRepository
	Tournaments  TournamentRepository
}

// NewPostgresRepositories wires every repository to one connection pool
func NewPostgresRepositories(db *database.PostgresDB) Repositories {
	return Repositories{
		Posts:        NewPostRepository(db),
		Applications: NewApplicationRepository(db),
		Messages:     NewMessageRepository(db),
		Tournaments:  NewTournamentRepository(db),
	}
}
