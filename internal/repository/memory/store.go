// Package memory is a process-local store used when no database is
// configured and in tests. Every operation runs under one mutex, which gives
// the same atomicity the Postgres repositories get from row locks.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"squadhub/internal/domain"
	"squadhub/internal/repository"
)

type Store struct {
	mu sync.Mutex

	posts       map[string]*domain.RecruitmentPost
	apps        map[string]*domain.Application // by application id
	messages    map[domain.ChannelID][]domain.ChatMessage
	seq         int64
	tournaments map[string]*domain.Tournament
}

func New() *Store {
	return &Store{
		posts:       map[string]*domain.RecruitmentPost{},
		apps:        map[string]*domain.Application{},
		messages:    map[domain.ChannelID][]domain.ChatMessage{},
		tournaments: map[string]*domain.Tournament{},
	}
}

// Repositories exposes the store through the repository interfaces
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Posts:        posts{s},
		Applications: applications{s},
		Messages:     messages{s},
		Tournaments:  tournaments{s},
	}
}

func clonePost(p *domain.RecruitmentPost) *domain.RecruitmentPost {
	out := *p
	if p.RoleTags != nil {
		out.RoleTags = append([]string(nil), p.RoleTags...)
	}
	// Rosters are replaced, never edited, so sharing the map is safe
	return &out
}

func cloneApp(a *domain.Application) *domain.Application {
	out := *a
	return &out
}

func cloneTournament(t *domain.Tournament) *domain.Tournament {
	out := *t
	out.Participants = append([]string(nil), t.Participants...)
	out.Matches = append([]domain.Match(nil), t.Matches...)
	return &out
}

// team returns the stored team posting; caller holds s.mu
func (s *Store) team(id string) (*domain.RecruitmentPost, error) {
	p, ok := s.posts[id]
	if !ok || !p.IsTeam() {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// actorHolds reports whether actorID still has role on the team. An empty
// actorID is not checked.
func actorHolds(team *domain.RecruitmentPost, actorID string, role domain.Role) bool {
	if actorID == "" {
		return true
	}
	current, ok := team.Members.RoleOf(actorID)
	return ok && current == role
}

// appendLocked assigns the next sequence number; caller holds s.mu
func (s *Store) appendLocked(msg *domain.ChatMessage) {
	s.seq++
	msg.Seq = s.seq
	s.messages[msg.ChannelID] = append(s.messages[msg.ChannelID], *msg)
}

// announceLocked bumps last_active and appends the system message
func (s *Store) announceLocked(p *domain.RecruitmentPost, msg domain.ChatMessage, at time.Time) {
	p.LastActive = at
	msg.CreatedAt = at
	s.appendLocked(&msg)
}

type posts struct{ s *Store }

func (r posts) Create(_ context.Context, post *domain.RecruitmentPost) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.posts[post.ID]; exists {
		return fmt.Errorf("posting %s: %w", post.ID, domain.ErrConflict)
	}
	r.s.posts[post.ID] = clonePost(post)
	return nil
}

func (r posts) GetByID(_ context.Context, id string) (*domain.RecruitmentPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePost(p), nil
}

func (r posts) List(_ context.Context, filter domain.PostFilter) ([]*domain.RecruitmentPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.RecruitmentPost
	for _, p := range r.s.posts {
		if filter.Matches(p) {
			out = append(out, clonePost(p))
		}
	}
	// map order is random; fix it before the stable sort
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	domain.SortPostings(out)
	return out, nil
}

func (r posts) ChangeRole(_ context.Context, p repository.ChangeRoleParams) (*domain.RecruitmentPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	team, err := r.s.team(p.TeamID)
	if err != nil {
		return nil, err
	}
	m, ok := team.Members.Get(p.UID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if m.Role != p.From {
		return nil, domain.ErrConflict
	}

	m.Role = p.To
	next := team.Members.With(m)
	if err := next.Validate(team.MaxMembers); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrConflict)
	}

	team.Members = next
	r.s.announceLocked(team, p.Message, p.At)
	return clonePost(team), nil
}

func (r posts) RemoveMember(_ context.Context, p repository.RemoveMemberParams) (*domain.RecruitmentPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	team, err := r.s.team(p.TeamID)
	if err != nil {
		return nil, err
	}
	if !actorHolds(team, p.ActorID, p.ActorRole) {
		return nil, domain.ErrConflict
	}
	m, ok := team.Members.Get(p.UID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if m.Role != p.ExpectedRole || m.Role == domain.RoleCaptain {
		return nil, domain.ErrConflict
	}

	team.Members = team.Members.Without(p.UID)
	for id, a := range r.s.apps {
		if a.TeamID != p.TeamID || a.ApplicantID != p.UID || !a.Status.Outstanding() {
			continue
		}
		switch p.Cascade {
		case repository.CascadeMarkKicked:
			a.Status = domain.ApplicationKicked
			a.UpdatedAt = p.At
		case repository.CascadeDelete:
			delete(r.s.apps, id)
		}
	}

	r.s.announceLocked(team, p.Message, p.At)
	return clonePost(team), nil
}

func (r posts) Disband(_ context.Context, p repository.DisbandParams) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	team, err := r.s.team(p.TeamID)
	if err != nil {
		return nil, err
	}
	if role, ok := team.Members.RoleOf(p.CaptainID); !ok || role != domain.RoleCaptain {
		return nil, domain.ErrConflict
	}

	var affected []string
	for _, a := range r.s.apps {
		if a.TeamID == p.TeamID && a.Status.Outstanding() {
			a.Status = domain.ApplicationKicked
			a.UpdatedAt = p.At
			affected = append(affected, a.ApplicantID)
		}
	}
	sort.Strings(affected)

	delete(r.s.posts, p.TeamID)
	delete(r.s.messages, domain.TeamChannel(p.TeamID))
	return affected, nil
}

type applications struct{ s *Store }

func (r applications) Create(_ context.Context, app *domain.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	team, err := r.s.team(app.TeamID)
	if err != nil {
		return err
	}
	if _, exists := r.s.apps[app.ID]; exists {
		return fmt.Errorf("application %s: %w", app.ID, domain.ErrConflict)
	}
	r.s.apps[app.ID] = cloneApp(app)
	team.LastActive = app.AppliedAt
	return nil
}

func (r applications) Get(_ context.Context, teamID, applicationID string) (*domain.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.apps[applicationID]
	if !ok || a.TeamID != teamID {
		return nil, domain.ErrNotFound
	}
	return cloneApp(a), nil
}

func (r applications) ListByTeam(_ context.Context, teamID string, status domain.ApplicationStatus) ([]*domain.Application, error) {
	return r.list(func(a *domain.Application) bool { return a.TeamID == teamID }, status), nil
}

func (r applications) ListByApplicant(_ context.Context, applicantID string, status domain.ApplicationStatus) ([]*domain.Application, error) {
	return r.list(func(a *domain.Application) bool { return a.ApplicantID == applicantID }, status), nil
}

func (r applications) list(match func(*domain.Application) bool, status domain.ApplicationStatus) []*domain.Application {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Application
	for _, a := range r.s.apps {
		if match(a) && (status == "" || a.Status == status) {
			out = append(out, cloneApp(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AppliedAt.Equal(out[j].AppliedAt) {
			return out[i].AppliedAt.Before(out[j].AppliedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r applications) CountPending(_ context.Context, teamID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, a := range r.s.apps {
		if a.TeamID == teamID && a.Status == domain.ApplicationPending {
			n++
		}
	}
	return n, nil
}

func (r applications) Accept(_ context.Context, p repository.AcceptParams) (*domain.RecruitmentPost, *domain.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	team, err := r.s.team(p.TeamID)
	if err != nil {
		return nil, nil, err
	}
	if !actorHolds(team, p.ActorID, p.ActorRole) {
		return nil, nil, domain.ErrConflict
	}
	a, ok := r.s.apps[p.ApplicationID]
	if !ok || a.TeamID != p.TeamID {
		return nil, nil, domain.ErrNotFound
	}
	if a.Status != domain.ApplicationPending {
		return nil, nil, domain.ErrConflict
	}
	if _, member := team.Members.Get(p.Member.UID); member {
		return nil, nil, domain.ErrConflict
	}
	if len(team.Members) >= team.MaxMembers {
		return nil, nil, domain.ErrRosterFull
	}

	team.Members = team.Members.With(p.Member)
	a.Status = domain.ApplicationAccepted
	a.UpdatedAt = p.At
	r.s.announceLocked(team, p.Message, p.At)
	return clonePost(team), cloneApp(a), nil
}

func (r applications) Reject(_ context.Context, teamID, applicationID string, at time.Time) (*domain.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.apps[applicationID]
	if !ok || a.TeamID != teamID {
		return nil, domain.ErrNotFound
	}
	if a.Status != domain.ApplicationPending {
		return nil, domain.ErrConflict
	}
	a.Status = domain.ApplicationRejected
	a.UpdatedAt = at
	return cloneApp(a), nil
}

func (r applications) Delete(_ context.Context, teamID, applicationID string, status domain.ApplicationStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.apps[applicationID]
	if !ok || a.TeamID != teamID {
		return domain.ErrNotFound
	}
	if a.Status != status {
		return domain.ErrConflict
	}
	delete(r.s.apps, applicationID)
	return nil
}

type messages struct{ s *Store }

func (r messages) Append(_ context.Context, msg *domain.ChatMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if teamID, ok := msg.ChannelID.TeamID(); ok {
		team, err := r.s.team(teamID)
		if err != nil {
			return err
		}
		team.LastActive = msg.CreatedAt
	}
	r.s.appendLocked(msg)
	return nil
}

func (r messages) ListRecent(_ context.Context, channel domain.ChannelID, limit int) ([]domain.ChatMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	log := r.s.messages[channel]
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}
	return append([]domain.ChatMessage(nil), log...), nil
}

type tournaments struct{ s *Store }

func (r tournaments) Create(_ context.Context, t *domain.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.tournaments[t.ID]; exists {
		return fmt.Errorf("tournament %s: %w", t.ID, domain.ErrConflict)
	}
	r.s.tournaments[t.ID] = cloneTournament(t)
	return nil
}

func (r tournaments) Get(_ context.Context, id string) (*domain.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTournament(t), nil
}

func (r tournaments) List(_ context.Context) ([]*domain.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.Tournament, 0, len(r.s.tournaments))
	for _, t := range r.s.tournaments {
		out = append(out, cloneTournament(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r tournaments) Save(_ context.Context, t *domain.Tournament, expectedVersion int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.tournaments[t.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrConflict
	}

	t.Version = expectedVersion + 1
	r.s.tournaments[t.ID] = cloneTournament(t)
	return nil
}
