package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// PostKind distinguishes team postings from players looking for a team
type PostKind string

const (
	PostKindTeam   PostKind = "team"
	PostKindPlayer PostKind = "player"
)

// ParsePostKind converts a request value into a PostKind
func ParsePostKind(s string) (PostKind, error) {
	switch PostKind(strings.ToLower(strings.TrimSpace(s))) {
	case PostKindTeam:
		return PostKindTeam, nil
	case PostKindPlayer:
		return PostKindPlayer, nil
	default:
		return "", fmt.Errorf("unknown posting kind %q", s)
	}
}

// RecruitmentPost is a recruitment listing. Team postings carry a roster.
type RecruitmentPost struct {
	ID          string    `json:"id"`
	Kind        PostKind  `json:"kind"`
	Game        string    `json:"game"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	Image       string    `json:"image,omitempty"`
	ContactLink string    `json:"contact_link,omitempty"`
	IsPremium   bool      `json:"is_premium"`
	AuthorID    string    `json:"author_id"`
	CreatedAt   time.Time `json:"created_at"`
	LastActive  time.Time `json:"last_active"`

	// Team postings only
	MaxMembers int      `json:"max_members,omitempty"`
	Members    Roster   `json:"members,omitempty"`
	RoleTags   []string `json:"role_tags,omitempty"`
}

// IsTeam reports whether the posting is a team
func (p *RecruitmentPost) IsTeam() bool {
	return p.Kind == PostKindTeam
}

// IsFull reports whether the roster reached capacity
func (p *RecruitmentPost) IsFull() bool {
	return p.IsTeam() && len(p.Members) >= p.MaxMembers
}

// IsMine reports whether the viewer owns (player) or belongs to (team) the posting
func (p *RecruitmentPost) IsMine(viewerID string) bool {
	if p.IsTeam() {
		_, ok := p.Members[viewerID]
		return ok
	}
	return p.AuthorID == viewerID
}

// CreatePostingRequest is the input for a new posting
type CreatePostingRequest struct {
	Kind        string   `json:"kind"`
	Game        string   `json:"game"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	ContactLink string   `json:"contact_link"`
	MaxMembers  int      `json:"max_members"`
	RoleTags    []string `json:"role_tags"`
}

// PostView selects which kind of posting is listed
type PostView string

const (
	PostViewTeams   PostView = "teams"
	PostViewPlayers PostView = "players"
)

// Kind maps the view to the posting kind it lists
func (v PostView) Kind() PostKind {
	if v == PostViewPlayers {
		return PostKindPlayer
	}
	return PostKindTeam
}

// MembershipFilter narrows listings relative to the viewer
type MembershipFilter string

const (
	MembershipAll       MembershipFilter = "all"
	MembershipMine      MembershipFilter = "mine"
	MembershipAvailable MembershipFilter = "available"
)

// PostFilter selects postings for a listing
type PostFilter struct {
	View       PostView
	Membership MembershipFilter
	Game       string
	Search     string
	ViewerID   string
}

// Normalize fills defaults and rejects unknown values
func (f PostFilter) Normalize() (PostFilter, error) {
	switch f.View {
	case "":
		f.View = PostViewTeams
	case PostViewTeams, PostViewPlayers:
	default:
		return f, fmt.Errorf("unknown view %q", f.View)
	}
	switch f.Membership {
	case "":
		f.Membership = MembershipAll
	case MembershipAll, MembershipMine, MembershipAvailable:
	default:
		return f, fmt.Errorf("unknown membership filter %q", f.Membership)
	}
	f.Game = strings.TrimSpace(f.Game)
	f.Search = strings.TrimSpace(f.Search)
	return f, nil
}

// Matches evaluates the filter against a posting
func (f PostFilter) Matches(p *RecruitmentPost) bool {
	if p.Kind != f.View.Kind() {
		return false
	}
	if f.Game != "" && !strings.EqualFold(p.Game, f.Game) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(p.DisplayName), strings.ToLower(f.Search)) {
		return false
	}
	switch f.Membership {
	case MembershipMine:
		return p.IsMine(f.ViewerID)
	case MembershipAvailable:
		return !p.IsMine(f.ViewerID) && !p.IsFull()
	default:
		return true
	}
}

// SortPostings orders premium postings first, newest first within each group
func SortPostings(posts []*RecruitmentPost) {
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].IsPremium != posts[j].IsPremium {
			return posts[i].IsPremium
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
