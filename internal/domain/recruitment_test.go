package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func team(id, game, name string, max int, uids ...string) *RecruitmentPost {
	now := time.Now()
	roster := NewRoster(Member{UID: uids[0], JoinedAt: now})
	for _, uid := range uids[1:] {
		roster = roster.With(Member{UID: uid, Role: RoleMember, JoinedAt: now})
	}
	return &RecruitmentPost{ID: id, Kind: PostKindTeam, Game: game, DisplayName: name, MaxMembers: max, Members: roster, AuthorID: uids[0]}
}

func TestParsePostKind(t *testing.T) {
	k, err := ParsePostKind(" Team ")
	require.NoError(t, err)
	assert.Equal(t, PostKindTeam, k)

	k, err = ParsePostKind("player")
	require.NoError(t, err)
	assert.Equal(t, PostKindPlayer, k)

	_, err = ParsePostKind("guild")
	assert.Error(t, err)
}

func TestPostFilter_Normalize(t *testing.T) {
	f, err := PostFilter{Game: "  valorant "}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, PostViewTeams, f.View)
	assert.Equal(t, MembershipAll, f.Membership)
	assert.Equal(t, "valorant", f.Game)

	_, err = PostFilter{View: "guilds"}.Normalize()
	assert.Error(t, err)
	_, err = PostFilter{Membership: "theirs"}.Normalize()
	assert.Error(t, err)
}

func TestPostFilter_Matches(t *testing.T) {
	alpha := team("1", "Valorant", "Alpha Squad", 2, "a")
	full := team("2", "Valorant", "Full House", 2, "b", "c")
	lft := &RecruitmentPost{ID: "3", Kind: PostKindPlayer, Game: "Valorant", DisplayName: "Duelist LFT", AuthorID: "d"}

	tests := []struct {
		name   string
		filter PostFilter
		post   *RecruitmentPost
		want   bool
	}{
		{"teams view excludes players", PostFilter{View: PostViewTeams}, lft, false},
		{"players view includes players", PostFilter{View: PostViewPlayers}, lft, true},
		{"game is case-insensitive", PostFilter{View: PostViewTeams, Game: "valorant"}, alpha, true},
		{"game mismatch", PostFilter{View: PostViewTeams, Game: "cs2"}, alpha, false},
		{"search substring", PostFilter{View: PostViewTeams, Search: "squad"}, alpha, true},
		{"search miss", PostFilter{View: PostViewTeams, Search: "bravo"}, alpha, false},
		{"mine as member", PostFilter{View: PostViewTeams, Membership: MembershipMine, ViewerID: "c"}, full, true},
		{"mine as outsider", PostFilter{View: PostViewTeams, Membership: MembershipMine, ViewerID: "z"}, full, false},
		{"available excludes full teams", PostFilter{View: PostViewTeams, Membership: MembershipAvailable, ViewerID: "z"}, full, false},
		{"available includes open teams", PostFilter{View: PostViewTeams, Membership: MembershipAvailable, ViewerID: "z"}, alpha, true},
		{"available excludes own team", PostFilter{View: PostViewTeams, Membership: MembershipAvailable, ViewerID: "a"}, alpha, false},
		{"mine for player posting is authorship", PostFilter{View: PostViewPlayers, Membership: MembershipMine, ViewerID: "d"}, lft, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tt.filter.Normalize()
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Matches(tt.post))
		})
	}
}

func TestSortPostings(t *testing.T) {
	now := time.Now()
	old := &RecruitmentPost{ID: "old", CreatedAt: now.Add(-time.Hour)}
	recent := &RecruitmentPost{ID: "recent", CreatedAt: now}
	premium := &RecruitmentPost{ID: "premium", IsPremium: true, CreatedAt: now.Add(-2 * time.Hour)}

	posts := []*RecruitmentPost{old, recent, premium}
	SortPostings(posts)

	assert.Equal(t, []string{"premium", "recent", "old"}, []string{posts[0].ID, posts[1].ID, posts[2].ID})
}
