package repository

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squadhub/internal/domain"
)

func TestListQuery(t *testing.T) {
	tests := []struct {
		name     string
		filter   domain.PostFilter
		contains []string
		absent   []string
		args     []interface{}
	}{
		{
			name:     "all teams",
			filter:   domain.PostFilter{View: domain.PostViewTeams, Membership: domain.MembershipAll},
			contains: []string{"FROM recruitment_posts p", "p.kind = $1", "ORDER BY p.is_premium DESC, p.created_at DESC"},
			absent:   []string{"EXISTS", "p.author_id =", "p.author_id <>"},
			args:     []interface{}{"team"},
		},
		{
			name: "available teams with game and search",
			filter: domain.PostFilter{
				View: domain.PostViewTeams, Membership: domain.MembershipAvailable,
				Game: "Valorant", Search: "alp", ViewerID: "u1",
			},
			contains: []string{"lower(p.game) = lower($2)", "strpos(lower(p.display_name), lower($3)) > 0", "NOT EXISTS", "< p.max_members"},
			args:     []interface{}{"team", "Valorant", "alp", "u1"},
		},
		{
			name:     "my teams",
			filter:   domain.PostFilter{View: domain.PostViewTeams, Membership: domain.MembershipMine, ViewerID: "u1"},
			contains: []string{"EXISTS (SELECT 1 FROM team_members m WHERE m.team_id = p.id AND m.uid = $2)"},
			absent:   []string{"NOT EXISTS"},
			args:     []interface{}{"team", "u1"},
		},
		{
			name:     "my player postings",
			filter:   domain.PostFilter{View: domain.PostViewPlayers, Membership: domain.MembershipMine, ViewerID: "u1"},
			contains: []string{"p.author_id = $2"},
			args:     []interface{}{"player", "u1"},
		},
		{
			name:     "available player postings",
			filter:   domain.PostFilter{View: domain.PostViewPlayers, Membership: domain.MembershipAvailable, ViewerID: "u1"},
			contains: []string{"p.author_id <> $2"},
			args:     []interface{}{"player", "u1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := listQuery(tt.filter).ToSql()
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, sql, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, sql, s)
			}
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestRowLockQueries(t *testing.T) {
	tests := []struct {
		name     string
		stmt     sq.Sqlizer
		contains []string
		absent   []string
		args     []interface{}
	}{
		{
			name:     "team lock",
			stmt:     lockTeamQuery("t1"),
			contains: []string{"SELECT max_members FROM recruitment_posts", "WHERE id = $1 AND kind = $2", "FOR UPDATE"},
			args:     []interface{}{"t1", "team"},
		},
		{
			name:     "application for update",
			stmt:     applicationQuery("t1", "a1", true),
			contains: []string{"FROM applications", "WHERE id = $1 AND team_id = $2", "FOR UPDATE"},
			args:     []interface{}{"a1", "t1"},
		},
		{
			name:     "application read",
			stmt:     applicationQuery("t1", "a1", false),
			contains: []string{"FROM applications"},
			absent:   []string{"FOR UPDATE"},
			args:     []interface{}{"a1", "t1"},
		},
		{
			name:     "member role",
			stmt:     memberRoleQuery("t1", "u1"),
			contains: []string{"SELECT role FROM team_members", "WHERE team_id = $1 AND uid = $2"},
			absent:   []string{"FOR UPDATE"},
			args:     []interface{}{"t1", "u1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.stmt.ToSql()
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, sql, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, sql, s)
			}
			assert.Equal(t, tt.args, args)
		})
	}
}
