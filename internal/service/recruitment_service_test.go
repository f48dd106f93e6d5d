package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squadhub/internal/domain"
	apperrors "squadhub/pkg/errors"
)

func TestCreatePosting_Validation(t *testing.T) {
	tests := []struct {
		name   string
		req    domain.CreatePostingRequest
		fields []string
	}{
		{"unknown kind", domain.CreatePostingRequest{Kind: "clan", Game: "g", DisplayName: "n"}, []string{"kind"}},
		{"missing name and game", domain.CreatePostingRequest{Kind: "player"}, []string{"display_name", "game"}},
		{"team too small", domain.CreatePostingRequest{Kind: "team", Game: "g", DisplayName: "n", MaxMembers: 1}, []string{"max_members"}},
		{"team too large", domain.CreatePostingRequest{Kind: "team", Game: "g", DisplayName: "n", MaxMembers: 21}, []string{"max_members"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			_, err := f.recruitment.CreatePosting(context.Background(), alice, &tt.req)
			assertAppError(t, err, apperrors.ErrorTypeValidation)
			for _, field := range tt.fields {
				assert.Contains(t, apperrors.As(err).Details, field)
			}
		})
	}
}

func TestCreatePosting_Team(t *testing.T) {
	f := newFixture(t, nil)
	post, err := f.recruitment.CreatePosting(context.Background(), alice, &domain.CreatePostingRequest{
		Kind: "team", Game: "valorant", DisplayName: "  Alpha ", MaxMembers: 5,
		ContactLink: "https://discord.gg/alpha", RoleTags: []string{"IGL", " igl ", "", "Sentinel"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Alpha", post.DisplayName)
	assert.Empty(t, post.ContactLink, "contact link needs a premium account")
	assert.False(t, post.IsPremium)
	assert.Equal(t, []string{"IGL", "Sentinel"}, post.RoleTags)
	require.Len(t, post.Members, 1)
	captain, ok := post.Members.Captain()
	require.True(t, ok)
	assert.Equal(t, alice.ID, captain.UID)
	assert.Equal(t, post.CreatedAt, post.LastActive)
}

func TestCreatePosting_PremiumPlayer(t *testing.T) {
	f := newFixture(t, nil)
	premium := domain.Identity{ID: "p", Name: "Pro", Premium: true}
	post, err := f.recruitment.CreatePosting(context.Background(), premium, &domain.CreatePostingRequest{
		Kind: "player", Game: "valorant", DisplayName: "Pro LFT", ContactLink: "https://x.gg/pro", MaxMembers: 99,
	})
	require.NoError(t, err)

	assert.True(t, post.IsPremium)
	assert.Equal(t, "https://x.gg/pro", post.ContactLink)
	assert.Zero(t, post.MaxMembers)
	assert.Nil(t, post.Members)
}

func TestListPostings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	alpha := f.team(t, alice, "Alpha", 2)
	bravo := f.team(t, bob, "Bravo", 5)
	premium := domain.Identity{ID: "p", Name: "P", Premium: true}
	charlie := f.team(t, premium, "Charlie", 5)
	f.join(t, alice, carol, alpha.ID)
	_, err := f.recruitment.CreatePosting(ctx, dave, &domain.CreatePostingRequest{Kind: "player", Game: "valorant", DisplayName: "Dave LFT"})
	require.NoError(t, err)

	ids := func(posts []*domain.RecruitmentPost) []string {
		out := make([]string, 0, len(posts))
		for _, p := range posts {
			out = append(out, p.ID)
		}
		return out
	}

	all, err := f.recruitment.ListPostings(ctx, dave, domain.PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{charlie.ID, bravo.ID, alpha.ID}, ids(all), "premium first, then newest")

	available, err := f.recruitment.ListPostings(ctx, dave, domain.PostFilter{Membership: domain.MembershipAvailable})
	require.NoError(t, err)
	assert.Equal(t, []string{charlie.ID, bravo.ID}, ids(available), "full teams are not available")

	mine, err := f.recruitment.ListPostings(ctx, carol, domain.PostFilter{Membership: domain.MembershipMine})
	require.NoError(t, err)
	assert.Equal(t, []string{alpha.ID}, ids(mine))

	search, err := f.recruitment.ListPostings(ctx, dave, domain.PostFilter{Search: "BRA"})
	require.NoError(t, err)
	assert.Equal(t, []string{bravo.ID}, ids(search))

	players, err := f.recruitment.ListPostings(ctx, alice, domain.PostFilter{View: domain.PostViewPlayers})
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, "Dave LFT", players[0].DisplayName)

	none, err := f.recruitment.ListPostings(ctx, alice, domain.PostFilter{Game: "chess"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = f.recruitment.ListPostings(ctx, alice, domain.PostFilter{View: "clans"})
	assertAppError(t, err, apperrors.ErrorTypeValidation)
}
