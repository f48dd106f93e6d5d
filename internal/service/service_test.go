package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squadhub/internal/domain"
	"squadhub/internal/feed"
	"squadhub/internal/repository"
	"squadhub/internal/repository/memory"
	apperrors "squadhub/pkg/errors"
)

var (
	alice = domain.Identity{ID: "a", Name: "A"}
	bob   = domain.Identity{ID: "b", Name: "B"}
	carol = domain.Identity{ID: "c", Name: "C"}
	dave  = domain.Identity{ID: "d", Name: "D"}
	admin = domain.Identity{ID: "admin", Name: "Admin"}
)

// stepClock advances one second per reading so every write is strictly
// later than the one before
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	repos  repository.Repositories
	broker *feed.LocalBroker
	clock  *stepClock

	recruitment  *RecruitmentService
	membership   *MembershipService
	applications *ApplicationService
	chat         *ChatService
	activity     *ActivityService
	tournaments  *TournamentService
}

func newFixture(t *testing.T, cache *CacheService) *fixture {
	t.Helper()

	repos := memory.New().Repositories()
	broker := feed.NewLocalBroker()
	clock := &stepClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	var n int64
	opts := []Option{
		WithClock(clock.Now),
		WithIDs(func() string { return fmt.Sprintf("id-%d", atomic.AddInt64(&n, 1)) }),
	}

	return &fixture{
		repos:        repos,
		broker:       broker,
		clock:        clock,
		recruitment:  NewRecruitmentService(repos.Posts, broker, nil, 20, opts...),
		membership:   NewMembershipService(repos.Posts, broker, nil, opts...),
		applications: NewApplicationService(repos.Posts, repos.Applications, broker, nil, opts...),
		chat:         NewChatService(repos.Posts, repos.Messages, repos.Tournaments, cache, broker, nil, opts...),
		activity:     NewActivityService(repos.Posts, repos.Applications, broker, nil, opts...),
		tournaments:  NewTournamentService(repos.Tournaments, repos.Messages, cache, broker, nil, []string{admin.ID}, opts...),
	}
}

func (f *fixture) team(t *testing.T, captain domain.Identity, name string, max int) *domain.RecruitmentPost {
	t.Helper()
	post, err := f.recruitment.CreatePosting(context.Background(), captain, &domain.CreatePostingRequest{
		Kind: "team", Game: "valorant", DisplayName: name, MaxMembers: max,
	})
	require.NoError(t, err)
	return post
}

// join applies and gets accepted by the captain
func (f *fixture) join(t *testing.T, captain, who domain.Identity, teamID string) {
	t.Helper()
	ctx := context.Background()
	app, err := f.applications.Apply(ctx, who, teamID, &domain.ApplyRequest{Rank: "gold"})
	require.NoError(t, err)
	_, err = f.applications.Accept(ctx, captain, teamID, app.ID)
	require.NoError(t, err)
}

func (f *fixture) roster(t *testing.T, teamID string) domain.Roster {
	t.Helper()
	post, err := f.repos.Posts.GetByID(context.Background(), teamID)
	require.NoError(t, err)
	require.NoError(t, post.Members.Validate(post.MaxMembers))
	return post.Members
}

func (f *fixture) texts(t *testing.T, channel domain.ChannelID) []string {
	t.Helper()
	msgs, err := f.repos.Messages.ListRecent(context.Background(), channel, 0)
	require.NoError(t, err)
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}

func assertAppError(t *testing.T, err error, want apperrors.ErrorType) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, apperrors.As(err).Type, "got %v", err)
}

func TestStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.ErrorType
	}{
		{"not found", fmt.Errorf("get: %w", domain.ErrNotFound), apperrors.ErrorTypeNotFound},
		{"conflict", domain.ErrConflict, apperrors.ErrorTypeConflict},
		{"deadline", context.DeadlineExceeded, apperrors.ErrorTypeUnavailable},
		{"canceled", fmt.Errorf("query: %w", context.Canceled), apperrors.ErrorTypeUnavailable},
		{"app error passes through", apperrors.NewPermissionError("no"), apperrors.ErrorTypePermission},
		{"other", errors.New("syntax error"), apperrors.ErrorTypeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertAppError(t, storeError(tt.err, "team"), tt.want)
		})
	}
	assert.NoError(t, storeError(nil, "team"))
}
