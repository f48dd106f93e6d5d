package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"squadhub/internal/domain"
	"squadhub/internal/feed"
	"squadhub/internal/repository"
	"squadhub/internal/session"
	apperrors "squadhub/pkg/errors"
	"squadhub/pkg/redis"
)

func setupCache(t *testing.T) (*miniredis.Miniredis, *redis.Client, *CacheService) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client, NewCacheService(client, zap.NewNop())
}

func TestSend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	team := f.team(t, alice, "Alpha", 5)
	channel := domain.TeamChannel(team.ID)

	tests := []struct {
		name     string
		actor    domain.Identity
		text     string
		wantType apperrors.ErrorType
	}{
		{"empty", alice, "   ", apperrors.ErrorTypeValidation},
		{"too long", alice, strings.Repeat("é", maxMessageLength+1), apperrors.ErrorTypeValidation},
		{"outsider", bob, "hello", apperrors.ErrorTypePermission},
		{"longest allowed", alice, strings.Repeat("é", maxMessageLength), ""},
		{"member", alice, "  gg  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := f.chat.Send(ctx, tt.actor, channel, &domain.SendMessageRequest{Text: tt.text})
			if tt.wantType != "" {
				assertAppError(t, err, tt.wantType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.text), msg.Text)
			assert.Equal(t, alice.ID, msg.SenderID)
			assert.Equal(t, "A", msg.SenderName)
			assert.False(t, msg.IsSystem)
			assert.NotZero(t, msg.Seq)
		})
	}

	_, err := f.chat.Send(ctx, alice, domain.TeamChannel("missing"), &domain.SendMessageRequest{Text: "hi"})
	assertAppError(t, err, apperrors.ErrorTypeNotFound)
	_, err = f.chat.Send(ctx, alice, "lobby", &domain.SendMessageRequest{Text: "hi"})
	assertAppError(t, err, apperrors.ErrorTypeValidation)
}

func TestSend_BumpsTeamActivity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	team := f.team(t, alice, "Alpha", 5)

	_, err := f.chat.Send(ctx, alice, domain.TeamChannel(team.ID), &domain.SendMessageRequest{Text: "hi"})
	require.NoError(t, err)

	post, err := f.recruitment.GetPosting(ctx, team.ID)
	require.NoError(t, err)
	assert.True(t, post.LastActive.After(team.LastActive))
}

func TestHistory_Window(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	team := f.team(t, alice, "Alpha", 5)
	channel := domain.TeamChannel(team.ID)
	for i := 1; i <= 5; i++ {
		_, err := f.chat.Send(ctx, alice, channel, &domain.SendMessageRequest{Text: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	recent, err := f.chat.History(ctx, alice, channel, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "m3", recent[0].Text)
	assert.Equal(t, "m5", recent[2].Text)
	assert.Less(t, recent[0].Seq, recent[1].Seq)

	all, err := f.chat.History(ctx, alice, channel, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, err = f.chat.History(ctx, alice, channel, -1)
	assertAppError(t, err, apperrors.ErrorTypeValidation)
	_, err = f.chat.History(ctx, bob, channel, 10)
	assertAppError(t, err, apperrors.ErrorTypePermission)
}

func TestSend_MatchChannel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	tour, err := f.tournaments.Create(ctx, admin, &domain.CreateTournamentRequest{
		Name: "Cup", Format: "single_elimination", Participants: []string{"Alpha", "Bravo"},
	})
	require.NoError(t, err)

	msg, err := f.chat.Send(ctx, dave, domain.MatchChannel(tour.ID, "r1-m1"), &domain.SendMessageRequest{Text: "glhf"})
	require.NoError(t, err)
	assert.Equal(t, "glhf", msg.Text)

	_, err = f.chat.Send(ctx, dave, domain.MatchChannel(tour.ID, "r9-m9"), &domain.SendMessageRequest{Text: "glhf"})
	assertAppError(t, err, apperrors.ErrorTypeNotFound)
	_, err = f.chat.Send(ctx, dave, domain.MatchChannel("missing", "r1-m1"), &domain.SendMessageRequest{Text: "glhf"})
	assertAppError(t, err, apperrors.ErrorTypeNotFound)
}

func TestSend_Idempotency(t *testing.T) {
	ctx := context.Background()
	mr, _, cache := setupCache(t)
	f := newFixture(t, cache)
	team := f.team(t, alice, "Alpha", 5)
	channel := domain.TeamChannel(team.ID)

	_, err := f.chat.Send(ctx, alice, channel, &domain.SendMessageRequest{Text: "hi", ClientMessageID: "c1"})
	require.NoError(t, err)
	_, err = f.chat.Send(ctx, alice, channel, &domain.SendMessageRequest{Text: "hi", ClientMessageID: "c1"})
	assertAppError(t, err, apperrors.ErrorTypeConflict)
	assert.Equal(t, []string{"hi"}, f.texts(t, channel))

	_, err = f.chat.Send(ctx, alice, channel, &domain.SendMessageRequest{Text: "again", ClientMessageID: "c2"})
	require.NoError(t, err)

	mr.Close()
	_, err = f.chat.Send(ctx, alice, channel, &domain.SendMessageRequest{Text: "offline", ClientMessageID: "c2"})
	require.NoError(t, err, "redis failures must not block chat")
	assert.Equal(t, []string{"hi", "again", "offline"}, f.texts(t, channel))
}

// flakyMessages fails the first fails appends
type flakyMessages struct {
	repository.MessageRepository
	fails int
}

func (r *flakyMessages) Append(ctx context.Context, msg *domain.ChatMessage) error {
	if r.fails > 0 {
		r.fails--
		return errors.New("connection reset by peer")
	}
	return r.MessageRepository.Append(ctx, msg)
}

func TestSend_RetryAfterFailedAppend(t *testing.T) {
	ctx := context.Background()
	_, _, cache := setupCache(t)
	f := newFixture(t, cache)
	team := f.team(t, alice, "Alpha", 5)
	channel := domain.TeamChannel(team.ID)

	chat := NewChatService(f.repos.Posts, &flakyMessages{MessageRepository: f.repos.Messages, fails: 1},
		f.repos.Tournaments, cache, f.broker, zap.NewNop())
	req := &domain.SendMessageRequest{Text: "hi", ClientMessageID: "c1"}

	_, err := chat.Send(ctx, alice, channel, req)
	assertAppError(t, err, apperrors.ErrorTypeInternal)
	assert.Empty(t, f.texts(t, channel))

	_, err = chat.Send(ctx, alice, channel, req)
	require.NoError(t, err, "a failed send must not burn the client id")
	_, err = chat.Send(ctx, alice, channel, req)
	assertAppError(t, err, apperrors.ErrorTypeConflict)
	assert.Equal(t, []string{"hi"}, f.texts(t, channel))
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	team := f.team(t, alice, "Alpha", 5)
	f.join(t, alice, bob, team.ID)
	channel := domain.TeamChannel(team.ID)

	sess := session.New(bob)
	defer sess.Close()
	updates := make(chan []domain.ChatMessage, 8)
	sub, err := f.chat.Subscribe(ctx, sess, channel, 2, func(m []domain.ChatMessage) { updates <- m })
	require.NoError(t, err)

	initial := receive(t, updates)
	require.Len(t, initial, 1)
	assert.Equal(t, "B has joined the team", initial[0].Text)

	_, err = f.chat.Send(ctx, alice, channel, &domain.SendMessageRequest{Text: "welcome"})
	require.NoError(t, err)
	window := receive(t, updates)
	require.Len(t, window, 2)
	assert.Equal(t, "welcome", window[1].Text)

	_, err = f.membership.Kick(ctx, alice, team.ID, bob.ID)
	require.NoError(t, err)
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription should end once the viewer leaves the roster")
	}

	_, err = f.chat.Subscribe(ctx, session.New(carol), channel, 10, func([]domain.ChatMessage) {})
	assertAppError(t, err, apperrors.ErrorTypePermission)
	assert.Eventually(t, func() bool { return f.broker.Listeners(feed.ChatTopic(channel)) == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestSubscribe_ClosedWithSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	team := f.team(t, alice, "Alpha", 5)

	sess := session.New(alice)
	sub, err := f.chat.Subscribe(ctx, sess, domain.TeamChannel(team.ID), 10, func([]domain.ChatMessage) {})
	require.NoError(t, err)

	require.NoError(t, sess.Close())
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("closing the session should close its subscriptions")
	}

	_, err = f.chat.Subscribe(ctx, sess, domain.TeamChannel(team.ID), 10, func([]domain.ChatMessage) {})
	assertAppError(t, err, apperrors.ErrorTypeConflict)
}
