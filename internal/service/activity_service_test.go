package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squadhub/internal/domain"
	"squadhub/internal/session"
	apperrors "squadhub/pkg/errors"
)

func TestIndicators_UnreadPerSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	team := f.team(t, alice, "Alpha", 5)
	f.join(t, alice, bob, team.ID)

	phone := session.New(bob)
	laptop := session.New(bob)
	defer phone.Close()
	defer laptop.Close()

	ind, err := f.activity.Indicators(ctx, phone, team.ID)
	require.NoError(t, err)
	assert.True(t, ind.UnreadChat, "a team never opened is unread")

	f.activity.MarkOpened(phone, team.ID)
	ind, err = f.activity.Indicators(ctx, phone, team.ID)
	require.NoError(t, err)
	assert.False(t, ind.UnreadChat)

	ind, err = f.activity.Indicators(ctx, laptop, team.ID)
	require.NoError(t, err)
	assert.True(t, ind.UnreadChat, "opened markers are per session")

	_, err = f.chat.Send(ctx, alice, domain.TeamChannel(team.ID), &domain.SendMessageRequest{Text: "scrim at 8"})
	require.NoError(t, err)
	ind, err = f.activity.Indicators(ctx, phone, team.ID)
	require.NoError(t, err)
	assert.True(t, ind.UnreadChat)
}

func TestIndicators_PendingOnlyForManagers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	team := f.team(t, alice, "Alpha", 5)
	f.join(t, alice, bob, team.ID)
	_, err := f.applications.Apply(ctx, carol, team.ID, &domain.ApplyRequest{})
	require.NoError(t, err)
	_, err = f.applications.Apply(ctx, dave, team.ID, &domain.ApplyRequest{})
	require.NoError(t, err)

	captain, err := f.activity.Indicators(ctx, session.New(alice), team.ID)
	require.NoError(t, err)
	assert.True(t, captain.PendingApplications)
	assert.Equal(t, 2, captain.PendingCount)

	member, err := f.activity.Indicators(ctx, session.New(bob), team.ID)
	require.NoError(t, err)
	assert.False(t, member.PendingApplications)
	assert.Zero(t, member.PendingCount)

	_, err = f.membership.Promote(ctx, alice, team.ID, bob.ID)
	require.NoError(t, err)
	vice, err := f.activity.Indicators(ctx, session.New(bob), team.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, vice.PendingCount)

	_, err = f.activity.Indicators(ctx, session.New(carol), team.ID)
	assertAppError(t, err, apperrors.ErrorTypePermission)
	_, err = f.activity.Indicators(ctx, session.New(carol), "missing")
	assertAppError(t, err, apperrors.ErrorTypeNotFound)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alpha := f.team(t, alice, "Alpha", 5)
	bravo := f.team(t, bob, "Bravo", 5)
	f.team(t, carol, "Charlie", 5)
	f.join(t, bob, alice, bravo.ID)

	sess := session.New(alice)
	f.activity.MarkOpened(sess, alpha.ID)

	summary, err := f.activity.Summary(ctx, sess)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	byTeam := map[string]domain.Indicators{}
	for _, ind := range summary {
		byTeam[ind.TeamID] = ind
	}
	assert.False(t, byTeam[alpha.ID].UnreadChat)
	assert.True(t, byTeam[bravo.ID].UnreadChat)
}

func TestWatchIndicators(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	team := f.team(t, alice, "Alpha", 5)

	sess := session.New(alice)
	defer sess.Close()
	updates := make(chan domain.Indicators, 8)
	_, err := f.activity.Watch(ctx, sess, team.ID, func(ind domain.Indicators) { updates <- ind })
	require.NoError(t, err)
	assert.True(t, receive(t, updates).UnreadChat)

	f.activity.MarkOpened(sess, team.ID)
	assert.False(t, receive(t, updates).UnreadChat)

	_, err = f.applications.Apply(ctx, bob, team.ID, &domain.ApplyRequest{})
	require.NoError(t, err)
	ind := receive(t, updates)
	assert.Equal(t, 1, ind.PendingCount)
	assert.True(t, ind.UnreadChat, "an application bumps team activity")
}

func TestWatchIndicators_ReleasesSessionListener(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alpha := f.team(t, alice, "Alpha", 5)
	bravo := f.team(t, alice, "Bravo", 5)

	sess := session.New(alice)
	defer sess.Close()
	closed, err := f.activity.Watch(ctx, sess, alpha.ID, func(domain.Indicators) {})
	require.NoError(t, err)
	_, err = f.activity.Watch(ctx, sess, bravo.ID, func(domain.Indicators) {})
	require.NoError(t, err)
	require.Equal(t, 2, sess.Listeners())

	require.NoError(t, closed.Close())
	assert.Eventually(t, func() bool { return sess.Listeners() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, f.membership.Disband(ctx, alice, bravo.ID))
	assert.Eventually(t, func() bool { return sess.Listeners() == 0 }, 2*time.Second, 10*time.Millisecond,
		"a watch ended by the team going away lets go of the session")

	_, err = f.activity.Watch(ctx, sess, "missing", func(domain.Indicators) {})
	assertAppError(t, err, apperrors.ErrorTypeNotFound)
	assert.Zero(t, sess.Listeners())
}
