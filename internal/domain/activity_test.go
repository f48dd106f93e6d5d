package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeIndicators(t *testing.T) {
	now := time.Now()
	post := team("t", "Valorant", "Alpha", 5, "cap", "mem")
	post.Members = post.Members.With(Member{UID: "vc", Role: RoleViceCaptain, JoinedAt: now})
	post.LastActive = now

	t.Run("never opened shows unread chat", func(t *testing.T) {
		ind := ComputeIndicators(post, "mem", time.Time{}, 0)
		assert.True(t, ind.UnreadChat)
	})

	t.Run("opened after last activity clears unread chat", func(t *testing.T) {
		ind := ComputeIndicators(post, "mem", now.Add(time.Second), 0)
		assert.False(t, ind.UnreadChat)
	})

	t.Run("pending visible to captain and vice captain", func(t *testing.T) {
		assert.True(t, ComputeIndicators(post, "cap", now, 2).PendingApplications)
		ind := ComputeIndicators(post, "vc", now, 2)
		assert.True(t, ind.PendingApplications)
		assert.Equal(t, 2, ind.PendingCount)
	})

	t.Run("pending hidden from members", func(t *testing.T) {
		ind := ComputeIndicators(post, "mem", now, 2)
		assert.False(t, ind.PendingApplications)
		assert.Zero(t, ind.PendingCount)
	})

	t.Run("zero pending clears indicator", func(t *testing.T) {
		assert.False(t, ComputeIndicators(post, "cap", now, 0).PendingApplications)
	})
}
