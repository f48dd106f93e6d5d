package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelID(t *testing.T) {
	id, ok := TeamChannel("t1").TeamID()
	assert.True(t, ok)
	assert.Equal(t, "t1", id)

	_, ok = MatchChannel("tour", "w-r1-m1").TeamID()
	assert.False(t, ok)

	tid, mid, ok := MatchChannel("tour", "w-r1-m1").Match()
	assert.True(t, ok)
	assert.Equal(t, "tour", tid)
	assert.Equal(t, "w-r1-m1", mid)

	_, _, ok = ChannelID("match:only").Match()
	assert.False(t, ok)
	_, ok = ChannelID("team:").TeamID()
	assert.False(t, ok)
}

func TestSystemMessageTexts(t *testing.T) {
	assert.Equal(t, "B has joined the team", JoinedText("B"))
	assert.Equal(t, "B has been promoted to Vice Captain", PromotedText("B"))
	assert.Equal(t, "B has been demoted to Member", DemotedText("B"))
	assert.Equal(t, "C has been removed from the team", RemovedText("C"))
	assert.Equal(t, "C has left the team", LeftText("C"))

	msg := SystemMessage("m1", TeamChannel("t"), JoinedText("B"))
	assert.True(t, msg.IsSystem)
	assert.Equal(t, "system", msg.SenderID)
}
