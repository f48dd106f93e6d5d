package domain

import (
	"fmt"
	"strings"
	"time"
)

// ChannelID names a chat channel: a team or a tournament match
type ChannelID string

const (
	teamChannelPrefix  = "team:"
	matchChannelPrefix = "match:"
)

// TeamChannel is the channel of a team posting
func TeamChannel(teamID string) ChannelID {
	return ChannelID(teamChannelPrefix + teamID)
}

// MatchChannel is the channel of one tournament match
func MatchChannel(tournamentID, matchID string) ChannelID {
	return ChannelID(matchChannelPrefix + tournamentID + ":" + matchID)
}

// TeamID returns the team id for a team channel
func (c ChannelID) TeamID() (string, bool) {
	s := string(c)
	if !strings.HasPrefix(s, teamChannelPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(s, teamChannelPrefix)
	return id, id != ""
}

// Match returns the tournament and match ids for a match channel
func (c ChannelID) Match() (tournamentID, matchID string, ok bool) {
	s := string(c)
	if !strings.HasPrefix(s, matchChannelPrefix) {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(s, matchChannelPrefix), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// ChatMessage is one entry in a channel's append-only log
type ChatMessage struct {
	ID         string    `json:"id"`
	ChannelID  ChannelID `json:"channel_id"`
	Seq        int64     `json:"seq"`
	Text       string    `json:"text"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	IsSystem   bool      `json:"is_system"`
	CreatedAt  time.Time `json:"created_at"`
}

// SendMessageRequest is a user-authored chat message
type SendMessageRequest struct {
	Text            string `json:"text"`
	ClientMessageID string `json:"client_message_id"`
}

const systemSender = "system"

// SystemMessage builds a system-authored entry. Seq and CreatedAt are
// assigned by the store.
func SystemMessage(id string, channel ChannelID, text string) ChatMessage {
	return ChatMessage{
		ID:         id,
		ChannelID:  channel,
		Text:       text,
		SenderID:   systemSender,
		SenderName: "System",
		IsSystem:   true,
	}
}

// System message texts
func JoinedText(name string) string   { return fmt.Sprintf("%s has joined the team", name) }
func LeftText(name string) string     { return fmt.Sprintf("%s has left the team", name) }
func RemovedText(name string) string  { return fmt.Sprintf("%s has been removed from the team", name) }
func PromotedText(name string) string { return fmt.Sprintf("%s has been promoted to %s", name, RoleViceCaptain.Title()) }
func DemotedText(name string) string  { return fmt.Sprintf("%s has been demoted to %s", name, RoleMember.Title()) }

func MatchWonText(winner, team1, team2 string) string {
	return fmt.Sprintf("%s wins %s vs %s", winner, team1, team2)
}
