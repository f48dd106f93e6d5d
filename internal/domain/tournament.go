package domain

import (
	"fmt"
	"time"
)

// Format is a tournament bracket format
type Format string

const (
	FormatSingleElimination Format = "single_elimination"
	FormatDoubleElimination Format = "double_elimination"
	FormatRoundRobin        Format = "round_robin"
)

// ParseFormat converts a request value into a Format
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatSingleElimination, FormatDoubleElimination, FormatRoundRobin:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown tournament format %q", s)
	}
}

// Eliminates reports whether winners advance into later rounds
func (f Format) Eliminates() bool {
	switch f {
	case FormatSingleElimination, FormatDoubleElimination:
		return true
	case FormatRoundRobin:
		return false
	default:
		return false
	}
}

// Bracket identifies the side of a double elimination bracket
type Bracket string

const (
	BracketWinners Bracket = "winners"
	BracketLosers  Bracket = "losers"
	BracketNone    Bracket = "none"
)

// MatchStatus is the state of a single match
type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchCompleted MatchStatus = "completed"
)

// Slot placeholders
const (
	SlotTBD = "TBD"
	SlotBye = "BYE"
)

// IsPlaceholder reports whether a slot holds no real participant
func IsPlaceholder(slot string) bool {
	return slot == SlotTBD || slot == SlotBye || slot == ""
}

// Match is one game in a bracket
type Match struct {
	ID          string      `json:"id"`
	Bracket     Bracket     `json:"bracket"`
	Round       int         `json:"round"`
	MatchNumber int         `json:"match_number"`
	Team1       string      `json:"team1"`
	Team2       string      `json:"team2"`
	Winner      *string     `json:"winner"`
	Score1      *int        `json:"score1"`
	Score2      *int        `json:"score2"`
	Status      MatchStatus `json:"status"`
}

// Tournament holds participants in seed order and the generated match list
type Tournament struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Game         string    `json:"game"`
	Format       Format    `json:"format"`
	Participants []string  `json:"participants"`
	Matches      []Match   `json:"matches"`
	Version      int       `json:"version"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FindMatch returns the match with the given id
func (t *Tournament) FindMatch(matchID string) (*Match, bool) {
	for i := range t.Matches {
		if t.Matches[i].ID == matchID {
			return &t.Matches[i], true
		}
	}
	return nil, false
}

// CreateTournamentRequest is the input for a new tournament
type CreateTournamentRequest struct {
	Name         string   `json:"name"`
	Game         string   `json:"game"`
	Format       string   `json:"format"`
	Participants []string `json:"participants"`
}

// DeclareWinnerRequest names the winner of a match
type DeclareWinnerRequest struct {
	Winner string `json:"winner"`
}

// UpdateScoresRequest records a match score
type UpdateScoresRequest struct {
	Score1 *int `json:"score1"`
	Score2 *int `json:"score2"`
}
