// Package bracket generates tournament match lists and advances them as
// results are declared. Every function is pure: it takes a match list value
// and returns a new one, leaving the input untouched.
package bracket

import (
	"errors"
	"fmt"
	"strings"

	"squadhub/internal/domain"
)

var (
	ErrTooFewParticipants = errors.New("at least two participants are required")
	ErrInvalidParticipant = errors.New("invalid participant")
	ErrMatchNotFound      = errors.New("match not found")
	ErrInvalidWinner      = errors.New("winner must be one of the match's teams")
	ErrInvalidScore       = errors.New("scores must not be negative")
)

// MatchID returns the deterministic id of a match
func MatchID(b domain.Bracket, round, number int) string {
	switch b {
	case domain.BracketWinners:
		return fmt.Sprintf("w-r%d-m%d", round, number)
	case domain.BracketLosers:
		return fmt.Sprintf("l-r%d-m%d", round, number)
	default:
		return fmt.Sprintf("r%d-m%d", round, number)
	}
}

// Rounds returns ceil(log2(n)), the number of elimination rounds for n entrants
func Rounds(n int) int {
	rounds := 0
	for size := 1; size < n; size *= 2 {
		rounds++
	}
	return rounds
}

// Generate builds the full match list for format. Seeds follow the order of
// participants; nothing is shuffled.
func Generate(format domain.Format, participants []string) ([]domain.Match, error) {
	if err := validateParticipants(participants); err != nil {
		return nil, err
	}

	switch format {
	case domain.FormatSingleElimination:
		return elimination(domain.BracketNone, participants), nil
	case domain.FormatDoubleElimination:
		matches := elimination(domain.BracketWinners, participants)
		return append(matches, losersFirstRound(len(participants)/2)...), nil
	case domain.FormatRoundRobin:
		return roundRobin(participants), nil
	default:
		return nil, fmt.Errorf("unknown tournament format %q", format)
	}
}

func validateParticipants(participants []string) error {
	if len(participants) < 2 {
		return ErrTooFewParticipants
	}
	return CheckNames(participants)
}

// CheckNames rejects empty, reserved and duplicate participant names
func CheckNames(participants []string) error {
	seen := make(map[string]struct{}, len(participants))
	for i, p := range participants {
		name := strings.TrimSpace(p)
		if name == "" || domain.IsPlaceholder(name) {
			return fmt.Errorf("%w: seed %d has reserved or empty name %q", ErrInvalidParticipant, i+1, p)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %q is registered twice", ErrInvalidParticipant, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func newMatch(b domain.Bracket, round, number int, team1, team2 string) domain.Match {
	return domain.Match{
		ID:          MatchID(b, round, number),
		Bracket:     b,
		Round:       round,
		MatchNumber: number,
		Team1:       team1,
		Team2:       team2,
		Status:      domain.MatchPending,
	}
}

// elimination pairs consecutive seeds in round one, gives an odd last seed a
// completed bye, then pre-creates TBD matches for every later round.
func elimination(b domain.Bracket, participants []string) []domain.Match {
	n := len(participants)
	firstRound := n / 2
	matches := make([]domain.Match, 0, n)

	for i := 0; i < firstRound; i++ {
		matches = append(matches, newMatch(b, 1, i+1, participants[2*i], participants[2*i+1]))
	}

	if n%2 == 1 {
		seed := participants[n-1]
		bye := newMatch(b, 1, firstRound+1, seed, domain.SlotBye)
		bye.Winner = &seed
		bye.Status = domain.MatchCompleted
		matches = append(matches, bye)
	}

	teamsInPreviousRound := (n + 1) / 2
	for round := 2; round <= Rounds(n); round++ {
		count := (teamsInPreviousRound + 1) / 2
		for k := 1; k <= count; k++ {
			matches = append(matches, newMatch(b, round, k, domain.SlotTBD, domain.SlotTBD))
		}
		teamsInPreviousRound = count
	}

	return matches
}

// losersFirstRound seeds the opening losers-bracket round. Later losers
// rounds are not generated.
func losersFirstRound(firstRoundMatches int) []domain.Match {
	count := firstRoundMatches / 2
	if count < 1 {
		count = 1
	}
	matches := make([]domain.Match, 0, count)
	for k := 1; k <= count; k++ {
		matches = append(matches, newMatch(domain.BracketLosers, 1, k, domain.SlotTBD, domain.SlotTBD))
	}
	return matches
}

func roundRobin(participants []string) []domain.Match {
	n := len(participants)
	matches := make([]domain.Match, 0, n*(n-1)/2)
	number := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			number++
			matches = append(matches, newMatch(domain.BracketNone, 1, number, participants[i], participants[j]))
		}
	}
	return matches
}
