package bracket

import (
	"fmt"

	"squadhub/internal/domain"
)

func clone(matches []domain.Match) []domain.Match {
	out := make([]domain.Match, len(matches))
	copy(out, matches)
	return out
}

func indexOf(matches []domain.Match, matchID string) (int, error) {
	for i := range matches {
		if matches[i].ID == matchID {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
}

func findSlot(matches []domain.Match, b domain.Bracket, round, number int) (int, bool) {
	for i := range matches {
		m := matches[i]
		if m.Bracket == b && m.Round == round && m.MatchNumber == number {
			return i, true
		}
	}
	return -1, false
}

// place writes name into the slot fed by match number: odd numbers feed
// team1, even numbers team2 of match ceil(number/2).
func place(matches []domain.Match, b domain.Bracket, round, number int, name string) {
	target, ok := findSlot(matches, b, round, (number+1)/2)
	if !ok {
		return
	}
	if number%2 == 1 {
		matches[target].Team1 = name
	} else {
		matches[target].Team2 = name
	}
}

// DeclareWinner completes a match. Elimination formats push the winner into
// the next round; in double elimination the loser of a winners-bracket
// opening match drops into the opening losers round.
func DeclareWinner(format domain.Format, matches []domain.Match, matchID, winner string) ([]domain.Match, error) {
	idx, err := indexOf(matches, matchID)
	if err != nil {
		return nil, err
	}

	m := matches[idx]
	if domain.IsPlaceholder(winner) || (winner != m.Team1 && winner != m.Team2) {
		return nil, fmt.Errorf("%w: %q is not playing in %s", ErrInvalidWinner, winner, matchID)
	}

	out := clone(matches)
	w := winner
	out[idx].Winner = &w
	out[idx].Status = domain.MatchCompleted

	if !format.Eliminates() {
		return out, nil
	}

	place(out, m.Bracket, m.Round+1, m.MatchNumber, winner)

	if format == domain.FormatDoubleElimination && m.Bracket == domain.BracketWinners && m.Round == 1 {
		loser := m.Team2
		if winner == m.Team2 {
			loser = m.Team1
		}
		if !domain.IsPlaceholder(loser) {
			place(out, domain.BracketLosers, 1, m.MatchNumber, loser)
		}
	}

	return out, nil
}

// UpdateScores records scores without touching the winner or status
func UpdateScores(matches []domain.Match, matchID string, score1, score2 *int) ([]domain.Match, error) {
	idx, err := indexOf(matches, matchID)
	if err != nil {
		return nil, err
	}
	if (score1 != nil && *score1 < 0) || (score2 != nil && *score2 < 0) {
		return nil, ErrInvalidScore
	}

	out := clone(matches)
	out[idx].Score1 = copyInt(score1)
	out[idx].Score2 = copyInt(score2)
	return out, nil
}

// ResetMatch returns a match to pending. Names already advanced into later
// matches stay where they are.
func ResetMatch(matches []domain.Match, matchID string) ([]domain.Match, error) {
	idx, err := indexOf(matches, matchID)
	if err != nil {
		return nil, err
	}

	out := clone(matches)
	out[idx].Winner = nil
	out[idx].Score1 = nil
	out[idx].Score2 = nil
	out[idx].Status = domain.MatchPending
	return out, nil
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
