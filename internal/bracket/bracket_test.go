package bracket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squadhub/internal/domain"
)

func byID(t *testing.T, matches []domain.Match, id string) domain.Match {
	t.Helper()
	for _, m := range matches {
		if m.ID == id {
			return m
		}
	}
	t.Fatalf("match %s not generated", id)
	return domain.Match{}
}

func perRound(matches []domain.Match, b domain.Bracket) map[int]int {
	out := map[int]int{}
	for _, m := range matches {
		if m.Bracket == b {
			out[m.Round]++
		}
	}
	return out
}

func TestRounds(t *testing.T) {
	tests := []struct{ n, want int }{
		{2, 1}, {3, 2}, {4, 2}, {5, 3}, {8, 3}, {9, 4}, {16, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Rounds(tt.n), "n=%d", tt.n)
	}
}

func TestGenerate_RejectsBadParticipants(t *testing.T) {
	tests := []struct {
		name         string
		participants []string
		want         error
	}{
		{"none", nil, ErrTooFewParticipants},
		{"one", []string{"A"}, ErrTooFewParticipants},
		{"empty name", []string{"A", " "}, ErrInvalidParticipant},
		{"reserved name", []string{"A", domain.SlotBye}, ErrInvalidParticipant},
		{"duplicate", []string{"A", "B", "A"}, ErrInvalidParticipant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(domain.FormatSingleElimination, tt.participants)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := Generate(domain.Format("swiss"), []string{"A", "B"})
	assert.Error(t, err)
}

func TestGenerate_SingleEliminationFiveTeams(t *testing.T) {
	matches, err := Generate(domain.FormatSingleElimination, []string{"A", "B", "C", "D", "E"})
	require.NoError(t, err)

	require.Len(t, matches, 6)
	assert.Equal(t, map[int]int{1: 3, 2: 2, 3: 1}, perRound(matches, domain.BracketNone))

	m1 := byID(t, matches, "r1-m1")
	assert.Equal(t, "A", m1.Team1)
	assert.Equal(t, "B", m1.Team2)
	assert.Equal(t, domain.MatchPending, m1.Status)

	bye := byID(t, matches, "r1-m3")
	assert.Equal(t, "E", bye.Team1)
	assert.Equal(t, domain.SlotBye, bye.Team2)
	require.NotNil(t, bye.Winner)
	assert.Equal(t, "E", *bye.Winner)
	assert.Equal(t, domain.MatchCompleted, bye.Status)

	final := byID(t, matches, "r3-m1")
	assert.Equal(t, domain.SlotTBD, final.Team1)
	assert.Equal(t, domain.SlotTBD, final.Team2)
}

func TestGenerate_ByeAdvancesOnlyWhenDeclared(t *testing.T) {
	for _, format := range []domain.Format{domain.FormatSingleElimination, domain.FormatDoubleElimination} {
		t.Run(string(format), func(t *testing.T) {
			matches, err := Generate(format, []string{"A", "B", "C", "D", "E"})
			require.NoError(t, err)

			b := domain.BracketNone
			if format == domain.FormatDoubleElimination {
				b = domain.BracketWinners
			}
			bye := byID(t, matches, MatchID(b, 1, 3))
			assert.Equal(t, domain.MatchCompleted, bye.Status)
			next := byID(t, matches, MatchID(b, 2, 2))
			assert.Equal(t, domain.SlotTBD, next.Team1, "generation leaves round two for the organizer")

			matches, err = DeclareWinner(format, matches, bye.ID, "E")
			require.NoError(t, err)
			next = byID(t, matches, MatchID(b, 2, 2))
			assert.Equal(t, "E", next.Team1)
			for _, m := range matches {
				if m.Bracket == domain.BracketLosers {
					assert.Equal(t, domain.SlotTBD, m.Team1, "a bye has no loser to drop")
					assert.Equal(t, domain.SlotTBD, m.Team2, "a bye has no loser to drop")
				}
			}
		})
	}
}

func TestGenerate_SingleEliminationPowerOfTwo(t *testing.T) {
	matches, err := Generate(domain.FormatSingleElimination, []string{"A", "B", "C", "D", "E", "F", "G", "H"})
	require.NoError(t, err)

	assert.Len(t, matches, 7)
	assert.Equal(t, map[int]int{1: 4, 2: 2, 3: 1}, perRound(matches, domain.BracketNone))
	for _, m := range matches {
		assert.NotEqual(t, domain.SlotBye, m.Team2)
	}
}

func TestGenerate_SingleEliminationTwoTeams(t *testing.T) {
	matches, err := Generate(domain.FormatSingleElimination, []string{"A", "B"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "r1-m1", matches[0].ID)
}

func TestGenerate_RoundRobin(t *testing.T) {
	matches, err := Generate(domain.FormatRoundRobin, []string{"A", "B", "C", "D"})
	require.NoError(t, err)
	require.Len(t, matches, 6)

	pairs := map[[2]string]bool{}
	for i, m := range matches {
		assert.Equal(t, 1, m.Round)
		assert.Equal(t, i+1, m.MatchNumber)
		assert.Equal(t, domain.BracketNone, m.Bracket)
		pairs[[2]string{m.Team1, m.Team2}] = true
	}
	for _, want := range [][2]string{{"A", "B"}, {"A", "C"}, {"A", "D"}, {"B", "C"}, {"B", "D"}, {"C", "D"}} {
		assert.True(t, pairs[want], "missing pairing %v", want)
	}
}

func TestGenerate_DoubleElimination(t *testing.T) {
	matches, err := Generate(domain.FormatDoubleElimination, []string{"A", "B", "C", "D", "E", "F", "G", "H"})
	require.NoError(t, err)

	assert.Equal(t, map[int]int{1: 4, 2: 2, 3: 1}, perRound(matches, domain.BracketWinners))
	assert.Equal(t, map[int]int{1: 2}, perRound(matches, domain.BracketLosers))
	assert.Equal(t, "w-r1-m1", matches[0].ID)
	byID(t, matches, "l-r1-m2")

	small, err := Generate(domain.FormatDoubleElimination, []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 1}, perRound(small, domain.BracketLosers))
}

func TestDeclareWinner_PropagatesIntoNextRound(t *testing.T) {
	matches, err := Generate(domain.FormatSingleElimination, []string{"A", "B", "C", "D", "E"})
	require.NoError(t, err)

	matches, err = DeclareWinner(domain.FormatSingleElimination, matches, "r1-m1", "A")
	require.NoError(t, err)
	matches, err = DeclareWinner(domain.FormatSingleElimination, matches, "r1-m2", "D")
	require.NoError(t, err)
	matches, err = DeclareWinner(domain.FormatSingleElimination, matches, "r1-m3", "E")
	require.NoError(t, err)

	r2m1 := byID(t, matches, "r2-m1")
	assert.Equal(t, "A", r2m1.Team1)
	assert.Equal(t, "D", r2m1.Team2)

	r2m2 := byID(t, matches, "r2-m2")
	assert.Equal(t, "E", r2m2.Team1)
	assert.Equal(t, domain.SlotTBD, r2m2.Team2)

	won := byID(t, matches, "r1-m1")
	require.NotNil(t, won.Winner)
	assert.Equal(t, "A", *won.Winner)
	assert.Equal(t, domain.MatchCompleted, won.Status)
}

func TestDeclareWinner_DoesNotMutateInput(t *testing.T) {
	matches, err := Generate(domain.FormatSingleElimination, []string{"A", "B", "C", "D"})
	require.NoError(t, err)

	_, err = DeclareWinner(domain.FormatSingleElimination, matches, "r1-m1", "B")
	require.NoError(t, err)

	assert.Nil(t, byID(t, matches, "r1-m1").Winner)
	assert.Equal(t, domain.SlotTBD, byID(t, matches, "r2-m1").Team1)
}

func TestDeclareWinner_RejectsOutsiders(t *testing.T) {
	matches, err := Generate(domain.FormatSingleElimination, []string{"A", "B", "C", "D"})
	require.NoError(t, err)

	_, err = DeclareWinner(domain.FormatSingleElimination, matches, "r1-m1", "C")
	assert.ErrorIs(t, err, ErrInvalidWinner)

	_, err = DeclareWinner(domain.FormatSingleElimination, matches, "r2-m1", domain.SlotTBD)
	assert.ErrorIs(t, err, ErrInvalidWinner)

	_, err = DeclareWinner(domain.FormatSingleElimination, matches, "r9-m9", "A")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestDeclareWinner_DoubleEliminationDropsLoser(t *testing.T) {
	matches, err := Generate(domain.FormatDoubleElimination, []string{"A", "B", "C", "D"})
	require.NoError(t, err)

	matches, err = DeclareWinner(domain.FormatDoubleElimination, matches, "w-r1-m1", "A")
	require.NoError(t, err)
	matches, err = DeclareWinner(domain.FormatDoubleElimination, matches, "w-r1-m2", "C")
	require.NoError(t, err)

	final := byID(t, matches, "w-r2-m1")
	assert.Equal(t, "A", final.Team1)
	assert.Equal(t, "C", final.Team2)

	losers := byID(t, matches, "l-r1-m1")
	assert.Equal(t, "B", losers.Team1)
	assert.Equal(t, "D", losers.Team2)
}

func TestDeclareWinner_RoundRobinDoesNotPropagate(t *testing.T) {
	matches, err := Generate(domain.FormatRoundRobin, []string{"A", "B", "C"})
	require.NoError(t, err)

	updated, err := DeclareWinner(domain.FormatRoundRobin, matches, "r1-m1", "B")
	require.NoError(t, err)

	for i := range matches {
		assert.Equal(t, matches[i].Team1, updated[i].Team1)
		assert.Equal(t, matches[i].Team2, updated[i].Team2)
	}
	assert.Equal(t, "B", *byID(t, updated, "r1-m1").Winner)
}

func TestUpdateScores(t *testing.T) {
	matches, err := Generate(domain.FormatSingleElimination, []string{"A", "B"})
	require.NoError(t, err)

	three, one := 3, 1
	updated, err := UpdateScores(matches, "r1-m1", &three, &one)
	require.NoError(t, err)

	m := byID(t, updated, "r1-m1")
	assert.Equal(t, 3, *m.Score1)
	assert.Equal(t, 1, *m.Score2)
	assert.Nil(t, m.Winner)
	assert.Equal(t, domain.MatchPending, m.Status)

	negative := -1
	_, err = UpdateScores(matches, "r1-m1", &negative, &one)
	assert.ErrorIs(t, err, ErrInvalidScore)

	_, err = UpdateScores(matches, "nope", &one, &one)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestResetMatch_KeepsAdvancedNames(t *testing.T) {
	matches, err := Generate(domain.FormatSingleElimination, []string{"A", "B", "C", "D"})
	require.NoError(t, err)

	two, zero := 2, 0
	matches, err = UpdateScores(matches, "r1-m1", &two, &zero)
	require.NoError(t, err)
	matches, err = DeclareWinner(domain.FormatSingleElimination, matches, "r1-m1", "A")
	require.NoError(t, err)

	matches, err = ResetMatch(matches, "r1-m1")
	require.NoError(t, err)

	reset := byID(t, matches, "r1-m1")
	assert.Nil(t, reset.Winner)
	assert.Nil(t, reset.Score1)
	assert.Nil(t, reset.Score2)
	assert.Equal(t, domain.MatchPending, reset.Status)

	assert.Equal(t, "A", byID(t, matches, "r2-m1").Team1)
}
