package brackets

import (
	"math/rand"
	"testing"

	"github.com/Rosdorosh/Crypto-Liga/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teamIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}

func TestDrawProducesSixteenMatches(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	pairings, err := Draw(teamIDs(32), rng)
	require.NoError(t, err)
	require.Len(t, pairings, 16)

	seen := make(map[int]bool)
	for i, p := range pairings {
		assert.Equal(t, 1, p.Round)
		assert.Equal(t, i+1, p.OrderInRound)
		assert.False(t, seen[p.Team1ID], "team %d drawn twice", p.Team1ID)
		assert.False(t, seen[p.Team2ID], "team %d drawn twice", p.Team2ID)
		seen[p.Team1ID] = true
		seen[p.Team2ID] = true
	}
	assert.Len(t, seen, 32)
}

func TestDrawRequiresThirtyTwoTeams(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, err := Draw(teamIDs(31), rng)
	assert.ErrorIs(t, err, ErrInsufficientTeams)
}

func TestPairWinnersKeepsOriginalOrder(t *testing.T) {
	winners := []int{7, 3, 12, 9, 1, 20, 4, 15}

	pairings, err := PairWinners(winners, 3)
	require.NoError(t, err)
	require.Len(t, pairings, 4)

	assert.Equal(t, Pairing{Team1ID: 7, Team2ID: 3, Round: 3, OrderInRound: 1}, pairings[0])
	assert.Equal(t, Pairing{Team1ID: 12, Team2ID: 9, Round: 3, OrderInRound: 2}, pairings[1])
	assert.Equal(t, Pairing{Team1ID: 1, Team2ID: 20, Round: 3, OrderInRound: 3}, pairings[2])
	assert.Equal(t, Pairing{Team1ID: 4, Team2ID: 15, Round: 3, OrderInRound: 4}, pairings[3])
}

func TestPairWinnersDownToSingleFinal(t *testing.T) {
	pairings, err := PairWinners([]int{5, 8}, models.FinalRound)
	require.NoError(t, err)
	require.Len(t, pairings, 1)

	m := NewMatch("final-id", pairings[0])
	assert.Equal(t, models.RoundFinal, m.RoundName)
	assert.Equal(t, models.MatchStatusPending, m.Status)
}

func TestPairWinnersRejectsOddCount(t *testing.T) {
	_, err := PairWinners([]int{1, 2, 3}, 2)
	assert.ErrorIs(t, err, ErrOddWinnerCount)
}

func TestRoundNames(t *testing.T) {
	assert.Equal(t, models.RoundSixteenth, models.RoundNameFor(1))
	assert.Equal(t, models.RoundEighth, models.RoundNameFor(2))
	assert.Equal(t, models.RoundQuarter, models.RoundNameFor(3))
	assert.Equal(t, models.RoundSemi, models.RoundNameFor(4))
	assert.Equal(t, models.RoundFinal, models.RoundNameFor(5))
}
