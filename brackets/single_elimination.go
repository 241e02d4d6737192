// Crypto-Liga/brackets/single_elimination.go
package brackets

import (
	"errors"
	"math/rand"

	"github.com/Rosdorosh/Crypto-Liga/models"
)

// DrawSize is the number of teams a draw consumes. The bracket is a
// fixed 32-team, 5-round single elimination: 16→8→4→2→1 matches.
const DrawSize = 32

var (
	ErrInsufficientTeams = errors.New("minimum 32 teams required for draw")
	ErrOddWinnerCount    = errors.New("winner count must be even to pair a next round")
)

// Pairing is one generated match slot: two team IDs plus its
// position inside the round. OrderInRound starts at 1 and fixes the
// pairing order winners are matched in for the following round.
type Pairing struct {
	Team1ID      int
	Team2ID      int
	Round        int
	OrderInRound int
}

// Draw shuffles the team IDs with the provided source and pairs the
// first 32 sequentially into the 16 round-1 slots. Fewer than 32
// teams is a validation failure, not a smaller bracket.
func Draw(teamIDs []int, rng *rand.Rand) ([]Pairing, error) {
	if len(teamIDs) < DrawSize {
		return nil, ErrInsufficientTeams
	}

	shuffled := make([]int, len(teamIDs))
	copy(shuffled, teamIDs)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	pairings := make([]Pairing, 0, DrawSize/2)
	for i := 0; i < DrawSize; i += 2 {
		pairings = append(pairings, Pairing{
			Team1ID:      shuffled[i],
			Team2ID:      shuffled[i+1],
			Round:        1,
			OrderInRound: i/2 + 1,
		})
	}
	return pairings, nil
}

// PairWinners builds the next round from the winners of a completed
// round, paired in original match order: (w0,w1), (w2,w3), ... The
// winners slice must already be sorted by OrderInRound.
func PairWinners(winners []int, nextRound int) ([]Pairing, error) {
	if len(winners) == 0 || len(winners)%2 != 0 {
		return nil, ErrOddWinnerCount
	}

	pairings := make([]Pairing, 0, len(winners)/2)
	for i := 0; i < len(winners); i += 2 {
		pairings = append(pairings, Pairing{
			Team1ID:      winners[i],
			Team2ID:      winners[i+1],
			Round:        nextRound,
			OrderInRound: i/2 + 1,
		})
	}
	return pairings, nil
}

// NewMatch materializes a pairing into a pending match entity.
func NewMatch(id string, p Pairing) *models.Match {
	return &models.Match{
		ID:           id,
		Team1ID:      p.Team1ID,
		Team2ID:      p.Team2ID,
		Round:        p.Round,
		OrderInRound: p.OrderInRound,
		RoundName:    models.RoundNameFor(p.Round),
		Status:       models.MatchStatusPending,
	}
}
