package models

import "time"

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusActive    MatchStatus = "active"
	MatchStatusCompleted MatchStatus = "completed"
)

type RoundName string

const (
	RoundSixteenth RoundName = "sixteenth"
	RoundEighth    RoundName = "eighth"
	RoundQuarter   RoundName = "quarter"
	RoundSemi      RoundName = "semi"
	RoundFinal     RoundName = "final"
)

// FinalRound is the last of the five bracket rounds (16→8→4→2→1).
const FinalRound = 5

var roundNames = map[int]RoundName{
	1: RoundSixteenth,
	2: RoundEighth,
	3: RoundQuarter,
	4: RoundSemi,
	5: RoundFinal,
}

// RoundNameFor maps a round number to its display name. Rounds
// outside 1..5 do not occur in a 32-team bracket.
func RoundNameFor(round int) RoundName {
	return roundNames[round]
}

// PriceSnapshot captures one team's market movement over a match:
// price at match start, price at match end, and the percentage
// change that decides the outcome.
type PriceSnapshot struct {
	Start         float64 `json:"start" db:"start_price"`
	End           float64 `json:"end" db:"end_price"`
	ChangePercent float64 `json:"change_percent" db:"change_percent"`
}

// Match pairs two teams inside a round. Status only ever moves
// pending → active → completed; a completed match is never reopened.
type Match struct {
	ID           string         `json:"id" db:"id"`
	Team1ID      int            `json:"team1_id" db:"team1_id"`
	Team2ID      int            `json:"team2_id" db:"team2_id"`
	Round        int            `json:"round" db:"round"`
	OrderInRound int            `json:"order_in_round" db:"order_in_round"`
	RoundName    RoundName      `json:"round_name" db:"round_name"`
	Status       MatchStatus    `json:"status" db:"status"`
	WinnerID     *int           `json:"winner_id,omitempty" db:"winner_id"`
	StartTime    *time.Time     `json:"start_time,omitempty" db:"start_time"`
	EndTime      *time.Time     `json:"end_time,omitempty" db:"end_time"`
	Team1Result  *PriceSnapshot `json:"team1_result,omitempty" db:"-"`
	Team2Result  *PriceSnapshot `json:"team2_result,omitempty" db:"-"`

	// Optional related entities (not mapped directly).
	Team1 *Team `json:"team1,omitempty" db:"-"`
	Team2 *Team `json:"team2,omitempty" db:"-"`
}
