package models

import "time"

// Placement records one finalist team and the prize credited to
// each of its members.
type Placement struct {
	TeamID       int      `json:"team_id" db:"team_id"`
	MemberIDs    []string `json:"member_ids" db:"member_ids"`
	PrizePerUser float64  `json:"prize_per_user" db:"prize_per_user"`
}

// TournamentResults is the archival snapshot written once, when the
// final match completes.
type TournamentResults struct {
	ID             int       `json:"id" db:"id"`
	EndedAt        time.Time `json:"ended_at" db:"ended_at"`
	FirstPlace     Placement `json:"first_place" db:"-"`
	SecondPlace    Placement `json:"second_place" db:"-"`
	TotalPrizeFund float64   `json:"total_prize_fund" db:"total_prize_fund"`
}
