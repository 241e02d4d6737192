package models

import "time"

// TournamentStatus представляет статусы турнира.
type TournamentStatus string

const (
	TournamentPending   TournamentStatus = "pending"
	TournamentRunning   TournamentStatus = "running"
	TournamentCompleted TournamentStatus = "completed"
)

// TournamentSettings is the singleton tournament configuration plus
// the accumulated reservation economics. Exactly one row exists.
type TournamentSettings struct {
	StartTime              time.Time        `json:"start_time" db:"start_time"`
	MatchDurationSec       int              `json:"match_duration_sec" db:"match_duration_sec"`
	BreakDurationSec       int              `json:"break_duration_sec" db:"break_duration_sec"`
	Status                 TournamentStatus `json:"status" db:"status"`
	TotalReservationIncome float64          `json:"total_reservation_income" db:"total_reservation_income"`
	PrizeFund              float64          `json:"prize_fund" db:"prize_fund"`
	AutoMode               bool             `json:"auto_mode" db:"auto_mode"`
	AutoIntervalMin        int              `json:"auto_interval_min" db:"auto_interval_min"`
	NextStartTime          *time.Time       `json:"next_start_time,omitempty" db:"next_start_time"`
}

func (s *TournamentSettings) MatchDuration() time.Duration {
	return time.Duration(s.MatchDurationSec) * time.Second
}

func (s *TournamentSettings) BreakDuration() time.Duration {
	return time.Duration(s.BreakDurationSec) * time.Second
}
