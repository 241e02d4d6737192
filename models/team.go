package models

// Team is one bracket entrant backed by a single trading symbol.
// Several users can share a team; the member list and the rising
// reservation cost are reset when a tournament completes.
type Team struct {
	ID          int      `json:"id" db:"id"`
	Symbol      string   `json:"symbol" db:"symbol"`
	IsAvailable bool     `json:"is_available" db:"is_available"`
	TeamCost    float64  `json:"team_cost" db:"team_cost"`
	MemberIDs   []string `json:"member_ids" db:"member_ids"`
}

func (t *Team) HasMember(userID string) bool {
	for _, id := range t.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
