package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Rosdorosh/Crypto-Liga/models"
)

// In-memory implementations of the repository interfaces. They back
// the service tests and can run the whole tournament loop without a
// database.

type MemoryTeamRepository struct {
	mu     sync.RWMutex
	nextID int
	teams  map[int]*models.Team
}

func NewMemoryTeamRepository() *MemoryTeamRepository {
	return &MemoryTeamRepository{nextID: 1, teams: make(map[int]*models.Team)}
}

func copyTeam(t *models.Team) *models.Team {
	c := *t
	c.MemberIDs = append([]string(nil), t.MemberIDs...)
	return &c
}

func (r *MemoryTeamRepository) Create(_ context.Context, t *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.nextID
	r.nextID++
	r.teams[t.ID] = copyTeam(t)
	return nil
}

func (r *MemoryTeamRepository) GetByID(_ context.Context, id int) (*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, ErrTeamNotFound
	}
	return copyTeam(t), nil
}

func (r *MemoryTeamRepository) List(_ context.Context) ([]*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	teams := make([]*models.Team, 0, len(r.teams))
	for _, t := range r.teams {
		teams = append(teams, copyTeam(t))
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams, nil
}

func (r *MemoryTeamRepository) FindByMember(_ context.Context, userID string) (*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.teams {
		if t.HasMember(userID) {
			return copyTeam(t), nil
		}
	}
	return nil, ErrTeamNotFound
}

func (r *MemoryTeamRepository) AddMember(_ context.Context, teamID int, userID string, newCost float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[teamID]
	if !ok {
		return ErrTeamNotFound
	}
	t.MemberIDs = append(t.MemberIDs, userID)
	t.TeamCost = newCost
	return nil
}

func (r *MemoryTeamRepository) ResetAll(_ context.Context, cost float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teams {
		t.MemberIDs = nil
		t.TeamCost = cost
	}
	return nil
}

func (r *MemoryTeamRepository) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[id]; !ok {
		return ErrTeamNotFound
	}
	delete(r.teams, id)
	return nil
}

type MemoryMatchRepository struct {
	mu      sync.RWMutex
	matches map[string]*models.Match
}

func NewMemoryMatchRepository() *MemoryMatchRepository {
	return &MemoryMatchRepository{matches: make(map[string]*models.Match)}
}

func copyMatch(m *models.Match) *models.Match {
	c := *m
	if m.Team1Result != nil {
		res := *m.Team1Result
		c.Team1Result = &res
	}
	if m.Team2Result != nil {
		res := *m.Team2Result
		c.Team2Result = &res
	}
	return &c
}

func (r *MemoryMatchRepository) CreateBatch(_ context.Context, matches []*models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range matches {
		r.matches[m.ID] = copyMatch(m)
	}
	return nil
}

func (r *MemoryMatchRepository) GetByID(_ context.Context, id string) (*models.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return copyMatch(m), nil
}

func (r *MemoryMatchRepository) listLocked(filter func(*models.Match) bool) []*models.Match {
	var matches []*models.Match
	for _, m := range r.matches {
		if filter == nil || filter(m) {
			matches = append(matches, copyMatch(m))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Round != matches[j].Round {
			return matches[i].Round < matches[j].Round
		}
		return matches[i].OrderInRound < matches[j].OrderInRound
	})
	return matches
}

func (r *MemoryMatchRepository) List(_ context.Context) ([]*models.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(nil), nil
}

func (r *MemoryMatchRepository) ListByRound(_ context.Context, round int) ([]*models.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(func(m *models.Match) bool { return m.Round == round }), nil
}

func (r *MemoryMatchRepository) ListByStatus(_ context.Context, status models.MatchStatus) ([]*models.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(func(m *models.Match) bool { return m.Status == status }), nil
}

func (r *MemoryMatchRepository) HighestRound(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	highest := 0
	for _, m := range r.matches {
		if m.Round > highest {
			highest = m.Round
		}
	}
	return highest, nil
}

func (r *MemoryMatchRepository) Update(_ context.Context, m *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[m.ID]; !ok {
		return ErrMatchNotFound
	}
	r.matches[m.ID] = copyMatch(m)
	return nil
}

func (r *MemoryMatchRepository) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = make(map[string]*models.Match)
	return nil
}

type MemorySettingsRepository struct {
	mu       sync.RWMutex
	settings *models.TournamentSettings
}

func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{}
}

func (r *MemorySettingsRepository) Get(_ context.Context) (*models.TournamentSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.settings == nil {
		return nil, ErrSettingsNotFound
	}
	c := *r.settings
	return &c, nil
}

func (r *MemorySettingsRepository) Save(_ context.Context, s *models.TournamentSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	r.settings = &c
	return nil
}

func (r *MemorySettingsRepository) UpdateStatus(_ context.Context, status models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings == nil {
		return ErrSettingsNotFound
	}
	r.settings.Status = status
	return nil
}

func (r *MemorySettingsRepository) UpdateEconomics(_ context.Context, totalIncome, prizeFund float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings == nil {
		return ErrSettingsNotFound
	}
	r.settings.TotalReservationIncome = totalIncome
	r.settings.PrizeFund = prizeFund
	return nil
}

func (r *MemorySettingsRepository) UpdateNextStart(_ context.Context, next time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings == nil {
		return ErrSettingsNotFound
	}
	n := next
	r.settings.NextStartTime = &n
	r.settings.StartTime = next
	return nil
}

type MemoryFinanceRepository struct {
	mu       sync.RWMutex
	finances map[string]*models.UserFinance
}

func NewMemoryFinanceRepository() *MemoryFinanceRepository {
	return &MemoryFinanceRepository{finances: make(map[string]*models.UserFinance)}
}

func copyFinance(f *models.UserFinance) *models.UserFinance {
	c := *f
	c.Transactions = append([]models.Transaction(nil), f.Transactions...)
	return &c
}

func (r *MemoryFinanceRepository) Get(_ context.Context, userID string) (*models.UserFinance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.finances[userID]
	if !ok {
		return nil, ErrFinanceNotFound
	}
	return copyFinance(f), nil
}

func (r *MemoryFinanceRepository) GetOrCreate(_ context.Context, userID string) (*models.UserFinance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.finances[userID]
	if !ok {
		f = &models.UserFinance{UserID: userID}
		r.finances[userID] = f
	}
	return copyFinance(f), nil
}

func (r *MemoryFinanceRepository) Credit(_ context.Context, userID string, tx models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.finances[userID]
	if !ok {
		return ErrFinanceNotFound
	}
	f.Balance += tx.Amount
	f.Transactions = append(f.Transactions, tx)
	return nil
}

func (r *MemoryFinanceRepository) SetRefCode(_ context.Context, userID, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.finances[userID]
	if !ok {
		return ErrFinanceNotFound
	}
	f.RefCode = &code
	return nil
}

func (r *MemoryFinanceRepository) SetReferrer(_ context.Context, userID, referrerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.finances[userID]
	if !ok {
		return ErrFinanceNotFound
	}
	f.RefID = &referrerID
	return nil
}

func (r *MemoryFinanceRepository) FindByRefCode(_ context.Context, code string) (*models.UserFinance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.finances {
		if f.RefCode != nil && *f.RefCode == code {
			return copyFinance(f), nil
		}
	}
	return nil, ErrRefCodeNotFound
}

type MemoryResultsRepository struct {
	mu      sync.RWMutex
	nextID  int
	results []*models.TournamentResults
}

func NewMemoryResultsRepository() *MemoryResultsRepository {
	return &MemoryResultsRepository{nextID: 1}
}

func (r *MemoryResultsRepository) Create(_ context.Context, res *models.TournamentResults) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res.ID = r.nextID
	r.nextID++
	c := *res
	r.results = append(r.results, &c)
	return nil
}

func (r *MemoryResultsRepository) GetLatest(_ context.Context) (*models.TournamentResults, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.results) == 0 {
		return nil, ErrResultsNotFound
	}
	c := *r.results[len(r.results)-1]
	return &c, nil
}
