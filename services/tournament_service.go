package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Rosdorosh/Crypto-Liga/models"
	"github.com/Rosdorosh/Crypto-Liga/repositories"
	"github.com/Rosdorosh/Crypto-Liga/scheduler"
)

// TournamentService owns the tournament lifecycle: it wires the draw,
// the schedule and the feed together, and exposes the read surface
// the HTTP handlers serve.
type TournamentService struct {
	registry *scheduler.Registry
	settings repositories.SettingsRepository
	teams    repositories.TeamRepository
	results  repositories.ResultsRepository
	bracket  *BracketService
	sched    *TournamentScheduler
	resolver MatchResolver
	feed     PriceSource
	logger   *slog.Logger
}

func NewTournamentService(
	registry *scheduler.Registry,
	settings repositories.SettingsRepository,
	teams repositories.TeamRepository,
	results repositories.ResultsRepository,
	bracket *BracketService,
	sched *TournamentScheduler,
	feed PriceSource,
	logger *slog.Logger,
) *TournamentService {
	return &TournamentService{
		registry: registry,
		settings: settings,
		teams:    teams,
		results:  results,
		bracket:  bracket,
		sched:    sched,
		feed:     feed,
		logger:   logger,
	}
}

func (s *TournamentService) BindResolver(resolver MatchResolver) {
	s.resolver = resolver
}

// EnsureTeams seeds one team per feed symbol when the table is empty.
func (s *TournamentService) EnsureTeams(ctx context.Context) error {
	existing, err := s.teams.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, symbol := range s.feed.Symbols() {
		team := &models.Team{
			Symbol:      symbol,
			IsAvailable: true,
			TeamCost:    initialTeamCost,
			MemberIDs:   []string{},
		}
		if err := s.teams.Create(ctx, team); err != nil {
			return err
		}
	}
	s.logger.Info("teams seeded", slog.Int("count", len(s.feed.Symbols())))
	return nil
}

// EnsureSettings seeds the singleton settings row on first boot.
func (s *TournamentService) EnsureSettings(ctx context.Context) error {
	_, err := s.settings.Get(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrSettingsNotFound) {
		return err
	}
	return s.settings.Save(ctx, &models.TournamentSettings{
		StartTime:        s.registry.Clock().Now().Add(time.Hour),
		MatchDurationSec: 60,
		BreakDurationSec: 30,
		Status:           models.TournamentPending,
	})
}

// Start draws a fresh bracket and schedules the first round from the
// configured start time. Any leftover matches and pending actions
// from a previous run are cleared first.
func (s *TournamentService) Start(ctx context.Context) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrSettingsNotFound) {
			return ErrSettingsNotFound
		}
		return err
	}
	if settings.Status == models.TournamentRunning {
		return ErrTournamentRunning
	}

	s.sched.CancelAll()
	if err := s.bracket.ResetBracket(ctx); err != nil {
		return err
	}

	if !s.feed.CheckConnectionHealth() {
		if err := s.feed.Reconnect(ctx); err != nil {
			s.logger.Error("price feed unavailable at start", slog.Any("error", err))
			return ErrFeedUnhealthy
		}
	}
	s.feed.ResetAllPrices()
	if !s.feed.EnsureAllPricesPresent(ctx) {
		s.logger.Warn("starting with incomplete price coverage")
	}

	matches, err := s.bracket.Draw(ctx)
	if err != nil {
		return err
	}

	if err := s.settings.UpdateStatus(ctx, models.TournamentRunning); err != nil {
		return err
	}

	base := settings.StartTime
	if now := s.registry.Clock().Now(); base.Before(now) {
		base = now
	}
	if err := s.sched.ScheduleRound(ctx, matches, base); err != nil {
		return err
	}

	s.logger.Info("tournament started", slog.Time("first_match", base))
	return nil
}

// Stop aborts the running tournament: pending actions are cancelled,
// the bracket is dropped and the status becomes completed. Balances
// and reservations are untouched. In auto mode the next run is booked
// the same way a finished finale books it.
func (s *TournamentService) Stop(ctx context.Context) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	if settings.Status != models.TournamentRunning {
		return ErrTournamentNotRunning
	}

	s.sched.CancelAll()
	if err := s.bracket.ResetBracket(ctx); err != nil {
		return err
	}
	s.feed.ResetAllPrices()

	if err := s.settings.UpdateStatus(ctx, models.TournamentCompleted); err != nil {
		return err
	}
	s.logger.Info("tournament stopped")

	if settings.AutoMode {
		return s.ScheduleAutoRestart(ctx)
	}
	return nil
}

// Draw redraws the bracket without starting the schedule, so the
// pairings can be inspected before the first round is booked.
func (s *TournamentService) Draw(ctx context.Context) ([]*models.Match, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings.Status == models.TournamentRunning {
		return nil, ErrTournamentRunning
	}

	s.sched.CancelAll()
	if err := s.bracket.ResetBracket(ctx); err != nil {
		return nil, err
	}
	return s.bracket.Draw(ctx)
}

// ResetStartPrices re-anchors every symbol at its current market
// price.
func (s *TournamentService) ResetStartPrices(ctx context.Context) {
	s.feed.ResetAndSetAllStartPrices(ctx)
}

// FeedHealth reports whether the price stream is alive, reconnecting
// once before giving a verdict.
func (s *TournamentService) FeedHealth(ctx context.Context) bool {
	if s.feed.CheckConnectionHealth() {
		return true
	}
	if err := s.feed.Reconnect(ctx); err != nil {
		s.logger.Warn("feed reconnect failed", slog.Any("error", err))
		return false
	}
	return s.feed.CheckConnectionHealth()
}

func (s *TournamentService) GetSettings(ctx context.Context) (*models.TournamentSettings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrSettingsNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	return settings, nil
}

// SettingsUpdate carries the mutable settings fields; nil leaves a
// field unchanged.
type SettingsUpdate struct {
	StartTime        *time.Time `json:"start_time"`
	MatchDurationSec *int       `json:"match_duration_sec"`
	BreakDurationSec *int       `json:"break_duration_sec"`
	AutoMode         *bool      `json:"auto_mode"`
	AutoIntervalMin  *int       `json:"auto_interval_min"`
}

// UpdateSettings applies the patch. Economics and status are never
// writable from outside; a schedule change takes effect on the next
// tournament start.
func (s *TournamentService) UpdateSettings(ctx context.Context, upd SettingsUpdate) (*models.TournamentSettings, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	if upd.StartTime != nil {
		settings.StartTime = *upd.StartTime
	}
	if upd.MatchDurationSec != nil {
		settings.MatchDurationSec = *upd.MatchDurationSec
	}
	if upd.BreakDurationSec != nil {
		settings.BreakDurationSec = *upd.BreakDurationSec
	}
	if upd.AutoMode != nil {
		settings.AutoMode = *upd.AutoMode
	}
	if upd.AutoIntervalMin != nil {
		settings.AutoIntervalMin = *upd.AutoIntervalMin
	}

	if settings.MatchDurationSec <= 0 || settings.BreakDurationSec < 0 {
		return nil, ErrInvalidDuration
	}
	if settings.AutoMode && settings.AutoIntervalMin <= 0 {
		return nil, ErrInvalidAutoInterval
	}

	if err := s.settings.Save(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// LivePrice is one row of the public live ticker: a team, its market
// and its movement since the current anchor.
type LivePrice struct {
	TeamID        int     `json:"team_id"`
	Symbol        string  `json:"symbol"`
	CurrentPrice  float64 `json:"current_price"`
	ChangePercent float64 `json:"change_percent"`
}

func (s *TournamentService) LivePrices(ctx context.Context) ([]LivePrice, error) {
	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, err
	}

	prices := make([]LivePrice, 0, len(teams))
	for _, t := range teams {
		row := LivePrice{TeamID: t.ID, Symbol: t.Symbol}
		if current, ok := s.feed.GetCurrentPrice(t.Symbol); ok {
			row.CurrentPrice = current
		}
		if snap, ok := s.feed.GetPriceChange(t.Symbol); ok {
			row.ChangePercent = snap.ChangePercent
		}
		prices = append(prices, row)
	}
	return prices, nil
}

// PrizeFundSummary is the public view of the tournament economics.
type PrizeFundSummary struct {
	TotalReservationIncome float64 `json:"total_reservation_income"`
	PrizeFund              float64 `json:"prize_fund"`
}

func (s *TournamentService) PrizeFund(ctx context.Context) (*PrizeFundSummary, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	return &PrizeFundSummary{
		TotalReservationIncome: settings.TotalReservationIncome,
		PrizeFund:              settings.PrizeFund,
	}, nil
}

func (s *TournamentService) ListTeams(ctx context.Context) ([]*models.Team, error) {
	return s.teams.List(ctx)
}

func (s *TournamentService) ListMatches(ctx context.Context) ([]*models.Match, error) {
	return s.bracket.ListMatches(ctx)
}

func (s *TournamentService) LatestResults(ctx context.Context) (*models.TournamentResults, error) {
	results, err := s.results.GetLatest(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrResultsNotFound) {
			return nil, ErrResultsNotFound
		}
		return nil, err
	}
	return results, nil
}

// StartMatchNow pulls a pending match's start action forward to the
// current moment; its end action moves with it.
func (s *TournamentService) StartMatchNow(ctx context.Context, matchID string) error {
	return s.sched.StartMatchNow(ctx, matchID)
}

// CompleteMatchNow settles an active match immediately instead of
// waiting for its end action.
func (s *TournamentService) CompleteMatchNow(ctx context.Context, matchID string) error {
	s.registry.Cancel("end_" + matchID)
	return s.resolver.Resolve(ctx, matchID)
}

// ScheduleAutoRestart books the next tournament one auto interval
// away and stamps the new start time into the settings.
func (s *TournamentService) ScheduleAutoRestart(ctx context.Context) error {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return err
	}
	if !settings.AutoMode || settings.AutoIntervalMin <= 0 {
		return nil
	}

	delay := time.Duration(settings.AutoIntervalMin) * time.Minute
	next := s.registry.Clock().Now().Add(delay)
	if err := s.settings.UpdateNextStart(ctx, next); err != nil {
		return err
	}

	s.registry.Schedule("auto_restart", delay, func() {
		if err := s.Start(context.Background()); err != nil {
			s.logger.Error("auto restart failed", slog.Any("error", err))
		}
	})

	s.logger.Info("next tournament scheduled", slog.Time("start", next))
	return nil
}
