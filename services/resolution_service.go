package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Rosdorosh/Crypto-Liga/models"
	"github.com/Rosdorosh/Crypto-Liga/repositories"
	"github.com/Rosdorosh/Crypto-Liga/scheduler"
)

const (
	firstPlaceShare  = 0.7
	secondPlaceShare = 0.3
)

// RoundAdvancer creates the next round once the current one is done.
// Implemented by the bracket service.
type RoundAdvancer interface {
	CheckAndAdvanceRound(ctx context.Context) error
}

// AutoRestarter schedules the next auto tournament after this one
// completes. Implemented by the tournament service.
type AutoRestarter interface {
	ScheduleAutoRestart(ctx context.Context) error
}

// ResolutionService settles matches from the price movements both
// teams showed over the match window.
type ResolutionService struct {
	matches   repositories.MatchRepository
	teams     repositories.TeamRepository
	settings  repositories.SettingsRepository
	results   repositories.ResultsRepository
	feed      PriceSource
	ledger    *LedgerService
	advancer  RoundAdvancer
	restarter AutoRestarter
	clock     scheduler.Clock
	retry     RetryPolicy
	logger    *slog.Logger
}

func NewResolutionService(
	matches repositories.MatchRepository,
	teams repositories.TeamRepository,
	settings repositories.SettingsRepository,
	results repositories.ResultsRepository,
	feed PriceSource,
	ledger *LedgerService,
	clock scheduler.Clock,
	logger *slog.Logger,
) *ResolutionService {
	return &ResolutionService{
		matches:  matches,
		teams:    teams,
		settings: settings,
		results:  results,
		feed:     feed,
		ledger:   ledger,
		clock:    clock,
		retry:    RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second},
		logger:   logger,
	}
}

func (s *ResolutionService) BindAdvancer(advancer RoundAdvancer) {
	s.advancer = advancer
}

func (s *ResolutionService) BindRestarter(restarter AutoRestarter) {
	s.restarter = restarter
}

// SetRetry overrides the snapshot retry policy.
func (s *ResolutionService) SetRetry(p RetryPolicy) {
	s.retry = p
}

// Resolve settles one match: it snapshots both teams' price changes,
// picks the winner (equal movement favours team1), stamps the match
// completed and advances the bracket. Resolving a completed match is
// a no-op, so a manual completion racing the end action is safe.
func (s *ResolutionService) Resolve(ctx context.Context, matchID string) error {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	if match.Status == models.MatchStatusCompleted {
		return nil
	}
	if match.Status != models.MatchStatusActive {
		return ErrMatchNotActive
	}

	team1, err := s.teams.GetByID(ctx, match.Team1ID)
	if err != nil {
		return err
	}
	team2, err := s.teams.GetByID(ctx, match.Team2ID)
	if err != nil {
		return err
	}

	snap1 := s.snapshotWithRetry(ctx, team1.Symbol)
	snap2 := s.snapshotWithRetry(ctx, team2.Symbol)

	winnerID := match.Team1ID
	if snap2.ChangePercent > snap1.ChangePercent {
		winnerID = match.Team2ID
	}

	now := s.clock.Now()
	match.Team1Result = snap1
	match.Team2Result = snap2
	match.WinnerID = &winnerID
	match.Status = models.MatchStatusCompleted
	match.EndTime = &now
	if err := s.matches.Update(ctx, match); err != nil {
		return err
	}

	s.logger.Info("match resolved",
		slog.String("match_id", matchID),
		slog.String("round_name", string(match.RoundName)),
		slog.Int("winner_id", winnerID),
		slog.Float64("team1_change", snap1.ChangePercent),
		slog.Float64("team2_change", snap2.ChangePercent))

	if match.Round >= models.FinalRound {
		return s.finishTournament(ctx, match, winnerID)
	}

	s.feed.ResetAndSetAllStartPrices(ctx)
	return s.advancer.CheckAndAdvanceRound(ctx)
}

// snapshotWithRetry pulls the symbol's change, retrying through a
// REST backfill for the missing price. When every attempt fails the
// match is settled on a zero-change snapshot rather than stalling the
// bracket.
func (s *ResolutionService) snapshotWithRetry(ctx context.Context, symbol string) *models.PriceSnapshot {
	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		if snap, ok := s.feed.GetPriceChange(symbol); ok {
			return snap
		}
		if _, err := s.feed.FetchInitialPrice(ctx, symbol); err != nil {
			s.logger.Warn("snapshot backfill failed",
				slog.String("symbol", symbol),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
		}
		if attempt < s.retry.MaxAttempts {
			sleepFor(ctx, s.clock, s.retry.Delay)
		}
	}
	if snap, ok := s.feed.GetPriceChange(symbol); ok {
		return snap
	}

	s.logger.Error("no price snapshot, settling on zero change", slog.String("symbol", symbol))
	return &models.PriceSnapshot{}
}

// finishTournament archives the finale, pays the prizes and returns
// the system to its idle state.
func (s *ResolutionService) finishTournament(ctx context.Context, final *models.Match, winnerID int) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}

	loserID := final.Team1ID
	if winnerID == final.Team1ID {
		loserID = final.Team2ID
	}

	first, err := s.placement(ctx, winnerID, math.Floor(settings.PrizeFund*firstPlaceShare))
	if err != nil {
		return err
	}
	second, err := s.placement(ctx, loserID, math.Floor(settings.PrizeFund*secondPlaceShare))
	if err != nil {
		return err
	}

	results := &models.TournamentResults{
		EndedAt:        s.clock.Now(),
		FirstPlace:     *first,
		SecondPlace:    *second,
		TotalPrizeFund: settings.PrizeFund,
	}
	if err := s.results.Create(ctx, results); err != nil {
		return err
	}

	s.ledger.DistributeRewards(ctx, first.MemberIDs, first.PrizePerUser,
		fmt.Sprintf("prize for 1st place (team %d)", first.TeamID))
	s.ledger.DistributeRewards(ctx, second.MemberIDs, second.PrizePerUser,
		fmt.Sprintf("prize for 2nd place (team %d)", second.TeamID))

	if err := s.teams.ResetAll(ctx, initialTeamCost); err != nil {
		return err
	}
	if err := s.settings.UpdateEconomics(ctx, 0, 0); err != nil {
		return err
	}
	if err := s.settings.UpdateStatus(ctx, models.TournamentCompleted); err != nil {
		return err
	}
	// Re-anchor every symbol at its current price so the live ticker
	// keeps showing deltas between tournaments.
	s.feed.ResetAndSetAllStartPrices(ctx)

	s.logger.Info("tournament completed",
		slog.Int("winner_team_id", winnerID),
		slog.Float64("prize_fund", settings.PrizeFund))

	if settings.AutoMode && s.restarter != nil {
		return s.restarter.ScheduleAutoRestart(ctx)
	}
	return nil
}

// placement computes the per-member prize as an even floor split of
// the team's share. A team nobody reserved keeps the degenerate
// divisor of one so the arithmetic stays defined.
func (s *ResolutionService) placement(ctx context.Context, teamID int, share float64) (*models.Placement, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	members := len(team.MemberIDs)
	if members == 0 {
		members = 1
	}
	return &models.Placement{
		TeamID:       teamID,
		MemberIDs:    team.MemberIDs,
		PrizePerUser: math.Floor(share / float64(members)),
	}, nil
}
