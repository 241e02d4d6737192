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

// MatchResolver settles an active match once its end action fires.
// Implemented by the resolution service.
type MatchResolver interface {
	Resolve(ctx context.Context, matchID string) error
}

// TournamentScheduler turns the bracket into timed actions on the
// shared registry: a start and an end action per match, keyed
// "start_<id>" and "end_<id>". Matches inside a round run one after
// another with the configured break between them.
type TournamentScheduler struct {
	registry   *scheduler.Registry
	matches    repositories.MatchRepository
	teams      repositories.TeamRepository
	settings   repositories.SettingsRepository
	feed       PriceSource
	resolver   MatchResolver
	startRetry RetryPolicy
	logger     *slog.Logger
}

func NewTournamentScheduler(
	registry *scheduler.Registry,
	matches repositories.MatchRepository,
	teams repositories.TeamRepository,
	settings repositories.SettingsRepository,
	feed PriceSource,
	logger *slog.Logger,
) *TournamentScheduler {
	return &TournamentScheduler{
		registry:   registry,
		matches:    matches,
		teams:      teams,
		settings:   settings,
		feed:       feed,
		startRetry: RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second},
		logger:     logger,
	}
}

// BindResolver wires the resolution service in after construction.
func (s *TournamentScheduler) BindResolver(resolver MatchResolver) {
	s.resolver = resolver
}

// SetStartRetry overrides the start-price retry policy.
func (s *TournamentScheduler) SetStartRetry(p RetryPolicy) {
	s.startRetry = p
}

// ScheduleRound books start and end actions for each match, the i-th
// match starting at base + i*(matchDuration+breakDuration).
func (s *TournamentScheduler) ScheduleRound(ctx context.Context, matches []*models.Match, base time.Time) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrSettingsNotFound) {
			return ErrSettingsNotFound
		}
		return err
	}

	slot := settings.MatchDuration() + settings.BreakDuration()
	now := s.registry.Clock().Now()

	for i, m := range matches {
		matchID := m.ID
		start := base.Add(time.Duration(i) * slot)
		end := start.Add(settings.MatchDuration())

		s.registry.Schedule("start_"+matchID, start.Sub(now), func() {
			s.fireStart(matchID)
		})
		s.registry.Schedule("end_"+matchID, end.Sub(now), func() {
			s.fireEnd(matchID)
		})

		s.logger.Info("match scheduled",
			slog.String("match_id", matchID),
			slog.String("round_name", string(m.RoundName)),
			slog.Time("start", start),
			slog.Time("end", end))
	}
	return nil
}

// ScheduleNextRound books a freshly advanced round, its first match
// starting one break after the current moment.
func (s *TournamentScheduler) ScheduleNextRound(ctx context.Context, matches []*models.Match) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	base := s.registry.Clock().Now().Add(settings.BreakDuration())
	return s.ScheduleRound(ctx, matches, base)
}

// StartMatchNow replaces a pending match's booked actions so the
// start fires immediately and the end one match duration later.
func (s *TournamentScheduler) StartMatchNow(ctx context.Context, matchID string) error {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	if match.Status != models.MatchStatusPending {
		return ErrMatchAlreadyStarted
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}

	s.registry.Schedule("start_"+matchID, 0, func() {
		s.fireStart(matchID)
	})
	s.registry.Schedule("end_"+matchID, settings.MatchDuration(), func() {
		s.fireEnd(matchID)
	})
	return nil
}

// CancelAll drops every pending action. Must run before any bracket
// reset so stale timers cannot fire against the new bracket.
func (s *TournamentScheduler) CancelAll() {
	s.registry.CancelAll()
}

// fireStart activates the match: the feed's health is gated first,
// then both teams' start prices are anchored, then the match flips to
// active. A match no longer pending is left alone.
func (s *TournamentScheduler) fireStart(matchID string) {
	ctx := context.Background()

	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		s.logger.Error("start action lost its match", slog.String("match_id", matchID), slog.Any("error", err))
		return
	}
	if match.Status != models.MatchStatusPending {
		return
	}

	if !s.feed.CheckConnectionHealth() {
		s.logger.Warn("price feed unhealthy at match start", slog.String("match_id", matchID))
		if err := s.feed.Reconnect(ctx); err != nil {
			s.logger.Error("price feed reconnect failed", slog.Any("error", err))
		}
	}

	for _, teamID := range []int{match.Team1ID, match.Team2ID} {
		team, err := s.teams.GetByID(ctx, teamID)
		if err != nil {
			s.logger.Error("failed to load team for match start",
				slog.Int("team_id", teamID), slog.Any("error", err))
			continue
		}
		if err := s.anchorStartPrice(ctx, team.Symbol); err != nil {
			s.logger.Error("failed to anchor start price",
				slog.String("symbol", team.Symbol), slog.Any("error", err))
		}
	}

	now := s.registry.Clock().Now()
	match.Status = models.MatchStatusActive
	match.StartTime = &now
	if err := s.matches.Update(ctx, match); err != nil {
		s.logger.Error("failed to activate match", slog.String("match_id", matchID), slog.Any("error", err))
		return
	}

	s.logger.Info("match started",
		slog.String("match_id", matchID),
		slog.String("round_name", string(match.RoundName)))
}

// anchorStartPrice snapshots the symbol's start price, pulling the
// price over REST when the stream has no value yet.
func (s *TournamentScheduler) anchorStartPrice(ctx context.Context, symbol string) error {
	var lastErr error
	for attempt := 1; attempt <= s.startRetry.MaxAttempts; attempt++ {
		_, err := s.feed.SetStartPrice(symbol)
		if err == nil {
			return nil
		}
		lastErr = err
		if _, err := s.feed.FetchInitialPrice(ctx, symbol); err != nil {
			lastErr = err
		}
		if attempt < s.startRetry.MaxAttempts {
			sleepFor(ctx, s.registry.Clock(), s.startRetry.Delay)
		}
	}
	if _, err := s.feed.SetStartPrice(symbol); err == nil {
		return nil
	}
	return lastErr
}

// fireEnd hands an active match to the resolution service. Matches
// already settled by hand are left alone.
func (s *TournamentScheduler) fireEnd(matchID string) {
	ctx := context.Background()

	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		s.logger.Error("end action lost its match", slog.String("match_id", matchID), slog.Any("error", err))
		return
	}
	if match.Status != models.MatchStatusActive {
		return
	}

	if err := s.resolver.Resolve(ctx, matchID); err != nil {
		s.logger.Error("match resolution failed",
			slog.String("match_id", matchID), slog.Any("error", err))
	}
}
