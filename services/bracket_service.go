package services

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/Rosdorosh/Crypto-Liga/brackets"
	"github.com/Rosdorosh/Crypto-Liga/models"
	"github.com/Rosdorosh/Crypto-Liga/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// MatchStarter books the start and end actions for the pending
// matches of a freshly created round. Implemented by the tournament
// scheduler; declared here so the bracket service does not depend on
// it directly.
type MatchStarter interface {
	ScheduleNextRound(ctx context.Context, matches []*models.Match) error
}

type BracketService struct {
	matches repositories.MatchRepository
	teams   repositories.TeamRepository
	starter MatchStarter
	rng     *rand.Rand
	logger  *slog.Logger

	// advance collapses concurrent round-advancement triggers into a
	// single execution.
	advance singleflight.Group
}

func NewBracketService(
	matches repositories.MatchRepository,
	teams repositories.TeamRepository,
	rng *rand.Rand,
	logger *slog.Logger,
) *BracketService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &BracketService{
		matches: matches,
		teams:   teams,
		rng:     rng,
		logger:  logger,
	}
}

// BindStarter wires the scheduler in after construction; the two
// services reference each other.
func (s *BracketService) BindStarter(starter MatchStarter) {
	s.starter = starter
}

// Draw builds the first round from a random pairing of 32 available
// teams and persists the 16 pending matches.
func (s *BracketService) Draw(ctx context.Context) ([]*models.Match, error) {
	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(teams))
	for _, t := range teams {
		if t.IsAvailable {
			ids = append(ids, t.ID)
		}
	}

	pairings, err := brackets.Draw(ids, s.rng)
	if err != nil {
		if errors.Is(err, brackets.ErrInsufficientTeams) {
			return nil, ErrNotEnoughTeams
		}
		return nil, err
	}

	matches := make([]*models.Match, 0, len(pairings))
	for _, p := range pairings {
		matches = append(matches, brackets.NewMatch(uuid.NewString(), p))
	}
	if err := s.matches.CreateBatch(ctx, matches); err != nil {
		return nil, err
	}

	s.logger.Info("bracket drawn", slog.Int("matches", len(matches)))
	return matches, nil
}

// CheckAndAdvanceRound creates the next round once every match of the
// current highest round has completed. Concurrent calls from several
// match completions collapse into one execution; repeated calls after
// the round has advanced are no-ops because the new round's pending
// matches make the highest round incomplete.
func (s *BracketService) CheckAndAdvanceRound(ctx context.Context) error {
	_, err, _ := s.advance.Do("advance", func() (interface{}, error) {
		return nil, s.advanceRound(ctx)
	})
	return err
}

func (s *BracketService) advanceRound(ctx context.Context) error {
	round, err := s.matches.HighestRound(ctx)
	if err != nil {
		return err
	}
	if round == 0 || round >= models.FinalRound {
		return nil
	}

	current, err := s.matches.ListByRound(ctx, round)
	if err != nil {
		return err
	}

	winners := make([]int, 0, len(current))
	for _, m := range current {
		if m.Status != models.MatchStatusCompleted || m.WinnerID == nil {
			return nil
		}
		winners = append(winners, *m.WinnerID)
	}

	pairings, err := brackets.PairWinners(winners, round+1)
	if err != nil {
		return err
	}

	next := make([]*models.Match, 0, len(pairings))
	for _, p := range pairings {
		next = append(next, brackets.NewMatch(uuid.NewString(), p))
	}
	if err := s.matches.CreateBatch(ctx, next); err != nil {
		return err
	}

	s.logger.Info("round advanced",
		slog.Int("round", round+1),
		slog.String("round_name", string(models.RoundNameFor(round+1))),
		slog.Int("matches", len(next)))

	if s.starter != nil {
		if err := s.starter.ScheduleNextRound(ctx, next); err != nil {
			return err
		}
	}
	return nil
}

// ResetBracket drops every match; used when a tournament is stopped
// or restarted.
func (s *BracketService) ResetBracket(ctx context.Context) error {
	return s.matches.DeleteAll(ctx)
}

// ListMatches returns the full bracket with team entities attached.
func (s *BracketService) ListMatches(ctx context.Context) ([]*models.Match, error) {
	matches, err := s.matches.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if t, err := s.teams.GetByID(ctx, m.Team1ID); err == nil {
			m.Team1 = t
		}
		if t, err := s.teams.GetByID(ctx, m.Team2ID); err == nil {
			m.Team2 = t
		}
	}
	return matches, nil
}
