package services

import (
	"context"
	"testing"
	"time"

	"github.com/Rosdorosh/Crypto-Liga/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoMatchRound seeds a round where one match is already settled, so
// resolving the other leaves an even winner count to pair from.
func twoMatchRound(t *testing.T, h *harness, round int) *models.Match {
	t.Helper()
	ctx := context.Background()
	now := h.clock.Now()
	winner := 3

	open := &models.Match{
		ID: "open", Team1ID: 1, Team2ID: 2,
		Round: round, OrderInRound: 1,
		RoundName: models.RoundNameFor(round),
		Status:    models.MatchStatusActive, StartTime: &now,
	}
	settled := &models.Match{
		ID: "settled", Team1ID: 3, Team2ID: 4,
		Round: round, OrderInRound: 2,
		RoundName: models.RoundNameFor(round),
		Status:    models.MatchStatusCompleted, WinnerID: &winner,
	}
	require.NoError(t, h.matches.CreateBatch(ctx, []*models.Match{open, settled}))
	return open
}

func anchor(h *harness, symbol string, start, current float64) {
	h.feed.mu.Lock()
	h.feed.starts[symbol] = start
	h.feed.prices[symbol] = current
	h.feed.mu.Unlock()
}

func TestResolvePicksLargerPriceChange(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	m := twoMatchRound(t, h, 3)
	anchor(h, "SYM01USDT", 100, 101) // +1.00%
	anchor(h, "SYM02USDT", 200, 205) // +2.50%

	require.NoError(t, h.resolution.Resolve(ctx, m.ID))

	resolved, err := h.matches.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, resolved.Status)
	require.NotNil(t, resolved.WinnerID)
	assert.Equal(t, 2, *resolved.WinnerID)
	require.NotNil(t, resolved.Team1Result)
	assert.Equal(t, 1.0, resolved.Team1Result.ChangePercent)
	assert.Equal(t, 2.5, resolved.Team2Result.ChangePercent)
	assert.NotNil(t, resolved.EndTime)
}

func TestResolveNegativeChangesStillCompare(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	m := twoMatchRound(t, h, 3)
	anchor(h, "SYM01USDT", 100, 97)  // -3.00%
	anchor(h, "SYM02USDT", 200, 198) // -1.00%

	require.NoError(t, h.resolution.Resolve(ctx, m.ID))

	resolved, err := h.matches.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, *resolved.WinnerID, "smaller loss wins")
}

func TestResolveTieFavoursTeam1(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	m := twoMatchRound(t, h, 3)
	anchor(h, "SYM01USDT", 100, 102)
	anchor(h, "SYM02USDT", 50, 51)

	require.NoError(t, h.resolution.Resolve(ctx, m.ID))

	resolved, err := h.matches.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, *resolved.WinnerID)
}

func TestResolveCompletedMatchIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	m := twoMatchRound(t, h, 3)
	anchor(h, "SYM01USDT", 100, 101)
	anchor(h, "SYM02USDT", 200, 205)

	require.NoError(t, h.resolution.Resolve(ctx, m.ID))
	first, err := h.matches.GetByID(ctx, m.ID)
	require.NoError(t, err)

	anchor(h, "SYM01USDT", 100, 150)
	require.NoError(t, h.resolution.Resolve(ctx, m.ID))

	second, err := h.matches.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.WinnerID, *second.WinnerID)
	assert.Equal(t, first.Team1Result.ChangePercent, second.Team1Result.ChangePercent)
}

func TestResolvePendingMatchRejected(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	pending := &models.Match{
		ID: "p", Team1ID: 1, Team2ID: 2, Round: 1, OrderInRound: 1,
		RoundName: models.RoundSixteenth, Status: models.MatchStatusPending,
	}
	require.NoError(t, h.matches.CreateBatch(ctx, []*models.Match{pending}))

	assert.ErrorIs(t, h.resolution.Resolve(ctx, "p"), ErrMatchNotActive)
	assert.ErrorIs(t, h.resolution.Resolve(ctx, "missing"), ErrMatchNotFound)
}

func TestResolveBackfillsSnapshotOverRest(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	m := twoMatchRound(t, h, 3)
	anchor(h, "SYM02USDT", 200, 202)

	// Team1's stream price is gone; only the anchor and a REST quote
	// remain.
	h.feed.mu.Lock()
	delete(h.feed.prices, "SYM01USDT")
	h.feed.starts["SYM01USDT"] = 100
	h.feed.restPrices["SYM01USDT"] = 105
	h.feed.mu.Unlock()

	require.NoError(t, h.resolution.Resolve(ctx, m.ID))

	resolved, err := h.matches.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, resolved.Team1Result.ChangePercent)
	assert.Equal(t, 1, *resolved.WinnerID)
}

func TestResolveSettlesOnZeroChangeWhenFeedIsGone(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	m := twoMatchRound(t, h, 3)
	h.feed.ResetAllPrices()
	h.feed.mu.Lock()
	h.feed.restPrices = map[string]float64{}
	h.feed.mu.Unlock()

	require.NoError(t, h.resolution.Resolve(ctx, m.ID))

	resolved, err := h.matches.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, resolved.Status)
	assert.Equal(t, 1, *resolved.WinnerID, "zero against zero favours team1")
	assert.Equal(t, 0.0, resolved.Team1Result.ChangePercent)
	assert.Equal(t, 0.0, resolved.Team2Result.ChangePercent)
}

func TestFinalDistributesPrizesAndResets(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	for _, userID := range []string{"alice", "bob", "carol"} {
		require.NoError(t, h.teams.AddMember(ctx, 1, userID, 100))
	}
	for _, userID := range []string{"dave", "eve"} {
		require.NoError(t, h.teams.AddMember(ctx, 2, userID, 100))
	}
	require.NoError(t, h.settings.UpdateEconomics(ctx, 1481.5, 1200))

	now := h.clock.Now()
	final := &models.Match{
		ID: "final", Team1ID: 1, Team2ID: 2,
		Round: models.FinalRound, OrderInRound: 1,
		RoundName: models.RoundFinal,
		Status:    models.MatchStatusActive, StartTime: &now,
	}
	require.NoError(t, h.matches.CreateBatch(ctx, []*models.Match{final}))

	anchor(h, "SYM01USDT", 100, 103)
	anchor(h, "SYM02USDT", 200, 202)

	require.NoError(t, h.resolution.Resolve(ctx, "final"))

	// floor(1200*0.7)=840 over 3 members, floor(1200*0.3)=360 over 2.
	assert.Equal(t, 280.0, h.balance(t, "alice"))
	assert.Equal(t, 280.0, h.balance(t, "bob"))
	assert.Equal(t, 280.0, h.balance(t, "carol"))
	assert.Equal(t, 180.0, h.balance(t, "dave"))
	assert.Equal(t, 180.0, h.balance(t, "eve"))

	results, err := h.results.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, results.FirstPlace.TeamID)
	assert.Equal(t, 280.0, results.FirstPlace.PrizePerUser)
	assert.Equal(t, 2, results.SecondPlace.TeamID)
	assert.Equal(t, 180.0, results.SecondPlace.PrizePerUser)
	assert.Equal(t, 1200.0, results.TotalPrizeFund)

	team, err := h.teams.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, team.MemberIDs)
	assert.Equal(t, 100.0, team.TeamCost)

	settings, err := h.settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentCompleted, settings.Status)
	assert.Equal(t, 0.0, settings.TotalReservationIncome)
	assert.Equal(t, 0.0, settings.PrizeFund)

	// Every symbol is re-anchored at its current price, so the live
	// ticker keeps serving deltas between tournaments.
	current, ok := h.feed.GetCurrentPrice("SYM01USDT")
	require.True(t, ok, "current prices survive the finale")
	assert.Equal(t, 103.0, current)
	snap, ok := h.feed.GetPriceChange("SYM03USDT")
	require.True(t, ok, "idle teams keep an anchored start price")
	assert.Equal(t, 0.0, snap.ChangePercent)
}

func TestFinalSchedulesAutoRestart(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	settings, err := h.settings.Get(ctx)
	require.NoError(t, err)
	settings.AutoMode = true
	settings.AutoIntervalMin = 1
	require.NoError(t, h.settings.Save(ctx, settings))
	require.NoError(t, h.settings.UpdateEconomics(ctx, 0, 100))

	now := h.clock.Now()
	final := &models.Match{
		ID: "final", Team1ID: 1, Team2ID: 2,
		Round: models.FinalRound, OrderInRound: 1,
		RoundName: models.RoundFinal,
		Status:    models.MatchStatusActive, StartTime: &now,
	}
	require.NoError(t, h.matches.CreateBatch(ctx, []*models.Match{final}))
	anchor(h, "SYM01USDT", 100, 101)
	anchor(h, "SYM02USDT", 200, 201)

	require.NoError(t, h.resolution.Resolve(ctx, "final"))

	updated, err := h.settings.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, updated.NextStartTime)
	assert.Equal(t, h.clock.Now().Add(time.Minute), *updated.NextStartTime)
	assert.Equal(t, 1, h.registry.Pending(), "restart action booked")
}
