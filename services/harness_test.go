package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/Rosdorosh/Crypto-Liga/models"
	"github.com/Rosdorosh/Crypto-Liga/repositories"
	"github.com/Rosdorosh/Crypto-Liga/scheduler"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// fakeFeed is an in-memory PriceSource the tests drive by hand.
type fakeFeed struct {
	mu           sync.Mutex
	symbols      []string
	healthy      bool
	prices       map[string]float64
	starts       map[string]float64
	restPrices   map[string]float64
	reconnects   int
	reconnectErr error
}

func newFakeFeed(symbols []string) *fakeFeed {
	return &fakeFeed{
		symbols:    symbols,
		healthy:    true,
		prices:     make(map[string]float64),
		starts:     make(map[string]float64),
		restPrices: make(map[string]float64),
	}
}

func (f *fakeFeed) setPrice(symbol string, price float64) {
	f.mu.Lock()
	f.prices[symbol] = price
	f.mu.Unlock()
}

func (f *fakeFeed) setRestPrice(symbol string, price float64) {
	f.mu.Lock()
	f.restPrices[symbol] = price
	f.mu.Unlock()
}

func (f *fakeFeed) CheckConnectionHealth() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy
}

func (f *fakeFeed) Reconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
	if f.reconnectErr != nil {
		return f.reconnectErr
	}
	f.healthy = true
	return nil
}

func (f *fakeFeed) GetCurrentPrice(symbol string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prices[symbol]
	return p, ok
}

func (f *fakeFeed) SetStartPrice(symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prices[symbol]
	if !ok {
		return 0, errors.New("no current price")
	}
	f.starts[symbol] = p
	return p, nil
}

func (f *fakeFeed) FetchInitialPrice(_ context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.restPrices[symbol]
	if !ok {
		return 0, errors.New("rest fetch failed")
	}
	f.prices[symbol] = p
	return p, nil
}

func (f *fakeFeed) EnsureAllPricesPresent(ctx context.Context) bool {
	ok := true
	for _, symbol := range f.Symbols() {
		if _, present := f.GetCurrentPrice(symbol); present {
			continue
		}
		if _, err := f.FetchInitialPrice(ctx, symbol); err != nil {
			ok = false
		}
	}
	return ok
}

func (f *fakeFeed) ResetAllPrices() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices = make(map[string]float64)
	f.starts = make(map[string]float64)
}

func (f *fakeFeed) ResetAndSetAllStartPrices(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for symbol, p := range f.prices {
		f.starts[symbol] = p
	}
}

func (f *fakeFeed) GetPriceChange(symbol string) (*models.PriceSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, okCur := f.prices[symbol]
	start, okStart := f.starts[symbol]
	if !okCur || !okStart || start == 0 {
		return nil, false
	}
	change := (current - start) / start * 100
	return &models.PriceSnapshot{
		Start:         start,
		End:           current,
		ChangePercent: math.Round(change*100) / 100,
	}, true
}

func (f *fakeFeed) Symbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.symbols...)
}

// fakeGateway confirms every payment immediately.
type fakeGateway struct {
	mu       sync.Mutex
	nextID   int
	rejected bool
}

func (g *fakeGateway) Deposit(_ context.Context, _ string, _ float64) (string, error) {
	return g.issue(), nil
}

func (g *fakeGateway) Withdraw(_ context.Context, _, _ string, _ float64) (string, error) {
	return g.issue(), nil
}

func (g *fakeGateway) Balance(context.Context, string) (float64, error) {
	return 0, nil
}

func (g *fakeGateway) Verify(context.Context, string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.rejected, nil
}

func (g *fakeGateway) issue() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	return fmt.Sprintf("pay-%d", g.nextID)
}

type harness struct {
	clock      *scheduler.FakeClock
	registry   *scheduler.Registry
	teams      *repositories.MemoryTeamRepository
	matches    *repositories.MemoryMatchRepository
	settings   *repositories.MemorySettingsRepository
	finances   *repositories.MemoryFinanceRepository
	results    *repositories.MemoryResultsRepository
	feed       *fakeFeed
	gateway    *fakeGateway
	ledger     *LedgerService
	referrals  *ReferralService
	bracket    *BracketService
	sched      *TournamentScheduler
	resolution *ResolutionService
	tournament *TournamentService
}

func testSymbols() []string {
	symbols := make([]string, 32)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("SYM%02dUSDT", i+1)
	}
	return symbols
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		clock:    scheduler.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		teams:    repositories.NewMemoryTeamRepository(),
		matches:  repositories.NewMemoryMatchRepository(),
		settings: repositories.NewMemorySettingsRepository(),
		finances: repositories.NewMemoryFinanceRepository(),
		results:  repositories.NewMemoryResultsRepository(),
		feed:     newFakeFeed(testSymbols()),
		gateway:  &fakeGateway{},
	}
	h.registry = scheduler.NewRegistry(h.clock)
	logger := discardLogger()

	h.ledger = NewLedgerService(h.finances, h.teams, h.settings, h.gateway, logger)
	h.referrals = NewReferralService(h.finances)
	h.bracket = NewBracketService(h.matches, h.teams, rand.New(rand.NewSource(1)), logger)
	h.sched = NewTournamentScheduler(h.registry, h.matches, h.teams, h.settings, h.feed, logger)
	h.sched.SetStartRetry(RetryPolicy{MaxAttempts: 2, Delay: 0})
	h.resolution = NewResolutionService(h.matches, h.teams, h.settings, h.results, h.feed, h.ledger, h.clock, logger)
	h.resolution.SetRetry(RetryPolicy{MaxAttempts: 2, Delay: 0})
	h.tournament = NewTournamentService(h.registry, h.settings, h.teams, h.results, h.bracket, h.sched, h.feed, logger)

	h.bracket.BindStarter(h.sched)
	h.sched.BindResolver(h.resolution)
	h.resolution.BindAdvancer(h.bracket)
	h.resolution.BindRestarter(h.tournament)
	h.tournament.BindResolver(h.resolution)

	return h
}

// seed prepares the idle state every scenario starts from: settings
// row, 32 teams and a live price for every symbol.
func (h *harness) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, h.settings.Save(ctx, &models.TournamentSettings{
		StartTime:        h.clock.Now(),
		MatchDurationSec: 5,
		BreakDurationSec: 2,
		Status:           models.TournamentPending,
	}))
	require.NoError(t, h.tournament.EnsureTeams(ctx))

	for i, symbol := range h.feed.Symbols() {
		h.feed.setPrice(symbol, 100+float64(i))
		h.feed.setRestPrice(symbol, 100+float64(i))
	}
}

func (h *harness) fund(t *testing.T, userID string, amount float64) {
	t.Helper()
	ctx := context.Background()
	_, err := h.finances.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, h.finances.Credit(ctx, userID, models.Transaction{
		Type:      models.TransactionDeposit,
		Amount:    amount,
		Timestamp: h.clock.Now(),
	}))
}

func (h *harness) balance(t *testing.T, userID string) float64 {
	t.Helper()
	fin, err := h.finances.Get(context.Background(), userID)
	require.NoError(t, err)
	return fin.Balance
}
