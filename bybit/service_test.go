package bybit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

type manualTime struct {
	mu  sync.Mutex
	now time.Time
}

func (m *manualTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualTime) advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func newTestService(t *testing.T, cfg Config) (*Service, *manualTime) {
	t.Helper()
	mt := &manualTime{now: time.Unix(1_700_000_000, 0)}
	cfg.Now = mt.Now
	if cfg.Symbols == nil {
		cfg.Symbols = []string{"BTCUSDT", "ETHUSDT"}
	}
	return NewService(cfg, testLogger()), mt
}

func TestPriceChangeRoundedToTwoDecimals(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	svc.updatePrice("BTCUSDT", 30000)
	_, err := svc.SetStartPrice("BTCUSDT")
	require.NoError(t, err)

	svc.updatePrice("BTCUSDT", 30101)

	change, ok := svc.GetPriceChange("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, 30000.0, change.Start)
	assert.Equal(t, 30101.0, change.End)
	assert.InDelta(t, 0.34, change.ChangePercent, 1e-9) // 0.33666... rounds to 0.34
}

func TestPriceChangeMissingStart(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	svc.updatePrice("BTCUSDT", 30000)

	_, ok := svc.GetPriceChange("BTCUSDT")
	assert.False(t, ok)
}

func TestSetStartPriceFailsWithoutCurrentPrice(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	_, err := svc.SetStartPrice("ETHUSDT")
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestConnectionHealthIsGlobalHeartbeat(t *testing.T) {
	svc, mt := newTestService(t, Config{StaleAfter: 10 * time.Second})

	assert.False(t, svc.CheckConnectionHealth(), "no updates yet")

	svc.updatePrice("BTCUSDT", 30000)
	svc.updatePrice("ETHUSDT", 2000)
	assert.True(t, svc.CheckConnectionHealth())

	// One symbol going quiet is a transient gap, not an outage.
	mt.advance(8 * time.Second)
	svc.updatePrice("BTCUSDT", 30010)
	mt.advance(4 * time.Second)
	assert.True(t, svc.CheckConnectionHealth())

	// Every symbol stale means the stream itself is dead.
	mt.advance(11 * time.Second)
	assert.False(t, svc.CheckConnectionHealth())
}

func TestStaleSymbolsDetection(t *testing.T) {
	svc, mt := newTestService(t, Config{StaleAfter: 10 * time.Second})

	svc.updatePrice("BTCUSDT", 30000)
	mt.advance(11 * time.Second)
	svc.updatePrice("ETHUSDT", 2000)

	assert.Equal(t, []string{"BTCUSDT"}, svc.staleSymbols())
}

func TestFetchInitialPriceFromREST(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "spot", r.URL.Query().Get("category"))
		symbol := r.URL.Query().Get("symbol")
		fmt.Fprintf(w, `{"result":{"list":[{"symbol":%q,"lastPrice":"123.45"}]}}`, symbol)
	}))
	defer server.Close()

	svc, _ := newTestService(t, Config{RESTURL: server.URL})

	price, err := svc.FetchInitialPrice(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 123.45, price)

	current, ok := svc.GetCurrentPrice("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, 123.45, current)
}

func TestFetchInitialPriceEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"list":[]}}`)
	}))
	defer server.Close()

	svc, _ := newTestService(t, Config{RESTURL: server.URL})

	_, err := svc.FetchInitialPrice(context.Background(), "BTCUSDT")
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestEnsureAllPricesPresentBackfillsMissing(t *testing.T) {
	var mu sync.Mutex
	fetched := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		mu.Lock()
		fetched[symbol]++
		mu.Unlock()
		fmt.Fprintf(w, `{"result":{"list":[{"symbol":%q,"lastPrice":"50.0"}]}}`, symbol)
	}))
	defer server.Close()

	svc, _ := newTestService(t, Config{RESTURL: server.URL})
	svc.updatePrice("BTCUSDT", 30000) // already present, must not be refetched

	ok := svc.EnsureAllPricesPresent(context.Background())
	assert.True(t, ok)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{"ETHUSDT": 1}, fetched)
}

func TestEnsureAllPricesPresentReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	svc, _ := newTestService(t, Config{RESTURL: server.URL})
	assert.False(t, svc.EnsureAllPricesPresent(context.Background()))
}

func TestHandleMessageUpdatesPrice(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	svc.handleMessage([]byte(`{"topic":"tickers.BTCUSDT","data":{"symbol":"BTCUSDT","lastPrice":"26868.06"}}`))

	price, ok := svc.GetCurrentPrice("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, 26868.06, price)
}

func TestHandleMessageIgnoresGarbage(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	svc.handleMessage([]byte(`not json`))
	svc.handleMessage([]byte(`{"topic":"orderbook.BTCUSDT","data":{"symbol":"BTCUSDT","lastPrice":"1"}}`))
	svc.handleMessage([]byte(`{"topic":"tickers.BTCUSDT","data":{"symbol":"BTCUSDT","lastPrice":"-5"}}`))

	_, ok := svc.GetCurrentPrice("BTCUSDT")
	assert.False(t, ok)
}

// brokenConn fails every read, driving the loop into its reconnect
// path.
type brokenConn struct{}

func (brokenConn) WriteJSON(interface{}) error { return nil }

func (brokenConn) ReadMessage() (int, []byte, error) { return 0, nil, errBrokenPipe }

func (brokenConn) Close() error { return nil }

var errBrokenPipe = fmt.Errorf("broken pipe")

// replayConn serves queued payloads and blocks until closed.
type replayConn struct {
	payloads chan []byte
}

func (c *replayConn) WriteJSON(interface{}) error { return nil }

func (c *replayConn) ReadMessage() (int, []byte, error) {
	p, ok := <-c.payloads
	if !ok {
		return 0, nil, fmt.Errorf("connection closed")
	}
	return 1, p, nil
}

func (c *replayConn) Close() error { return nil }

func TestReadLoopSurvivesExhaustedReconnect(t *testing.T) {
	svc, _ := newTestService(t, Config{
		WSURL:     "ws://127.0.0.1:1", // nothing listens, every redial fails
		Reconnect: RetryPolicy{MaxAttempts: 1, Delay: time.Millisecond},
	})
	svc.mu.Lock()
	svc.conn = brokenConn{}
	svc.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	replay := &replayConn{payloads: make(chan []byte, 1)}
	t.Cleanup(func() {
		cancel()
		close(replay.payloads)
	})

	go svc.readLoop(ctx)

	// Let the loop burn through the reconnect budget at least once.
	time.Sleep(20 * time.Millisecond)

	// A later reconnect (health gate, FeedHealth) swaps in a live
	// connection; the loop must pick it up and consume pushes again.
	replay.payloads <- []byte(`{"topic":"tickers.BTCUSDT","data":{"symbol":"BTCUSDT","lastPrice":"30123.5"}}`)
	svc.mu.Lock()
	svc.conn = replay
	svc.mu.Unlock()

	require.Eventually(t, func() bool {
		price, ok := svc.GetCurrentPrice("BTCUSDT")
		return ok && price == 30123.5
	}, 2*time.Second, 5*time.Millisecond, "push updates must resume after an exhausted reconnect")
}

func TestResetAllPricesClearsState(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	svc.updatePrice("BTCUSDT", 30000)
	_, err := svc.SetStartPrice("BTCUSDT")
	require.NoError(t, err)

	svc.ResetAllPrices()

	_, ok := svc.GetCurrentPrice("BTCUSDT")
	assert.False(t, ok)
	_, ok = svc.GetStartPrice("BTCUSDT")
	assert.False(t, ok)
	assert.False(t, svc.CheckConnectionHealth())
}
