// Package bybit maintains live spot prices for the tournament's
// symbol universe: a push websocket subscription updates current
// prices, a pull REST fallback covers gaps, and per-symbol start
// prices anchor match price-change calculations.
package bybit

import (
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/Rosdorosh/Crypto-Liga/models"
	"golang.org/x/time/rate"
)

// DefaultSymbols is the fixed 32-symbol universe teams wrap.
var DefaultSymbols = []string{
	"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "XRPUSDT", "DOTUSDT", "ADAUSDT", "TONUSDT",
	"DOGEUSDT", "ATOMUSDT", "SHIBUSDT", "NEARUSDT", "POLUSDT", "AVAXUSDT", "FILUSDT", "APTUSDT",
	"1INCHUSDT", "ARBUSDT", "CAKEUSDT", "CRVUSDT", "DAIUSDT", "ICPUSDT", "INJUSDT", "JUPUSDT",
	"KASUSDT", "KSMUSDT", "LTCUSDT", "MNTUSDT", "OPUSDT", "STRKUSDT", "TRXUSDT", "UNIUSDT",
}

// RetryPolicy bounds reconnect loops: at most MaxAttempts tries with
// a fixed Delay between them.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

type Config struct {
	WSURL   string
	RESTURL string
	Symbols []string
	// StaleAfter is the per-symbol staleness threshold; a symbol not
	// updated for longer triggers a REST fallback fetch, and the
	// global heartbeat fails when no symbol is fresh.
	StaleAfter    time.Duration
	CheckInterval time.Duration
	Reconnect     RetryPolicy
	HTTPClient    *http.Client
	// Now is injectable for staleness tests; defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	wsURL         string
	restURL       string
	symbols       []string
	staleAfter    time.Duration
	checkInterval time.Duration
	reconnect     RetryPolicy
	httpClient    *http.Client
	limiter       *rate.Limiter
	now           func() time.Time
	logger        *slog.Logger

	mu          sync.RWMutex
	conn        wsConn
	prices      map[string]float64
	startPrices map[string]float64
	lastUpdate  map[string]time.Time
}

func NewService(cfg Config, logger *slog.Logger) *Service {
	if cfg.Symbols == nil {
		cfg.Symbols = DefaultSymbols
	}
	if cfg.StaleAfter == 0 {
		cfg.StaleAfter = 10 * time.Second
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 5 * time.Second
	}
	if cfg.Reconnect.MaxAttempts == 0 {
		cfg.Reconnect = RetryPolicy{MaxAttempts: 5, Delay: 5 * time.Second}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		wsURL:         cfg.WSURL,
		restURL:       cfg.RESTURL,
		symbols:       cfg.Symbols,
		staleAfter:    cfg.StaleAfter,
		checkInterval: cfg.CheckInterval,
		reconnect:     cfg.Reconnect,
		httpClient:    cfg.HTTPClient,
		limiter:       rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
		now:           cfg.Now,
		logger:        logger,
		prices:        make(map[string]float64),
		startPrices:   make(map[string]float64),
		lastUpdate:    make(map[string]time.Time),
	}
}

func (s *Service) Symbols() []string {
	return append([]string(nil), s.symbols...)
}

func (s *Service) updatePrice(symbol string, price float64) {
	s.mu.Lock()
	s.prices[symbol] = price
	s.lastUpdate[symbol] = s.now()
	s.mu.Unlock()
}

// GetCurrentPrice returns the last observed price for the symbol.
func (s *Service) GetCurrentPrice(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[symbol]
	return p, ok
}

// GetStartPrice returns the snapshot taken at match start.
func (s *Service) GetStartPrice(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.startPrices[symbol]
	return p, ok
}

// SetStartPrice snapshots the current price as the symbol's start
// price. It fails when no current price exists yet; the caller falls
// back to a REST fetch and retries.
func (s *Service) SetStartPrice(symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prices[symbol]
	if !ok {
		return 0, ErrPriceUnavailable
	}
	s.startPrices[symbol] = p
	return p, nil
}

func (s *Service) ResetStartPrice(symbol string) {
	s.mu.Lock()
	delete(s.startPrices, symbol)
	s.mu.Unlock()
}

// ResetAllPrices drops every current price, start price and update
// timestamp, used when a tournament (re)starts.
func (s *Service) ResetAllPrices() {
	s.mu.Lock()
	s.prices = make(map[string]float64)
	s.startPrices = make(map[string]float64)
	s.lastUpdate = make(map[string]time.Time)
	s.mu.Unlock()
}

// GetPriceChange reports the symbol's movement since its start price
// as a percentage, rounded to two decimals.
func (s *Service) GetPriceChange(symbol string) (*models.PriceSnapshot, bool) {
	s.mu.RLock()
	current, okCur := s.prices[symbol]
	start, okStart := s.startPrices[symbol]
	s.mu.RUnlock()

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

// CheckConnectionHealth is a global heartbeat: it passes while at
// least one symbol has updated within the staleness threshold.
// Transient single-symbol gaps are expected and do not fail it.
func (s *Service) CheckConnectionHealth() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	for _, symbol := range s.symbols {
		if last, ok := s.lastUpdate[symbol]; ok && now.Sub(last) < s.staleAfter {
			return true
		}
	}
	return false
}

func (s *Service) staleSymbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var stale []string
	for _, symbol := range s.symbols {
		last, ok := s.lastUpdate[symbol]
		if !ok || now.Sub(last) > s.staleAfter {
			stale = append(stale, symbol)
		}
	}
	return stale
}
