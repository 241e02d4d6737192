package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"
)

type tickersResponse struct {
	Result struct {
		List []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	} `json:"result"`
}

// FetchInitialPrice pulls one symbol's last price over REST and
// stores it as the current price. This is the fallback for gaps in
// the push stream.
func (s *Service) FetchInitialPrice(ctx context.Context, symbol string) (float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	endpoint := fmt.Sprintf("%s/v5/market/tickers?category=spot&symbol=%s", s.restURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ticker request for %s failed: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ticker request for %s returned status %d", symbol, resp.StatusCode)
	}

	var body tickersResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode ticker response for %s: %w", symbol, err)
	}
	if len(body.Result.List) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrPriceUnavailable, symbol)
	}

	price, err := strconv.ParseFloat(body.Result.List[0].LastPrice, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrPriceUnavailable, symbol)
	}

	s.updatePrice(symbol, price)
	return price, nil
}

// EnsureAllPricesPresent verifies every symbol has a current price,
// backfilling missing ones over REST concurrently. It reports false
// when any symbol still lacks a price afterwards.
func (s *Service) EnsureAllPricesPresent(ctx context.Context) bool {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, symbol := range s.symbols {
		symbol := symbol
		if _, ok := s.GetCurrentPrice(symbol); ok {
			continue
		}
		g.Go(func() error {
			if _, err := s.FetchInitialPrice(gCtx, symbol); err != nil {
				return fmt.Errorf("no price for %s: %w", symbol, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("some symbols have no price", slog.Any("error", err))
		return false
	}
	return true
}

// ResetAndSetAllStartPrices re-anchors every symbol's start price to
// its current price, fetching over REST where the stream has no
// value yet. Run after each match resolution so idle teams show
// sensible live deltas.
func (s *Service) ResetAndSetAllStartPrices(ctx context.Context) {
	for _, symbol := range s.symbols {
		if _, ok := s.GetCurrentPrice(symbol); !ok {
			if _, err := s.FetchInitialPrice(ctx, symbol); err != nil {
				s.logger.Warn("failed to fetch price for start anchor",
					slog.String("symbol", symbol), slog.Any("error", err))
				continue
			}
		}
		if _, err := s.SetStartPrice(symbol); err != nil {
			s.logger.Warn("failed to set start price", slog.String("symbol", symbol))
		}
	}
}
