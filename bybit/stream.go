package bybit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrPriceUnavailable  = errors.New("no current price for symbol")
	ErrReconnectExceeded = errors.New("reached maximum number of reconnect attempts")
)

// wsConn is the slice of *websocket.Conn the stream uses, split out
// so tests can substitute a fake connection.
type wsConn interface {
	WriteJSON(v interface{}) error
	ReadMessage() (int, []byte, error)
	Close() error
}

type subscribeRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

type tickerMessage struct {
	Topic string `json:"topic"`
	Data  struct {
		Symbol    string `json:"symbol"`
		LastPrice string `json:"lastPrice"`
	} `json:"data"`
}

// Start dials the stream and launches the read and staleness loops.
// Both loops run for the process lifetime, across tournament
// stop/start cycles, until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if err := s.connect(ctx); err != nil {
		return err
	}
	go s.readLoop(ctx)
	go s.stalenessLoop(ctx)
	return nil
}

func (s *Service) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial price stream: %w", err)
	}

	topics := make([]string, 0, len(s.symbols))
	for _, symbol := range s.symbols {
		topics = append(topics, "tickers."+symbol)
	}
	if err := conn.WriteJSON(subscribeRequest{Op: "subscribe", Args: topics}); err != nil {
		conn.Close()
		return fmt.Errorf("failed to subscribe to tickers: %w", err)
	}

	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
	s.mu.Unlock()

	s.logger.Info("price stream connected", slog.Int("symbols", len(s.symbols)))
	return nil
}

// readLoop consumes push updates until ctx is cancelled. An exhausted
// reconnect budget pauses the loop instead of stopping it, so any
// later successful Reconnect resumes push delivery on the new
// connection.
func (s *Service) readLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			if !s.pause(ctx) {
				return
			}
			continue
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("price stream read failed", slog.Any("error", err))
			if rerr := s.Reconnect(ctx); rerr != nil {
				s.logger.Error("price stream reconnect failed", slog.Any("error", rerr))
				if !s.pause(ctx) {
					return
				}
			}
			continue
		}
		s.handleMessage(payload)
	}
}

// pause waits one reconnect delay, reporting false on cancellation.
func (s *Service) pause(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(s.reconnect.Delay):
		return true
	}
}

func (s *Service) handleMessage(payload []byte) {
	var msg tickerMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return
	}
	if !strings.HasPrefix(msg.Topic, "tickers.") || msg.Data.Symbol == "" {
		return
	}
	price, err := strconv.ParseFloat(msg.Data.LastPrice, 64)
	if err != nil || price <= 0 {
		return
	}
	s.updatePrice(msg.Data.Symbol, price)
}

// Reconnect tears the subscription down and re-establishes the whole
// set, bounded by the configured retry policy.
func (s *Service) Reconnect(ctx context.Context) error {
	for attempt := 1; attempt <= s.reconnect.MaxAttempts; attempt++ {
		s.logger.Info("reconnecting price stream",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", s.reconnect.MaxAttempts))

		if err := s.connect(ctx); err == nil {
			s.ResetAndSetAllStartPrices(ctx)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.reconnect.Delay):
		}
	}
	return ErrReconnectExceeded
}

// stalenessLoop backfills individual symbols whose push updates have
// gone quiet, without touching the connection; the scheduler's
// health gate handles full-stream outages.
func (s *Service) stalenessLoop(ctx context.Context) {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, symbol := range s.staleSymbols() {
				if _, err := s.FetchInitialPrice(ctx, symbol); err != nil {
					s.logger.Warn("stale symbol backfill failed",
						slog.String("symbol", symbol), slog.Any("error", err))
				}
			}
		}
	}
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
