package services

import (
	"context"
	"time"

	"github.com/Rosdorosh/Crypto-Liga/models"
	"github.com/Rosdorosh/Crypto-Liga/scheduler"
)

// PriceSource is the slice of the market data adapter the tournament
// services consume. Implemented by bybit.Service.
type PriceSource interface {
	CheckConnectionHealth() bool
	Reconnect(ctx context.Context) error
	GetCurrentPrice(symbol string) (float64, bool)
	SetStartPrice(symbol string) (float64, error)
	FetchInitialPrice(ctx context.Context, symbol string) (float64, error)
	EnsureAllPricesPresent(ctx context.Context) bool
	ResetAllPrices()
	ResetAndSetAllStartPrices(ctx context.Context)
	GetPriceChange(symbol string) (*models.PriceSnapshot, bool)
	Symbols() []string
}

// RetryPolicy bounds a retry loop: at most MaxAttempts tries with a
// fixed Delay between them.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// sleepFor paces a retry loop on the injected clock, returning early
// when ctx is cancelled.
func sleepFor(ctx context.Context, clock scheduler.Clock, d time.Duration) {
	if d <= 0 {
		return
	}
	done := make(chan struct{})
	timer := clock.AfterFunc(d, func() { close(done) })
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-done:
	}
}
