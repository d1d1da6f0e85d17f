package background

import (
	"context"
	"log/slog"
	"time"
)

// RateRefresher refreshes the FX rate table from its live source.
type RateRefresher interface {
	Refresh(ctx context.Context) error
}

// Sweeper drops expired quotes and locks from an in-process store.
type Sweeper interface {
	Sweep() int
}

type BackgroundTasks struct {
	Rates           RateRefresher
	Quotes          Sweeper
	RefreshInterval time.Duration
	SweepInterval   time.Duration
	Logger          *slog.Logger
}

func (bt *BackgroundTasks) StartAll(ctx context.Context) {
	if bt.Logger == nil {
		bt.Logger = slog.Default()
	}
	if bt.Rates != nil && bt.RefreshInterval > 0 {
		go bt.startRateRefresh(ctx)
	}
	if bt.Quotes != nil && bt.SweepInterval > 0 {
		go bt.startQuoteSweep(ctx)
	}
}

func (bt *BackgroundTasks) startRateRefresh(ctx context.Context) {
	ticker := time.NewTicker(bt.RefreshInterval)
	defer ticker.Stop()

	bt.refreshRates(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bt.refreshRates(ctx)
		}
	}
}

func (bt *BackgroundTasks) refreshRates(ctx context.Context) {
	if err := bt.Rates.Refresh(ctx); err != nil {
		bt.Logger.Warn("fx rate refresh failed, serving cached rates", "error", err)
	}
}

func (bt *BackgroundTasks) startQuoteSweep(ctx context.Context) {
	ticker := time.NewTicker(bt.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := bt.Quotes.Sweep(); removed > 0 {
				bt.Logger.Debug("expired quotes swept", "removed", removed)
			}
		}
	}
}
