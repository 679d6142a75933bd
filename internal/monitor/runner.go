package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"trend-paper-trader/internal/domain"
	"trend-paper-trader/internal/engine"
	"trend-paper-trader/internal/marketdata"
)

// Default cadences and history depth.
const (
	DefaultCandleInterval = 60 * time.Second
	DefaultPriceInterval  = 5 * time.Second
	DefaultCandleCount    = 100
)

// Engine is the strategy state machine driven by the runner.
type Engine interface {
	OnCandleClosed(candles []domain.Candle, now time.Time) error
	OnPriceTick(price float64, now time.Time) error
	Snapshot(now time.Time) domain.PortfolioSnapshot
}

// Runner drives the engine from market data on two cadences: a slow
// candle poll for signal and trailing work, and a fast price poll for
// exit checks. Both run on one goroutine so engine calls never
// interleave.
type Runner struct {
	feed           marketdata.Feed
	engine         Engine
	sink           engine.Sink
	symbol         string
	interval       string
	candleCount    int
	candleInterval time.Duration
	priceInterval  time.Duration
	logger         *log.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Feed           marketdata.Feed
	Engine         Engine
	Sink           engine.Sink // receives cycle error events; optional
	Symbol         string
	Interval       string
	CandleCount    int
	CandleInterval time.Duration
	PriceInterval  time.Duration
	Logger         *log.Logger
}

// NewRunner creates a monitoring runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Feed == nil {
		return nil, errors.New("monitor: feed is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("monitor: engine is required")
	}
	if opts.Symbol == "" {
		return nil, errors.New("monitor: symbol is required")
	}

	interval := opts.Interval
	if interval == "" {
		interval = "1h"
	}
	candleCount := opts.CandleCount
	if candleCount == 0 {
		candleCount = DefaultCandleCount
	}
	candleInterval := opts.CandleInterval
	if candleInterval == 0 {
		candleInterval = DefaultCandleInterval
	}
	priceInterval := opts.PriceInterval
	if priceInterval == 0 {
		priceInterval = DefaultPriceInterval
	}
	sink := opts.Sink
	if sink == nil {
		sink = engine.NopSink{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		feed:           opts.Feed,
		engine:         opts.Engine,
		sink:           sink,
		symbol:         opts.Symbol,
		interval:       interval,
		candleCount:    candleCount,
		candleInterval: candleInterval,
		priceInterval:  priceInterval,
		logger:         logger,
	}, nil
}

// Run starts both monitoring loops. It blocks until the context is
// cancelled or the engine reports an unrecoverable error.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Printf("Starting monitor for %s (%s candles every %v, price every %v)",
		r.symbol, r.interval, r.candleInterval, r.priceInterval)

	// Prime indicators before the first tick fires.
	if err := r.candleCycle(ctx); err != nil {
		return err
	}

	candleTicker := time.NewTicker(r.candleInterval)
	defer candleTicker.Stop()

	priceTicker := time.NewTicker(r.priceInterval)
	defer priceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Report the final portfolio so sinks persist closing state.
			r.sink.OnPortfolioUpdate(r.engine.Snapshot(time.Now().UTC()))
			r.logger.Println("Monitor stopping...")
			return ctx.Err()

		case <-candleTicker.C:
			if err := r.candleCycle(ctx); err != nil {
				return err
			}

		case <-priceTicker.C:
			if err := r.priceCycle(ctx); err != nil {
				return err
			}
		}
	}
}

// candleCycle fetches closed candles and runs the signal/trailing pass.
// Market data failures skip the cycle; engine failures stop the runner.
func (r *Runner) candleCycle(ctx context.Context) error {
	candles, err := r.feed.FetchCandles(ctx, r.symbol, r.interval, r.candleCount)
	if err != nil {
		if marketdata.IsDataError(err) {
			r.logger.Printf("Candle fetch failed, skipping cycle: %v", err)
			r.sink.OnCycleError("candle_fetch", err)
			return nil
		}
		return fmt.Errorf("fetch candles: %w", err)
	}

	if err := r.engine.OnCandleClosed(candles, time.Now().UTC()); err != nil {
		return fmt.Errorf("candle cycle: %w", err)
	}
	return nil
}

// priceCycle fetches the live price and runs the exit check.
func (r *Runner) priceCycle(ctx context.Context) error {
	price, err := r.feed.FetchLivePrice(ctx, r.symbol)
	if err != nil {
		if marketdata.IsDataError(err) {
			r.logger.Printf("Price fetch failed, skipping cycle: %v", err)
			r.sink.OnCycleError("price_fetch", err)
			return nil
		}
		return fmt.Errorf("fetch price: %w", err)
	}

	if err := r.engine.OnPriceTick(price, time.Now().UTC()); err != nil {
		return fmt.Errorf("price cycle: %w", err)
	}
	return nil
}
