// Package engine owns the single position slot and the portfolio.
// All trading state mutation happens here under one lock; the
// monitoring scheduler only calls in after fetching market data
// outside the critical section.
package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"trend-paper-trader/internal/domain"
	"trend-paper-trader/internal/idhash"
	"trend-paper-trader/internal/indicator"
	"trend-paper-trader/internal/risk"
	"trend-paper-trader/internal/strategy"
)

// ErrInvariantViolated marks a programming error in the position
// lifecycle (e.g. opening while a position exists). It is fatal: the
// scheduler must halt rather than continue with inconsistent state.
var ErrInvariantViolated = errors.New("position invariant violated")

// Manager is the position lifecycle state machine: FLAT or OPEN(side).
type Manager struct {
	symbol    string
	sessionID string
	version   domain.StrategyVersion

	calc     *indicator.Calculator
	detector *strategy.Detector
	trailing *strategy.TrailingStop
	risk     *risk.Manager
	sink     Sink
	logger   *log.Logger

	mu             sync.Mutex
	position       *domain.Position // nil when flat
	portfolio      domain.Portfolio
	trades         []domain.ClosedTrade
	lastCandleTime time.Time
	lastPrice      float64
}

// Options configures a Manager.
type Options struct {
	Symbol          string
	SessionID       string
	StrategyVersion domain.StrategyVersion
	InitialCapital  float64

	Calculator   *indicator.Calculator
	Detector     *strategy.Detector
	TrailingStop *strategy.TrailingStop
	RiskManager  *risk.Manager
	Sink         Sink
	Logger       *log.Logger
}

// New creates a Manager starting flat at the configured capital.
func New(opts Options) (*Manager, error) {
	if opts.Calculator == nil || opts.Detector == nil || opts.TrailingStop == nil || opts.RiskManager == nil {
		return nil, errors.New("calculator, detector, trailing stop and risk manager are required")
	}
	if opts.InitialCapital <= 0 {
		return nil, fmt.Errorf("initial capital must be positive, got %v", opts.InitialCapital)
	}
	sink := opts.Sink
	if sink == nil {
		sink = NopSink{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		symbol:    opts.Symbol,
		sessionID: opts.SessionID,
		version:   opts.StrategyVersion,
		calc:      opts.Calculator,
		detector:  opts.Detector,
		trailing:  opts.TrailingStop,
		risk:      opts.RiskManager,
		sink:      sink,
		logger:    logger,
		portfolio: domain.NewPortfolio(opts.InitialCapital),
	}, nil
}

// OnCandleClosed processes a newly closed candle: trailing stop and
// candle-extreme exits while a position is open, entry detection
// while flat. Feeding the same candle twice is a no-op, so duplicate
// fetches cannot produce duplicate signal/trail/close events.
func (m *Manager) OnCandleClosed(candles []domain.Candle, now time.Time) error {
	if len(candles) < 2 {
		return nil
	}
	last := candles[len(candles)-1]

	m.mu.Lock()
	defer m.mu.Unlock()

	if !last.OpenTime.After(m.lastCandleTime) {
		return nil
	}
	m.lastCandleTime = last.OpenTime

	snaps := m.calc.Compute(candles)
	curr := snaps[len(snaps)-1]
	prev := snaps[len(snaps)-2]

	if m.position != nil {
		m.trailStop(curr)
		m.checkCandleExit(last, now)
		return nil
	}
	return m.tryEnter(prev, curr, last, now)
}

// OnPriceTick checks the open position against a live price and
// refreshes the marked-to-market portfolio. Exits fill at the level
// crossed, not the tick price, to avoid slippage bias.
func (m *Manager) OnPriceTick(price float64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastPrice = price

	if m.position == nil {
		m.portfolio.UnrealizedPnL = 0
		m.sink.OnPortfolioUpdate(m.snapshot(now))
		return nil
	}

	pos := m.position
	m.portfolio.UnrealizedPnL = pos.UnrealizedPnL(price)
	m.sink.OnPortfolioUpdate(m.snapshot(now))

	// Stop before target: the conservative fill assumption.
	if pos.Side == domain.SideLong {
		switch {
		case price <= pos.StopLoss:
			m.closePosition(pos.StopLoss, domain.ExitReasonStopLoss, now)
		case price >= pos.TakeProfit:
			m.closePosition(pos.TakeProfit, domain.ExitReasonTakeProfit, now)
		}
	} else {
		switch {
		case price >= pos.StopLoss:
			m.closePosition(pos.StopLoss, domain.ExitReasonStopLoss, now)
		case price <= pos.TakeProfit:
			m.closePosition(pos.TakeProfit, domain.ExitReasonTakeProfit, now)
		}
	}
	return nil
}

// trailStop applies the candle-driven trailing update. Callers hold m.mu.
func (m *Manager) trailStop(snap domain.IndicatorSnapshot) {
	pos := m.position
	newStop := m.trailing.Update(pos.Side, pos.StopLoss, snap)
	if newStop == pos.StopLoss {
		return
	}
	oldStop := pos.StopLoss
	pos.StopLoss = newStop
	m.logger.Printf("trailing stop moved %s: %.2f -> %.2f", pos.Side, oldStop, newStop)
	m.sink.OnStopTrailed(oldStop, newStop)
}

// checkCandleExit closes the position when the candle's high-low
// range crossed the stop or target. When both were crossed within the
// same candle, the stop takes precedence. Callers hold m.mu.
func (m *Manager) checkCandleExit(candle domain.Candle, now time.Time) {
	pos := m.position
	if pos.Side == domain.SideLong {
		switch {
		case candle.Low <= pos.StopLoss:
			m.closePosition(pos.StopLoss, domain.ExitReasonStopLoss, now)
		case candle.High >= pos.TakeProfit:
			m.closePosition(pos.TakeProfit, domain.ExitReasonTakeProfit, now)
		}
	} else {
		switch {
		case candle.High >= pos.StopLoss:
			m.closePosition(pos.StopLoss, domain.ExitReasonStopLoss, now)
		case candle.Low <= pos.TakeProfit:
			m.closePosition(pos.TakeProfit, domain.ExitReasonTakeProfit, now)
		}
	}
}

// tryEnter runs signal detection while flat. Callers hold m.mu.
func (m *Manager) tryEnter(prev, curr domain.IndicatorSnapshot, candle domain.Candle, now time.Time) error {
	sig, err := m.detector.Evaluate(prev, curr, candle)
	if err != nil {
		// Invalid geometry discards the signal; not a system failure.
		if errors.Is(err, strategy.ErrNonPositiveRisk) {
			m.logger.Printf("signal discarded: %v", err)
			m.sink.OnCycleError("signal", err)
			return nil
		}
		return fmt.Errorf("evaluate signal: %w", err)
	}
	if sig == nil {
		return nil
	}

	m.sink.OnSignalDetected(*sig)

	if err := m.risk.CheckEntryAllowed(now); err != nil {
		if errors.Is(err, risk.ErrGuardTripped) {
			m.logger.Printf("entry vetoed: %v", err)
			m.sink.OnCycleError("risk_guard", err)
			return nil
		}
		return err
	}
	if sig.Size <= 0 {
		m.logger.Printf("signal discarded: zero position size")
		return nil
	}
	return m.openPosition(sig, now)
}

// openPosition installs the single position. Callers hold m.mu.
func (m *Manager) openPosition(sig *domain.Signal, now time.Time) error {
	if m.position != nil {
		return fmt.Errorf("%w: open %s position exists at entry time", ErrInvariantViolated, m.position.Side)
	}

	pos := &domain.Position{
		TradeID:         idhash.ComputeTradeID(m.sessionID, m.symbol, string(sig.Side), string(m.version), now),
		Side:            sig.Side,
		EntryPrice:      sig.EntryPrice,
		EntryTime:       now,
		Quantity:        sig.Size,
		StopLoss:        sig.StopLoss,
		InitialStopLoss: sig.StopLoss,
		TakeProfit:      sig.TakeProfit,
		StrategyVersion: m.version,
	}
	m.position = pos

	m.logger.Printf("position opened %s %s qty=%.6f entry=%.2f sl=%.2f tp=%.2f",
		pos.TradeID, pos.Side, pos.Quantity, pos.EntryPrice, pos.StopLoss, pos.TakeProfit)
	m.sink.OnPositionOpened(*pos)
	return nil
}

// closePosition realizes the trade. Mark-to-market accounting:
// nothing was deducted at open, the realized result moves cash at
// close. Callers hold m.mu.
func (m *Manager) closePosition(exitPrice float64, reason string, now time.Time) {
	pos := m.position

	var pnl float64
	if pos.Side == domain.SideLong {
		pnl = (exitPrice - pos.EntryPrice) * pos.Quantity
	} else {
		pnl = (pos.EntryPrice - exitPrice) * pos.Quantity
	}

	trade := domain.ClosedTrade{
		TradeID:         pos.TradeID,
		SessionID:       m.sessionID,
		Symbol:          m.symbol,
		Side:            pos.Side,
		EntryPrice:      pos.EntryPrice,
		EntryTime:       pos.EntryTime,
		Quantity:        pos.Quantity,
		InitialStopLoss: pos.InitialStopLoss,
		FinalStopLoss:   pos.StopLoss,
		TakeProfit:      pos.TakeProfit,
		StrategyVersion: pos.StrategyVersion,
		ExitPrice:       exitPrice,
		ExitTime:        now,
		ExitReason:      reason,
		RealizedPnL:     pnl,
	}

	m.position = nil
	m.portfolio.CashBalance += pnl
	m.portfolio.RealizedPnLTotal += pnl
	m.portfolio.UnrealizedPnL = 0
	m.trades = append(m.trades, trade)
	m.risk.RecordTradeClose(pnl, now)

	m.logger.Printf("position closed %s %s exit=%.2f pnl=%+.2f reason=%s cash=%.2f",
		trade.TradeID, trade.Side, exitPrice, pnl, reason, m.portfolio.CashBalance)
	m.sink.OnPositionClosed(trade)
	m.lastPrice = exitPrice
	m.sink.OnPortfolioUpdate(m.snapshot(now))
}

// snapshot builds one equity timeseries point. Callers hold m.mu.
func (m *Manager) snapshot(now time.Time) domain.PortfolioSnapshot {
	return domain.PortfolioSnapshot{
		SessionID:     m.sessionID,
		Timestamp:     now,
		Price:         m.lastPrice,
		CashBalance:   m.portfolio.CashBalance,
		UnrealizedPnL: m.portfolio.UnrealizedPnL,
		Equity:        m.portfolio.Equity(),
		PositionOpen:  m.position != nil,
	}
}

// Portfolio returns a copy of the current portfolio.
func (m *Manager) Portfolio() domain.Portfolio {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portfolio
}

// Snapshot returns the current equity point at the last seen price.
func (m *Manager) Snapshot(now time.Time) domain.PortfolioSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(now)
}

// Position returns a copy of the open position, if any.
func (m *Manager) Position() (domain.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.position == nil {
		return domain.Position{}, false
	}
	return *m.position, true
}

// Trades returns a copy of the closed trade history.
func (m *Manager) Trades() []domain.ClosedTrade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ClosedTrade, len(m.trades))
	copy(out, m.trades)
	return out
}
