package engine

import (
	"io"
	"log"
	"math"
	"testing"
	"time"

	"trend-paper-trader/internal/domain"
	"trend-paper-trader/internal/indicator"
	"trend-paper-trader/internal/risk"
	"trend-paper-trader/internal/strategy"
)

// recordingSink captures events in order for assertions.
type recordingSink struct {
	signals    []domain.Signal
	opened     []domain.Position
	trailed    [][2]float64
	closed     []domain.ClosedTrade
	portfolios []domain.PortfolioSnapshot
	warnings   []string
}

func (r *recordingSink) OnSignalDetected(s domain.Signal)   { r.signals = append(r.signals, s) }
func (r *recordingSink) OnPositionOpened(p domain.Position) { r.opened = append(r.opened, p) }
func (r *recordingSink) OnStopTrailed(o, n float64) {
	r.trailed = append(r.trailed, [2]float64{o, n})
}
func (r *recordingSink) OnPositionClosed(t domain.ClosedTrade) {
	r.closed = append(r.closed, t)
}
func (r *recordingSink) OnPortfolioUpdate(p domain.PortfolioSnapshot) {
	r.portfolios = append(r.portfolios, p)
}
func (r *recordingSink) OnCycleError(stage string, err error) { r.warnings = append(r.warnings, stage) }

var t0 = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

// candleSeries builds hourly candles with high/low one point around
// the close.
func candleSeries(closes ...float64) []domain.Candle {
	out := make([]domain.Candle, len(closes))
	for i, c := range closes {
		out[i] = domain.Candle{
			OpenTime: t0.Add(time.Duration(i) * time.Hour),
			Open:     c,
			High:     c + 1,
			Low:      c - 1,
			Close:    c,
		}
	}
	return out
}

// crossoverCloses produces a clean upward EMA(2)/EMA(3) cross on the
// final candle with the close above the short EMA.
func crossoverCloses() []float64 {
	return []float64{100, 100, 100, 80, 120}
}

func newTestManager(t *testing.T, sink Sink, rm *risk.Manager) *Manager {
	t.Helper()

	calc, err := indicator.New(2, 3, 2, 2)
	if err != nil {
		t.Fatalf("indicator.New: %v", err)
	}
	if rm == nil {
		rm, err = risk.NewManager(500, 0.02, 0.10)
		if err != nil {
			t.Fatalf("risk.NewManager: %v", err)
		}
	}
	det, err := strategy.NewDetector(0.5, 10, rm)
	if err != nil {
		t.Fatalf("strategy.NewDetector: %v", err)
	}

	m, err := New(Options{
		Symbol:          "BTCUSD",
		SessionID:       "test-session",
		StrategyVersion: domain.StrategyV2,
		InitialCapital:  500,
		Calculator:      calc,
		Detector:        det,
		TrailingStop:    strategy.NewTrailingStop(domain.StrategyV2),
		RiskManager:     rm,
		Sink:            sink,
		Logger:          log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return m
}

func openLong(t *testing.T, m *Manager) domain.Position {
	t.Helper()
	if err := m.OnCandleClosed(candleSeries(crossoverCloses()...), t0.Add(5*time.Hour)); err != nil {
		t.Fatalf("OnCandleClosed: %v", err)
	}
	pos, ok := m.Position()
	if !ok {
		t.Fatal("expected an open position after crossover candle")
	}
	return pos
}

func TestEntry_LongCrossoverOpensPosition(t *testing.T) {
	sink := &recordingSink{}
	m := newTestManager(t, sink, nil)

	pos := openLong(t, m)

	if len(sink.signals) != 1 || len(sink.opened) != 1 {
		t.Fatalf("events: signals=%d opened=%d, want 1/1", len(sink.signals), len(sink.opened))
	}
	if pos.Side != domain.SideLong {
		t.Errorf("side = %s, want LONG", pos.Side)
	}
	if pos.TradeID == "" {
		t.Error("position must carry a trade ID")
	}
	if pos.StopLoss >= pos.EntryPrice {
		t.Errorf("long stop %v not below entry %v", pos.StopLoss, pos.EntryPrice)
	}
	if pos.Quantity <= 0 {
		t.Errorf("quantity = %v, want positive", pos.Quantity)
	}
}

func TestEntry_DuplicateCandleIsIdempotent(t *testing.T) {
	sink := &recordingSink{}
	m := newTestManager(t, sink, nil)

	candles := candleSeries(crossoverCloses()...)
	if err := m.OnCandleClosed(candles, t0.Add(5*time.Hour)); err != nil {
		t.Fatalf("OnCandleClosed: %v", err)
	}
	// Same candle again: no duplicate events of any kind.
	if err := m.OnCandleClosed(candles, t0.Add(5*time.Hour+time.Minute)); err != nil {
		t.Fatalf("OnCandleClosed repeat: %v", err)
	}

	if len(sink.signals) != 1 || len(sink.opened) != 1 || len(sink.trailed) != 0 {
		t.Fatalf("duplicate candle produced events: %+v", sink)
	}
}

func TestTick_StopFillsAtStopLevel(t *testing.T) {
	sink := &recordingSink{}
	m := newTestManager(t, sink, nil)
	pos := openLong(t, m)

	// Tick through the stop: fill at the stop level, not the tick.
	if err := m.OnPriceTick(pos.StopLoss-5, t0.Add(6*time.Hour)); err != nil {
		t.Fatalf("OnPriceTick: %v", err)
	}

	if _, open := m.Position(); open {
		t.Fatal("position still open after stop tick")
	}
	if len(sink.closed) != 1 {
		t.Fatalf("closed events = %d, want 1", len(sink.closed))
	}
	trade := sink.closed[0]
	if trade.ExitReason != domain.ExitReasonStopLoss {
		t.Errorf("exit reason = %s, want STOP_LOSS", trade.ExitReason)
	}
	if trade.ExitPrice != pos.StopLoss {
		t.Errorf("exit price = %v, want stop level %v", trade.ExitPrice, pos.StopLoss)
	}

	wantPnL := (pos.StopLoss - pos.EntryPrice) * pos.Quantity
	if math.Abs(trade.RealizedPnL-wantPnL) > 1e-9 {
		t.Errorf("pnl = %v, want %v", trade.RealizedPnL, wantPnL)
	}
	if got := m.Portfolio().CashBalance; math.Abs(got-(500+wantPnL)) > 1e-9 {
		t.Errorf("cash = %v, want %v", got, 500+wantPnL)
	}
}

func TestTick_TakeProfitFillsAtTargetLevel(t *testing.T) {
	sink := &recordingSink{}
	m := newTestManager(t, sink, nil)
	pos := openLong(t, m)

	if err := m.OnPriceTick(pos.TakeProfit+50, t0.Add(6*time.Hour)); err != nil {
		t.Fatalf("OnPriceTick: %v", err)
	}

	if len(sink.closed) != 1 {
		t.Fatalf("closed events = %d, want 1", len(sink.closed))
	}
	trade := sink.closed[0]
	if trade.ExitReason != domain.ExitReasonTakeProfit {
		t.Errorf("exit reason = %s, want TAKE_PROFIT", trade.ExitReason)
	}
	if trade.ExitPrice != pos.TakeProfit {
		t.Errorf("exit price = %v, want target level %v", trade.ExitPrice, pos.TakeProfit)
	}
}

func TestCandle_StopPrecedenceWhenBothCrossed(t *testing.T) {
	sink := &recordingSink{}
	m := newTestManager(t, sink, nil)
	openLong(t, m)

	// One candle whose range swallows both stop and target.
	wide := domain.Candle{
		OpenTime: t0.Add(5 * time.Hour),
		Open:     120,
		High:     10000,
		Low:      0.01,
		Close:    120,
	}
	candles := append(candleSeries(crossoverCloses()...), wide)
	if err := m.OnCandleClosed(candles, t0.Add(6*time.Hour)); err != nil {
		t.Fatalf("OnCandleClosed: %v", err)
	}

	if len(sink.closed) != 1 {
		t.Fatalf("closed events = %d, want 1", len(sink.closed))
	}
	if got := sink.closed[0].ExitReason; got != domain.ExitReasonStopLoss {
		t.Errorf("exit reason = %s, want STOP_LOSS precedence", got)
	}
}

func TestCandle_TrailingMovesStopMonotonically(t *testing.T) {
	sink := &recordingSink{}
	m := newTestManager(t, sink, nil)
	openLong(t, m)

	// Rising closes in a tight range: EMAs climb, no exit trigger.
	closes := append(crossoverCloses(), 121, 122, 123)
	candles := candleSeries(closes...)
	for i := range candles[5:] {
		// Narrow the extra candles so neither stop nor target is hit.
		c := &candles[5+i]
		c.High = c.Close + 0.1
		c.Low = c.Close - 0.1
	}
	for i := 5; i < len(candles); i++ {
		if err := m.OnCandleClosed(candles[:i+1], candles[i].OpenTime.Add(time.Minute)); err != nil {
			t.Fatalf("OnCandleClosed[%d]: %v", i, err)
		}
	}

	if len(sink.trailed) == 0 {
		t.Fatal("expected trailing stop updates on rising EMAs")
	}
	for i, tr := range sink.trailed {
		if tr[1] <= tr[0] {
			t.Errorf("trail %d loosened the stop: %v -> %v", i, tr[0], tr[1])
		}
	}
}

func TestGuard_VetoesEntryButKeepsManagingOpenPosition(t *testing.T) {
	rm, err := risk.NewManager(500, 0.02, 0.10)
	if err != nil {
		t.Fatalf("risk.NewManager: %v", err)
	}
	// Trip the guard: 10% of 500 = 50 lost today.
	rm.RecordTradeClose(-60, t0)

	sink := &recordingSink{}
	m := newTestManager(t, sink, rm)

	if err := m.OnCandleClosed(candleSeries(crossoverCloses()...), t0.Add(5*time.Hour)); err != nil {
		t.Fatalf("OnCandleClosed: %v", err)
	}

	if _, open := m.Position(); open {
		t.Fatal("guard must veto the entry")
	}
	if len(sink.signals) != 1 {
		t.Fatalf("signal events = %d, want 1 (signal still reported)", len(sink.signals))
	}
	if len(sink.warnings) == 0 {
		t.Error("expected a risk_guard warning event")
	}
}

func TestTick_FlatKeepsStateAndReportsPortfolio(t *testing.T) {
	sink := &recordingSink{}
	m := newTestManager(t, sink, nil)

	if err := m.OnPriceTick(12345, t0); err != nil {
		t.Fatalf("OnPriceTick: %v", err)
	}
	if len(sink.portfolios) != 1 {
		t.Fatalf("portfolio updates = %d, want 1", len(sink.portfolios))
	}
	p := sink.portfolios[0]
	if p.CashBalance != 500 || p.UnrealizedPnL != 0 {
		t.Errorf("flat tick mutated portfolio: %+v", p)
	}
}

func TestTick_UnrealizedPnLRecomputed(t *testing.T) {
	sink := &recordingSink{}
	m := newTestManager(t, sink, nil)
	pos := openLong(t, m)

	before := len(sink.portfolios)
	if err := m.OnPriceTick(pos.EntryPrice+10, t0.Add(6*time.Hour)); err != nil {
		t.Fatalf("OnPriceTick: %v", err)
	}
	got := sink.portfolios[before].UnrealizedPnL
	want := 10 * pos.Quantity
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("unrealized = %v, want %v", got, want)
	}
}

func TestInvariant_AtMostOnePosition(t *testing.T) {
	sink := &recordingSink{}
	m := newTestManager(t, sink, nil)
	openLong(t, m)

	// Later candles may stop the position out and re-enter on a fresh
	// cross, but at no point may more than one position exist.
	closes := append(crossoverCloses(), 100, 80, 120)
	candles := candleSeries(closes...)
	for i := 5; i < len(candles); i++ {
		if err := m.OnCandleClosed(candles[:i+1], candles[i].OpenTime.Add(time.Minute)); err != nil {
			t.Fatalf("OnCandleClosed[%d]: %v", i, err)
		}
		live := len(sink.opened) - len(sink.closed)
		if live != 0 && live != 1 {
			t.Fatalf("step %d: %d live positions", i, live)
		}
		if _, open := m.Position(); open != (live == 1) {
			t.Fatalf("step %d: manager position view disagrees with events", i)
		}
	}
}
