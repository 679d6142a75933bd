package recorder

import (
	"log"

	"trend-paper-trader/internal/domain"
	"trend-paper-trader/internal/engine"
)

// LogSink narrates engine events to a logger. Portfolio updates fire
// every price tick and are skipped to keep the log readable.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a sink writing to the given logger.
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{logger: logger}
}

// Compile-time interface check.
var _ engine.Sink = (*LogSink)(nil)

func (s *LogSink) OnSignalDetected(sig domain.Signal) {
	s.logger.Printf("Signal: %s entry=%.2f stop=%.2f target=%.2f size=%.8f (EMA %.2f/%.2f ATR %.2f)",
		sig.Side, sig.EntryPrice, sig.StopLoss, sig.TakeProfit, sig.Size,
		sig.EMAShort, sig.EMALong, sig.ATR)
}

func (s *LogSink) OnPositionOpened(pos domain.Position) {
	s.logger.Printf("Opened %s %s: entry=%.2f qty=%.8f stop=%.2f target=%.2f (%s)",
		pos.Side, pos.TradeID, pos.EntryPrice, pos.Quantity, pos.StopLoss,
		pos.TakeProfit, pos.StrategyVersion)
}

func (s *LogSink) OnStopTrailed(oldStop, newStop float64) {
	s.logger.Printf("Stop trailed %.2f -> %.2f", oldStop, newStop)
}

func (s *LogSink) OnPositionClosed(t domain.ClosedTrade) {
	s.logger.Printf("Closed %s %s: exit=%.2f reason=%s pnl=%.2f held=%s",
		t.Side, t.TradeID, t.ExitPrice, t.ExitReason, t.RealizedPnL,
		t.HoldDuration())
}

func (s *LogSink) OnPortfolioUpdate(domain.PortfolioSnapshot) {}

func (s *LogSink) OnCycleError(stage string, err error) {
	s.logger.Printf("Warning [%s]: %v", stage, err)
}
