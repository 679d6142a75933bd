package engine

import "trend-paper-trader/internal/domain"

// Sink receives engine events in execution order, one call per
// occurrence. Events are the sole observable output of the engine
// besides the portfolio and trade history it owns.
type Sink interface {
	OnSignalDetected(sig domain.Signal)
	OnPositionOpened(pos domain.Position)
	OnStopTrailed(oldStop, newStop float64)
	OnPositionClosed(trade domain.ClosedTrade)
	OnPortfolioUpdate(snap domain.PortfolioSnapshot)

	// OnCycleError reports a recoverable warning: a skipped monitoring
	// cycle or a discarded signal. Never a fatal condition.
	OnCycleError(stage string, err error)
}

// MultiSink fans each event out to every child in order.
type MultiSink []Sink

func (m MultiSink) OnSignalDetected(sig domain.Signal) {
	for _, s := range m {
		s.OnSignalDetected(sig)
	}
}

func (m MultiSink) OnPositionOpened(pos domain.Position) {
	for _, s := range m {
		s.OnPositionOpened(pos)
	}
}

func (m MultiSink) OnStopTrailed(oldStop, newStop float64) {
	for _, s := range m {
		s.OnStopTrailed(oldStop, newStop)
	}
}

func (m MultiSink) OnPositionClosed(trade domain.ClosedTrade) {
	for _, s := range m {
		s.OnPositionClosed(trade)
	}
}

func (m MultiSink) OnPortfolioUpdate(snap domain.PortfolioSnapshot) {
	for _, s := range m {
		s.OnPortfolioUpdate(snap)
	}
}

func (m MultiSink) OnCycleError(stage string, err error) {
	for _, s := range m {
		s.OnCycleError(stage, err)
	}
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) OnSignalDetected(domain.Signal)             {}
func (NopSink) OnPositionOpened(domain.Position)           {}
func (NopSink) OnStopTrailed(float64, float64)             {}
func (NopSink) OnPositionClosed(domain.ClosedTrade)        {}
func (NopSink) OnPortfolioUpdate(domain.PortfolioSnapshot) {}
func (NopSink) OnCycleError(string, error)                 {}

var (
	_ Sink = (MultiSink)(nil)
	_ Sink = NopSink{}
)
