package observability

import (
	"trend-paper-trader/internal/domain"
	"trend-paper-trader/internal/engine"
)

// MetricsSink feeds engine events into Prometheus metrics.
type MetricsSink struct {
	metrics  *Metrics
	realized float64
}

// NewMetricsSink creates a sink that updates the given metrics.
func NewMetricsSink(m *Metrics) *MetricsSink {
	return &MetricsSink{metrics: m}
}

// Compile-time interface check.
var _ engine.Sink = (*MetricsSink)(nil)

func (s *MetricsSink) OnSignalDetected(sig domain.Signal) {
	s.metrics.SignalsDetected.WithLabelValues(string(sig.Side)).Inc()
}

func (s *MetricsSink) OnPositionOpened(pos domain.Position) {
	s.metrics.PositionsOpened.WithLabelValues(string(pos.Side)).Inc()
	s.metrics.PositionOpen.Set(1)
}

func (s *MetricsSink) OnStopTrailed(oldStop, newStop float64) {
	s.metrics.StopsTrailed.Inc()
}

func (s *MetricsSink) OnPositionClosed(t domain.ClosedTrade) {
	s.metrics.PositionsClosed.WithLabelValues(t.ExitReason).Inc()
	s.metrics.PositionOpen.Set(0)
	s.metrics.TradePnL.Observe(t.RealizedPnL)
	s.metrics.TradeHoldDuration.Observe(t.HoldDuration().Seconds())
	s.realized += t.RealizedPnL
	s.metrics.RealizedPnL.Set(s.realized)
}

func (s *MetricsSink) OnPortfolioUpdate(snap domain.PortfolioSnapshot) {
	s.metrics.Equity.Set(snap.Equity)
	s.metrics.CashBalance.Set(snap.CashBalance)
	s.metrics.UnrealizedPnL.Set(snap.UnrealizedPnL)
}

func (s *MetricsSink) OnCycleError(stage string, err error) {
	if stage == "risk_guard" {
		s.metrics.EntriesVetoed.WithLabelValues("daily_loss_guard").Inc()
	}
	s.metrics.CycleErrors.WithLabelValues(stage).Inc()
}
