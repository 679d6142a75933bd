// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Strategy metrics
	SignalsDetected *prometheus.CounterVec
	PositionsOpened *prometheus.CounterVec
	PositionsClosed *prometheus.CounterVec
	StopsTrailed    prometheus.Counter
	EntriesVetoed   *prometheus.CounterVec

	// Cycle metrics
	CycleErrors *prometheus.CounterVec

	// Portfolio gauges
	Equity        prometheus.Gauge
	CashBalance   prometheus.Gauge
	UnrealizedPnL prometheus.Gauge
	RealizedPnL   prometheus.Gauge
	PositionOpen  prometheus.Gauge

	// Trade outcome distributions
	TradePnL          prometheus.Histogram
	TradeHoldDuration prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trend_paper_trader"
	}

	return &Metrics{
		SignalsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "signals_detected_total",
			Help:      "Total number of crossover signals detected by side",
		}, []string{"side"}),
		PositionsOpened: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "positions_opened_total",
			Help:      "Total number of positions opened by side",
		}, []string{"side"}),
		PositionsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "positions_closed_total",
			Help:      "Total number of positions closed by exit reason",
		}, []string{"exit_reason"}),
		StopsTrailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "stops_trailed_total",
			Help:      "Total number of trailing stop updates",
		}),
		EntriesVetoed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "entries_vetoed_total",
			Help:      "Total number of entries vetoed by reason",
		}, []string{"reason"}),

		CycleErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycle_errors_total",
			Help:      "Total number of skipped cycles by stage",
		}, []string{"stage"}),

		Equity: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "equity",
			Help:      "Current equity (cash plus unrealized PnL)",
		}),
		CashBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "cash_balance",
			Help:      "Current cash balance",
		}),
		UnrealizedPnL: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "unrealized_pnl",
			Help:      "Unrealized PnL of the open position, zero when flat",
		}),
		RealizedPnL: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "realized_pnl_total",
			Help:      "Cumulative realized PnL of the session",
		}),
		PositionOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "position_open",
			Help:      "1 when a position is open, 0 when flat",
		}),

		TradePnL: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "pnl",
			Help:      "Realized PnL per closed trade",
			Buckets:   []float64{-100, -50, -20, -10, -5, 0, 5, 10, 20, 50, 100, 250},
		}),
		TradeHoldDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "hold_duration_seconds",
			Help:      "Time between entry and exit per closed trade",
			Buckets:   []float64{60, 300, 900, 3600, 14400, 43200, 86400, 259200},
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
