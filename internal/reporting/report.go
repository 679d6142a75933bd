package reporting

import (
	"time"

	"trend-paper-trader/internal/domain"
	"trend-paper-trader/internal/metrics"
)

// Report is the end-of-session summary built from stored data.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	SessionID   string
	Symbol      string

	// Performance over all closed trades of the session.
	Summary metrics.Summary

	// Equity curve endpoints, zero when no snapshots were stored.
	Equity EquitySection

	// Trades sorted by exit time ASC.
	Trades []*domain.ClosedTrade
}

// EquitySection describes the stored equity timeseries.
type EquitySection struct {
	SnapshotCount int
	FirstAt       time.Time
	LastAt        time.Time
	StartEquity   float64
	FinalEquity   float64
	PeakEquity    float64
	TroughEquity  float64
}
