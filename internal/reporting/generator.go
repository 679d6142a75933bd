package reporting

import (
	"context"
	"time"

	"trend-paper-trader/internal/metrics"
	"trend-paper-trader/internal/storage"
)

// Generator produces session reports from stored data.
type Generator struct {
	tradeStore    storage.TradeStore
	snapshotStore storage.PortfolioSnapshotStore
	now           func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator. snapshotStore may be nil
// when no equity timeseries is kept.
func NewGenerator(tradeStore storage.TradeStore, snapshotStore storage.PortfolioSnapshotStore) *Generator {
	return &Generator{
		tradeStore:    tradeStore,
		snapshotStore: snapshotStore,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report for one session.
func (g *Generator) Generate(ctx context.Context, sessionID, symbol string) (*Report, error) {
	trades, err := g.tradeStore.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt: g.now(),
		SessionID:   sessionID,
		Symbol:      symbol,
		Summary:     metrics.Summarize(trades),
		Trades:      trades,
	}

	if g.snapshotStore != nil {
		equity, err := g.generateEquitySection(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		report.Equity = equity
	}

	return report, nil
}

// generateEquitySection summarizes the stored equity timeseries.
func (g *Generator) generateEquitySection(ctx context.Context, sessionID string) (EquitySection, error) {
	snapshots, err := g.snapshotStore.GetBySession(ctx, sessionID)
	if err != nil {
		return EquitySection{}, err
	}
	if len(snapshots) == 0 {
		return EquitySection{}, nil
	}

	first := snapshots[0]
	last := snapshots[len(snapshots)-1]
	section := EquitySection{
		SnapshotCount: len(snapshots),
		FirstAt:       first.Timestamp,
		LastAt:        last.Timestamp,
		StartEquity:   first.Equity,
		FinalEquity:   last.Equity,
		PeakEquity:    first.Equity,
		TroughEquity:  first.Equity,
	}
	for _, s := range snapshots {
		if s.Equity > section.PeakEquity {
			section.PeakEquity = s.Equity
		}
		if s.Equity < section.TroughEquity {
			section.TroughEquity = s.Equity
		}
	}
	return section, nil
}
