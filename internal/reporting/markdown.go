package reporting

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// RenderMarkdown renders the session report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Trading Session Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Session: %s | Symbol: %s\n\n", r.SessionID, r.Symbol))

	// Performance
	sb.WriteString("## Performance\n\n")
	if r.Summary.TotalTrades > 0 {
		s := r.Summary
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", s.TotalTrades))
		sb.WriteString(fmt.Sprintf("| Wins / Losses | %d / %d |\n", s.Wins, s.Losses))
		sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", s.WinRate*100))
		sb.WriteString(fmt.Sprintf("| Total PnL | %.2f |\n", s.TotalPnL))
		sb.WriteString(fmt.Sprintf("| Profit Factor | %s |\n", formatProfitFactor(s.ProfitFactor)))
		sb.WriteString(fmt.Sprintf("| Avg Win / Avg Loss | %.2f / %.2f |\n", s.AvgWin, s.AvgLoss))
		sb.WriteString(fmt.Sprintf("| Best / Worst Trade | %.2f / %.2f |\n", s.BestTrade, s.WorstTrade))
		sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f |\n", s.MaxDrawdown))
		sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", s.MaxConsecutiveLosses))
		sb.WriteString(fmt.Sprintf("| Avg Hold Duration | %s |\n", s.AvgHoldDuration))
	} else {
		sb.WriteString("No closed trades this session.\n")
	}
	sb.WriteString("\n")

	// Equity
	sb.WriteString("## Equity\n\n")
	if r.Equity.SnapshotCount > 0 {
		e := r.Equity
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Snapshots | %d |\n", e.SnapshotCount))
		sb.WriteString(fmt.Sprintf("| First At | %s |\n", e.FirstAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("| Last At | %s |\n", e.LastAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("| Start Equity | %.2f |\n", e.StartEquity))
		sb.WriteString(fmt.Sprintf("| Final Equity | %.2f |\n", e.FinalEquity))
		sb.WriteString(fmt.Sprintf("| Peak / Trough | %.2f / %.2f |\n", e.PeakEquity, e.TroughEquity))
	} else {
		sb.WriteString("No equity snapshots stored.\n")
	}
	sb.WriteString("\n")

	// Trades
	sb.WriteString("## Trades\n\n")
	if len(r.Trades) > 0 {
		sb.WriteString("| Trade | Side | Version | Entry | Exit | Reason | PnL | Held |\n")
		sb.WriteString("|-------|------|---------|-------|------|--------|-----|------|\n")
		for _, t := range r.Trades {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f @ %s | %.2f @ %s | %s | %.2f | %s |\n",
				t.TradeID, t.Side, t.StrategyVersion,
				t.EntryPrice, t.EntryTime.Format(time.RFC3339),
				t.ExitPrice, t.ExitTime.Format(time.RFC3339),
				t.ExitReason, t.RealizedPnL, t.HoldDuration()))
		}
	} else {
		sb.WriteString("No trades recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", pf)
}
