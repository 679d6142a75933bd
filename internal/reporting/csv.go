package reporting

import (
	"fmt"
	"strings"
	"time"

	"trend-paper-trader/internal/domain"
)

// RenderTradesCSV renders closed trades as CSV string.
func RenderTradesCSV(trades []*domain.ClosedTrade) string {
	var sb strings.Builder

	// Header
	sb.WriteString("trade_id,session_id,symbol,side,strategy_version,")
	sb.WriteString("entry_time,entry_price,quantity,initial_stop,final_stop,take_profit,")
	sb.WriteString("exit_time,exit_price,exit_reason,realized_pnl,hold_seconds\n")

	// Rows
	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%.8f,%.8f,%.8f,%.8f,%.8f,%s,%.8f,%s,%.8f,%d\n",
			t.TradeID,
			t.SessionID,
			t.Symbol,
			t.Side,
			t.StrategyVersion,
			t.EntryTime.UTC().Format(time.RFC3339),
			t.EntryPrice,
			t.Quantity,
			t.InitialStopLoss,
			t.FinalStopLoss,
			t.TakeProfit,
			t.ExitTime.UTC().Format(time.RFC3339),
			t.ExitPrice,
			t.ExitReason,
			t.RealizedPnL,
			int64(t.HoldDuration().Seconds()),
		))
	}

	return sb.String()
}
