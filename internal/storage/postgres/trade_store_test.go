package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-paper-trader/internal/domain"
	"trend-paper-trader/internal/storage"
)

func createTestTrade(tradeID, sessionID string, exit time.Time) *domain.ClosedTrade {
	return &domain.ClosedTrade{
		TradeID:         tradeID,
		SessionID:       sessionID,
		Symbol:          "BTCUSD",
		Side:            domain.SideLong,
		EntryPrice:      64000,
		EntryTime:       exit.Add(-3 * time.Hour),
		Quantity:        0.25,
		InitialStopLoss: 63200,
		FinalStopLoss:   63800,
		TakeProfit:      72000,
		StrategyVersion: domain.StrategyV2,
		ExitPrice:       63800,
		ExitTime:        exit,
		ExitReason:      domain.ExitReasonStopLoss,
		RealizedPnL:     -50,
	}
}

func TestTradeStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	trade := createTestTrade("trade-001", "session-1", time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC))

	err := store.Insert(ctx, trade)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "trade-001")
	require.NoError(t, err)

	assert.Equal(t, trade.TradeID, retrieved.TradeID)
	assert.Equal(t, trade.SessionID, retrieved.SessionID)
	assert.Equal(t, trade.Symbol, retrieved.Symbol)
	assert.Equal(t, trade.Side, retrieved.Side)
	assert.InDelta(t, trade.EntryPrice, retrieved.EntryPrice, 0.0001)
	assert.True(t, trade.EntryTime.Equal(retrieved.EntryTime))
	assert.InDelta(t, trade.Quantity, retrieved.Quantity, 0.0001)
	assert.InDelta(t, trade.InitialStopLoss, retrieved.InitialStopLoss, 0.0001)
	assert.InDelta(t, trade.FinalStopLoss, retrieved.FinalStopLoss, 0.0001)
	assert.InDelta(t, trade.TakeProfit, retrieved.TakeProfit, 0.0001)
	assert.Equal(t, trade.StrategyVersion, retrieved.StrategyVersion)
	assert.InDelta(t, trade.ExitPrice, retrieved.ExitPrice, 0.0001)
	assert.True(t, trade.ExitTime.Equal(retrieved.ExitTime))
	assert.Equal(t, trade.ExitReason, retrieved.ExitReason)
	assert.InDelta(t, trade.RealizedPnL, retrieved.RealizedPnL, 0.0001)
}

func TestTradeStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	trade := createTestTrade("trade-001", "session-1", time.Now().UTC())
	require.NoError(t, store.Insert(ctx, trade))

	err := store.Insert(ctx, trade)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTradeStore_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeStore_GetBySessionOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	base := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, createTestTrade("trade-002", "session-1", base.Add(2*time.Hour))))
	require.NoError(t, store.Insert(ctx, createTestTrade("trade-001", "session-1", base)))
	require.NoError(t, store.Insert(ctx, createTestTrade("trade-003", "session-2", base.Add(time.Hour))))

	trades, err := store.GetBySession(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "trade-001", trades[0].TradeID)
	assert.Equal(t, "trade-002", trades[1].TradeID)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
