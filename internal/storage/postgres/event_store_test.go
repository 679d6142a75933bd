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

func TestEventStore_InsertAndGetBySession(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEventStore(pool)

	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	err := store.Insert(ctx, &domain.Event{
		SessionID:  "session-1",
		Timestamp:  base,
		Type:       domain.EventSignalDetected,
		Symbol:     "BTCUSD",
		Price:      64000,
		EMAShort:   63950,
		EMALong:    63900,
		ATR:        120,
		Side:       domain.SideLong,
		TakeProfit: 72000,
	})
	require.NoError(t, err)

	events, err := store.GetBySession(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, domain.EventSignalDetected, e.Type)
	assert.Equal(t, "BTCUSD", e.Symbol)
	assert.InDelta(t, 64000.0, e.Price, 0.0001)
	assert.InDelta(t, 63950.0, e.EMAShort, 0.0001)
	assert.Equal(t, domain.SideLong, e.Side)
	assert.True(t, base.Equal(e.Timestamp))
}

func TestEventStore_InsertBulkOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEventStore(pool)

	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	err := store.InsertBulk(ctx, []*domain.Event{
		{SessionID: "session-1", Timestamp: base.Add(time.Minute), Type: domain.EventPositionOpened, Side: domain.SideLong},
		{SessionID: "session-1", Timestamp: base, Type: domain.EventSignalDetected},
		{SessionID: "session-2", Timestamp: base, Type: domain.EventCycleError, Detail: "candle_fetch"},
	})
	require.NoError(t, err)

	events, err := store.GetBySession(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventSignalDetected, events[0].Type)
	assert.Equal(t, domain.EventPositionOpened, events[1].Type)
}

func TestEventStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEventStore(pool)

	err := store.Insert(ctx, &domain.Event{Timestamp: time.Now(), Type: domain.EventCycleError})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.InsertBulk(ctx, []*domain.Event{
		{SessionID: "session-1", Timestamp: time.Now(), Type: domain.EventCycleError},
		nil,
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	events, getErr := store.GetBySession(ctx, "session-1")
	require.NoError(t, getErr)
	assert.Empty(t, events, "partial batch must not be written")
}
