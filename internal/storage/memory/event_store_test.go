package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"trend-paper-trader/internal/domain"
	"trend-paper-trader/internal/storage"
)

func TestEventStore_InsertAndGetBySession(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	base := time.Unix(1704067200, 0).UTC()
	events := []*domain.Event{
		{SessionID: "s1", Timestamp: base.Add(time.Minute), Type: domain.EventPositionOpened, Symbol: "BTCUSD", Price: 100, Side: domain.SideLong},
		{SessionID: "s1", Timestamp: base, Type: domain.EventSignalDetected, Symbol: "BTCUSD", Price: 100},
		{SessionID: "s2", Timestamp: base, Type: domain.EventSignalDetected, Symbol: "ETHUSD"},
	}
	for _, e := range events {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetBySession failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(got))
	}
	if got[0].Type != domain.EventSignalDetected || got[1].Type != domain.EventPositionOpened {
		t.Errorf("Wrong order: %s, %s", got[0].Type, got[1].Type)
	}
}

func TestEventStore_InsertBulk(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	base := time.Unix(1704067200, 0).UTC()
	err := store.InsertBulk(ctx, []*domain.Event{
		{SessionID: "s1", Timestamp: base, Type: domain.EventPortfolioUpdate},
		{SessionID: "s1", Timestamp: base.Add(time.Second), Type: domain.EventPortfolioUpdate},
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, _ := store.GetBySession(ctx, "s1")
	if len(got) != 2 {
		t.Errorf("Expected 2 events, got %d", len(got))
	}
}

func TestEventStore_InsertBulk_InvalidRejectsWholeBatch(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Event{
		{SessionID: "s1", Timestamp: time.Now(), Type: domain.EventPortfolioUpdate},
		{SessionID: "", Timestamp: time.Now(), Type: domain.EventPortfolioUpdate},
	})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}

	got, _ := store.GetBySession(ctx, "s1")
	if len(got) != 0 {
		t.Errorf("Partial batch written: %d events", len(got))
	}
}
