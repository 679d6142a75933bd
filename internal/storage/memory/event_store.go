package memory

import (
	"context"
	"sort"
	"sync"

	"trend-paper-trader/internal/domain"
	"trend-paper-trader/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
// The decision log has no natural key, so inserts always append.
type EventStore struct {
	mu   sync.RWMutex
	data []*domain.Event
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Insert appends a single event.
func (s *EventStore) Insert(_ context.Context, e *domain.Event) error {
	if e == nil || e.SessionID == "" || e.Type == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *e
	s.data = append(s.data, &copy)
	return nil
}

// InsertBulk appends multiple events atomically.
func (s *EventStore) InsertBulk(_ context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	for _, e := range events {
		if e == nil || e.SessionID == "" || e.Type == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		copy := *e
		s.data = append(s.data, &copy)
	}
	return nil
}

// GetBySession retrieves all events for a session, ordered by timestamp ASC.
func (s *EventStore) GetBySession(_ context.Context, sessionID string) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.data {
		if e.SessionID == sessionID {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}
