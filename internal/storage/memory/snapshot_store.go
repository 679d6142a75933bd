package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trend-paper-trader/internal/domain"
	"trend-paper-trader/internal/storage"
)

// PortfolioSnapshotStore is an in-memory implementation of
// storage.PortfolioSnapshotStore.
type PortfolioSnapshotStore struct {
	mu   sync.RWMutex
	data []*domain.PortfolioSnapshot
}

// NewPortfolioSnapshotStore creates a new in-memory snapshot store.
func NewPortfolioSnapshotStore() *PortfolioSnapshotStore {
	return &PortfolioSnapshotStore{}
}

// Compile-time interface check.
var _ storage.PortfolioSnapshotStore = (*PortfolioSnapshotStore)(nil)

// InsertBulk appends multiple snapshots.
func (s *PortfolioSnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.PortfolioSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	for _, p := range snapshots {
		if p == nil || p.SessionID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range snapshots {
		copy := *p
		s.data = append(s.data, &copy)
	}
	return nil
}

// GetBySession retrieves all snapshots for a session, ordered by timestamp ASC.
func (s *PortfolioSnapshotStore) GetBySession(_ context.Context, sessionID string) ([]*domain.PortfolioSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PortfolioSnapshot
	for _, p := range s.data {
		if p.SessionID == sessionID {
			copy := *p
			result = append(result, &copy)
		}
	}

	sortSnapshots(result)
	return result, nil
}

// GetByTimeRange retrieves snapshots for a session within [start, end] (inclusive).
func (s *PortfolioSnapshotStore) GetByTimeRange(_ context.Context, sessionID string, start, end time.Time) ([]*domain.PortfolioSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PortfolioSnapshot
	for _, p := range s.data {
		if p.SessionID != sessionID {
			continue
		}
		if p.Timestamp.Before(start) || p.Timestamp.After(end) {
			continue
		}
		copy := *p
		result = append(result, &copy)
	}

	sortSnapshots(result)
	return result, nil
}

func sortSnapshots(snapshots []*domain.PortfolioSnapshot) {
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.Before(snapshots[j].Timestamp)
	})
}
