package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/storage"
)

// PoolEventStore is an in-memory implementation of storage.PoolEventStore.
type PoolEventStore struct {
	mu   sync.RWMutex
	data []*domain.PoolEvent
}

// NewPoolEventStore creates a new in-memory pool event store.
func NewPoolEventStore() *PoolEventStore {
	return &PoolEventStore{}
}

// Compile-time interface check.
var _ storage.PoolEventStore = (*PoolEventStore)(nil)

// InsertBulk appends multiple events.
func (s *PoolEventStore) InsertBulk(_ context.Context, events []*domain.PoolEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if e == nil || e.PoolID == "" {
			return storage.ErrInvalidInput
		}
		eventCopy := *e
		s.data = append(s.data, &eventCopy)
	}
	return nil
}

// GetByPool retrieves all events for a pool, ordered by timestamp ASC.
func (s *PoolEventStore) GetByPool(_ context.Context, poolID string) ([]*domain.PoolEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PoolEvent
	for _, e := range s.data {
		if e.PoolID == poolID {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})
	return result, nil
}
