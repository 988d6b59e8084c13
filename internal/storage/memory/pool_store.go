package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore.
type PoolStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PoolSnapshot // keyed by pool_id
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore() *PoolStore {
	return &PoolStore{data: make(map[string]*domain.PoolSnapshot)}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

// Upsert writes a pool snapshot, replacing any previous one.
func (s *PoolStore) Upsert(_ context.Context, snap *domain.PoolSnapshot) error {
	if snap == nil || snap.PoolID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[snap.PoolID] = copySnapshot(snap)
	return nil
}

// GetByID retrieves a snapshot by pool id. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByID(_ context.Context, poolID string) (*domain.PoolSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[poolID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copySnapshot(snap), nil
}

// GetByCreator retrieves all snapshots for a creator identity.
func (s *PoolStore) GetByCreator(_ context.Context, creator string) ([]*domain.PoolSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PoolSnapshot
	for _, snap := range s.data {
		if snap.Creator == creator {
			result = append(result, copySnapshot(snap))
		}
	}
	sortSnapshots(result)
	return result, nil
}

// List retrieves all snapshots, ordered by created_at ASC.
func (s *PoolStore) List(_ context.Context) ([]*domain.PoolSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PoolSnapshot, 0, len(s.data))
	for _, snap := range s.data {
		result = append(result, copySnapshot(snap))
	}
	sortSnapshots(result)
	return result, nil
}

func copySnapshot(snap *domain.PoolSnapshot) *domain.PoolSnapshot {
	c := *snap
	c.Depositors = append([]string(nil), snap.Depositors...)
	return &c
}

func sortSnapshots(snaps []*domain.PoolSnapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].CreatedAt != snaps[j].CreatedAt {
			return snaps[i].CreatedAt < snaps[j].CreatedAt
		}
		return snaps[i].PoolID < snaps[j].PoolID
	})
}
