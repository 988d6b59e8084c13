package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/storage"
)

// PurchaseStore is an in-memory implementation of storage.PurchaseStore.
type PurchaseStore struct {
	mu   sync.RWMutex
	data map[purchaseKey]*domain.PurchaseRecord
}

type purchaseKey struct {
	poolID string
	index  int64
}

// NewPurchaseStore creates a new in-memory purchase store.
func NewPurchaseStore() *PurchaseStore {
	return &PurchaseStore{data: make(map[purchaseKey]*domain.PurchaseRecord)}
}

// Compile-time interface check.
var _ storage.PurchaseStore = (*PurchaseStore)(nil)

// Insert adds a purchase. Returns ErrDuplicateKey if (pool_id, purchase_index) exists.
func (s *PurchaseStore) Insert(_ context.Context, r *domain.PurchaseRecord) error {
	if r == nil || r.PoolID == "" || r.Index < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := purchaseKey{r.PoolID, r.Index}
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}

	recordCopy := *r
	s.data[k] = &recordCopy
	return nil
}

// GetByPool retrieves all purchases for a pool, ordered by index ASC.
func (s *PurchaseStore) GetByPool(_ context.Context, poolID string) ([]*domain.PurchaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PurchaseRecord
	for _, r := range s.data {
		if r.PoolID == poolID {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Index < result[j].Index
	})
	return result, nil
}

// GetByDepositor retrieves all purchases for a depositor across pools,
// ordered by timestamp ASC.
func (s *PurchaseStore) GetByDepositor(_ context.Context, depositor string) ([]*domain.PurchaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PurchaseRecord
	for _, r := range s.data {
		if r.Depositor == depositor {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].Index < result[j].Index
	})
	return result, nil
}

// Get retrieves a purchase by pool id and index. Returns ErrNotFound if not exists.
func (s *PurchaseStore) Get(_ context.Context, poolID string, index int64) (*domain.PurchaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[purchaseKey{poolID, index}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	recordCopy := *r
	return &recordCopy, nil
}
