// Package registry creates and indexes pool accounting engines. One engine
// per pool; cross-pool calls are independent and run in parallel.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/identity"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/ledger"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/pool"
)

// LedgerFactory builds the TokenLedger capability for a newly created pool's
// receipt token.
type LedgerFactory func(poolID, receiptTokenID string) ledger.TokenLedger

// Registry is the pool factory and per-creator index.
type Registry struct {
	mu        sync.RWMutex
	cfg       pool.Config
	newLedger LedgerFactory
	pools     map[string]*pool.Engine
	byCreator map[string][]string
	sequence  uint64
}

// New creates an empty registry. Pools are created with cfg unless restored
// from a snapshot carrying its own policy.
func New(cfg pool.Config, newLedger LedgerFactory) *Registry {
	return &Registry{
		cfg:       cfg,
		newLedger: newLedger,
		pools:     make(map[string]*pool.Engine),
		byCreator: make(map[string][]string),
	}
}

// CreatePool instantiates a new uninitialized pool for a creator and records
// its identity.
func (r *Registry) CreatePool(creator string) (*pool.Engine, error) {
	if creator == "" {
		return nil, fmt.Errorf("empty creator identity")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Restored pools occupy ids derived from sequence numbers handed out
	// before a restart; skip past them until a free id comes up. Bounded by
	// the creator's pool count since other creators derive disjoint ids.
	var poolID, receiptTokenID string
	for {
		seq := r.sequence
		r.sequence++

		poolID = identity.DerivePoolID(creator, seq)
		receiptTokenID = identity.DeriveReceiptTokenID(creator, seq)
		if _, exists := r.pools[poolID]; !exists {
			break
		}
	}

	engine := pool.NewEngine(poolID, receiptTokenID, creator, r.cfg, r.newLedger(poolID, receiptTokenID))
	r.pools[poolID] = engine
	r.byCreator[creator] = append(r.byCreator[creator], poolID)
	return engine, nil
}

// Restore re-registers a pool engine rebuilt from persisted state.
func (r *Registry) Restore(snap *domain.PoolSnapshot, purchases []domain.PurchaseRecord) (*pool.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pools[snap.PoolID]; exists {
		return nil, fmt.Errorf("pool already registered: %s", snap.PoolID)
	}

	engine := pool.NewEngineFromSnapshot(snap, purchases, r.cfg, r.newLedger(snap.PoolID, snap.ReceiptTokenID))
	r.pools[snap.PoolID] = engine
	r.byCreator[snap.Creator] = append(r.byCreator[snap.Creator], snap.PoolID)
	return engine, nil
}

// Get returns the engine for a pool id.
func (r *Registry) Get(poolID string) (*pool.Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	engine, ok := r.pools[poolID]
	return engine, ok
}

// ByCreator returns the pool ids created by an identity, in creation order.
func (r *Registry) ByCreator(creator string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byCreator[creator]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// List returns all pool ids, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.pools))
	for id := range r.pools {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered pools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}
