package storage

import (
	"context"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
)

// PoolStore persists pool snapshots and depositor flags.
type PoolStore interface {
	// Upsert writes a pool snapshot, replacing any previous one.
	Upsert(ctx context.Context, snap *domain.PoolSnapshot) error

	// GetByID retrieves a snapshot by pool id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, poolID string) (*domain.PoolSnapshot, error)

	// GetByCreator retrieves all snapshots for a creator identity.
	GetByCreator(ctx context.Context, creator string) ([]*domain.PoolSnapshot, error)

	// List retrieves all snapshots, ordered by created_at ASC.
	List(ctx context.Context) ([]*domain.PoolSnapshot, error)
}

// PurchaseStore persists the append-only purchase ledgers.
type PurchaseStore interface {
	// Insert adds a purchase. Returns ErrDuplicateKey if (pool_id, purchase_index) exists.
	Insert(ctx context.Context, r *domain.PurchaseRecord) error

	// GetByPool retrieves all purchases for a pool, ordered by index ASC.
	GetByPool(ctx context.Context, poolID string) ([]*domain.PurchaseRecord, error)

	// GetByDepositor retrieves all purchases for a depositor across pools,
	// ordered by timestamp ASC.
	GetByDepositor(ctx context.Context, depositor string) ([]*domain.PurchaseRecord, error)

	// Get retrieves a purchase by pool id and index. Returns ErrNotFound if not exists.
	Get(ctx context.Context, poolID string, index int64) (*domain.PurchaseRecord, error)
}

// PoolEventStore persists pool mutation events for analytics.
type PoolEventStore interface {
	// InsertBulk appends multiple events.
	InsertBulk(ctx context.Context, events []*domain.PoolEvent) error

	// GetByPool retrieves all events for a pool, ordered by timestamp ASC.
	GetByPool(ctx context.Context, poolID string) ([]*domain.PoolEvent, error)
}
