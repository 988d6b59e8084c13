// Package service hosts the pool accounting engines behind a persistence
// layer, Prometheus metrics, a WebSocket event feed and an HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/identity"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/observability"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/pool"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/registry"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/storage"
)

// ErrPoolNotFound is returned when an operation references an unknown pool.
var ErrPoolNotFound = errors.New("pool not found")

// Config wires the service's collaborators.
type Config struct {
	Registry      *registry.Registry
	PoolStore     storage.PoolStore
	PurchaseStore storage.PurchaseStore
	EventStore    storage.PoolEventStore
	Metrics       *observability.Metrics
	Logger        *log.Logger

	// ValidateIdentities requires every account identity to be a valid
	// base58 ed25519 key. Off by default so simulators can use plain
	// string identities.
	ValidateIdentities bool
}

// Service coordinates engines, persistence and the event feed. The engines
// own correctness; persistence is a best-effort mirror for history queries
// and analytics, so store failures are logged and counted but do not fail
// the accounting operation that already committed.
type Service struct {
	cfg Config
	hub *Hub
}

// New creates a pool service.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Service{cfg: cfg, hub: NewHub(cfg.Logger)}
}

// Hub returns the WebSocket event hub.
func (s *Service) Hub() *Hub {
	return s.hub
}

// LoadPools restores every persisted pool into the registry. Called once at
// startup before the HTTP listener starts.
func (s *Service) LoadPools(ctx context.Context) error {
	snaps, err := s.cfg.PoolStore.List(ctx)
	if err != nil {
		return fmt.Errorf("list pools: %w", err)
	}

	for _, snap := range snaps {
		purchases, err := s.cfg.PurchaseStore.GetByPool(ctx, snap.PoolID)
		if err != nil {
			return fmt.Errorf("load purchases for %s: %w", snap.PoolID, err)
		}
		records := make([]domain.PurchaseRecord, len(purchases))
		for i, p := range purchases {
			records[i] = *p
		}
		if _, err := s.cfg.Registry.Restore(snap, records); err != nil {
			return fmt.Errorf("restore pool %s: %w", snap.PoolID, err)
		}
	}

	s.cfg.Metrics.PoolsActive.Set(float64(s.cfg.Registry.Len()))
	s.cfg.Logger.Printf("Restored %d pools", len(snaps))
	return nil
}

// CreatePool creates a new pool for a creator and persists its snapshot.
func (s *Service) CreatePool(ctx context.Context, creator string) (domain.PoolInfo, error) {
	if err := s.validateIdentity(creator); err != nil {
		return domain.PoolInfo{}, err
	}

	engine, err := s.cfg.Registry.CreatePool(creator)
	if err != nil {
		return domain.PoolInfo{}, err
	}

	s.cfg.Metrics.PoolsCreated.Inc()
	s.cfg.Metrics.PoolsActive.Set(float64(s.cfg.Registry.Len()))
	s.persistSnapshot(ctx, engine)

	return engine.PoolInfo(), nil
}

// Initialize bootstraps a pool with its first liquidity.
func (s *Service) Initialize(ctx context.Context, poolID string, reserveAmount uint64, initiator string) (uint64, error) {
	engine, ok := s.cfg.Registry.Get(poolID)
	if !ok {
		return 0, ErrPoolNotFound
	}
	if err := s.validateIdentity(initiator); err != nil {
		return 0, err
	}

	start := time.Now()
	units, err := engine.Initialize(ctx, reserveAmount, initiator)
	s.cfg.Metrics.OperationDuration.WithLabelValues("initialize").Observe(time.Since(start).Seconds())
	if err != nil {
		s.cfg.Metrics.OperationFailures.WithLabelValues("initialize", failureReason(err)).Inc()
		return 0, err
	}

	s.cfg.Metrics.UnitsMintedTotal.Add(float64(units))
	s.cfg.Metrics.ReserveDeposited.Add(float64(reserveAmount))
	s.finishMutation(ctx, engine, &domain.PoolEvent{
		PoolID:        poolID,
		EventType:     domain.EventInitialize,
		Account:       initiator,
		ReserveAmount: reserveAmount,
		Units:         units,
	})
	return units, nil
}

// Deposit adds liquidity to a pool and mirrors the purchase record.
func (s *Service) Deposit(ctx context.Context, poolID string, p pool.DepositParams) (uint64, error) {
	engine, ok := s.cfg.Registry.Get(poolID)
	if !ok {
		return 0, ErrPoolNotFound
	}
	if err := s.validateIdentity(p.Depositor); err != nil {
		return 0, err
	}

	start := time.Now()
	record, err := engine.Deposit(ctx, p)
	s.cfg.Metrics.OperationDuration.WithLabelValues("deposit").Observe(time.Since(start).Seconds())
	if err != nil {
		s.cfg.Metrics.OperationFailures.WithLabelValues("deposit", failureReason(err)).Inc()
		return 0, err
	}

	s.cfg.Metrics.DepositsTotal.Inc()
	s.cfg.Metrics.UnitsMintedTotal.Add(float64(record.UnitsMinted))
	s.cfg.Metrics.ReserveDeposited.Add(float64(p.ReserveAmount))

	if err := s.cfg.PurchaseStore.Insert(ctx, &record); err != nil {
		s.cfg.Metrics.StoreWriteErrors.WithLabelValues("purchases").Inc()
		s.cfg.Logger.Printf("persist purchase %s/%d: %v", poolID, record.Index, err)
	}

	s.finishMutation(ctx, engine, &domain.PoolEvent{
		PoolID:        poolID,
		EventType:     domain.EventDeposit,
		Account:       p.Depositor,
		ReserveAmount: p.ReserveAmount,
		Units:         record.UnitsMinted,
	})
	return record.UnitsMinted, nil
}

// Withdraw burns units and releases the proportional reserve share.
func (s *Service) Withdraw(ctx context.Context, poolID string, unitsToBurn, minReserveExpected uint64, depositor string) (uint64, error) {
	engine, ok := s.cfg.Registry.Get(poolID)
	if !ok {
		return 0, ErrPoolNotFound
	}
	if err := s.validateIdentity(depositor); err != nil {
		return 0, err
	}

	start := time.Now()
	released, err := engine.Withdraw(ctx, unitsToBurn, minReserveExpected, depositor)
	s.cfg.Metrics.OperationDuration.WithLabelValues("withdraw").Observe(time.Since(start).Seconds())
	if err != nil {
		s.cfg.Metrics.OperationFailures.WithLabelValues("withdraw", failureReason(err)).Inc()
		return 0, err
	}

	s.cfg.Metrics.WithdrawalsTotal.Inc()
	s.cfg.Metrics.UnitsBurnedTotal.Add(float64(unitsToBurn))
	s.cfg.Metrics.ReserveReleased.Add(float64(released))
	s.finishMutation(ctx, engine, &domain.PoolEvent{
		PoolID:        poolID,
		EventType:     domain.EventWithdraw,
		Account:       depositor,
		ReserveAmount: released,
		Units:         unitsToBurn,
	})
	return released, nil
}

// SetPaused toggles the pause guard and persists the change.
func (s *Service) SetPaused(ctx context.Context, poolID string, paused bool) error {
	engine, ok := s.cfg.Registry.Get(poolID)
	if !ok {
		return ErrPoolNotFound
	}

	engine.SetPaused(paused)
	s.persistSnapshot(ctx, engine)
	return nil
}

// ExtractReserve performs the administrative reserve drain. Not blocked by
// pause; callers are expected to be operators.
func (s *Service) ExtractReserve(ctx context.Context, poolID string, amount uint64, recipient string) error {
	engine, ok := s.cfg.Registry.Get(poolID)
	if !ok {
		return ErrPoolNotFound
	}

	if err := engine.ExtractReserve(ctx, amount, recipient); err != nil {
		s.cfg.Metrics.OperationFailures.WithLabelValues("extract", failureReason(err)).Inc()
		return err
	}

	s.finishMutation(ctx, engine, &domain.PoolEvent{
		PoolID:        poolID,
		EventType:     domain.EventExtract,
		Account:       recipient,
		ReserveAmount: amount,
	})
	return nil
}

// PoolInfo returns the accounting totals for a pool.
func (s *Service) PoolInfo(poolID string) (domain.PoolInfo, error) {
	engine, ok := s.cfg.Registry.Get(poolID)
	if !ok {
		return domain.PoolInfo{}, ErrPoolNotFound
	}
	return engine.PoolInfo(), nil
}

// QuoteDeposit returns the units a deposit would mint.
func (s *Service) QuoteDeposit(poolID string, reserveAmount uint64, depositor string) (uint64, error) {
	engine, ok := s.cfg.Registry.Get(poolID)
	if !ok {
		return 0, ErrPoolNotFound
	}
	return engine.QuoteDeposit(reserveAmount, depositor)
}

// QuoteWithdraw returns the reserve a burn would release.
func (s *Service) QuoteWithdraw(poolID string, unitsToBurn uint64) (uint64, error) {
	engine, ok := s.cfg.Registry.Get(poolID)
	if !ok {
		return 0, ErrPoolNotFound
	}
	return engine.QuoteWithdraw(unitsToBurn)
}

// PoolPurchases returns the purchase history of a pool.
func (s *Service) PoolPurchases(poolID string) ([]domain.PurchaseRecord, error) {
	engine, ok := s.cfg.Registry.Get(poolID)
	if !ok {
		return nil, ErrPoolNotFound
	}
	return engine.Purchases(), nil
}

// Purchase returns a single purchase by pool id and index.
func (s *Service) Purchase(poolID string, index int64) (domain.PurchaseRecord, error) {
	engine, ok := s.cfg.Registry.Get(poolID)
	if !ok {
		return domain.PurchaseRecord{}, ErrPoolNotFound
	}
	r, found := engine.Purchase(index)
	if !found {
		return domain.PurchaseRecord{}, storage.ErrNotFound
	}
	return r, nil
}

// DepositorPurchases returns a depositor's purchases across all pools, read
// from the persistent store.
func (s *Service) DepositorPurchases(ctx context.Context, depositor string) ([]*domain.PurchaseRecord, error) {
	return s.cfg.PurchaseStore.GetByDepositor(ctx, depositor)
}

// Pools lists all registered pool ids.
func (s *Service) Pools() []string {
	return s.cfg.Registry.List()
}

// finishMutation stamps, persists and broadcasts the outcome of a committed
// mutation. Caller passes the event without After totals or timestamp.
func (s *Service) finishMutation(ctx context.Context, engine *pool.Engine, event *domain.PoolEvent) {
	info := engine.PoolInfo()
	event.ReserveAfter = info.ReserveBalance
	event.UnitsAfter = info.TotalUnits
	event.Timestamp = time.Now().UnixMilli()

	s.cfg.Metrics.ReserveBalance.WithLabelValues(info.PoolID).Set(float64(info.ReserveBalance))
	s.cfg.Metrics.TotalUnits.WithLabelValues(info.PoolID).Set(float64(info.TotalUnits))

	s.persistSnapshot(ctx, engine)
	if err := s.cfg.EventStore.InsertBulk(ctx, []*domain.PoolEvent{event}); err != nil {
		s.cfg.Metrics.StoreWriteErrors.WithLabelValues("pool_events").Inc()
		s.cfg.Logger.Printf("persist event for %s: %v", event.PoolID, err)
	}

	s.hub.Broadcast(event)
}

func (s *Service) persistSnapshot(ctx context.Context, engine *pool.Engine) {
	if err := s.cfg.PoolStore.Upsert(ctx, engine.Snapshot()); err != nil {
		s.cfg.Metrics.StoreWriteErrors.WithLabelValues("pools").Inc()
		s.cfg.Logger.Printf("persist snapshot for %s: %v", engine.PoolID(), err)
	}
}

func (s *Service) validateIdentity(account string) error {
	if !s.cfg.ValidateIdentities {
		if account == "" {
			return fmt.Errorf("%w: empty account identity", pool.ErrInvalidAmount)
		}
		return nil
	}
	if err := identity.ValidateAccount(account); err != nil {
		return fmt.Errorf("%w: %v", pool.ErrInvalidAmount, err)
	}
	return nil
}

// failureReason maps engine errors onto stable metric labels.
func failureReason(err error) string {
	switch {
	case errors.Is(err, pool.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, pool.ErrPoolNotInitialized):
		return "not_initialized"
	case errors.Is(err, pool.ErrPoolAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, pool.ErrInsufficientInitialLiquidity):
		return "below_min_liquidity"
	case errors.Is(err, pool.ErrSlippageExceeded):
		return "slippage"
	case errors.Is(err, pool.ErrInsufficientReserve):
		return "insufficient_reserve"
	case errors.Is(err, pool.ErrPoolPaused):
		return "paused"
	default:
		var lerr *pool.LedgerError
		if errors.As(err, &lerr) {
			return "ledger_" + lerr.Op
		}
		return "other"
	}
}
