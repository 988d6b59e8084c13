package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/ledger"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/ledger/stub"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/observability"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/pool"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/registry"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/storage/memory"
)

type testEnv struct {
	svc       *Service
	poolStore *memory.PoolStore
	purchases *memory.PurchaseStore
	events    *memory.PoolEventStore
}

func newTestEnv(t *testing.T, cfg pool.Config) *testEnv {
	t.Helper()

	env := &testEnv{
		poolStore: memory.NewPoolStore(),
		purchases: memory.NewPurchaseStore(),
		events:    memory.NewPoolEventStore(),
	}
	reg := registry.New(cfg, func(_, _ string) ledger.TokenLedger {
		return stub.NewLedger()
	})
	env.svc = New(Config{
		Registry:      reg,
		PoolStore:     env.poolStore,
		PurchaseStore: env.purchases,
		EventStore:    env.events,
		Metrics:       observability.NewMetricsWithRegistry("test", prometheus.NewRegistry()),
		Logger:        log.New(io.Discard, "", 0),
	})
	return env
}

func TestService_CreateInitializeDeposit(t *testing.T) {
	env := newTestEnv(t, pool.DefaultConfig())
	ctx := context.Background()

	info, err := env.svc.CreatePool(ctx, "creator")
	if err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	if info.Initialized {
		t.Fatal("new pool should be uninitialized")
	}

	units, err := env.svc.Initialize(ctx, info.PoolID, 1_000_000, "creator")
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if units != 10_000 {
		t.Fatalf("bootstrap units = %d, want 10000", units)
	}

	minted, err := env.svc.Deposit(ctx, info.PoolID, pool.DepositParams{
		ReserveAmount:       500_000,
		Depositor:           "alice",
		USDReference:        50,
		MaturationReference: 2030,
	})
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if minted != pool.FlatUnitAmount {
		t.Fatalf("minted = %d, want flat unit %d", minted, pool.FlatUnitAmount)
	}

	got, err := env.svc.PoolInfo(info.PoolID)
	if err != nil {
		t.Fatalf("PoolInfo: %v", err)
	}
	if got.ReserveBalance != 1_500_000 {
		t.Fatalf("reserve = %d, want 1500000", got.ReserveBalance)
	}
}

func TestService_PersistsSnapshotPurchaseAndEvent(t *testing.T) {
	env := newTestEnv(t, pool.DefaultConfig())
	ctx := context.Background()

	info, err := env.svc.CreatePool(ctx, "creator")
	if err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	if _, err := env.svc.Initialize(ctx, info.PoolID, 1_000_000, "creator"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := env.svc.Deposit(ctx, info.PoolID, pool.DepositParams{
		ReserveAmount:       200_000,
		Depositor:           "alice",
		USDReference:        20,
		MaturationReference: 2030,
	}); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	snap, err := env.poolStore.GetByID(ctx, info.PoolID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if snap.ReserveBalance != 1_200_000 {
		t.Fatalf("persisted reserve = %d, want 1200000", snap.ReserveBalance)
	}
	if len(snap.Depositors) != 1 || snap.Depositors[0] != "alice" {
		t.Fatalf("persisted depositors = %v, want [alice]", snap.Depositors)
	}

	stored, err := env.purchases.GetByPool(ctx, info.PoolID)
	if err != nil {
		t.Fatalf("GetByPool: %v", err)
	}
	if len(stored) != 1 || stored[0].Depositor != "alice" {
		t.Fatalf("stored purchases = %+v, want one by alice", stored)
	}

	events, err := env.events.GetByPool(ctx, info.PoolID)
	if err != nil {
		t.Fatalf("events GetByPool: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want initialize+deposit", len(events))
	}
	if events[0].EventType != domain.EventInitialize || events[1].EventType != domain.EventDeposit {
		t.Fatalf("event types = %s, %s", events[0].EventType, events[1].EventType)
	}
	if events[1].ReserveAfter != 1_200_000 {
		t.Fatalf("deposit event reserve after = %d", events[1].ReserveAfter)
	}
}

func TestService_LoadPoolsRestoresState(t *testing.T) {
	env := newTestEnv(t, pool.DefaultConfig())
	ctx := context.Background()

	info, err := env.svc.CreatePool(ctx, "creator")
	if err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	if _, err := env.svc.Initialize(ctx, info.PoolID, 1_000_000, "creator"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := env.svc.Deposit(ctx, info.PoolID, pool.DepositParams{
		ReserveAmount:       300_000,
		Depositor:           "alice",
		USDReference:        30,
		MaturationReference: 2031,
	}); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	// Fresh service over the same stores, as after a restart.
	restarted := New(Config{
		Registry: registry.New(pool.DefaultConfig(), func(_, _ string) ledger.TokenLedger {
			return stub.NewLedger()
		}),
		PoolStore:     env.poolStore,
		PurchaseStore: env.purchases,
		EventStore:    env.events,
		Metrics:       observability.NewMetricsWithRegistry("restart", prometheus.NewRegistry()),
		Logger:        log.New(io.Discard, "", 0),
	})
	if err := restarted.LoadPools(ctx); err != nil {
		t.Fatalf("LoadPools: %v", err)
	}

	got, err := restarted.PoolInfo(info.PoolID)
	if err != nil {
		t.Fatalf("PoolInfo after restore: %v", err)
	}
	if got.ReserveBalance != 1_300_000 || got.TotalUnits != 10_000+pool.FlatUnitAmount {
		t.Fatalf("restored totals = %d/%d", got.ReserveBalance, got.TotalUnits)
	}

	// Depositor flag survives: a second flat deposit mints zero units.
	minted, err := restarted.Deposit(ctx, info.PoolID, pool.DepositParams{
		ReserveAmount:       100_000,
		Depositor:           "alice",
		USDReference:        10,
		MaturationReference: 2031,
	})
	if err != nil {
		t.Fatalf("Deposit after restore: %v", err)
	}
	if minted != 0 {
		t.Fatalf("repeat depositor minted %d units after restore, want 0", minted)
	}

	purchases, err := restarted.PoolPurchases(info.PoolID)
	if err != nil {
		t.Fatalf("PoolPurchases: %v", err)
	}
	if len(purchases) != 2 {
		t.Fatalf("got %d purchases after restore, want 2", len(purchases))
	}
}

func TestService_WithdrawAndEvents(t *testing.T) {
	env := newTestEnv(t, pool.DefaultConfig())
	ctx := context.Background()

	info, _ := env.svc.CreatePool(ctx, "creator")
	if _, err := env.svc.Initialize(ctx, info.PoolID, 1_000_000, "creator"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	released, err := env.svc.Withdraw(ctx, info.PoolID, 1_000, 0, "creator")
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if released != 100_000 {
		t.Fatalf("released = %d, want 100000", released)
	}

	events, err := env.events.GetByPool(ctx, info.PoolID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	last := events[len(events)-1]
	if last.EventType != domain.EventWithdraw || last.ReserveAfter != 900_000 {
		t.Fatalf("withdraw event = %+v", last)
	}
}

func TestService_UnknownPool(t *testing.T) {
	env := newTestEnv(t, pool.DefaultConfig())
	ctx := context.Background()

	if _, err := env.svc.Initialize(ctx, "nope", 1_000_000, "x"); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("Initialize err = %v, want ErrPoolNotFound", err)
	}
	if _, err := env.svc.Deposit(ctx, "nope", pool.DepositParams{ReserveAmount: 1, Depositor: "x", USDReference: 1, MaturationReference: 1}); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("Deposit err = %v, want ErrPoolNotFound", err)
	}
	if _, err := env.svc.Withdraw(ctx, "nope", 1, 0, "x"); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("Withdraw err = %v, want ErrPoolNotFound", err)
	}
	if err := env.svc.SetPaused(ctx, "nope", true); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("SetPaused err = %v, want ErrPoolNotFound", err)
	}
}

func TestService_PauseBlocksDeposits(t *testing.T) {
	env := newTestEnv(t, pool.DefaultConfig())
	ctx := context.Background()

	info, _ := env.svc.CreatePool(ctx, "creator")
	if _, err := env.svc.Initialize(ctx, info.PoolID, 1_000_000, "creator"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := env.svc.SetPaused(ctx, info.PoolID, true); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}

	_, err := env.svc.Deposit(ctx, info.PoolID, pool.DepositParams{
		ReserveAmount: 100_000, Depositor: "alice", USDReference: 10, MaturationReference: 2030,
	})
	if !errors.Is(err, pool.ErrPoolPaused) {
		t.Fatalf("Deposit on paused pool err = %v, want ErrPoolPaused", err)
	}

	snap, err := env.poolStore.GetByID(ctx, info.PoolID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !snap.Paused {
		t.Fatal("paused flag not persisted")
	}
}

func TestService_DepositorPurchasesAcrossPools(t *testing.T) {
	env := newTestEnv(t, pool.DefaultConfig())
	ctx := context.Background()

	a, _ := env.svc.CreatePool(ctx, "creator1")
	b, _ := env.svc.CreatePool(ctx, "creator2")
	for _, id := range []string{a.PoolID, b.PoolID} {
		if _, err := env.svc.Initialize(ctx, id, 1_000_000, "creator"); err != nil {
			t.Fatalf("Initialize %s: %v", id, err)
		}
		if _, err := env.svc.Deposit(ctx, id, pool.DepositParams{
			ReserveAmount: 100_000, Depositor: "alice", USDReference: 10, MaturationReference: 2030,
		}); err != nil {
			t.Fatalf("Deposit %s: %v", id, err)
		}
	}

	records, err := env.svc.DepositorPurchases(ctx, "alice")
	if err != nil {
		t.Fatalf("DepositorPurchases: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records across pools, want 2", len(records))
	}
}

func TestService_IdentityValidation(t *testing.T) {
	env := newTestEnv(t, pool.DefaultConfig())
	ctx := context.Background()

	if _, err := env.svc.CreatePool(ctx, ""); err == nil {
		t.Fatal("expected error for empty creator")
	}

	info, _ := env.svc.CreatePool(ctx, "creator")
	if _, err := env.svc.Deposit(ctx, info.PoolID, pool.DepositParams{
		ReserveAmount: 100_000, Depositor: "", USDReference: 10, MaturationReference: 2030,
	}); err == nil {
		t.Fatal("expected error for empty depositor")
	}
}

func TestService_ConcurrentDepositsAllMirrored(t *testing.T) {
	env := newTestEnv(t, pool.DefaultConfig())
	ctx := context.Background()

	info, err := env.svc.CreatePool(ctx, "creator")
	if err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	if _, err := env.svc.Initialize(ctx, info.PoolID, 1_000_000, "creator"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	const depositors = 20
	var wg sync.WaitGroup
	errs := make(chan error, depositors)
	for i := 0; i < depositors; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.svc.Deposit(ctx, info.PoolID, pool.DepositParams{
				ReserveAmount:       100_000 + uint64(i),
				Depositor:           fmt.Sprintf("depositor-%02d", i),
				USDReference:        10,
				MaturationReference: 2030,
			})
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Deposit: %v", err)
	}

	// Every deposit persists its own record: no index gaps, no duplicates.
	stored, err := env.purchases.GetByPool(ctx, info.PoolID)
	if err != nil {
		t.Fatalf("GetByPool: %v", err)
	}
	if len(stored) != depositors {
		t.Fatalf("stored %d purchases, want %d", len(stored), depositors)
	}
	for i, r := range stored {
		if r.Index != int64(i) {
			t.Fatalf("stored indices have a gap at %d: %d", i, r.Index)
		}
	}

	journal, err := env.svc.PoolPurchases(info.PoolID)
	if err != nil {
		t.Fatalf("PoolPurchases: %v", err)
	}
	if len(journal) != depositors {
		t.Fatalf("journal has %d entries, want %d", len(journal), depositors)
	}
}
