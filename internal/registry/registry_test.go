package registry

import (
	"context"
	"testing"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/ledger"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/ledger/stub"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/pool"
)

func newTestRegistry() *Registry {
	return New(pool.DefaultConfig(), func(_, _ string) ledger.TokenLedger {
		return stub.NewLedger()
	})
}

func TestCreatePool(t *testing.T) {
	r := newTestRegistry()

	e, err := r.CreatePool("creator1")
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	if e.PoolID() == "" || e.ReceiptTokenID() == "" {
		t.Error("pool ids not derived")
	}

	got, ok := r.Get(e.PoolID())
	if !ok || got != e {
		t.Error("Get did not return the created engine")
	}
}

func TestCreatePool_DistinctIDs(t *testing.T) {
	r := newTestRegistry()

	a, err := r.CreatePool("creator1")
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	b, err := r.CreatePool("creator1")
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	if a.PoolID() == b.PoolID() {
		t.Error("two pools for one creator share an id")
	}

	ids := r.ByCreator("creator1")
	if len(ids) != 2 || ids[0] != a.PoolID() || ids[1] != b.PoolID() {
		t.Errorf("ByCreator = %v, want [%s %s]", ids, a.PoolID(), b.PoolID())
	}
}

func TestCreatePool_EmptyCreator(t *testing.T) {
	r := newTestRegistry()
	if _, err := r.CreatePool(""); err == nil {
		t.Error("Expected error for empty creator")
	}
}

func TestRestore(t *testing.T) {
	r := newTestRegistry()

	snap := &domain.PoolSnapshot{
		PoolID:         "poolX",
		ReceiptTokenID: "cslpX",
		Creator:        "creator1",
		MintPolicy:     domain.MintPolicyFlatUnit,
		ReserveBalance: 500_000,
		TotalUnits:     1_000_000,
		Depositors:     []string{"alice"},
	}
	e, err := r.Restore(snap, []domain.PurchaseRecord{
		{Depositor: "alice", ReserveAmount: 500_000, UnitsMinted: 1_000_000},
	})
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	info := e.PoolInfo()
	if info.ReserveBalance != 500_000 || info.TotalUnits != 1_000_000 {
		t.Errorf("restored info = %+v", info)
	}

	// Restored pools honor the depositor flag.
	rec, err := e.Deposit(context.Background(), pool.DepositParams{
		ReserveAmount: 200_000, Depositor: "alice", USDReference: 1, MaturationReference: 1,
	})
	if err != nil {
		t.Fatalf("deposit on restored pool failed: %v", err)
	}
	if rec.UnitsMinted != 0 {
		t.Errorf("restored pool minted %d for flagged depositor, want 0", rec.UnitsMinted)
	}

	if _, err := r.Restore(snap, nil); err == nil {
		t.Error("Expected error restoring an already registered pool")
	}
}

func TestList(t *testing.T) {
	r := newTestRegistry()
	if len(r.List()) != 0 {
		t.Error("List on empty registry should be empty")
	}

	if _, err := r.CreatePool("creator1"); err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	if _, err := r.CreatePool("creator2"); err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	if r.Len() != 2 || len(r.List()) != 2 {
		t.Errorf("Len/List = %d/%d, want 2/2", r.Len(), len(r.List()))
	}
}

func TestCreatePool_AfterRestore(t *testing.T) {
	r := newTestRegistry()

	a, err := r.CreatePool("creator1")
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}
	b, err := r.CreatePool("creator1")
	if err != nil {
		t.Fatalf("CreatePool failed: %v", err)
	}

	// Fresh registry, as after a daemon restart: the id sequence starts
	// over, so creation must skip past every restored id.
	restarted := newTestRegistry()
	if _, err := restarted.Restore(a.Snapshot(), nil); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if _, err := restarted.Restore(b.Snapshot(), nil); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	c, err := restarted.CreatePool("creator1")
	if err != nil {
		t.Fatalf("CreatePool after restore failed: %v", err)
	}
	if c.PoolID() == a.PoolID() || c.PoolID() == b.PoolID() {
		t.Errorf("new pool reused a restored id: %s", c.PoolID())
	}

	ids := restarted.ByCreator("creator1")
	if len(ids) != 3 {
		t.Errorf("ByCreator = %v, want 3 pools", ids)
	}
}
