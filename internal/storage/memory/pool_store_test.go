package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/storage"
)

func TestPoolStore_UpsertAndGet(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	snap := &domain.PoolSnapshot{
		PoolID:         "pool1",
		ReceiptTokenID: "cslp1",
		Creator:        "creator1",
		MintPolicy:     domain.MintPolicyFlatUnit,
		ReserveBalance: 500_000,
		TotalUnits:     1_000_000,
		Depositors:     []string{"alice"},
		CreatedAt:      1000,
	}

	if err := store.Upsert(ctx, snap); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "pool1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ReserveBalance != 500_000 || len(got.Depositors) != 1 {
		t.Errorf("unexpected snapshot: %+v", got)
	}

	// Upsert replaces.
	snap.ReserveBalance = 700_000
	if err := store.Upsert(ctx, snap); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	got, _ = store.GetByID(ctx, "pool1")
	if got.ReserveBalance != 700_000 {
		t.Errorf("Upsert did not replace: reserve = %d", got.ReserveBalance)
	}
}

func TestPoolStore_NotFound(t *testing.T) {
	store := NewPoolStore()
	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPoolStore_InvalidInput(t *testing.T) {
	store := NewPoolStore()
	if err := store.Upsert(context.Background(), &domain.PoolSnapshot{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestPoolStore_GetByCreatorAndList(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	snaps := []*domain.PoolSnapshot{
		{PoolID: "p1", Creator: "c1", CreatedAt: 200},
		{PoolID: "p2", Creator: "c2", CreatedAt: 100},
		{PoolID: "p3", Creator: "c1", CreatedAt: 50},
	}
	for _, s := range snaps {
		if err := store.Upsert(ctx, s); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	byCreator, err := store.GetByCreator(ctx, "c1")
	if err != nil {
		t.Fatalf("GetByCreator failed: %v", err)
	}
	if len(byCreator) != 2 || byCreator[0].PoolID != "p3" || byCreator[1].PoolID != "p1" {
		t.Errorf("GetByCreator order wrong: %+v", byCreator)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].PoolID != "p3" {
		t.Errorf("List order wrong, got %d entries", len(all))
	}
}

func TestPoolStore_ReturnsCopies(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	snap := &domain.PoolSnapshot{PoolID: "p1", Depositors: []string{"alice"}}
	if err := store.Upsert(ctx, snap); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "p1")
	got.Depositors[0] = "mallory"

	again, _ := store.GetByID(ctx, "p1")
	if again.Depositors[0] != "alice" {
		t.Error("store returned a shared slice, mutation leaked")
	}
}
