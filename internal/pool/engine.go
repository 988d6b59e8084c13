// Package pool implements the reserve/share accounting engine for a
// single-asset liquidity pool: deposits convert reserve value into receipt
// units, withdrawals reverse the mapping proportionally, and every mutation
// either fully commits or leaves the pool untouched.
package pool

import (
	"context"
	"sync"
	"time"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/fee"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/ledger"
)

// Config controls engine behavior that varied across pool contract versions.
type Config struct {
	// MintPolicy selects flat-unit or proportional share minting.
	MintPolicy domain.MintPolicy

	// Fee is deducted from proportional active-state mints. It is the only
	// point where the fee applies: bootstrap mints and flat-unit mints are
	// fee-free.
	Fee fee.Model

	// MinLiquidity is the bootstrap floor in reserve smallest units.
	MinLiquidity uint64
}

// DefaultConfig returns flat-unit minting with the standard 0.3% fee
// model on proportional mints.
func DefaultConfig() Config {
	return Config{
		MintPolicy:   domain.MintPolicyFlatUnit,
		Fee:          fee.Default(),
		MinLiquidity: MinLiquidity,
	}
}

// DepositParams carries the inputs of a deposit call.
type DepositParams struct {
	ReserveAmount uint64 // reserve smallest units, must be > 0
	Depositor     string // depositor identity
	USDReference  uint64 // advisory USD figure, must be > 0
	// MaturationReference is the advisory maturation figure, must be > 0.
	MaturationReference uint64
	// MinUnitsExpected rejects the deposit when the mint falls below it.
	MinUnitsExpected uint64
}

// Engine is the per-pool accounting state machine. Two states: Uninitialized
// (totalUnits == 0) and Active. Pausing is an orthogonal guard on deposit
// and withdraw, not a state.
//
// Every mutating operation holds the pool lock across the whole
// read -> compute -> ledger call -> commit sequence; the ledger call is the
// one suspension point where interleaving would corrupt the ratio. Local
// state is committed only after all ledger calls succeed, so a ledger
// failure needs no compensating rollback.
type Engine struct {
	mu sync.Mutex

	poolID         string
	receiptTokenID string
	creator        string
	cfg            Config
	ledger         ledger.TokenLedger

	reserveBalance uint64
	totalUnits     uint64
	paused         bool
	hasUnit        map[string]bool
	purchases      *PurchaseLedger

	createdAt int64
	now       func() time.Time
}

// NewEngine creates an uninitialized pool engine.
func NewEngine(poolID, receiptTokenID, creator string, cfg Config, tl ledger.TokenLedger) *Engine {
	if cfg.MinLiquidity == 0 {
		cfg.MinLiquidity = MinLiquidity
	}
	if !cfg.MintPolicy.Valid() {
		cfg.MintPolicy = domain.MintPolicyFlatUnit
	}
	return &Engine{
		poolID:         poolID,
		receiptTokenID: receiptTokenID,
		creator:        creator,
		cfg:            cfg,
		ledger:         tl,
		hasUnit:        make(map[string]bool),
		purchases:      NewPurchaseLedger(),
		createdAt:      time.Now().UnixMilli(),
		now:            time.Now,
	}
}

// NewEngineFromSnapshot rebuilds an engine from persisted state.
func NewEngineFromSnapshot(snap *domain.PoolSnapshot, purchases []domain.PurchaseRecord, cfg Config, tl ledger.TokenLedger) *Engine {
	e := NewEngine(snap.PoolID, snap.ReceiptTokenID, snap.Creator, cfg, tl)
	e.cfg.MintPolicy = snap.MintPolicy
	e.reserveBalance = snap.ReserveBalance
	e.totalUnits = snap.TotalUnits
	e.paused = snap.Paused
	e.createdAt = snap.CreatedAt
	for _, d := range snap.Depositors {
		e.hasUnit[d] = true
	}
	e.purchases = NewPurchaseLedgerFrom(purchases)
	return e
}

// SetClock overrides the engine's time source. Test hook.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Initialize bootstraps an uninitialized pool with the first liquidity.
// Units are a straight decimal rebase of the reserve amount; no fee applies
// to the bootstrapping depositor.
func (e *Engine) Initialize(ctx context.Context, reserveAmount uint64, initiator string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.totalUnits > 0 {
		return 0, ErrPoolAlreadyInitialized
	}
	if reserveAmount < e.cfg.MinLiquidity {
		return 0, ErrInsufficientInitialLiquidity
	}

	units := BootstrapUnits(reserveAmount)

	if _, err := e.ledger.Mint(ctx, initiator, units); err != nil {
		return 0, &LedgerError{Op: "mint", Err: err}
	}

	e.reserveBalance = reserveAmount
	e.totalUnits = units
	return units, nil
}

// Deposit adds reserve liquidity and mints receipt units per the configured
// policy, returning the purchase record it committed (UnitsMinted carries
// the mint). A repeat depositor under the flat-unit policy mints zero units
// but the deposit still grows the reserve and appends a purchase record.
//
// When the pool is uninitialized the call auto-bootstraps: the minimum
// liquidity floor applies and the mint follows the policy's bootstrap rule.
func (e *Engine) Deposit(ctx context.Context, p DepositParams) (domain.PurchaseRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return domain.PurchaseRecord{}, ErrPoolPaused
	}
	if p.ReserveAmount == 0 || p.USDReference == 0 || p.MaturationReference == 0 {
		return domain.PurchaseRecord{}, ErrInvalidAmount
	}
	if e.totalUnits == 0 && p.ReserveAmount < e.cfg.MinLiquidity {
		return domain.PurchaseRecord{}, ErrInsufficientInitialLiquidity
	}

	units := e.computeMint(p.ReserveAmount, p.Depositor)
	if units < p.MinUnitsExpected {
		return domain.PurchaseRecord{}, ErrSlippageExceeded
	}

	if units > 0 {
		if _, err := e.ledger.Mint(ctx, p.Depositor, units); err != nil {
			return domain.PurchaseRecord{}, &LedgerError{Op: "mint", Err: err}
		}
	}

	e.reserveBalance += p.ReserveAmount
	e.totalUnits += units
	if units > 0 {
		e.hasUnit[p.Depositor] = true
	}
	record := domain.PurchaseRecord{
		PoolID:              e.poolID,
		ReceiptTokenID:      e.receiptTokenID,
		Depositor:           p.Depositor,
		ReserveAmount:       p.ReserveAmount,
		UnitsMinted:         units,
		USDReference:        p.USDReference,
		MaturationReference: p.MaturationReference,
		USDUnits:            UnitsFromUSD(p.USDReference, p.MaturationReference),
		Timestamp:           e.now().Unix(),
	}
	record.Index = e.purchases.Record(record)

	return record, nil
}

// computeMint returns the units a deposit would mint right now. Caller must
// hold the pool lock.
func (e *Engine) computeMint(reserveAmount uint64, depositor string) uint64 {
	switch {
	case e.cfg.MintPolicy == domain.MintPolicyProportional && e.totalUnits == 0:
		return BootstrapUnits(reserveAmount)
	case e.cfg.MintPolicy == domain.MintPolicyProportional:
		return e.cfg.Fee.Apply(ProportionalUnits(reserveAmount, e.totalUnits, e.reserveBalance))
	case e.hasUnit[depositor]:
		return 0
	default:
		return FlatUnitAmount
	}
}

// Withdraw burns receipt units and releases the proportional reserve share,
// rounded down so the pool retains any remainder.
func (e *Engine) Withdraw(ctx context.Context, unitsToBurn, minReserveExpected uint64, depositor string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return 0, ErrPoolPaused
	}
	if unitsToBurn == 0 {
		return 0, ErrInvalidAmount
	}
	if e.totalUnits == 0 {
		return 0, ErrPoolNotInitialized
	}
	if unitsToBurn > e.totalUnits {
		return 0, ErrInsufficientReserve
	}

	released := ProportionalReserve(unitsToBurn, e.reserveBalance, e.totalUnits)
	if released < minReserveExpected {
		return 0, ErrSlippageExceeded
	}
	if released > e.reserveBalance {
		return 0, ErrInsufficientReserve
	}

	if _, err := e.ledger.Burn(ctx, unitsToBurn); err != nil {
		return 0, &LedgerError{Op: "burn", Err: err}
	}
	if err := e.ledger.Transfer(ctx, e.poolID, depositor, released); err != nil {
		return 0, &LedgerError{Op: "transfer", Err: err}
	}

	e.reserveBalance -= released
	e.totalUnits -= unitsToBurn
	return released, nil
}

// ExtractReserve moves reserve out of the pool to a recipient. An
// administrative operation: it works while the pool is paused and bypasses
// the share accounting, so the service layer must gate it to operators.
func (e *Engine) ExtractReserve(ctx context.Context, amount uint64, recipient string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount == 0 {
		return ErrInvalidAmount
	}
	if amount > e.reserveBalance {
		return ErrInsufficientReserve
	}

	if err := e.ledger.Transfer(ctx, e.poolID, recipient, amount); err != nil {
		return &LedgerError{Op: "transfer", Err: err}
	}

	e.reserveBalance -= amount
	return nil
}

// QuoteDeposit returns the units a deposit of reserveAmount would mint for
// depositor without mutating anything.
func (e *Engine) QuoteDeposit(reserveAmount uint64, depositor string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if reserveAmount == 0 {
		return 0, ErrInvalidAmount
	}
	if e.totalUnits == 0 && reserveAmount < e.cfg.MinLiquidity {
		return 0, ErrInsufficientInitialLiquidity
	}
	return e.computeMint(reserveAmount, depositor), nil
}

// QuoteWithdraw returns the reserve a burn of unitsToBurn would release
// without mutating anything.
func (e *Engine) QuoteWithdraw(unitsToBurn uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if unitsToBurn == 0 {
		return 0, ErrInvalidAmount
	}
	if e.totalUnits == 0 {
		return 0, ErrPoolNotInitialized
	}
	if unitsToBurn > e.totalUnits {
		return 0, ErrInsufficientReserve
	}
	return ProportionalReserve(unitsToBurn, e.reserveBalance, e.totalUnits), nil
}

// PoolInfo returns the pool's current accounting totals. TotalValue always
// equals ReserveBalance; one field backs both views.
func (e *Engine) PoolInfo() domain.PoolInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	return domain.PoolInfo{
		PoolID:         e.poolID,
		ReceiptTokenID: e.receiptTokenID,
		ReserveBalance: e.reserveBalance,
		TotalUnits:     e.totalUnits,
		TotalValue:     e.reserveBalance,
		Paused:         e.paused,
		Initialized:    e.totalUnits > 0,
	}
}

// ValuePerUnit returns the reserve value backing one whole receipt unit,
// scaled by USDUnitScale: floor(reserveBalance * 1e6 / totalUnits).
// Returns 0 for an uninitialized pool.
func (e *Engine) ValuePerUnit() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.totalUnits == 0 {
		return 0
	}
	return mulDiv(e.reserveBalance, USDUnitScale, e.totalUnits)
}

// Purchase retrieves a purchase record by index.
func (e *Engine) Purchase(index int64) (domain.PurchaseRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.purchases.Get(index)
}

// UserPurchases returns the purchase indices recorded for an identity.
func (e *Engine) UserPurchases(identity string) []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.purchases.ByDepositor(identity)
}

// Purchases returns a copy of the full purchase history.
func (e *Engine) Purchases() []domain.PurchaseRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.purchases.All()
}

// HasUnit reports whether the depositor already received a receipt unit
// from this pool.
func (e *Engine) HasUnit(identity string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasUnit[identity]
}

// Paused reports the pause flag.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// SetPaused toggles the pause guard on deposit/withdraw.
func (e *Engine) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = paused
}

// PoolID returns the pool identifier.
func (e *Engine) PoolID() string {
	return e.poolID
}

// ReceiptTokenID returns the receipt-token identifier.
func (e *Engine) ReceiptTokenID() string {
	return e.receiptTokenID
}

// Snapshot returns the persistable pool state.
func (e *Engine) Snapshot() *domain.PoolSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	depositors := make([]string, 0, len(e.hasUnit))
	for d := range e.hasUnit {
		depositors = append(depositors, d)
	}

	return &domain.PoolSnapshot{
		PoolID:         e.poolID,
		ReceiptTokenID: e.receiptTokenID,
		Creator:        e.creator,
		MintPolicy:     e.cfg.MintPolicy,
		ReserveBalance: e.reserveBalance,
		TotalUnits:     e.totalUnits,
		Paused:         e.paused,
		Depositors:     depositors,
		CreatedAt:      e.createdAt,
		UpdatedAt:      e.now().UnixMilli(),
	}
}
