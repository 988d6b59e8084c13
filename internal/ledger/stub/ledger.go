package stub

import (
	"context"
	"sync"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/ledger"
)

// Ledger implements ledger.TokenLedger for testing. Each operation can be
// scripted to fail with a given status code; balances and supply are tracked
// so tests can assert the ledger-side effects of engine calls.
type Ledger struct {
	mu       sync.Mutex
	supply   uint64
	balances map[string]uint64

	// Scripted failures. A zero code means the operation succeeds.
	MintFailCode     int32
	BurnFailCode     int32
	TransferFailCode int32

	// Calls records the operation names in invocation order.
	Calls []string
}

// NewLedger creates a new stub token ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]uint64)}
}

// Mint creates amount receipt units for holder.
func (l *Ledger) Mint(_ context.Context, holder string, amount uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Calls = append(l.Calls, "mint")
	if l.MintFailCode != 0 {
		return 0, &ledger.Error{Op: "mint", Code: l.MintFailCode, Message: "scripted mint failure"}
	}

	l.supply += amount
	l.balances[holder] += amount
	return l.supply, nil
}

// Burn destroys amount receipt units from the treasury supply.
func (l *Ledger) Burn(_ context.Context, amount uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Calls = append(l.Calls, "burn")
	if l.BurnFailCode != 0 {
		return 0, &ledger.Error{Op: "burn", Code: l.BurnFailCode, Message: "scripted burn failure"}
	}
	if amount > l.supply {
		return 0, &ledger.Error{Op: "burn", Code: -1, Message: "burn exceeds supply"}
	}

	l.supply -= amount
	return l.supply, nil
}

// Transfer moves amount reserve-asset units between accounts.
func (l *Ledger) Transfer(_ context.Context, from, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Calls = append(l.Calls, "transfer")
	if l.TransferFailCode != 0 {
		return &ledger.Error{Op: "transfer", Code: l.TransferFailCode, Message: "scripted transfer failure"}
	}

	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// Supply returns the current receipt-token supply.
func (l *Ledger) Supply() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supply
}

// Balance returns the tracked balance for an account.
func (l *Ledger) Balance(account string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// Ensure Ledger implements ledger.TokenLedger.
var _ ledger.TokenLedger = (*Ledger)(nil)
