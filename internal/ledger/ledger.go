// Package ledger abstracts the token service that mints, burns and transfers
// receipt tokens and moves the reserve asset. The accounting engine treats it
// as an injected capability so tests can script failures deterministically.
package ledger

import (
	"context"
	"fmt"
)

// TokenLedger is the external mint/burn/transfer authority for a pool's
// receipt token and reserve asset. Every call either completes or fails
// synchronously; callers must treat a failure as definitive and must not
// retry blindly (a lost success signal would double-mint on retry).
type TokenLedger interface {
	// Mint creates amount receipt units for holder.
	// Returns the new total supply.
	Mint(ctx context.Context, holder string, amount uint64) (uint64, error)

	// Burn destroys amount receipt units held by the pool treasury.
	// Returns the new total supply.
	Burn(ctx context.Context, amount uint64) (uint64, error)

	// Transfer moves amount reserve-asset units between accounts.
	Transfer(ctx context.Context, from, to string, amount uint64) error
}

// Error is a failed ledger call, carrying the raw status code reported by
// the backing token service for diagnostics.
type Error struct {
	Op      string // "mint" | "burn" | "transfer"
	Code    int32  // raw status code from the token service
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("token ledger %s failed: %s (code %d)", e.Op, e.Message, e.Code)
}
