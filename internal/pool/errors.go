package pool

import (
	"errors"
	"fmt"
)

// Accounting errors. Every precondition violation fails fast before any
// state mutation; there is no partial-success path.
var (
	// ErrInvalidAmount is returned for zero or malformed input amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrPoolNotInitialized is returned when an operation requires an
	// active pool but totalUnits is still zero.
	ErrPoolNotInitialized = errors.New("pool not initialized")

	// ErrPoolAlreadyInitialized is returned when initialize is called on
	// an active pool.
	ErrPoolAlreadyInitialized = errors.New("pool already initialized")

	// ErrInsufficientInitialLiquidity is returned when the bootstrap
	// deposit is below the minimum liquidity floor.
	ErrInsufficientInitialLiquidity = errors.New("initial liquidity below minimum")

	// ErrSlippageExceeded is returned when the computed result falls below
	// the caller's stated minimum.
	ErrSlippageExceeded = errors.New("slippage exceeded")

	// ErrInsufficientReserve is returned when a withdrawal would release
	// more than the pool's custodial reserve balance.
	ErrInsufficientReserve = errors.New("insufficient reserve")

	// ErrPoolPaused is returned when deposit/withdraw is called on a
	// paused pool.
	ErrPoolPaused = errors.New("pool paused")
)

// LedgerError wraps a failed TokenLedger call. The wrapped error carries the
// ledger's raw failure code; unwrap with errors.As to *ledger.Error for
// diagnostics.
type LedgerError struct {
	Op  string // "mint" | "burn" | "transfer"
	Err error
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger operation failed (%s): %v", e.Op, e.Err)
}

// Unwrap returns the underlying ledger error.
func (e *LedgerError) Unwrap() error {
	return e.Err
}
