package domain

// MintPolicy selects how deposit converts reserve value into receipt units.
type MintPolicy string

// Mint policy constants.
const (
	// MintPolicyFlatUnit mints a fixed 1.0-receipt-token amount once per
	// unique depositor, regardless of deposit size.
	MintPolicyFlatUnit MintPolicy = "FLAT_UNIT"

	// MintPolicyProportional mints floor(amount * totalUnits / reserveBalance)
	// against pre-deposit reserves, the standard LP-share law.
	MintPolicyProportional MintPolicy = "PROPORTIONAL"
)

// Valid reports whether p is a known mint policy.
func (p MintPolicy) Valid() bool {
	return p == MintPolicyFlatUnit || p == MintPolicyProportional
}

// PoolInfo is the read-only view of a pool's accounting totals.
type PoolInfo struct {
	PoolID         string // base58 pool identifier
	ReceiptTokenID string // base58 receipt-token identifier
	ReserveBalance uint64 // reserve asset, 8-decimal smallest units
	TotalUnits     uint64 // receipt token, 6-decimal smallest units
	TotalValue     uint64 // reporting mirror of ReserveBalance
	Paused         bool
	Initialized    bool
}

// PoolSnapshot is the persisted state of a pool.
// Corresponds to pools + pool_depositors tables in PostgreSQL.
type PoolSnapshot struct {
	PoolID         string     // PRIMARY KEY, base58 identifier
	ReceiptTokenID string     // receipt-token identifier
	Creator        string     // account that requested pool creation
	MintPolicy     MintPolicy // FLAT_UNIT | PROPORTIONAL
	ReserveBalance uint64     // reserve asset, 8-decimal smallest units
	TotalUnits     uint64     // receipt token, 6-decimal smallest units
	Paused         bool
	Depositors     []string // identities holding a receipt unit from this pool
	CreatedAt      int64    // Unix timestamp in milliseconds
	UpdatedAt      int64    // Unix timestamp in milliseconds
}
