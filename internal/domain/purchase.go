package domain

// PurchaseRecord is one entry of a pool's append-only purchase ledger.
// Corresponds to purchases table in PostgreSQL.
type PurchaseRecord struct {
	Index               int64  // per-pool auto-incrementing purchase index
	PoolID              string // pool identifier
	ReceiptTokenID      string // receipt-token identifier
	Depositor           string // depositor identity
	ReserveAmount       uint64 // deposited reserve, 8-decimal smallest units
	UnitsMinted         uint64 // receipt units minted (0 for repeat depositors)
	USDReference        uint64 // advisory USD figure, display only
	MaturationReference uint64 // advisory maturation figure, display only
	USDUnits            uint64 // advisory units derived from the USD figure, never drives a mint
	Timestamp           int64  // Unix timestamp in seconds
}
