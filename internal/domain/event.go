package domain

// PoolEvent records a single accounting mutation for analytics and the
// event feed. Corresponds to pool_events table in ClickHouse.
type PoolEvent struct {
	PoolID        string // pool identifier
	EventType     string // "initialize" | "deposit" | "withdraw" | "extract"
	Account       string // initiator/depositor identity
	ReserveAmount uint64 // reserve moved in or out, 8-decimal smallest units
	Units         uint64 // receipt units minted or burned
	ReserveAfter  uint64 // pool reserve balance after the mutation
	UnitsAfter    uint64 // total units after the mutation
	Timestamp     int64  // Unix timestamp in milliseconds
}

// Pool event type constants.
const (
	EventInitialize = "initialize"
	EventDeposit    = "deposit"
	EventWithdraw   = "withdraw"
	EventExtract    = "extract"
)
