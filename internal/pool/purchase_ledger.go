package pool

import "github.com/CarbonSustain/OffsetZap-sub000/internal/domain"

// PurchaseLedger is the append-only record of deposit events for one pool.
// Records are indexed by an auto-incrementing purchase index and secondarily
// by depositor identity. No mutation or deletion API exists.
//
// Not safe for concurrent use on its own; the owning engine serializes
// access under its pool lock.
type PurchaseLedger struct {
	records     []domain.PurchaseRecord
	byDepositor map[string][]int64
}

// NewPurchaseLedger creates an empty purchase ledger.
func NewPurchaseLedger() *PurchaseLedger {
	return &PurchaseLedger{byDepositor: make(map[string][]int64)}
}

// NewPurchaseLedgerFrom rebuilds a ledger from persisted records. Records
// must be ordered by index starting at zero.
func NewPurchaseLedgerFrom(records []domain.PurchaseRecord) *PurchaseLedger {
	l := NewPurchaseLedger()
	for _, r := range records {
		r.Index = int64(len(l.records))
		l.records = append(l.records, r)
		l.byDepositor[r.Depositor] = append(l.byDepositor[r.Depositor], r.Index)
	}
	return l
}

// Record appends an entry and returns its assigned purchase index.
func (l *PurchaseLedger) Record(r domain.PurchaseRecord) int64 {
	r.Index = int64(len(l.records))
	l.records = append(l.records, r)
	l.byDepositor[r.Depositor] = append(l.byDepositor[r.Depositor], r.Index)
	return r.Index
}

// Get retrieves a record by purchase index.
func (l *PurchaseLedger) Get(index int64) (domain.PurchaseRecord, bool) {
	if index < 0 || index >= int64(len(l.records)) {
		return domain.PurchaseRecord{}, false
	}
	return l.records[index], true
}

// ByDepositor returns the purchase indices for a depositor identity, in
// append order.
func (l *PurchaseLedger) ByDepositor(identity string) []int64 {
	indices := l.byDepositor[identity]
	out := make([]int64, len(indices))
	copy(out, indices)
	return out
}

// All returns a copy of every record in append order.
func (l *PurchaseLedger) All() []domain.PurchaseRecord {
	out := make([]domain.PurchaseRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of recorded purchases.
func (l *PurchaseLedger) Len() int64 {
	return int64(len(l.records))
}
