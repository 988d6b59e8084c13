package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/storage"
)

// PurchaseStore implements storage.PurchaseStore using PostgreSQL.
// Amounts are stored as BIGINT; the accounting core never produces values
// outside the int64 range for real pools.
type PurchaseStore struct {
	pool *Pool
}

// NewPurchaseStore creates a new PurchaseStore.
func NewPurchaseStore(pool *Pool) *PurchaseStore {
	return &PurchaseStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PurchaseStore = (*PurchaseStore)(nil)

// Insert adds a purchase. Returns ErrDuplicateKey if (pool_id, purchase_index) exists.
func (s *PurchaseStore) Insert(ctx context.Context, r *domain.PurchaseRecord) error {
	query := `
		INSERT INTO purchases (
			pool_id, purchase_index, receipt_token_id, depositor,
			reserve_amount, units_minted, usd_reference, maturation_reference,
			usd_units, ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		r.PoolID,
		r.Index,
		r.ReceiptTokenID,
		r.Depositor,
		int64(r.ReserveAmount),
		int64(r.UnitsMinted),
		int64(r.USDReference),
		int64(r.MaturationReference),
		int64(r.USDUnits),
		r.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

// GetByPool retrieves all purchases for a pool, ordered by index ASC.
func (s *PurchaseStore) GetByPool(ctx context.Context, poolID string) ([]*domain.PurchaseRecord, error) {
	query := `
		SELECT pool_id, purchase_index, receipt_token_id, depositor,
		       reserve_amount, units_minted, usd_reference, maturation_reference,
		       usd_units, ts
		FROM purchases
		WHERE pool_id = $1
		ORDER BY purchase_index ASC
	`

	rows, err := s.pool.Query(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("get purchases by pool: %w", err)
	}
	defer rows.Close()

	return scanPurchases(rows)
}

// GetByDepositor retrieves all purchases for a depositor across pools,
// ordered by timestamp ASC.
func (s *PurchaseStore) GetByDepositor(ctx context.Context, depositor string) ([]*domain.PurchaseRecord, error) {
	query := `
		SELECT pool_id, purchase_index, receipt_token_id, depositor,
		       reserve_amount, units_minted, usd_reference, maturation_reference,
		       usd_units, ts
		FROM purchases
		WHERE depositor = $1
		ORDER BY ts ASC, purchase_index ASC
	`

	rows, err := s.pool.Query(ctx, query, depositor)
	if err != nil {
		return nil, fmt.Errorf("get purchases by depositor: %w", err)
	}
	defer rows.Close()

	return scanPurchases(rows)
}

// Get retrieves a purchase by pool id and index. Returns ErrNotFound if not exists.
func (s *PurchaseStore) Get(ctx context.Context, poolID string, index int64) (*domain.PurchaseRecord, error) {
	query := `
		SELECT pool_id, purchase_index, receipt_token_id, depositor,
		       reserve_amount, units_minted, usd_reference, maturation_reference,
		       usd_units, ts
		FROM purchases
		WHERE pool_id = $1 AND purchase_index = $2
	`

	row := s.pool.QueryRow(ctx, query, poolID, index)
	r, err := scanPurchase(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	return r, nil
}

func scanPurchase(row pgx.Row) (*domain.PurchaseRecord, error) {
	var r domain.PurchaseRecord
	var reserveAmount, unitsMinted, usdReference, maturationReference, usdUnits int64

	err := row.Scan(
		&r.PoolID,
		&r.Index,
		&r.ReceiptTokenID,
		&r.Depositor,
		&reserveAmount,
		&unitsMinted,
		&usdReference,
		&maturationReference,
		&usdUnits,
		&r.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	r.ReserveAmount = uint64(reserveAmount)
	r.UnitsMinted = uint64(unitsMinted)
	r.USDReference = uint64(usdReference)
	r.MaturationReference = uint64(maturationReference)
	r.USDUnits = uint64(usdUnits)
	return &r, nil
}

// scanPurchases scans multiple rows into a slice of PurchaseRecord.
func scanPurchases(rows pgx.Rows) ([]*domain.PurchaseRecord, error) {
	var purchases []*domain.PurchaseRecord

	for rows.Next() {
		r, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase row: %w", err)
		}
		purchases = append(purchases, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase rows: %w", err)
	}
	return purchases, nil
}
