package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL. The snapshot row
// and its depositor flags are written in one transaction.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

// Upsert writes a pool snapshot, replacing any previous one.
func (s *PoolStore) Upsert(ctx context.Context, snap *domain.PoolSnapshot) error {
	if snap == nil || snap.PoolID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO pools (
			pool_id, receipt_token_id, creator, mint_policy,
			reserve_balance, total_units, paused, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (pool_id) DO UPDATE SET
			reserve_balance = EXCLUDED.reserve_balance,
			total_units = EXCLUDED.total_units,
			paused = EXCLUDED.paused,
			updated_at = EXCLUDED.updated_at
	`
	_, err = tx.Exec(ctx, query,
		snap.PoolID,
		snap.ReceiptTokenID,
		snap.Creator,
		string(snap.MintPolicy),
		int64(snap.ReserveBalance),
		int64(snap.TotalUnits),
		snap.Paused,
		snap.CreatedAt,
		snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert pool: %w", err)
	}

	// Depositor flags only ever grow; re-inserting the full set keeps the
	// write idempotent.
	for _, d := range snap.Depositors {
		_, err = tx.Exec(ctx, `
			INSERT INTO pool_depositors (pool_id, depositor)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, snap.PoolID, d)
		if err != nil {
			return fmt.Errorf("upsert pool depositor: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot by pool id. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByID(ctx context.Context, poolID string) (*domain.PoolSnapshot, error) {
	query := `
		SELECT pool_id, receipt_token_id, creator, mint_policy,
		       reserve_balance, total_units, paused, created_at, updated_at
		FROM pools
		WHERE pool_id = $1
	`

	row := s.pool.QueryRow(ctx, query, poolID)
	snap, err := scanPool(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool: %w", err)
	}

	if err := s.loadDepositors(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// GetByCreator retrieves all snapshots for a creator identity.
func (s *PoolStore) GetByCreator(ctx context.Context, creator string) ([]*domain.PoolSnapshot, error) {
	query := `
		SELECT pool_id, receipt_token_id, creator, mint_policy,
		       reserve_balance, total_units, paused, created_at, updated_at
		FROM pools
		WHERE creator = $1
		ORDER BY created_at ASC, pool_id ASC
	`

	rows, err := s.pool.Query(ctx, query, creator)
	if err != nil {
		return nil, fmt.Errorf("get pools by creator: %w", err)
	}
	defer rows.Close()

	return s.scanPoolsWithDepositors(ctx, rows)
}

// List retrieves all snapshots, ordered by created_at ASC.
func (s *PoolStore) List(ctx context.Context) ([]*domain.PoolSnapshot, error) {
	query := `
		SELECT pool_id, receipt_token_id, creator, mint_policy,
		       reserve_balance, total_units, paused, created_at, updated_at
		FROM pools
		ORDER BY created_at ASC, pool_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	defer rows.Close()

	return s.scanPoolsWithDepositors(ctx, rows)
}

func (s *PoolStore) loadDepositors(ctx context.Context, snap *domain.PoolSnapshot) error {
	rows, err := s.pool.Query(ctx, `
		SELECT depositor FROM pool_depositors
		WHERE pool_id = $1
		ORDER BY depositor ASC
	`, snap.PoolID)
	if err != nil {
		return fmt.Errorf("get pool depositors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return fmt.Errorf("scan depositor row: %w", err)
		}
		snap.Depositors = append(snap.Depositors, d)
	}
	return rows.Err()
}

func scanPool(row pgx.Row) (*domain.PoolSnapshot, error) {
	var snap domain.PoolSnapshot
	var policy string
	var reserveBalance, totalUnits int64

	err := row.Scan(
		&snap.PoolID,
		&snap.ReceiptTokenID,
		&snap.Creator,
		&policy,
		&reserveBalance,
		&totalUnits,
		&snap.Paused,
		&snap.CreatedAt,
		&snap.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	snap.MintPolicy = domain.MintPolicy(policy)
	snap.ReserveBalance = uint64(reserveBalance)
	snap.TotalUnits = uint64(totalUnits)
	return &snap, nil
}

func (s *PoolStore) scanPoolsWithDepositors(ctx context.Context, rows pgx.Rows) ([]*domain.PoolSnapshot, error) {
	var snaps []*domain.PoolSnapshot
	for rows.Next() {
		snap, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool rows: %w", err)
	}
	rows.Close()

	for _, snap := range snaps {
		if err := s.loadDepositors(ctx, snap); err != nil {
			return nil, err
		}
	}
	return snaps, nil
}
