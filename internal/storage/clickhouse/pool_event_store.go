package clickhouse

import (
	"context"
	"fmt"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/storage"
)

// PoolEventStore implements storage.PoolEventStore using ClickHouse.
type PoolEventStore struct {
	conn *Conn
}

// NewPoolEventStore creates a new PoolEventStore.
func NewPoolEventStore(conn *Conn) *PoolEventStore {
	return &PoolEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PoolEventStore = (*PoolEventStore)(nil)

// InsertBulk appends multiple events.
func (s *PoolEventStore) InsertBulk(ctx context.Context, events []*domain.PoolEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pool_events (
			pool_id, event_type, account, reserve_amount, units,
			reserve_after, units_after, timestamp
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		if e == nil || e.PoolID == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			e.PoolID, e.EventType, e.Account, e.ReserveAmount, e.Units,
			e.ReserveAfter, e.UnitsAfter, e.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByPool retrieves all events for a pool, ordered by timestamp ASC.
func (s *PoolEventStore) GetByPool(ctx context.Context, poolID string) ([]*domain.PoolEvent, error) {
	query := `
		SELECT pool_id, event_type, account, reserve_amount, units,
		       reserve_after, units_after, timestamp
		FROM pool_events
		WHERE pool_id = ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("get events by pool: %w", err)
	}
	defer rows.Close()

	var events []*domain.PoolEvent
	for rows.Next() {
		var e domain.PoolEvent
		err := rows.Scan(
			&e.PoolID, &e.EventType, &e.Account, &e.ReserveAmount, &e.Units,
			&e.ReserveAfter, &e.UnitsAfter, &e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}
