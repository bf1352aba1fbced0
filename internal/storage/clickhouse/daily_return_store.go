package clickhouse

import (
	"context"
	"fmt"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage"
)

// DailyReturnStore implements storage.DailyReturnStore using ClickHouse.
type DailyReturnStore struct {
	conn *Conn
}

// NewDailyReturnStore creates a new DailyReturnStore.
func NewDailyReturnStore(conn *Conn) *DailyReturnStore {
	return &DailyReturnStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailyReturnStore = (*DailyReturnStore)(nil)

// InsertBulk adds multiple return rows. Fails the entire batch on a
// duplicate (entity_id, day_ms) key.
func (s *DailyReturnStore) InsertBulk(ctx context.Context, rows []*domain.DailyReturn) error {
	if len(rows) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		entityID string
		dayMs    int64
	}
	seen := make(map[key]struct{})
	for _, r := range rows {
		k := key{r.EntityID, r.DayMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, r := range rows {
		exists, err := s.exists(ctx, r.EntityID, r.DayMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_returns (
			entity_id, day_ms, daily_return, market_cap_lag
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			r.EntityID, uint64(r.DayMs), r.Return, r.MarketCapLag,
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

// GetByEntityID retrieves all return rows for an entity, ordered by day ASC.
func (s *DailyReturnStore) GetByEntityID(ctx context.Context, entityID string) ([]*domain.DailyReturn, error) {
	query := `
		SELECT entity_id, day_ms, daily_return, market_cap_lag
		FROM daily_returns
		WHERE entity_id = ?
		ORDER BY day_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("query daily returns by entity id: %w", err)
	}
	defer rows.Close()

	return scanDailyReturns(rows)
}

// GetAll retrieves every return row, ordered by entity id then day ASC.
func (s *DailyReturnStore) GetAll(ctx context.Context) ([]*domain.DailyReturn, error) {
	query := `
		SELECT entity_id, day_ms, daily_return, market_cap_lag
		FROM daily_returns
		ORDER BY entity_id ASC, day_ms ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all daily returns: %w", err)
	}
	defer rows.Close()

	return scanDailyReturns(rows)
}

// exists checks if a return row with the given key exists.
func (s *DailyReturnStore) exists(ctx context.Context, entityID string, dayMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM daily_returns
		WHERE entity_id = ? AND day_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, entityID, uint64(dayMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanDailyReturns scans multiple rows.
func scanDailyReturns(rows chRows) ([]*domain.DailyReturn, error) {
	var out []*domain.DailyReturn

	for rows.Next() {
		var r domain.DailyReturn
		var dayMs uint64

		err := rows.Scan(&r.EntityID, &dayMs, &r.Return, &r.MarketCapLag)
		if err != nil {
			return nil, fmt.Errorf("scan daily return row: %w", err)
		}

		r.DayMs = int64(dayMs)
		out = append(out, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily return rows: %w", err)
	}

	return out, nil
}
