package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage"
)

// CapitalRecordStore implements storage.CapitalRecordStore using PostgreSQL.
type CapitalRecordStore struct {
	pool *Pool
}

// NewCapitalRecordStore creates a new CapitalRecordStore.
func NewCapitalRecordStore(pool *Pool) *CapitalRecordStore {
	return &CapitalRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CapitalRecordStore = (*CapitalRecordStore)(nil)

const capitalRecordColumns = `
	run_id, day_ms, mode, universe_size, num_long, num_short,
	long_exposure, short_exposure, net_exposure, gross_exposure,
	daily_return, capital_start, pnl, capital_end
`

// InsertBulk adds multiple records atomically. Fails the entire batch on
// any duplicate (run_id, day_ms) key.
func (s *CapitalRecordStore) InsertBulk(ctx context.Context, records []*domain.DailyCapitalRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO daily_capital_records (` + capitalRecordColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14
		)
	`

	for _, r := range records {
		_, err := tx.Exec(ctx, query,
			r.RunID, r.DayMs, r.Mode, r.UniverseSize, r.NumLong, r.NumShort,
			r.LongExposure, r.ShortExposure, r.NetExposure, r.GrossExposure,
			r.DailyReturn, r.CapitalStart, r.PnL, r.CapitalEnd,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert capital record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves the capital chain for a run, ordered by day ASC.
func (s *CapitalRecordStore) GetByRunID(ctx context.Context, runID string) ([]*domain.DailyCapitalRecord, error) {
	query := `
		SELECT` + capitalRecordColumns + `
		FROM daily_capital_records
		WHERE run_id = $1
		ORDER BY day_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get capital records by run id: %w", err)
	}
	defer rows.Close()

	return scanCapitalRecords(rows)
}

// scanCapitalRecords scans multiple rows into a slice of DailyCapitalRecord.
func scanCapitalRecords(rows pgx.Rows) ([]*domain.DailyCapitalRecord, error) {
	var records []*domain.DailyCapitalRecord

	for rows.Next() {
		var r domain.DailyCapitalRecord

		err := rows.Scan(
			&r.RunID, &r.DayMs, &r.Mode, &r.UniverseSize, &r.NumLong, &r.NumShort,
			&r.LongExposure, &r.ShortExposure, &r.NetExposure, &r.GrossExposure,
			&r.DailyReturn, &r.CapitalStart, &r.PnL, &r.CapitalEnd,
		)
		if err != nil {
			return nil, fmt.Errorf("scan capital record row: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate capital record rows: %w", err)
	}

	return records, nil
}
