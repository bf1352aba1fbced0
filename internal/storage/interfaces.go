package storage

import (
	"context"

	"sentiment-alpha-lab/internal/domain"
)

// ObservationStore provides access to raw signal observations.
type ObservationStore interface {
	// InsertBulk adds multiple observations atomically. Fails the entire
	// batch on a duplicate (entity_id, observed_at_ms) key.
	InsertBulk(ctx context.Context, obs []*domain.RawSignalObservation) error

	// GetByEntityID retrieves all observations for an entity, ordered by
	// session day then observed-at timestamp ASC.
	GetByEntityID(ctx context.Context, entityID string) ([]*domain.RawSignalObservation, error)

	// GetAll retrieves every observation, ordered by entity id, session
	// day, observed-at timestamp ASC.
	GetAll(ctx context.Context) ([]*domain.RawSignalObservation, error)
}

// FusedSignalStore provides access to the fused per-entity-per-day series.
type FusedSignalStore interface {
	// InsertBulk adds multiple fused signals atomically. Fails the entire
	// batch on a duplicate (entity_id, session_day_ms) key.
	InsertBulk(ctx context.Context, signals []*domain.FusedSignal) error

	// GetByEntityID retrieves all fused signals for an entity, ordered by
	// session day ASC.
	GetByEntityID(ctx context.Context, entityID string) ([]*domain.FusedSignal, error)

	// GetAll retrieves every fused signal, ordered by entity id then
	// session day ASC.
	GetAll(ctx context.Context) ([]*domain.FusedSignal, error)
}

// DailyReturnStore provides access to realized returns and lagged market
// caps.
type DailyReturnStore interface {
	// InsertBulk adds multiple return rows atomically. Fails the entire
	// batch on a duplicate (entity_id, day_ms) key.
	InsertBulk(ctx context.Context, rows []*domain.DailyReturn) error

	// GetByEntityID retrieves all return rows for an entity, ordered by
	// day ASC.
	GetByEntityID(ctx context.Context, entityID string) ([]*domain.DailyReturn, error)

	// GetAll retrieves every return row, ordered by entity id then day ASC.
	GetAll(ctx context.Context) ([]*domain.DailyReturn, error)
}

// CapitalRecordStore provides access to per-run daily capital chains.
type CapitalRecordStore interface {
	// InsertBulk adds multiple records atomically. Fails the entire batch
	// on a duplicate (run_id, day_ms) key.
	InsertBulk(ctx context.Context, records []*domain.DailyCapitalRecord) error

	// GetByRunID retrieves the capital chain for a run, ordered by day ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.DailyCapitalRecord, error)
}

// BacktestSummaryStore provides access to per-run performance summaries.
type BacktestSummaryStore interface {
	// Insert adds a summary. Returns ErrDuplicateKey if (run_id, book)
	// exists.
	Insert(ctx context.Context, s *domain.BacktestSummary) error

	// InsertBulk adds multiple summaries atomically. Fails the entire
	// batch on any duplicate.
	InsertBulk(ctx context.Context, summaries []*domain.BacktestSummary) error

	// GetByRunID retrieves all summaries for a run, ordered by book.
	GetByRunID(ctx context.Context, runID string) ([]*domain.BacktestSummary, error)

	// GetAll retrieves every summary, ordered by run id then book.
	GetAll(ctx context.Context) ([]*domain.BacktestSummary, error)
}
