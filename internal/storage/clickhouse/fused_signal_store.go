package clickhouse

import (
	"context"
	"fmt"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage"
)

// FusedSignalStore implements storage.FusedSignalStore using ClickHouse.
type FusedSignalStore struct {
	conn *Conn
}

// NewFusedSignalStore creates a new FusedSignalStore.
func NewFusedSignalStore(conn *Conn) *FusedSignalStore {
	return &FusedSignalStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FusedSignalStore = (*FusedSignalStore)(nil)

// InsertBulk adds multiple fused signals. Fails the entire batch on a
// duplicate (entity_id, session_day_ms) key.
func (s *FusedSignalStore) InsertBulk(ctx context.Context, signals []*domain.FusedSignal) error {
	if len(signals) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		entityID     string
		sessionDayMs int64
	}
	seen := make(map[key]struct{})
	for _, sig := range signals {
		k := key{sig.EntityID, sig.SessionDayMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, sig := range signals {
		exists, err := s.exists(ctx, sig.EntityID, sig.SessionDayMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO fused_signals (
			entity_id, session_day_ms, value, weighted_mean, dispersion_q, observations
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sig := range signals {
		err = batch.Append(
			sig.EntityID, uint64(sig.SessionDayMs), sig.Value,
			sig.WeightedMean, sig.DispersionQ, uint32(sig.Observations),
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

// GetByEntityID retrieves all fused signals for an entity, ordered by
// session day ASC.
func (s *FusedSignalStore) GetByEntityID(ctx context.Context, entityID string) ([]*domain.FusedSignal, error) {
	query := `
		SELECT entity_id, session_day_ms, value, weighted_mean, dispersion_q, observations
		FROM fused_signals
		WHERE entity_id = ?
		ORDER BY session_day_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("query fused signals by entity id: %w", err)
	}
	defer rows.Close()

	return scanFusedSignals(rows)
}

// GetAll retrieves every fused signal, ordered by entity id then session
// day ASC.
func (s *FusedSignalStore) GetAll(ctx context.Context) ([]*domain.FusedSignal, error) {
	query := `
		SELECT entity_id, session_day_ms, value, weighted_mean, dispersion_q, observations
		FROM fused_signals
		ORDER BY entity_id ASC, session_day_ms ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all fused signals: %w", err)
	}
	defer rows.Close()

	return scanFusedSignals(rows)
}

// exists checks if a fused signal with the given key exists.
func (s *FusedSignalStore) exists(ctx context.Context, entityID string, sessionDayMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM fused_signals
		WHERE entity_id = ? AND session_day_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, entityID, uint64(sessionDayMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanFusedSignals scans multiple rows.
func scanFusedSignals(rows chRows) ([]*domain.FusedSignal, error) {
	var signals []*domain.FusedSignal

	for rows.Next() {
		var sig domain.FusedSignal
		var sessionDayMs uint64
		var observations uint32

		err := rows.Scan(
			&sig.EntityID, &sessionDayMs, &sig.Value,
			&sig.WeightedMean, &sig.DispersionQ, &observations,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fused signal row: %w", err)
		}

		sig.SessionDayMs = int64(sessionDayMs)
		sig.Observations = int(observations)
		signals = append(signals, &sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fused signal rows: %w", err)
	}

	return signals, nil
}
