package clickhouse

import (
	"context"
	"fmt"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage"
)

// ObservationStore implements storage.ObservationStore using ClickHouse.
type ObservationStore struct {
	conn *Conn
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(conn *Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// InsertBulk adds multiple observations. Fails the entire batch on a
// duplicate (entity_id, observed_at_ms) key.
func (s *ObservationStore) InsertBulk(ctx context.Context, obs []*domain.RawSignalObservation) error {
	if len(obs) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		entityID     string
		observedAtMs int64
	}
	seen := make(map[key]struct{})
	for _, o := range obs {
		k := key{o.EntityID, o.ObservedAtMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, o := range obs {
		exists, err := s.exists(ctx, o.EntityID, o.ObservedAtMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO raw_signal_observations (
			entity_id, observed_at_ms, session_day_ms, seconds_to_close, value
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		err = batch.Append(
			o.EntityID, uint64(o.ObservedAtMs), uint64(o.SessionDayMs),
			o.SecondsToClose, o.Value,
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

// GetByEntityID retrieves all observations for an entity, ordered by
// session day then observed-at timestamp ASC.
func (s *ObservationStore) GetByEntityID(ctx context.Context, entityID string) ([]*domain.RawSignalObservation, error) {
	query := `
		SELECT entity_id, observed_at_ms, session_day_ms, seconds_to_close, value
		FROM raw_signal_observations
		WHERE entity_id = ?
		ORDER BY session_day_ms ASC, observed_at_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("query observations by entity id: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetAll retrieves every observation, ordered by entity id, session day,
// observed-at timestamp ASC.
func (s *ObservationStore) GetAll(ctx context.Context) ([]*domain.RawSignalObservation, error) {
	query := `
		SELECT entity_id, observed_at_ms, session_day_ms, seconds_to_close, value
		FROM raw_signal_observations
		ORDER BY entity_id ASC, session_day_ms ASC, observed_at_ms ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all observations: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// exists checks if an observation with the given key exists.
func (s *ObservationStore) exists(ctx context.Context, entityID string, observedAtMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM raw_signal_observations
		WHERE entity_id = ? AND observed_at_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, entityID, uint64(observedAtMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanObservations scans multiple rows.
func scanObservations(rows chRows) ([]*domain.RawSignalObservation, error) {
	var obs []*domain.RawSignalObservation

	for rows.Next() {
		var o domain.RawSignalObservation
		var observedAtMs, sessionDayMs uint64

		err := rows.Scan(
			&o.EntityID, &observedAtMs, &sessionDayMs,
			&o.SecondsToClose, &o.Value,
		)
		if err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}

		o.ObservedAtMs = int64(observedAtMs)
		o.SessionDayMs = int64(sessionDayMs)
		obs = append(obs, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}

	return obs, nil
}
