package memory

import (
	"context"
	"sort"
	"sync"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage"
)

// CapitalRecordStore is an in-memory implementation of
// storage.CapitalRecordStore.
type CapitalRecordStore struct {
	mu   sync.RWMutex
	data map[capitalKey]*domain.DailyCapitalRecord
}

type capitalKey struct {
	runID string
	dayMs int64
}

// NewCapitalRecordStore creates a new in-memory capital record store.
func NewCapitalRecordStore() *CapitalRecordStore {
	return &CapitalRecordStore{
		data: make(map[capitalKey]*domain.DailyCapitalRecord),
	}
}

// Compile-time interface check.
var _ storage.CapitalRecordStore = (*CapitalRecordStore)(nil)

// InsertBulk adds multiple records atomically. Fails the entire batch on
// any duplicate (run_id, day_ms) key.
func (s *CapitalRecordStore) InsertBulk(_ context.Context, records []*domain.DailyCapitalRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[capitalKey]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.RunID == "" {
			return storage.ErrInvalidInput
		}
		k := capitalKey{r.RunID, r.DayMs}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, r := range records {
		cp := *r
		s.data[capitalKey{r.RunID, r.DayMs}] = &cp
	}
	return nil
}

// GetByRunID retrieves the capital chain for a run, ordered by day ASC.
func (s *CapitalRecordStore) GetByRunID(_ context.Context, runID string) ([]*domain.DailyCapitalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyCapitalRecord
	for _, r := range s.data {
		if r.RunID == runID {
			cp := *r
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DayMs < result[j].DayMs
	})
	return result, nil
}
