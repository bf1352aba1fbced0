package memory

import (
	"context"
	"sort"
	"sync"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage"
)

// DailyReturnStore is an in-memory implementation of
// storage.DailyReturnStore.
type DailyReturnStore struct {
	mu   sync.RWMutex
	data map[returnKey]*domain.DailyReturn
}

type returnKey struct {
	entityID string
	dayMs    int64
}

// NewDailyReturnStore creates a new in-memory daily return store.
func NewDailyReturnStore() *DailyReturnStore {
	return &DailyReturnStore{
		data: make(map[returnKey]*domain.DailyReturn),
	}
}

// Compile-time interface check.
var _ storage.DailyReturnStore = (*DailyReturnStore)(nil)

// InsertBulk adds multiple return rows atomically. Fails the entire batch
// on any duplicate (entity_id, day_ms) key.
func (s *DailyReturnStore) InsertBulk(_ context.Context, rows []*domain.DailyReturn) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[returnKey]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.EntityID == "" {
			return storage.ErrInvalidInput
		}
		k := returnKey{r.EntityID, r.DayMs}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, r := range rows {
		cp := *r
		s.data[returnKey{r.EntityID, r.DayMs}] = &cp
	}
	return nil
}

// GetByEntityID retrieves all return rows for an entity, ordered by day ASC.
func (s *DailyReturnStore) GetByEntityID(_ context.Context, entityID string) ([]*domain.DailyReturn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyReturn
	for _, r := range s.data {
		if r.EntityID == entityID {
			cp := *r
			result = append(result, &cp)
		}
	}
	sortReturns(result)
	return result, nil
}

// GetAll retrieves every return row, ordered by entity id then day ASC.
func (s *DailyReturnStore) GetAll(_ context.Context) ([]*domain.DailyReturn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.DailyReturn, 0, len(s.data))
	for _, r := range s.data {
		cp := *r
		result = append(result, &cp)
	}
	sortReturns(result)
	return result, nil
}

func sortReturns(rows []*domain.DailyReturn) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].EntityID != rows[j].EntityID {
			return rows[i].EntityID < rows[j].EntityID
		}
		return rows[i].DayMs < rows[j].DayMs
	})
}
