package memory

import (
	"context"
	"sort"
	"sync"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage"
)

// FusedSignalStore is an in-memory implementation of
// storage.FusedSignalStore.
type FusedSignalStore struct {
	mu   sync.RWMutex
	data map[signalKey]*domain.FusedSignal
}

type signalKey struct {
	entityID string
	dayMs    int64
}

// NewFusedSignalStore creates a new in-memory fused signal store.
func NewFusedSignalStore() *FusedSignalStore {
	return &FusedSignalStore{
		data: make(map[signalKey]*domain.FusedSignal),
	}
}

// Compile-time interface check.
var _ storage.FusedSignalStore = (*FusedSignalStore)(nil)

// InsertBulk adds multiple fused signals atomically. Fails the entire
// batch on any duplicate (entity_id, session_day_ms) key.
func (s *FusedSignalStore) InsertBulk(_ context.Context, signals []*domain.FusedSignal) error {
	if len(signals) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[signalKey]struct{}, len(signals))
	for _, sig := range signals {
		if sig == nil || sig.EntityID == "" {
			return storage.ErrInvalidInput
		}
		k := signalKey{sig.EntityID, sig.SessionDayMs}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, sig := range signals {
		cp := *sig
		s.data[signalKey{sig.EntityID, sig.SessionDayMs}] = &cp
	}
	return nil
}

// GetByEntityID retrieves all fused signals for an entity, ordered by
// session day ASC.
func (s *FusedSignalStore) GetByEntityID(_ context.Context, entityID string) ([]*domain.FusedSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FusedSignal
	for _, sig := range s.data {
		if sig.EntityID == entityID {
			cp := *sig
			result = append(result, &cp)
		}
	}
	sortSignals(result)
	return result, nil
}

// GetAll retrieves every fused signal, ordered by entity id then session
// day ASC.
func (s *FusedSignalStore) GetAll(_ context.Context) ([]*domain.FusedSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FusedSignal, 0, len(s.data))
	for _, sig := range s.data {
		cp := *sig
		result = append(result, &cp)
	}
	sortSignals(result)
	return result, nil
}

func sortSignals(signals []*domain.FusedSignal) {
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].EntityID != signals[j].EntityID {
			return signals[i].EntityID < signals[j].EntityID
		}
		return signals[i].SessionDayMs < signals[j].SessionDayMs
	})
}
