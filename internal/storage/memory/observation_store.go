package memory

import (
	"context"
	"sort"
	"sync"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage"
)

// ObservationStore is an in-memory implementation of
// storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	data map[obsKey]*domain.RawSignalObservation
}

type obsKey struct {
	entityID     string
	observedAtMs int64
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		data: make(map[obsKey]*domain.RawSignalObservation),
	}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// InsertBulk adds multiple observations atomically. Fails the entire batch
// on any duplicate (entity_id, observed_at_ms) key.
func (s *ObservationStore) InsertBulk(_ context.Context, obs []*domain.RawSignalObservation) error {
	if len(obs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[obsKey]struct{}, len(obs))
	for _, o := range obs {
		if o == nil || o.EntityID == "" {
			return storage.ErrInvalidInput
		}
		k := obsKey{o.EntityID, o.ObservedAtMs}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, o := range obs {
		cp := *o
		s.data[obsKey{o.EntityID, o.ObservedAtMs}] = &cp
	}
	return nil
}

// GetByEntityID retrieves all observations for an entity, ordered by
// session day then observed-at timestamp ASC.
func (s *ObservationStore) GetByEntityID(_ context.Context, entityID string) ([]*domain.RawSignalObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RawSignalObservation
	for _, o := range s.data {
		if o.EntityID == entityID {
			cp := *o
			result = append(result, &cp)
		}
	}
	sortObservations(result)
	return result, nil
}

// GetAll retrieves every observation, ordered by entity id, session day,
// observed-at timestamp ASC.
func (s *ObservationStore) GetAll(_ context.Context) ([]*domain.RawSignalObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RawSignalObservation, 0, len(s.data))
	for _, o := range s.data {
		cp := *o
		result = append(result, &cp)
	}
	sortObservations(result)
	return result, nil
}

func sortObservations(obs []*domain.RawSignalObservation) {
	sort.Slice(obs, func(i, j int) bool {
		if obs[i].EntityID != obs[j].EntityID {
			return obs[i].EntityID < obs[j].EntityID
		}
		if obs[i].SessionDayMs != obs[j].SessionDayMs {
			return obs[i].SessionDayMs < obs[j].SessionDayMs
		}
		return obs[i].ObservedAtMs < obs[j].ObservedAtMs
	})
}
