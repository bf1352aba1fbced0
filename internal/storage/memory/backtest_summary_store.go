package memory

import (
	"context"
	"sort"
	"sync"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage"
)

// BacktestSummaryStore is an in-memory implementation of
// storage.BacktestSummaryStore.
type BacktestSummaryStore struct {
	mu   sync.RWMutex
	data map[summaryKey]*domain.BacktestSummary
}

type summaryKey struct {
	runID string
	book  domain.Book
}

// NewBacktestSummaryStore creates a new in-memory backtest summary store.
func NewBacktestSummaryStore() *BacktestSummaryStore {
	return &BacktestSummaryStore{
		data: make(map[summaryKey]*domain.BacktestSummary),
	}
}

// Compile-time interface check.
var _ storage.BacktestSummaryStore = (*BacktestSummaryStore)(nil)

// Insert adds a summary. Returns ErrDuplicateKey if (run_id, book) exists.
func (s *BacktestSummaryStore) Insert(_ context.Context, sum *domain.BacktestSummary) error {
	if sum == nil || sum.RunID == "" || sum.Book == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := summaryKey{sum.RunID, sum.Book}
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *sum
	s.data[k] = &cp
	return nil
}

// InsertBulk adds multiple summaries atomically. Fails the entire batch on
// any duplicate.
func (s *BacktestSummaryStore) InsertBulk(_ context.Context, summaries []*domain.BacktestSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[summaryKey]struct{}, len(summaries))
	for _, sum := range summaries {
		if sum == nil || sum.RunID == "" || sum.Book == "" {
			return storage.ErrInvalidInput
		}
		k := summaryKey{sum.RunID, sum.Book}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, sum := range summaries {
		cp := *sum
		s.data[summaryKey{sum.RunID, sum.Book}] = &cp
	}
	return nil
}

// GetByRunID retrieves all summaries for a run, ordered by book.
func (s *BacktestSummaryStore) GetByRunID(_ context.Context, runID string) ([]*domain.BacktestSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BacktestSummary
	for _, sum := range s.data {
		if sum.RunID == runID {
			cp := *sum
			result = append(result, &cp)
		}
	}
	sortSummaries(result)
	return result, nil
}

// GetAll retrieves every summary, ordered by run id then book.
func (s *BacktestSummaryStore) GetAll(_ context.Context) ([]*domain.BacktestSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.BacktestSummary, 0, len(s.data))
	for _, sum := range s.data {
		cp := *sum
		result = append(result, &cp)
	}
	sortSummaries(result)
	return result, nil
}

func sortSummaries(summaries []*domain.BacktestSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].RunID != summaries[j].RunID {
			return summaries[i].RunID < summaries[j].RunID
		}
		return summaries[i].Book < summaries[j].Book
	})
}
