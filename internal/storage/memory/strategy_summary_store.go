package memory

import (
	"context"
	"sync"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// StrategySummaryStore is an in-memory implementation of storage.StrategySummaryStore.
type StrategySummaryStore struct {
	mu   sync.RWMutex
	data map[string]map[int]*domain.StrategySummary // strategy_id -> run_count -> snapshot
}

// NewStrategySummaryStore creates a new in-memory summary store.
func NewStrategySummaryStore() *StrategySummaryStore {
	return &StrategySummaryStore{
		data: make(map[string]map[int]*domain.StrategySummary),
	}
}

// Insert adds a snapshot. Returns ErrDuplicateKey if (strategy_id, run_count) exists.
func (s *StrategySummaryStore) Insert(_ context.Context, sum *domain.StrategySummary) error {
	if sum == nil || sum.StrategyID == "" || sum.RunCount <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byCount := s.data[sum.StrategyID]
	if byCount == nil {
		byCount = make(map[int]*domain.StrategySummary)
		s.data[sum.StrategyID] = byCount
	}
	if _, exists := byCount[sum.RunCount]; exists {
		return storage.ErrDuplicateKey
	}

	snapshot := *sum
	byCount[sum.RunCount] = &snapshot
	return nil
}

// GetLatest retrieves the snapshot with the highest run_count.
func (s *StrategySummaryStore) GetLatest(_ context.Context, strategyID string) (*domain.StrategySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.StrategySummary
	for _, sum := range s.data[strategyID] {
		if latest == nil || sum.RunCount > latest.RunCount {
			latest = sum
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	snapshot := *latest
	return &snapshot, nil
}

var _ storage.StrategySummaryStore = (*StrategySummaryStore)(nil)
