package storage

import (
	"context"
	"time"

	"backtest-lab/internal/domain"
)

// BarStore provides access to OHLCV bar storage, keyed by (symbol, timestamp).
type BarStore interface {
	// InsertBulk adds bars for a symbol atomically. Fails entire batch on
	// duplicate (symbol, timestamp), existing or intra-batch.
	InsertBulk(ctx context.Context, symbol string, bars []domain.Bar) error

	// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive),
	// ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// Symbols lists the stored symbols in ascending order.
	Symbols(ctx context.Context) ([]string, error)
}

// BacktestRunStore provides access to completed backtest runs.
// Runs are append-only.
type BacktestRunStore interface {
	// Insert adds a run with its positions. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.BacktestRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error)

	// GetByStrategy retrieves all runs of a strategy, ordered by created_at ASC, run_id ASC.
	GetByStrategy(ctx context.Context, strategyID string) ([]*domain.BacktestRun, error)
}

// StrategySummaryStore provides access to strategy summary snapshots.
// A snapshot is keyed by (strategy_id, run_count) and never updated.
type StrategySummaryStore interface {
	// Insert adds a snapshot. Returns ErrDuplicateKey if (strategy_id, run_count) exists.
	Insert(ctx context.Context, s *domain.StrategySummary) error

	// GetLatest retrieves the snapshot with the highest run_count.
	// Returns ErrNotFound if the strategy has none.
	GetLatest(ctx context.Context, strategyID string) (*domain.StrategySummary, error)
}
