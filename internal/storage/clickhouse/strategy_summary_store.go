package clickhouse

import (
	"context"
	"fmt"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// StrategySummaryStore implements storage.StrategySummaryStore using ClickHouse.
type StrategySummaryStore struct {
	conn *Conn
}

// NewStrategySummaryStore creates a new StrategySummaryStore.
func NewStrategySummaryStore(conn *Conn) *StrategySummaryStore {
	return &StrategySummaryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.StrategySummaryStore = (*StrategySummaryStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if (strategy_id, run_count) exists.
func (s *StrategySummaryStore) Insert(ctx context.Context, sum *domain.StrategySummary) error {
	if sum == nil || sum.StrategyID == "" || sum.RunCount <= 0 {
		return storage.ErrInvalidInput
	}

	// ReplacingMergeTree would replace silently; keep append-only semantics
	exists, err := s.exists(ctx, sum.StrategyID, sum.RunCount)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO strategy_summaries (
			strategy_id, run_count, total_trades,
			mean_return, median_return, best_return, worst_return, return_stddev,
			mean_sharpe, worst_drawdown, mean_win_rate
		) VALUES (
			?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?
		)
	`

	err = s.conn.Exec(ctx, query,
		sum.StrategyID, uint32(sum.RunCount), uint32(sum.TotalTrades),
		sum.MeanReturn, sum.MedianReturn, sum.BestReturn, sum.WorstReturn, sum.ReturnStddev,
		sum.MeanSharpe, sum.WorstDrawdown, sum.MeanWinRate,
	)
	if err != nil {
		return fmt.Errorf("insert strategy summary: %w", err)
	}
	return nil
}

// GetLatest retrieves the snapshot with the highest run_count.
func (s *StrategySummaryStore) GetLatest(ctx context.Context, strategyID string) (*domain.StrategySummary, error) {
	query := `
		SELECT
			strategy_id, run_count, total_trades,
			mean_return, median_return, best_return, worst_return, return_stddev,
			mean_sharpe, worst_drawdown, mean_win_rate
		FROM strategy_summaries FINAL
		WHERE strategy_id = ?
		ORDER BY run_count DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, strategyID)
	if err != nil {
		return nil, fmt.Errorf("query latest summary: %w", err)
	}
	defer rows.Close()

	summaries, err := scanStrategySummaries(rows)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, storage.ErrNotFound
	}
	return summaries[0], nil
}

// exists checks if a snapshot with the given key exists.
func (s *StrategySummaryStore) exists(ctx context.Context, strategyID string, runCount int) (bool, error) {
	query := `
		SELECT count(*) FROM strategy_summaries FINAL
		WHERE strategy_id = ? AND run_count = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, strategyID, uint32(runCount)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanStrategySummaries scans multiple rows into a slice.
func scanStrategySummaries(rows chRows) ([]*domain.StrategySummary, error) {
	var summaries []*domain.StrategySummary

	for rows.Next() {
		var (
			sum                   domain.StrategySummary
			runCount, totalTrades uint32
		)
		err := rows.Scan(
			&sum.StrategyID, &runCount, &totalTrades,
			&sum.MeanReturn, &sum.MedianReturn, &sum.BestReturn, &sum.WorstReturn, &sum.ReturnStddev,
			&sum.MeanSharpe, &sum.WorstDrawdown, &sum.MeanWinRate,
		)
		if err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		sum.RunCount = int(runCount)
		sum.TotalTrades = int(totalTrades)
		summaries = append(summaries, &sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}

	return summaries, nil
}
