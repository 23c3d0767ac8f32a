package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// ErrNoRuns is returned when no stored runs are available for aggregation.
var ErrNoRuns = errors.New("no backtest runs available for aggregation")

// Aggregator summarizes the stored runs of a strategy.
type Aggregator struct {
	runStore     storage.BacktestRunStore
	summaryStore storage.StrategySummaryStore
}

// NewAggregator creates a new run aggregator.
// summaryStore may be nil, in which case summaries are never persisted.
func NewAggregator(runStore storage.BacktestRunStore, summaryStore storage.StrategySummaryStore) *Aggregator {
	return &Aggregator{
		runStore:     runStore,
		summaryStore: summaryStore,
	}
}

// ComputeSummary loads every run of strategyID and aggregates their results.
// Returns ErrNoRuns if there are none.
func (a *Aggregator) ComputeSummary(ctx context.Context, strategyID string) (*domain.StrategySummary, error) {
	runs, err := a.runStore.GetByStrategy(ctx, strategyID)
	if err != nil {
		return nil, fmt.Errorf("load runs for %s: %w", strategyID, err)
	}

	results := make([]*domain.BacktestResult, 0, len(runs))
	for _, run := range runs {
		if run.Result != nil {
			results = append(results, run.Result)
		}
	}
	if len(results) == 0 {
		return nil, ErrNoRuns
	}

	summary := summarize(results)
	summary.StrategyID = strategyID
	return summary, nil
}

// ComputeAndStore computes the summary and records it as a snapshot.
// A snapshot already stored for the same run count is not an error.
func (a *Aggregator) ComputeAndStore(ctx context.Context, strategyID string) (*domain.StrategySummary, error) {
	summary, err := a.ComputeSummary(ctx, strategyID)
	if err != nil {
		return nil, err
	}
	if a.summaryStore == nil {
		return summary, nil
	}

	if err := a.summaryStore.Insert(ctx, summary); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return nil, fmt.Errorf("store summary for %s: %w", strategyID, err)
	}
	return summary, nil
}

// summarize aggregates results; results must be non-empty.
func summarize(results []*domain.BacktestResult) *domain.StrategySummary {
	n := len(results)
	returns := make([]float64, n)
	sharpes := make([]float64, n)
	winRates := make([]float64, n)

	s := &domain.StrategySummary{RunCount: n}
	for i, r := range results {
		returns[i] = r.TotalReturn
		sharpes[i] = r.SharpeRatio
		winRates[i] = r.WinRate
		if r.Metrics != nil {
			s.TotalTrades += r.Metrics.TotalTrades
		}
		if r.MaxDrawdown < s.WorstDrawdown {
			s.WorstDrawdown = r.MaxDrawdown
		}
	}

	sorted := make([]float64, n)
	copy(sorted, returns)
	sort.Float64s(sorted)

	s.MeanReturn = computeMean(returns)
	s.MedianReturn = computePercentile(sorted, 0.50)
	s.BestReturn = sorted[n-1]
	s.WorstReturn = sorted[0]
	s.ReturnStddev = computeStddev(returns, s.MeanReturn)
	s.MeanSharpe = computeMean(sharpes)
	s.MeanWinRate = computeMean(winRates)
	return s
}
