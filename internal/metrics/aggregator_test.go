package metrics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage/memory"
)

func storedRun(id string, at time.Time, ret, sharpe, dd, winRate float64, trades int) *domain.BacktestRun {
	return &domain.BacktestRun{
		RunID:     id,
		Strategy:  domain.StrategyDef{ID: "strat1"},
		CreatedAt: at,
		Result: &domain.BacktestResult{
			StrategyID:  "strat1",
			TotalReturn: ret,
			SharpeRatio: sharpe,
			MaxDrawdown: dd,
			WinRate:     winRate,
			Metrics:     &domain.PerformanceMetrics{TotalTrades: trades},
		},
	}
}

func TestAggregator_ComputeSummary(t *testing.T) {
	runs := memory.NewBacktestRunStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, r := range []*domain.BacktestRun{
		storedRun("r1", base, 10, 1.0, -4, 60, 5),
		storedRun("r2", base.Add(time.Hour), -2, -0.5, -12, 40, 3),
		storedRun("r3", base.Add(2*time.Hour), 4, 0.5, -6, 50, 2),
	} {
		if err := runs.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	agg := NewAggregator(runs, nil)
	s, err := agg.ComputeSummary(ctx, "strat1")
	if err != nil {
		t.Fatalf("ComputeSummary failed: %v", err)
	}

	if s.RunCount != 3 {
		t.Errorf("RunCount: got %d, want 3", s.RunCount)
	}
	if s.TotalTrades != 10 {
		t.Errorf("TotalTrades: got %d, want 10", s.TotalTrades)
	}
	if math.Abs(s.MeanReturn-4) > 1e-9 {
		t.Errorf("MeanReturn: got %f, want 4", s.MeanReturn)
	}
	if s.MedianReturn != 4 {
		t.Errorf("MedianReturn: got %f, want 4", s.MedianReturn)
	}
	if s.BestReturn != 10 || s.WorstReturn != -2 {
		t.Errorf("Best/Worst: got %f/%f, want 10/-2", s.BestReturn, s.WorstReturn)
	}
	if s.WorstDrawdown != -12 {
		t.Errorf("WorstDrawdown: got %f, want -12", s.WorstDrawdown)
	}
	if math.Abs(s.MeanSharpe-1.0/3) > 1e-9 {
		t.Errorf("MeanSharpe: got %f, want 0.333", s.MeanSharpe)
	}
	if s.MeanWinRate != 50 {
		t.Errorf("MeanWinRate: got %f, want 50", s.MeanWinRate)
	}
	if s.ReturnStddev <= 0 {
		t.Errorf("ReturnStddev should be positive, got %f", s.ReturnStddev)
	}
}

func TestAggregator_NoRuns(t *testing.T) {
	agg := NewAggregator(memory.NewBacktestRunStore(), nil)

	_, err := agg.ComputeSummary(context.Background(), "missing")
	if !errors.Is(err, ErrNoRuns) {
		t.Errorf("Expected ErrNoRuns, got %v", err)
	}
}

func TestAggregator_ComputeAndStore(t *testing.T) {
	runs := memory.NewBacktestRunStore()
	summaries := memory.NewStrategySummaryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := runs.Insert(ctx, storedRun("r1", base, 5, 1, -3, 100, 1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	agg := NewAggregator(runs, summaries)
	if _, err := agg.ComputeAndStore(ctx, "strat1"); err != nil {
		t.Fatalf("ComputeAndStore failed: %v", err)
	}
	// Same run count again is idempotent
	if _, err := agg.ComputeAndStore(ctx, "strat1"); err != nil {
		t.Fatalf("second ComputeAndStore failed: %v", err)
	}

	if err := runs.Insert(ctx, storedRun("r2", base.Add(time.Hour), 1, 0, -1, 0, 1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := agg.ComputeAndStore(ctx, "strat1"); err != nil {
		t.Fatalf("third ComputeAndStore failed: %v", err)
	}

	latest, err := summaries.GetLatest(ctx, "strat1")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest.RunCount != 2 {
		t.Errorf("latest RunCount: got %d, want 2", latest.RunCount)
	}
	if latest.MeanReturn != 3 {
		t.Errorf("latest MeanReturn: got %f, want 3", latest.MeanReturn)
	}
}
