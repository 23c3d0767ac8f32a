// Package simulation runs the full backtest pipeline: compile indicators,
// generate signals, simulate execution and compute metrics.
package simulation

import (
	"context"
	"fmt"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/metrics"
	"backtest-lab/internal/strategy"
)

// Stage names a pipeline step reported to progress observers.
type Stage string

// Pipeline stages in execution order.
const (
	StageLoading    Stage = "loading_data"
	StageIndicators Stage = "computing_indicators"
	StageSignals    Stage = "generating_signals"
	StageSimulating Stage = "simulating"
	StageMetrics    Stage = "computing_metrics"
	StagePersisting Stage = "persisting"
	StageComplete   Stage = "complete"
)

// ProgressFunc receives stage transitions. It is called synchronously.
type ProgressFunc func(Stage)

// Config holds the capital and cost settings of one simulation.
type Config struct {
	InitialCapital float64
	CommissionRate float64
	SlippageRate   float64
	RiskFreeRate   float64
}

// DefaultConfig returns 10000 initial capital with the default cost model.
func DefaultConfig() Config {
	costs := backtest.DefaultCostModel()
	return Config{
		InitialCapital: 10000,
		CommissionRate: costs.CommissionRate,
		SlippageRate:   costs.SlippageRate,
	}
}

func (c Config) options(strategyID string) backtest.Options {
	return backtest.Options{
		StrategyID:     strategyID,
		InitialCapital: c.InitialCapital,
		Costs: backtest.CostModel{
			CommissionRate: c.CommissionRate,
			SlippageRate:   c.SlippageRate,
		},
	}
}

// Simulate runs def over bars and returns the complete result.
// It touches no storage and is safe to call concurrently with distinct inputs.
// Empty bars yield an empty result with capital untouched.
func Simulate(ctx context.Context, compiler *strategy.Compiler, bars []domain.Bar, def domain.StrategyDef, cfg Config) (*domain.BacktestResult, error) {
	return simulate(ctx, compiler, bars, def, cfg, nil)
}

func simulate(ctx context.Context, compiler *strategy.Compiler, bars []domain.Bar, def domain.StrategyDef, cfg Config, progress ProgressFunc) (*domain.BacktestResult, error) {
	report := func(s Stage) {
		if progress != nil {
			progress(s)
		}
	}

	opts := cfg.options(def.ID)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if len(bars) == 0 {
		return metrics.BuildResult(metrics.Input{
			StrategyID:     def.ID,
			InitialCapital: cfg.InitialCapital,
			FinalCapital:   cfg.InitialCapital,
			RiskFreeRate:   cfg.RiskFreeRate,
			SignalCounts:   strategy.CountSignals(nil),
		}), nil
	}

	report(StageIndicators)
	table, err := compiler.Compile(ctx, bars, def)
	if err != nil {
		return nil, fmt.Errorf("compile strategy %s: %w", def.ID, err)
	}

	report(StageSignals)
	signals, err := strategy.GenerateSignals(table, def)
	if err != nil {
		return nil, fmt.Errorf("generate signals: %w", err)
	}

	report(StageSimulating)
	res, err := backtest.Run(bars, signals, opts)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	report(StageMetrics)
	return metrics.BuildResult(metrics.Input{
		StrategyID:     res.StrategyID,
		InitialCapital: res.InitialCapital,
		FinalCapital:   res.FinalCapital,
		Positions:      res.Positions,
		RiskFreeRate:   cfg.RiskFreeRate,
		BarCount:       res.BarCount,
		SignalCounts:   strategy.CountSignals(signals),
	}), nil
}
