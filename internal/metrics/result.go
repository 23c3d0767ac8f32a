package metrics

import "backtest-lab/internal/domain"

// Input is everything needed to summarize one simulation.
type Input struct {
	StrategyID     string
	InitialCapital float64
	FinalCapital   float64
	Positions      []*domain.Position
	RiskFreeRate   float64
	BarCount       int
	SignalCounts   map[string]int
}

// BuildResult computes the equity curve and every statistic of a run.
func BuildResult(in Input) *domain.BacktestResult {
	positions := in.Positions
	if positions == nil {
		positions = make([]*domain.Position, 0)
	}

	curve := EquityCurve(positions, in.InitialCapital)
	perf := Performance(positions)

	perf.TotalReturn = TotalReturn(in.InitialCapital, in.FinalCapital)
	perf.SharpeRatio = SharpeRatio(curve, in.RiskFreeRate)
	perf.MaxDrawdown = MaxDrawdown(curve)

	return &domain.BacktestResult{
		StrategyID:     in.StrategyID,
		InitialCapital: in.InitialCapital,
		FinalCapital:   in.FinalCapital,
		TotalReturn:    perf.TotalReturn,
		SharpeRatio:    perf.SharpeRatio,
		MaxDrawdown:    perf.MaxDrawdown,
		WinRate:        perf.WinRate,
		Positions:      positions,
		EquityCurve:    curve,
		Metrics:        perf,
		BarCount:       in.BarCount,
		SignalCounts:   in.SignalCounts,
	}
}
