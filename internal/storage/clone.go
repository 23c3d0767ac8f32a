package storage

import "backtest-lab/internal/domain"

// CloneRun returns a copy of run that shares no mutable state with it.
// Strategy parameter maps are shared; they are never mutated after decoding.
func CloneRun(run *domain.BacktestRun) *domain.BacktestRun {
	if run == nil {
		return nil
	}
	out := *run
	out.Strategy.Indicators = append([]domain.IndicatorSpec(nil), run.Strategy.Indicators...)
	out.Strategy.Conditions = append([]domain.ConditionSpec(nil), run.Strategy.Conditions...)

	if run.Result == nil {
		return &out
	}
	res := *run.Result
	res.Positions = make([]*domain.Position, len(run.Result.Positions))
	for i, p := range run.Result.Positions {
		res.Positions[i] = ClonePosition(p)
	}
	res.EquityCurve = append([]domain.EquityCurvePoint(nil), run.Result.EquityCurve...)
	if run.Result.Metrics != nil {
		m := *run.Result.Metrics
		if m.ProfitFactor != nil {
			pf := *m.ProfitFactor
			m.ProfitFactor = &pf
		}
		res.Metrics = &m
	}
	if run.Result.SignalCounts != nil {
		res.SignalCounts = make(map[string]int, len(run.Result.SignalCounts))
		for k, v := range run.Result.SignalCounts {
			res.SignalCounts[k] = v
		}
	}
	out.Result = &res
	return &out
}

// ClonePosition returns a deep copy of p.
func ClonePosition(p *domain.Position) *domain.Position {
	if p == nil {
		return nil
	}
	out := *p
	if p.ExitTime != nil {
		t := *p.ExitTime
		out.ExitTime = &t
	}
	if p.ExitPrice != nil {
		v := *p.ExitPrice
		out.ExitPrice = &v
	}
	if p.PnL != nil {
		v := *p.PnL
		out.PnL = &v
	}
	return &out
}
