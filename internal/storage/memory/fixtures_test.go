package memory

import (
	"time"

	"backtest-lab/internal/domain"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dailyBars(n int, start time.Time) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = domain.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func sampleRun(runID, strategyID string, createdAt time.Time) *domain.BacktestRun {
	exitTime := createdAt.Add(24 * time.Hour)
	exitPrice := 110.0
	pnl := 98.0
	pf := 1.5

	return &domain.BacktestRun{
		RunID:     runID,
		Symbol:    "AAPL",
		StartDate: baseTime,
		EndDate:   baseTime.AddDate(0, 1, 0),
		Strategy: domain.StrategyDef{
			ID:   strategyID,
			Name: "sma cross",
			Indicators: []domain.IndicatorSpec{
				{ID: "i1", Name: "sma20", Type: domain.IndicatorSMA, Parameters: map[string]any{"period": float64(20)}},
			},
			Conditions: []domain.ConditionSpec{
				{ID: "c1", Indicator: "close", Operator: domain.OperatorGT, Value: domain.Ref("sma20")},
			},
		},
		CommissionRate: 0.001,
		SlippageRate:   0.0005,
		CreatedAt:      createdAt,
		Result: &domain.BacktestResult{
			StrategyID:     strategyID,
			InitialCapital: 10000,
			FinalCapital:   10098,
			TotalReturn:    0.98,
			Positions: []*domain.Position{
				{
					ID:         "pos1",
					Timestamp:  createdAt,
					Type:       domain.SideLong,
					EntryPrice: 100,
					Quantity:   10,
					ExitTime:   &exitTime,
					ExitPrice:  &exitPrice,
					ExitReason: domain.ExitReasonSignal,
					PnL:        &pnl,
				},
			},
			EquityCurve: []domain.EquityCurvePoint{
				{Timestamp: exitTime, Equity: 10098},
			},
			Metrics:      &domain.PerformanceMetrics{TotalTrades: 1, WinningTrades: 1, ProfitFactor: &pf},
			BarCount:     20,
			SignalCounts: map[string]int{"BUY": 5, "HOLD": 15, "SELL": 0},
		},
	}
}
