package domain

import "time"

// EquityCurvePoint is one sample of running capital after a closed position.
type EquityCurvePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
	Drawdown  float64   `json:"drawdown"` // percent, always <= 0
}

// PerformanceMetrics summarizes trade quality over the closed positions.
type PerformanceMetrics struct {
	TotalTrades   int      `json:"total_trades"`
	WinningTrades int      `json:"winning_trades"`
	LosingTrades  int      `json:"losing_trades"`
	AvgWin        float64  `json:"avg_win"`
	AvgLoss       float64  `json:"avg_loss"`
	ProfitFactor  *float64 `json:"profit_factor"` // nil when there are no losses
	TotalReturn   float64  `json:"total_return"`
	SharpeRatio   float64  `json:"sharpe_ratio"`
	MaxDrawdown   float64  `json:"max_drawdown"`
	WinRate       float64  `json:"win_rate"`
}

// BacktestResult is the output of one simulation run.
type BacktestResult struct {
	StrategyID     string              `json:"strategy_id"`
	InitialCapital float64             `json:"initial_capital"`
	FinalCapital   float64             `json:"final_capital"`
	TotalReturn    float64             `json:"total_return"`
	SharpeRatio    float64             `json:"sharpe_ratio"`
	MaxDrawdown    float64             `json:"max_drawdown"`
	WinRate        float64             `json:"win_rate"`
	Positions      []*Position         `json:"positions"`
	EquityCurve    []EquityCurvePoint  `json:"equity_curve"`
	Metrics        *PerformanceMetrics `json:"metrics"`
	BarCount       int                 `json:"bar_count"`
	SignalCounts   map[string]int      `json:"signal_counts,omitempty"`
}

// BacktestRun is a persisted backtest: request context plus result.
type BacktestRun struct {
	RunID          string          `json:"run_id"`
	Symbol         string          `json:"symbol"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	Strategy       StrategyDef     `json:"strategy"`
	CommissionRate float64         `json:"commission_rate"`
	SlippageRate   float64         `json:"slippage_rate"`
	CreatedAt      time.Time       `json:"created_at"`
	Result         *BacktestResult `json:"result"`
}

// StrategySummary aggregates the stored runs of one strategy.
type StrategySummary struct {
	StrategyID    string  `json:"strategy_id"`
	RunCount      int     `json:"run_count"`
	TotalTrades   int     `json:"total_trades"`
	MeanReturn    float64 `json:"mean_return"`
	MedianReturn  float64 `json:"median_return"`
	BestReturn    float64 `json:"best_return"`
	WorstReturn   float64 `json:"worst_return"`
	ReturnStddev  float64 `json:"return_stddev"`
	MeanSharpe    float64 `json:"mean_sharpe"`
	WorstDrawdown float64 `json:"worst_drawdown"`
	MeanWinRate   float64 `json:"mean_win_rate"`
}
