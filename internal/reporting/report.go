package reporting

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDrawdownThreshold lists equity points below -5% as significant drawdowns.
const DefaultDrawdownThreshold = -5.0

// Report is the presentation model of one backtest run.
// Money and percent values are pre-rounded strings so the Markdown and CSV
// renderings agree to the cent.
type Report struct {
	// Metadata
	GeneratedAt  time.Time
	RunID        string
	StrategyID   string
	StrategyName string
	StrategyHash string // fingerprint of the full definition
	Symbol       string
	StartDate    time.Time
	EndDate      time.Time
	BarCount     int

	Summary     SummarySection
	Performance PerformanceSection

	// Positions in entry order.
	Positions []PositionRow

	// Equity curve and the subset of points below the drawdown threshold.
	Equity    []EquityRow
	Drawdowns []EquityRow

	SignalCounts map[string]int

	// History is the latest stored summary of all runs of the strategy, if any.
	History *HistorySection
}

// SummarySection holds the headline numbers.
type SummarySection struct {
	InitialCapital string
	FinalCapital   string
	NetProfit      string
	TotalReturn    string // percent
	SharpeRatio    string
	MaxDrawdown    string // percent
	WinRate        string // percent
}

// PerformanceSection holds trade-quality statistics.
type PerformanceSection struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	AvgWin        string
	AvgLoss       string
	ProfitFactor  string // "inf" when there are no losing trades
}

// PositionRow is one position, formatted.
type PositionRow struct {
	ID         string
	Side       string
	EntryTime  time.Time
	EntryPrice string
	Quantity   string
	ExitTime   *time.Time
	ExitPrice  string
	Commission string // entry + exit
	PnL        string
	ExitReason string
}

// EquityRow is one equity curve point, formatted.
type EquityRow struct {
	Timestamp time.Time
	Equity    string
	Drawdown  string // percent
}

// HistorySection summarizes every stored run of the strategy.
type HistorySection struct {
	RunCount      int
	TotalTrades   int
	MeanReturn    string
	MedianReturn  string
	BestReturn    string
	WorstReturn   string
	WorstDrawdown string
	MeanWinRate   string
}

// fixed rounds v half away from zero to places decimals.
// Non-finite values render as "n/a".
func fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).Round(places).StringFixed(places)
}

func money(v float64) string { return fixed(v, 2) }

func percent(v float64) string { return fixed(v, 2) }

func quantity(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).Round(6).String()
}
