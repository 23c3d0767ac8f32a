// Package metrics computes performance statistics from closed positions.
package metrics

import (
	"math"
	"sort"
	"time"

	"backtest-lab/internal/domain"
)

// TradingDaysPerYear annualizes Sharpe. It assumes daily bars whatever the
// actual sampling interval.
const TradingDaysPerYear = 252

// DefaultDrawdownThreshold selects significant drawdowns, in percent.
const DefaultDrawdownThreshold = -5.0

// TotalReturn returns (final-initial)/initial in percent, 0 when initial is 0.
func TotalReturn(initialCapital, finalCapital float64) float64 {
	if initialCapital == 0 {
		return 0
	}
	return (finalCapital - initialCapital) / initialCapital * 100
}

// WinRate returns the percentage of closed positions with positive pnl.
func WinRate(positions []*domain.Position) float64 {
	closed := closedPositions(positions)
	wins := 0
	for _, p := range closed {
		if *p.PnL > 0 {
			wins++
		}
	}
	return computeWinRate(wins, len(closed)) * 100
}

// Performance computes trade-quality statistics over the closed positions.
// ProfitFactor stays nil when there are no losing trades.
func Performance(positions []*domain.Position) *domain.PerformanceMetrics {
	closed := closedPositions(positions)
	m := &domain.PerformanceMetrics{TotalTrades: len(closed)}

	var wins, losses []float64
	for _, p := range closed {
		switch pnl := *p.PnL; {
		case pnl > 0:
			wins = append(wins, pnl)
		case pnl < 0:
			losses = append(losses, -pnl)
		}
	}

	m.WinningTrades = len(wins)
	m.LosingTrades = len(losses)
	m.AvgWin = computeMean(wins)
	m.AvgLoss = computeMean(losses)
	m.WinRate = computeWinRate(len(wins), len(closed)) * 100

	if totalLoss := computeSum(losses); totalLoss > 0 {
		pf := computeSum(wins) / totalLoss
		m.ProfitFactor = &pf
	}
	return m
}

// EquityCurve walks the closed positions in chronological order of exit,
// accumulating pnl from initialCapital. Each point carries the drawdown from
// the running peak, which starts at initialCapital.
func EquityCurve(positions []*domain.Position, initialCapital float64) []domain.EquityCurvePoint {
	closed := sortByExit(closedPositions(positions))
	curve := make([]domain.EquityCurvePoint, 0, len(closed))

	running := initialCapital
	peak := initialCapital
	for _, p := range closed {
		running += *p.PnL
		peak = math.Max(peak, running)

		drawdown := 0.0
		if peak > 0 {
			drawdown = (running - peak) / peak * 100
		}
		curve = append(curve, domain.EquityCurvePoint{
			Timestamp: exitTime(p),
			Equity:    running,
			Drawdown:  drawdown,
		})
	}
	return curve
}

// MaxDrawdown returns the most negative drawdown on the curve, 0 if empty.
func MaxDrawdown(curve []domain.EquityCurvePoint) float64 {
	maxDD := 0.0
	for _, pt := range curve {
		if pt.Drawdown < maxDD {
			maxDD = pt.Drawdown
		}
	}
	return maxDD
}

// SharpeRatio annualizes the percentage changes between consecutive curve
// points: (mean*252 - riskFreeRate) / (sample stddev*sqrt(252)).
// Returns 0 with fewer than two returns or zero variance. A stddev within
// 1e-12 of the mean's magnitude counts as zero, since constant-rate growth
// leaves only rounding noise.
func SharpeRatio(curve []domain.EquityCurvePoint, riskFreeRate float64) float64 {
	if len(curve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}

	mean := computeMean(returns)
	stddev := computeStddev(returns, mean)
	if stddev <= 1e-12*math.Max(1, math.Abs(mean)) {
		return 0
	}

	sharpe := (mean*TradingDaysPerYear - riskFreeRate) / (stddev * math.Sqrt(TradingDaysPerYear))
	if math.IsNaN(sharpe) || math.IsInf(sharpe, 0) {
		return 0
	}
	return sharpe
}

// SignificantDrawdowns returns the curve points whose drawdown is below
// threshold (a negative percentage).
func SignificantDrawdowns(curve []domain.EquityCurvePoint, threshold float64) []domain.EquityCurvePoint {
	out := make([]domain.EquityCurvePoint, 0)
	for _, pt := range curve {
		if pt.Drawdown < threshold {
			out = append(out, pt)
		}
	}
	return out
}

// closedPositions drops positions without realized pnl.
func closedPositions(positions []*domain.Position) []*domain.Position {
	out := make([]*domain.Position, 0, len(positions))
	for _, p := range positions {
		if p != nil && p.PnL != nil {
			out = append(out, p)
		}
	}
	return out
}

// sortByExit returns a copy sorted by exit time ASC, entry time ASC, ID ASC.
func sortByExit(positions []*domain.Position) []*domain.Position {
	sorted := make([]*domain.Position, len(positions))
	copy(sorted, positions)
	sort.SliceStable(sorted, func(i, j int) bool {
		ei, ej := exitTime(sorted[i]), exitTime(sorted[j])
		if !ei.Equal(ej) {
			return ei.Before(ej)
		}
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// exitTime falls back to the entry time for positions closed without one.
func exitTime(p *domain.Position) time.Time {
	if p.ExitTime != nil {
		return *p.ExitTime
	}
	return p.Timestamp
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

func computeSum(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}

// computeMean calculates arithmetic mean, 0 for no values.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return computeSum(values) / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0 // Need at least 2 samples for sample stddev
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
