package indicator

import (
	"math"

	"backtest-lab/internal/domain"
)

// Bollinger sub-series keys.
const (
	KeyUpper  = "upper"
	KeyMiddle = "middle"
	KeyLower  = "lower"
)

// Bollinger returns middle = SMA(period) and bands at middle +/- k sample
// standard deviations over the same window.
func Bollinger(src Series, period int, k float64) Output {
	middle := rollingMean(src, period)
	std := rollingStd(src, period)

	upper := undefined(len(src))
	lower := undefined(len(src))
	for i := range src {
		if !middle.Defined(i) || !std.Defined(i) {
			continue
		}
		upper[i] = middle[i] + k*std[i]
		lower[i] = middle[i] - k*std[i]
	}

	return Output{
		{Key: KeyUpper, Values: upper},
		{Key: KeyMiddle, Values: middle},
		{Key: KeyLower, Values: lower},
	}
}

// TrueRange returns max(high-low, |high-prev close|, |low-prev close|).
// The first bar has no previous close and uses high-low.
func TrueRange(bars []domain.Bar) Series {
	out := make(Series, len(bars))
	for i, b := range bars {
		tr := b.High - b.Low
		if i > 0 {
			prevClose := bars[i-1].Close
			tr = math.Max(tr, math.Abs(b.High-prevClose))
			tr = math.Max(tr, math.Abs(b.Low-prevClose))
		}
		out[i] = tr
	}
	return out
}

// ATR is the trailing mean of the true range over period.
func ATR(bars []domain.Bar, period int) Series {
	return rollingMean(TrueRange(bars), period)
}
