package normalization

import (
	"math"
	"time"

	"backtest-lab/internal/domain"
)

// DefaultOutlierThreshold is the band, in standard deviations, kept by RemoveOutliers.
const DefaultOutlierThreshold = 5.0

// DefaultSplitThreshold flags a one-bar close drop larger than 50%.
const DefaultSplitThreshold = 0.5

// RemoveOutliers drops bars whose column value lies outside
// mean +/- stdThreshold sample standard deviations of that column.
// An unknown column or fewer than two bars returns bars unchanged.
func RemoveOutliers(bars []domain.Bar, column string, stdThreshold float64) []domain.Bar {
	if len(bars) < 2 || !domain.IsBaseColumn(column) {
		return bars
	}

	values := make([]float64, len(bars))
	for i, b := range bars {
		values[i], _ = b.Field(column)
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(len(values)-1))

	lower := mean - stdThreshold*std
	upper := mean + stdThreshold*std

	out := make([]domain.Bar, 0, len(bars))
	for i, b := range bars {
		if values[i] >= lower && values[i] <= upper {
			out = append(out, b)
		}
	}
	return out
}

// Split is a suspected stock split: a one-bar close drop beyond the threshold.
type Split struct {
	Timestamp   time.Time `json:"timestamp"`
	PriceBefore float64   `json:"price_before"`
	PriceAfter  float64   `json:"price_after"`
	ChangePct   float64   `json:"change_pct"`
}

// DetectSplits reports bars whose close fell by more than threshold
// (a fraction, 0.5 = 50%) from the previous close. bars must be sorted.
func DetectSplits(bars []domain.Bar, threshold float64) []Split {
	var splits []Split
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		change := (bars[i].Close - prev) / prev
		if change < -threshold {
			splits = append(splits, Split{
				Timestamp:   bars[i].Timestamp,
				PriceBefore: prev,
				PriceAfter:  bars[i].Close,
				ChangePct:   change * 100,
			})
		}
	}
	return splits
}
