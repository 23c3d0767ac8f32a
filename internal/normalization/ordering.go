package normalization

import (
	"fmt"
	"sort"

	"backtest-lab/internal/domain"
)

// SortBars orders bars by timestamp ASC. The sort is stable, so bars
// sharing a timestamp keep their input order.
func SortBars(bars []domain.Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return compareBars(bars[i], bars[j]) < 0
	})
}

// CheckOrdering verifies timestamps are strictly increasing.
// Returns ErrInsufficientData for an empty series and ErrValidation at the
// first out-of-order or repeated timestamp.
func CheckOrdering(bars []domain.Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("%w: no bars", domain.ErrInsufficientData)
	}
	for i := 1; i < len(bars); i++ {
		if compareBars(bars[i-1], bars[i]) >= 0 {
			return fmt.Errorf("%w: bar %d at %s is not after bar %d at %s",
				domain.ErrValidation, i, bars[i].Timestamp, i-1, bars[i-1].Timestamp)
		}
	}
	return nil
}

// DropDuplicates removes bars repeating the previous timestamp, keeping the
// first. bars must be sorted.
func DropDuplicates(bars []domain.Bar) []domain.Bar {
	if len(bars) == 0 {
		return bars
	}
	out := make([]domain.Bar, 0, len(bars))
	out = append(out, bars[0])
	for _, b := range bars[1:] {
		if compareBars(out[len(out)-1], b) != 0 {
			out = append(out, b)
		}
	}
	return out
}

// compareBars returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareBars(a, b domain.Bar) int {
	switch {
	case a.Timestamp.Before(b.Timestamp):
		return -1
	case a.Timestamp.After(b.Timestamp):
		return 1
	default:
		return 0
	}
}
