package normalization

import (
	"fmt"
	"math"
	"strings"

	"backtest-lab/internal/domain"
)

// ValidateOHLC checks bar integrity and returns one message per violated
// rule, with the number of offending bars. An empty result means valid.
//
// Rules: high >= low; high >= open and close; low <= open and close;
// every price positive and finite; volume non-negative.
func ValidateOHLC(bars []domain.Bar) []string {
	var (
		highLow, highOC, lowOC, badVolume int
		badPrice                          = make(map[string]int)
	)

	for _, b := range bars {
		if b.High < b.Low {
			highLow++
		}
		if b.High < b.Open || b.High < b.Close {
			highOC++
		}
		if b.Low > b.Open || b.Low > b.Close {
			lowOC++
		}
		for _, col := range []string{domain.ColumnOpen, domain.ColumnHigh, domain.ColumnLow, domain.ColumnClose} {
			v, _ := b.Field(col)
			if !(v > 0) || math.IsInf(v, 0) {
				badPrice[col]++
			}
		}
		if !(b.Volume >= 0) {
			badVolume++
		}
	}

	var msgs []string
	if highLow > 0 {
		msgs = append(msgs, fmt.Sprintf("found %d rows where high < low", highLow))
	}
	if highOC > 0 {
		msgs = append(msgs, fmt.Sprintf("found %d rows where high < open or high < close", highOC))
	}
	if lowOC > 0 {
		msgs = append(msgs, fmt.Sprintf("found %d rows where low > open or low > close", lowOC))
	}
	for _, col := range []string{domain.ColumnOpen, domain.ColumnHigh, domain.ColumnLow, domain.ColumnClose} {
		if n := badPrice[col]; n > 0 {
			msgs = append(msgs, fmt.Sprintf("found %d non-positive or non-finite values in %s", n, col))
		}
	}
	if badVolume > 0 {
		msgs = append(msgs, fmt.Sprintf("found %d negative volume values", badVolume))
	}
	return msgs
}

// Validate runs ValidateOHLC and CheckOrdering and folds the findings into
// one error wrapping ErrValidation (or ErrInsufficientData for no bars).
func Validate(bars []domain.Bar) error {
	if err := CheckOrdering(bars); err != nil {
		return err
	}
	if msgs := ValidateOHLC(bars); len(msgs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
	}
	return nil
}
