package normalization

import (
	"fmt"
	"strconv"
	"time"

	"backtest-lab/internal/domain"
)

// Resample aggregates sorted bars into interval buckets: open = first,
// high = max, low = min, close = last, volume = sum. Buckets follow
// time.Truncate, so days start at midnight UTC and weeks on Monday.
// Empty buckets are omitted. Each bucket is stamped with its start in UTC.
func Resample(bars []domain.Bar, interval time.Duration) ([]domain.Bar, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: resample interval must be positive, got %s", domain.ErrValidation, interval)
	}
	if len(bars) == 0 {
		return []domain.Bar{}, nil
	}

	var (
		out     []domain.Bar
		current *domain.Bar
	)
	for _, b := range bars {
		start := b.Timestamp.Truncate(interval).UTC()
		if current == nil || !current.Timestamp.Equal(start) {
			if current != nil {
				out = append(out, *current)
			}
			current = &domain.Bar{
				Timestamp: start,
				Open:      b.Open,
				High:      b.High,
				Low:       b.Low,
				Close:     b.Close,
				Volume:    b.Volume,
			}
			continue
		}
		if b.High > current.High {
			current.High = b.High
		}
		if b.Low < current.Low {
			current.Low = b.Low
		}
		current.Close = b.Close
		current.Volume += b.Volume
	}
	out = append(out, *current)
	return out, nil
}

// ParseInterval parses a resampling interval. Besides Go durations
// ("15m", "4h") it accepts day and week suffixes ("1d", "1w").
func ParseInterval(s string) (time.Duration, error) {
	if n := len(s); n > 1 {
		var unit time.Duration
		switch s[n-1] {
		case 'd', 'D':
			unit = 24 * time.Hour
		case 'w', 'W':
			unit = 7 * 24 * time.Hour
		}
		if unit > 0 {
			count, err := strconv.Atoi(s[:n-1])
			if err != nil || count <= 0 {
				return 0, fmt.Errorf("%w: invalid interval %q", domain.ErrValidation, s)
			}
			return time.Duration(count) * unit, nil
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: invalid interval %q", domain.ErrValidation, s)
	}
	return d, nil
}
