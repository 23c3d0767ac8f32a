package normalization

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"backtest-lab/internal/domain"
)

// Accepted timestamp layouts, tried in order after numeric epochs.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// ReadCSV decodes OHLCV bars from CSV with a header row naming at least
// timestamp, open, high, low, close and volume (any order, case-insensitive;
// "date" is accepted for timestamp). Timestamps may be RFC 3339, a date, or
// Unix seconds or milliseconds. Rows are returned in file order.
func ReadCSV(r io.Reader) ([]domain.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty csv", domain.ErrInsufficientData)
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if name == "date" || name == "time" {
			name = "timestamp"
		}
		index[name] = i
	}
	columns := append([]string{"timestamp"}, domain.BaseColumns...)
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: csv missing column %q", domain.ErrValidation, col)
		}
	}

	var bars []domain.Bar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		ts, err := parseTimestamp(rec[index["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("%w: csv line %d: %v", domain.ErrValidation, line, err)
		}
		bar := domain.Bar{Timestamp: ts}

		values := [5]*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume}
		for i, col := range domain.BaseColumns {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[index[col]]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: csv line %d column %s: %v", domain.ErrValidation, line, col, err)
			}
			*values[i] = v
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: csv has no rows", domain.ErrInsufficientData)
	}
	return bars, nil
}

// WriteCSV encodes bars with the header accepted by ReadCSV.
func WriteCSV(w io.Writer, bars []domain.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"timestamp"}, domain.BaseColumns...)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, b := range bars {
		rec := []string{
			b.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// parseTimestamp accepts epoch seconds, epoch milliseconds or one of
// timestampLayouts. Zoneless layouts are read as UTC.
func parseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		// 1e11 seconds is year 5138; anything larger is milliseconds
		if n > 1e11 || n < -1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
