package domain

import "time"

// Bar is one OHLCV sample.
// Bars reaching the core are already validated for OHLC integrity and
// sorted by strictly increasing Timestamp.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Base bar column names. Conditions may reference these directly.
const (
	ColumnOpen   = "open"
	ColumnHigh   = "high"
	ColumnLow    = "low"
	ColumnClose  = "close"
	ColumnVolume = "volume"
)

// BaseColumns lists the bar columns in canonical order.
var BaseColumns = []string{ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume}

// IsBaseColumn reports whether name is one of the bar columns.
func IsBaseColumn(name string) bool {
	switch name {
	case ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume:
		return true
	}
	return false
}

// Field returns the value of the named bar column.
func (b Bar) Field(name string) (float64, bool) {
	switch name {
	case ColumnOpen:
		return b.Open, true
	case ColumnHigh:
		return b.High, true
	case ColumnLow:
		return b.Low, true
	case ColumnClose:
		return b.Close, true
	case ColumnVolume:
		return b.Volume, true
	}
	return 0, false
}
