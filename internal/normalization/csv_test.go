package normalization

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"backtest-lab/internal/domain"
)

func TestReadCSV_Formats(t *testing.T) {
	input := strings.Join([]string{
		"Date,Open,High,Low,Close,Volume,Adj Close",
		"2024-01-02,10,12,9,11,1000,11",
		"2024-01-03T00:00:00Z,11,13,10,12,1100,12",
		"1704326400,12,14,11,13,1200,13",
		"1704412800000,13,15,12,14,1300,14",
		"2024-01-06 00:00:00,14,16,13,15,1400,15",
	}, "\n")

	bars, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 5 {
		t.Fatalf("len = %d, want 5", len(bars))
	}
	for i, b := range bars {
		want := time.Date(2024, 1, 2+i, 0, 0, 0, 0, time.UTC)
		if !b.Timestamp.Equal(want) {
			t.Errorf("bars[%d].Timestamp = %v, want %v", i, b.Timestamp, want)
		}
		if b.Open != float64(10+i) || b.Close != float64(11+i) || b.Volume != float64(1000+100*i) {
			t.Errorf("bars[%d] = %+v", i, b)
		}
	}
}

func TestReadCSV_ColumnOrder(t *testing.T) {
	input := "volume,close,low,high,open,timestamp\n500,11,9,12,10,2024-01-02\n"
	bars, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := bars[0]
	if b.Open != 10 || b.High != 12 || b.Low != 9 || b.Close != 11 || b.Volume != 500 {
		t.Errorf("bar = %+v", b)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", "", domain.ErrInsufficientData},
		{"header only", "timestamp,open,high,low,close,volume\n", domain.ErrInsufficientData},
		{"missing column", "timestamp,open,high,low,close\n2024-01-02,1,1,1,1\n", domain.ErrValidation},
		{"bad number", "timestamp,open,high,low,close,volume\n2024-01-02,x,1,1,1,1\n", domain.ErrValidation},
		{"bad timestamp", "timestamp,open,high,low,close,volume\nyesterday,1,1,1,1,1\n", domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteCSV_ReadBack(t *testing.T) {
	bars := []domain.Bar{
		bar(0, 10.5, 12.25, 9.125, 11, 1000),
		bar(1, 11, 13, 10, 12.75, 0),
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, bars); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "timestamp,open,high,low,close,volume\n2024-01-01T00:00:00Z,10.5,") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}

	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	for i := range bars {
		if !got[i].Timestamp.Equal(bars[i].Timestamp) || got[i].High != bars[i].High || got[i].Close != bars[i].Close {
			t.Errorf("bars[%d] = %+v, want %+v", i, got[i], bars[i])
		}
	}
}
