package normalization

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage"
)

// Options controls the cleaning steps applied before bars are stored.
type Options struct {
	// Resample aggregates into this interval when positive.
	Resample time.Duration
	// OutlierThreshold removes close outliers beyond this many standard
	// deviations when positive.
	OutlierThreshold float64
	// SplitThreshold flags suspected splits; zero uses DefaultSplitThreshold.
	SplitThreshold float64
}

// Report summarizes one ingestion.
type Report struct {
	Symbol          string    `json:"symbol"`
	Received        int       `json:"received"`
	Duplicates      int       `json:"duplicates"`
	OutliersRemoved int       `json:"outliers_removed"`
	Stored          int       `json:"stored"`
	First           time.Time `json:"first"`
	Last            time.Time `json:"last"`
	Splits          []Split   `json:"splits,omitempty"`
}

// Runner cleans raw bars and stores them.
type Runner struct {
	barStore storage.BarStore
	logger   *log.Logger
}

// NewRunner creates a new normalization runner. A nil logger discards output.
func NewRunner(barStore storage.BarStore, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Runner{barStore: barStore, logger: logger}
}

// Normalize cleans bars without storing them.
// Steps:
//  1. Sort by timestamp and drop repeated timestamps
//  2. Validate OHLC integrity (rejects the whole series)
//  3. Remove close outliers (optional)
//  4. Resample (optional)
//  5. Detect suspected splits (reported, not corrected)
func Normalize(bars []domain.Bar, opts Options) ([]domain.Bar, *Report, error) {
	report := &Report{Received: len(bars)}
	if len(bars) == 0 {
		return nil, report, fmt.Errorf("%w: no bars", domain.ErrInsufficientData)
	}

	// 1. Canonical order
	cleaned := append([]domain.Bar(nil), bars...)
	SortBars(cleaned)
	deduped := DropDuplicates(cleaned)
	report.Duplicates = len(cleaned) - len(deduped)
	cleaned = deduped

	// 2. Integrity
	if err := Validate(cleaned); err != nil {
		return nil, report, err
	}

	// 3. Outliers
	if opts.OutlierThreshold > 0 {
		kept := RemoveOutliers(cleaned, domain.ColumnClose, opts.OutlierThreshold)
		report.OutliersRemoved = len(cleaned) - len(kept)
		cleaned = kept
	}

	// 4. Resample
	if opts.Resample > 0 {
		resampled, err := Resample(cleaned, opts.Resample)
		if err != nil {
			return nil, report, err
		}
		cleaned = resampled
	}

	// 5. Splits
	threshold := opts.SplitThreshold
	if threshold <= 0 {
		threshold = DefaultSplitThreshold
	}
	report.Splits = DetectSplits(cleaned, threshold)

	report.Stored = len(cleaned)
	report.First = cleaned[0].Timestamp
	report.Last = cleaned[len(cleaned)-1].Timestamp
	return cleaned, report, nil
}

// Ingest normalizes bars and stores them under symbol in one batch.
func (r *Runner) Ingest(ctx context.Context, symbol string, bars []domain.Bar, opts Options) (*Report, error) {
	cleaned, report, err := Normalize(bars, opts)
	report.Symbol = symbol
	if err != nil {
		return report, fmt.Errorf("normalize %s: %w", symbol, err)
	}

	for _, s := range report.Splits {
		r.logger.Printf("%s: suspected split at %s (%.2f -> %.2f, %.1f%%)",
			symbol, s.Timestamp.Format(time.DateOnly), s.PriceBefore, s.PriceAfter, s.ChangePct)
	}

	if err := r.barStore.InsertBulk(ctx, symbol, cleaned); err != nil {
		report.Stored = 0
		return report, fmt.Errorf("store bars for %s: %w", symbol, err)
	}

	observability.RecordBarsIngested(symbol, report.Stored)
	r.logger.Printf("%s: stored %d bars (%d received, %d duplicates, %d outliers)",
		symbol, report.Stored, report.Received, report.Duplicates, report.OutliersRemoved)
	return report, nil
}

// IngestCSV reads bars from r and ingests them.
func (r *Runner) IngestCSV(ctx context.Context, symbol string, src io.Reader, opts Options) (*Report, error) {
	bars, err := ReadCSV(src)
	if err != nil {
		return &Report{Symbol: symbol}, fmt.Errorf("read csv for %s: %w", symbol, err)
	}
	return r.Ingest(ctx, symbol, bars, opts)
}
