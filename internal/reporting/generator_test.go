package reporting

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/idhash"
	"backtest-lab/internal/storage"
	"backtest-lab/internal/storage/memory"
)

var (
	baseTime  = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fixedTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

func ptr[T any](v T) *T { return &v }

func sampleRun() *domain.BacktestRun {
	exit1 := baseTime.AddDate(0, 0, 5)
	exit2 := baseTime.AddDate(0, 0, 15)
	profitFactor := 97.9 / 100.881

	return &domain.BacktestRun{
		RunID:     "run-1",
		Symbol:    "AAPL",
		StartDate: baseTime,
		EndDate:   baseTime.AddDate(0, 0, 20),
		Strategy:  domain.StrategyDef{ID: "sma-cross", Name: "SMA Cross"},
		CreatedAt: fixedTime,
		Result: &domain.BacktestResult{
			StrategyID:     "sma-cross",
			InitialCapital: 10000,
			FinalCapital:   9997.019,
			TotalReturn:    -0.02981,
			SharpeRatio:    -0.5,
			MaxDrawdown:    -0.99905,
			WinRate:        50,
			BarCount:       21,
			// Listed out of entry order on purpose.
			Positions: []*domain.Position{
				{
					ID: "p2", Timestamp: baseTime.AddDate(0, 0, 10), Type: domain.SideLong,
					EntryPrice: 110, Quantity: 9, EntryCommission: 0.99,
					ExitTime: &exit2, ExitPrice: ptr(99.0), ExitCommission: 0.891,
					ExitReason: domain.ExitReasonEndOfData, PnL: ptr(-100.881),
				},
				{
					ID: "p1", Timestamp: baseTime, Type: domain.SideLong,
					EntryPrice: 100, Quantity: 10, EntryCommission: 1,
					ExitTime: &exit1, ExitPrice: ptr(110.0), ExitCommission: 1.1,
					ExitReason: domain.ExitReasonSignal, PnL: ptr(97.9),
				},
			},
			EquityCurve: []domain.EquityCurvePoint{
				{Timestamp: exit1, Equity: 10097.9, Drawdown: 0},
				{Timestamp: exit2, Equity: 9997.019, Drawdown: -0.99905},
			},
			Metrics: &domain.PerformanceMetrics{
				TotalTrades: 2, WinningTrades: 1, LosingTrades: 1,
				AvgWin: 97.9, AvgLoss: -100.881, ProfitFactor: &profitFactor,
				TotalReturn: -0.02981, SharpeRatio: -0.5, MaxDrawdown: -0.99905, WinRate: 50,
			},
			SignalCounts: map[string]int{"BUY": 2, "SELL": 1, "HOLD": 18},
		},
	}
}

func TestGenerator_Build(t *testing.T) {
	g := NewGenerator(nil, nil).WithClock(func() time.Time { return fixedTime })

	r, err := g.Build(sampleRun())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !r.GeneratedAt.Equal(fixedTime) {
		t.Errorf("GeneratedAt: got %v, want %v", r.GeneratedAt, fixedTime)
	}
	if r.StrategyID != "sma-cross" || r.StrategyName != "SMA Cross" || r.Symbol != "AAPL" {
		t.Errorf("metadata mismatch: %+v", r)
	}
	if hash, _ := idhash.ComputeStrategyHash(sampleRun().Strategy); r.StrategyHash != hash {
		t.Errorf("StrategyHash: got %s, want %s", r.StrategyHash, hash)
	}

	want := SummarySection{
		InitialCapital: "10000.00",
		FinalCapital:   "9997.02",
		NetProfit:      "-2.98",
		TotalReturn:    "-0.03",
		SharpeRatio:    "-0.5000",
		MaxDrawdown:    "-1.00",
		WinRate:        "50.00",
	}
	if r.Summary != want {
		t.Errorf("Summary: got %+v, want %+v", r.Summary, want)
	}

	if r.Performance.TotalTrades != 2 || r.Performance.AvgLoss != "-100.88" {
		t.Errorf("Performance mismatch: %+v", r.Performance)
	}
	if !strings.HasPrefix(r.Performance.ProfitFactor, "0.970") {
		t.Errorf("ProfitFactor: got %s", r.Performance.ProfitFactor)
	}

	if len(r.Positions) != 2 {
		t.Fatalf("Positions: got %d, want 2", len(r.Positions))
	}
	if r.Positions[0].ID != "p1" || r.Positions[1].ID != "p2" {
		t.Errorf("positions not sorted by entry: %s, %s", r.Positions[0].ID, r.Positions[1].ID)
	}
	if r.Positions[0].Commission != "2.10" || r.Positions[1].Commission != "1.88" {
		t.Errorf("Commission: got %s, %s", r.Positions[0].Commission, r.Positions[1].Commission)
	}
	if r.Positions[1].PnL != "-100.88" || r.Positions[1].Quantity != "9" {
		t.Errorf("position row mismatch: %+v", r.Positions[1])
	}

	if len(r.Equity) != 2 || r.Equity[1].Equity != "9997.02" {
		t.Errorf("Equity mismatch: %+v", r.Equity)
	}
	if len(r.Drawdowns) != 0 {
		t.Errorf("Drawdowns: got %d, want 0", len(r.Drawdowns))
	}
	if r.History != nil {
		t.Error("History should be nil without a summary store")
	}
}

func TestGenerator_DrawdownThreshold(t *testing.T) {
	g := NewGenerator(nil, nil).WithDrawdownThreshold(-0.5)

	r, err := g.Build(sampleRun())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(r.Drawdowns) != 1 || r.Drawdowns[0].Drawdown != "-1.00" {
		t.Errorf("Drawdowns mismatch: %+v", r.Drawdowns)
	}
}

func TestGenerator_BuildRejectsEmptyRun(t *testing.T) {
	g := NewGenerator(nil, nil)
	if _, err := g.Build(nil); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("nil run: got %v, want ErrValidation", err)
	}
	if _, err := g.Build(&domain.BacktestRun{RunID: "x"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("nil result: got %v, want ErrValidation", err)
	}
}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	runs := memory.NewBacktestRunStore()
	summaries := memory.NewStrategySummaryStore()

	if err := runs.Insert(ctx, sampleRun()); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}

	g := NewGenerator(runs, summaries).WithClock(func() time.Time { return fixedTime })

	r, err := g.Generate(ctx, "run-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if r.History != nil {
		t.Error("History should be nil before any summary is stored")
	}

	summary := &domain.StrategySummary{
		StrategyID: "sma-cross", RunCount: 3, TotalTrades: 7,
		MeanReturn: 1.5, MedianReturn: 1.25, BestReturn: 4, WorstReturn: -0.03,
		WorstDrawdown: -6.125, MeanWinRate: 55.555,
	}
	if err := summaries.Insert(ctx, summary); err != nil {
		t.Fatalf("Insert summary failed: %v", err)
	}

	r, err = g.Generate(ctx, "run-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if r.History == nil {
		t.Fatal("History should be set")
	}
	if r.History.RunCount != 3 || r.History.WorstDrawdown != "-6.13" || r.History.MeanWinRate != "55.56" {
		t.Errorf("History mismatch: %+v", r.History)
	}

	if _, err := g.Generate(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing run: got %v, want ErrNotFound", err)
	}
}

func TestRenderMarkdown(t *testing.T) {
	g := NewGenerator(nil, nil).WithClock(func() time.Time { return fixedTime })
	r, err := g.Build(sampleRun())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	md := RenderMarkdown(r)

	for _, want := range []string{
		"# Backtest Report: SMA Cross",
		"Generated: 2024-06-01T12:00:00Z",
		"| Period | 2024-01-01 to 2024-01-21 |",
		"| Final Capital | 9997.02 |",
		"| Total Return | -0.03% |",
		"| 2 | 1 | 1 | 97.90 | -100.88 |",
		"| BUY | 2 |",
		"| 1 | long | 2024-01-01 | 100.00 | 10 | 2024-01-06 | 110.00 | 2.10 | 97.90 | SIGNAL |",
		"| 2024-01-16 | 9997.02 | -1.00% |",
		"## Significant Drawdowns\n\nNone.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Contains(md, "## Strategy History") {
		t.Error("History section rendered without history")
	}
}

func TestRenderMarkdown_NoPositions(t *testing.T) {
	run := sampleRun()
	run.Result.Positions = nil
	run.Result.EquityCurve = nil

	r, err := NewGenerator(nil, nil).Build(run)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	md := RenderMarkdown(r)
	if !strings.Contains(md, "No positions were opened.") || !strings.Contains(md, "No closed positions.") {
		t.Errorf("empty sections not rendered:\n%s", md)
	}
}

func TestRenderCSV(t *testing.T) {
	r, err := NewGenerator(nil, nil).Build(sampleRun())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(RenderPositionsCSV(r.Positions)), "\n")
	if len(lines) != 3 {
		t.Fatalf("positions lines: got %d, want 3", len(lines))
	}
	want := "p1,long,2024-01-01T00:00:00Z,100.00,10,2024-01-06T00:00:00Z,110.00,2.10,97.90,SIGNAL"
	if lines[1] != want {
		t.Errorf("positions row:\ngot  %s\nwant %s", lines[1], want)
	}

	equity := RenderEquityCSV(r.Equity)
	if !strings.HasPrefix(equity, "timestamp,equity,drawdown\n2024-01-06T00:00:00Z,10097.90,0.00\n") {
		t.Errorf("equity csv:\n%s", equity)
	}
}

func TestWriteFiles(t *testing.T) {
	r, err := NewGenerator(nil, nil).Build(sampleRun())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteFiles(dir, r)
	if err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("paths: got %d, want 3", len(paths))
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", p)
		}
	}
	if filepath.Base(paths[0]) != MarkdownFile {
		t.Errorf("first path: got %s, want %s", paths[0], MarkdownFile)
	}
}

func TestFixed(t *testing.T) {
	tests := []struct {
		in     float64
		places int32
		want   string
	}{
		{2.345, 2, "2.35"},
		{-2.345, 2, "-2.35"},
		{10, 2, "10.00"},
		{0.00001, 4, "0.0000"},
		{math.NaN(), 2, "n/a"},
		{math.Inf(1), 2, "n/a"},
	}
	for _, tt := range tests {
		if got := fixed(tt.in, tt.places); got != tt.want {
			t.Errorf("fixed(%v, %d) = %s, want %s", tt.in, tt.places, got, tt.want)
		}
	}
}
