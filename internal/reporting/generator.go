package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/idhash"
	"backtest-lab/internal/metrics"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage"
)

// Generator produces reports from stored runs.
type Generator struct {
	runStore          storage.BacktestRunStore
	summaryStore      storage.StrategySummaryStore
	drawdownThreshold float64
	now               func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. summaryStore may be nil,
// in which case reports carry no strategy history.
func NewGenerator(runStore storage.BacktestRunStore, summaryStore storage.StrategySummaryStore) *Generator {
	return &Generator{
		runStore:          runStore,
		summaryStore:      summaryStore,
		drawdownThreshold: DefaultDrawdownThreshold,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithDrawdownThreshold sets the percent below which equity points are
// listed as significant drawdowns.
func (g *Generator) WithDrawdownThreshold(threshold float64) *Generator {
	g.drawdownThreshold = threshold
	return g
}

// Generate loads a stored run and builds its report.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	if g.runStore == nil {
		return nil, fmt.Errorf("load run %s: %w", runID, storage.ErrNotFound)
	}
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	report, err := g.Build(run)
	if err != nil {
		return nil, err
	}

	if g.summaryStore != nil {
		summary, err := g.summaryStore.GetLatest(ctx, run.Strategy.ID)
		switch {
		case err == nil:
			report.History = historySection(summary)
		case !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("load summary for %s: %w", run.Strategy.ID, err)
		}
	}

	return report, nil
}

// Build produces a report from a run without touching the stores.
func (g *Generator) Build(run *domain.BacktestRun) (*Report, error) {
	if run == nil || run.Result == nil {
		return nil, fmt.Errorf("%w: run has no result", domain.ErrValidation)
	}
	res := run.Result

	strategyID := res.StrategyID
	if strategyID == "" {
		strategyID = run.Strategy.ID
	}
	hash, err := idhash.ComputeStrategyHash(run.Strategy)
	if err != nil {
		return nil, fmt.Errorf("hash strategy %s: %w", strategyID, err)
	}

	report := &Report{
		GeneratedAt:  g.now(),
		RunID:        run.RunID,
		StrategyID:   strategyID,
		StrategyName: run.Strategy.Name,
		StrategyHash: hash,
		Symbol:       run.Symbol,
		StartDate:    run.StartDate,
		EndDate:      run.EndDate,
		BarCount:     res.BarCount,
		Summary:      summarySection(res),
		Performance:  performanceSection(res.Metrics),
		Positions:    positionRows(res.Positions),
		Equity:       equityRows(res.EquityCurve),
		Drawdowns:    equityRows(metrics.SignificantDrawdowns(res.EquityCurve, g.drawdownThreshold)),
		SignalCounts: res.SignalCounts,
	}

	observability.RecordReportGenerated()
	return report, nil
}

func summarySection(res *domain.BacktestResult) SummarySection {
	net := decimal.NewFromFloat(res.FinalCapital).Sub(decimal.NewFromFloat(res.InitialCapital))
	return SummarySection{
		InitialCapital: money(res.InitialCapital),
		FinalCapital:   money(res.FinalCapital),
		NetProfit:      net.StringFixed(2),
		TotalReturn:    percent(res.TotalReturn),
		SharpeRatio:    fixed(res.SharpeRatio, 4),
		MaxDrawdown:    percent(res.MaxDrawdown),
		WinRate:        percent(res.WinRate),
	}
}

func performanceSection(m *domain.PerformanceMetrics) PerformanceSection {
	if m == nil {
		return PerformanceSection{AvgWin: money(0), AvgLoss: money(0), ProfitFactor: "inf"}
	}
	pf := "inf"
	if m.ProfitFactor != nil {
		pf = fixed(*m.ProfitFactor, 4)
	}
	return PerformanceSection{
		TotalTrades:   m.TotalTrades,
		WinningTrades: m.WinningTrades,
		LosingTrades:  m.LosingTrades,
		AvgWin:        money(m.AvgWin),
		AvgLoss:       money(m.AvgLoss),
		ProfitFactor:  pf,
	}
}

// positionRows formats positions sorted by (entry time, id).
func positionRows(positions []*domain.Position) []PositionRow {
	sorted := make([]*domain.Position, 0, len(positions))
	for _, p := range positions {
		if p != nil {
			sorted = append(sorted, p)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].ID < sorted[j].ID
	})

	rows := make([]PositionRow, len(sorted))
	for i, p := range sorted {
		commission := decimal.NewFromFloat(p.EntryCommission).Add(decimal.NewFromFloat(p.ExitCommission))
		row := PositionRow{
			ID:         p.ID,
			Side:       string(p.Type),
			EntryTime:  p.Timestamp,
			EntryPrice: money(p.EntryPrice),
			Quantity:   quantity(p.Quantity),
			ExitTime:   p.ExitTime,
			Commission: commission.StringFixed(2),
			ExitReason: p.ExitReason,
		}
		if p.ExitPrice != nil {
			row.ExitPrice = money(*p.ExitPrice)
		}
		if p.PnL != nil {
			row.PnL = money(*p.PnL)
		}
		rows[i] = row
	}
	return rows
}

func equityRows(curve []domain.EquityCurvePoint) []EquityRow {
	rows := make([]EquityRow, len(curve))
	for i, pt := range curve {
		rows[i] = EquityRow{
			Timestamp: pt.Timestamp,
			Equity:    money(pt.Equity),
			Drawdown:  percent(pt.Drawdown),
		}
	}
	return rows
}

func historySection(s *domain.StrategySummary) *HistorySection {
	return &HistorySection{
		RunCount:      s.RunCount,
		TotalTrades:   s.TotalTrades,
		MeanReturn:    percent(s.MeanReturn),
		MedianReturn:  percent(s.MedianReturn),
		BestReturn:    percent(s.BestReturn),
		WorstReturn:   percent(s.WorstReturn),
		WorstDrawdown: percent(s.WorstDrawdown),
		MeanWinRate:   percent(s.MeanWinRate),
	}
}
