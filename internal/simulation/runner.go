package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/metrics"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage"
	"backtest-lab/internal/strategy"
)

// Runner errors
var (
	ErrNoBars = errors.New("no bars found for symbol in date range")
)

// DefaultMinBars is the smallest series a stored-data run accepts.
const DefaultMinBars = 50

// Request describes one backtest over stored bars.
type Request struct {
	Symbol         string             `json:"symbol"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        time.Time          `json:"end_date"`
	Strategy       domain.StrategyDef `json:"strategy"`
	InitialCapital float64            `json:"initial_capital"`
	CommissionRate float64            `json:"commission_rate"`
	SlippageRate   float64            `json:"slippage_rate"`
}

// Runner executes backtests over stored bars and persists the runs.
type Runner struct {
	barStore   storage.BarStore
	runStore   storage.BacktestRunStore
	aggregator *metrics.Aggregator
	compiler   *strategy.Compiler
	metrics    *observability.Metrics
	logger     *log.Logger

	minBars      int
	riskFreeRate float64
	now          func() time.Time
	newID        func() string
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	BarStore   storage.BarStore
	RunStore   storage.BacktestRunStore // optional: runs are not persisted when nil
	Aggregator *metrics.Aggregator      // optional: summaries are refreshed after each stored run
	Compiler   *strategy.Compiler       // defaults to the built-in indicators
	Metrics    *observability.Metrics   // defaults to observability.DefaultMetrics
	Logger     *log.Logger

	MinBars      int
	RiskFreeRate float64

	// Now and NewID are overridable for deterministic tests.
	Now   func() time.Time
	NewID func() string
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	r := &Runner{
		barStore:     opts.BarStore,
		runStore:     opts.RunStore,
		aggregator:   opts.Aggregator,
		compiler:     opts.Compiler,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		minBars:      opts.MinBars,
		riskFreeRate: opts.RiskFreeRate,
		now:          opts.Now,
		newID:        opts.NewID,
	}
	if r.compiler == nil {
		r.compiler = strategy.NewCompiler(nil)
	}
	if r.metrics == nil {
		r.metrics = observability.DefaultMetrics
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard, "", 0)
	}
	if r.minBars <= 0 {
		r.minBars = DefaultMinBars
	}
	if r.now == nil {
		r.now = func() time.Time { return time.Now().UTC() }
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	return r
}

// Compiler returns the strategy compiler used by the runner.
func (r *Runner) Compiler() *strategy.Compiler {
	return r.compiler
}

// Run executes req and persists the resulting run.
// Returns ErrNoBars if the range is empty and ErrInsufficientData if it
// holds fewer than the minimum bar count.
func (r *Runner) Run(ctx context.Context, req Request) (*domain.BacktestRun, error) {
	return r.RunWithProgress(ctx, req, nil)
}

// RunWithProgress is Run with stage notifications.
func (r *Runner) RunWithProgress(ctx context.Context, req Request, progress ProgressFunc) (*domain.BacktestRun, error) {
	start := time.Now()
	report := func(s Stage) {
		if progress != nil {
			progress(s)
		}
	}

	// 1. Load bars
	report(StageLoading)
	bars, err := r.loadBars(ctx, req)
	if err != nil {
		return nil, err
	}

	// 2. Run the pipeline
	cfg := Config{
		InitialCapital: req.InitialCapital,
		CommissionRate: req.CommissionRate,
		SlippageRate:   req.SlippageRate,
		RiskFreeRate:   r.riskFreeRate,
	}
	result, err := simulate(ctx, r.compiler, bars, req.Strategy, cfg, progress)
	if err != nil {
		r.metrics.RecordCoreError(domain.ErrorKind(err))
		r.logger.Printf("backtest %s on %s failed: %v", req.Strategy.ID, req.Symbol, err)
		return nil, err
	}

	run := &domain.BacktestRun{
		RunID:          r.newID(),
		Symbol:         req.Symbol,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Strategy:       req.Strategy,
		CommissionRate: req.CommissionRate,
		SlippageRate:   req.SlippageRate,
		CreatedAt:      r.now(),
		Result:         result,
	}

	// 3. Persist run
	if r.runStore != nil {
		report(StagePersisting)
		if err := r.persist(ctx, run); err != nil {
			return nil, err
		}
	}

	elapsed := time.Since(start)
	r.metrics.RecordBacktest("success", elapsed.Seconds(), result.BarCount, len(result.Positions), result.SignalCounts)
	r.metrics.LastSuccessfulBacktest.SetToCurrentTime()
	r.logger.Printf("backtest %s on %s: %d bars, %d positions, return %.2f%% (%s)",
		req.Strategy.ID, req.Symbol, result.BarCount, len(result.Positions), result.TotalReturn, elapsed)

	report(StageComplete)
	return run, nil
}

// Get retrieves a stored run. Returns storage.ErrNotFound if unknown.
func (r *Runner) Get(ctx context.Context, runID string) (*domain.BacktestRun, error) {
	if r.runStore == nil {
		return nil, storage.ErrNotFound
	}
	return r.runStore.GetByID(ctx, runID)
}

// Summary aggregates the stored runs of a strategy.
func (r *Runner) Summary(ctx context.Context, strategyID string) (*domain.StrategySummary, error) {
	if r.aggregator == nil {
		return nil, metrics.ErrNoRuns
	}
	summary, err := r.aggregator.ComputeAndStore(ctx, strategyID)
	if err != nil {
		return nil, err
	}
	r.metrics.SummariesComputed.Inc()
	return summary, nil
}

func (r *Runner) loadBars(ctx context.Context, req Request) ([]domain.Bar, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", domain.ErrValidation)
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("%w: end date %s before start date %s",
			domain.ErrValidation, req.EndDate.Format(time.DateOnly), req.StartDate.Format(time.DateOnly))
	}

	queryStart := time.Now()
	bars, err := r.barStore.GetByTimeRange(ctx, req.Symbol, req.StartDate, req.EndDate)
	r.metrics.RecordDBQuery("bars", "get_by_time_range", time.Since(queryStart).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("load bars for %s: %w", req.Symbol, err)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s %s..%s", ErrNoBars, req.Symbol,
			req.StartDate.Format(time.DateOnly), req.EndDate.Format(time.DateOnly))
	}
	if len(bars) < r.minBars {
		return nil, fmt.Errorf("%w: need at least %d bars, got %d", domain.ErrInsufficientData, r.minBars, len(bars))
	}
	return bars, nil
}

func (r *Runner) persist(ctx context.Context, run *domain.BacktestRun) error {
	queryStart := time.Now()
	err := r.runStore.Insert(ctx, run)
	r.metrics.RecordDBQuery("runs", "insert", time.Since(queryStart).Seconds(), err)
	if err != nil {
		return fmt.Errorf("store run %s: %w", run.RunID, err)
	}

	if r.aggregator != nil {
		if _, err := r.aggregator.ComputeAndStore(ctx, run.Strategy.ID); err != nil {
			r.logger.Printf("refresh summary for %s: %v", run.Strategy.ID, err)
		} else {
			r.metrics.SummariesComputed.Inc()
		}
	}
	return nil
}
