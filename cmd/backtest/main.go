// Command backtest runs one strategy over bars from a CSV file or from the
// configured bar store and prints the result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"backtest-lab/internal/app"
	"backtest-lab/internal/config"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/metrics"
	"backtest-lab/internal/normalization"
	"backtest-lab/internal/reporting"
	"backtest-lab/internal/simulation"
	"backtest-lab/internal/strategy"
)

func main() {
	// Input
	dataPath := flag.String("data", "", "CSV file with timestamp,open,high,low,close,volume columns")
	symbol := flag.String("symbol", "", "Symbol to load from the bar store (instead of --data)")
	startDate := flag.String("start", "", "Start date YYYY-MM-DD (with --symbol)")
	endDate := flag.String("end", "", "End date YYYY-MM-DD (with --symbol)")
	strategyPath := flag.String("strategy", "", "Strategy definition JSON file (required)")
	resample := flag.String("resample", "", "Resample CSV bars to this interval, e.g. 1d, 1w, 4h")

	// Capital and costs (config defaults unless set)
	capital := flag.Float64("capital", 0, "Initial capital")
	commission := flag.Float64("commission", 0, "Commission rate per side")
	slippage := flag.Float64("slippage", 0, "Slippage rate per side")

	// Storage
	configPath := flag.String("config", "", "Config file (yaml, json or toml)")
	persist := flag.Bool("persist", false, "Store the run (with --symbol)")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	reportDir := flag.String("report-dir", "", "Also write report.md, positions.csv and equity.csv here")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	// Validate required flags
	if *strategyPath == "" {
		logger.Fatal("--strategy is required")
	}
	if (*dataPath == "") == (*symbol == "") {
		logger.Fatal("exactly one of --data or --symbol is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	simCfg := simulation.Config{
		InitialCapital: cfg.Backtest.InitialCapital,
		CommissionRate: cfg.Backtest.CommissionRate,
		SlippageRate:   cfg.Backtest.SlippageRate,
		RiskFreeRate:   cfg.Backtest.RiskFreeRate,
	}
	if set["capital"] {
		simCfg.InitialCapital = *capital
	}
	if set["commission"] {
		simCfg.CommissionRate = *commission
	}
	if set["slippage"] {
		simCfg.SlippageRate = *slippage
	}

	def, err := loadStrategy(*strategyPath)
	if err != nil {
		logger.Fatalf("load strategy: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	var run *domain.BacktestRun
	if *dataPath != "" {
		run, err = runFromCSV(ctx, *dataPath, *resample, def, simCfg)
	} else {
		run, err = runFromStore(ctx, cfg, *symbol, *startDate, *endDate, def, simCfg, *persist, logger)
	}
	if err != nil {
		logger.Fatalf("backtest failed: %v", err)
	}

	if *reportDir != "" {
		report, err := reporting.NewGenerator(nil, nil).Build(run)
		if err != nil {
			logger.Fatalf("build report: %v", err)
		}
		paths, err := reporting.WriteFiles(*reportDir, report)
		if err != nil {
			logger.Fatalf("write report: %v", err)
		}
		logger.Printf("Report written: %s", strings.Join(paths, ", "))
	}

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(run, "", "  ")
		fmt.Println(string(output))
	} else {
		printResult(run)
	}
}

// loadStrategy reads and validates a strategy definition.
func loadStrategy(path string) (domain.StrategyDef, error) {
	var def domain.StrategyDef
	data, err := os.ReadFile(path)
	if err != nil {
		return def, err
	}
	if err := json.Unmarshal(data, &def); err != nil {
		return def, fmt.Errorf("parse %s: %w", path, err)
	}
	if errs := strategy.Validate(def, nil); len(errs) > 0 {
		return def, strategy.ValidationError(errs)
	}
	return def, nil
}

func runFromCSV(ctx context.Context, path, resample string, def domain.StrategyDef, cfg simulation.Config) (*domain.BacktestRun, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := normalization.ReadCSV(f)
	if err != nil {
		return nil, err
	}

	var opts normalization.Options
	if resample != "" {
		if opts.Resample, err = normalization.ParseInterval(resample); err != nil {
			return nil, err
		}
	}
	bars, _, err := normalization.Normalize(raw, opts)
	if err != nil {
		return nil, err
	}

	result, err := simulation.Simulate(ctx, strategy.NewCompiler(nil), bars, def, cfg)
	if err != nil {
		return nil, err
	}
	return &domain.BacktestRun{
		RunID:          uuid.NewString(),
		Symbol:         strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		StartDate:      bars[0].Timestamp,
		EndDate:        bars[len(bars)-1].Timestamp,
		Strategy:       def,
		CommissionRate: cfg.CommissionRate,
		SlippageRate:   cfg.SlippageRate,
		CreatedAt:      time.Now().UTC(),
		Result:         result,
	}, nil
}

func runFromStore(
	ctx context.Context,
	cfg *config.Config,
	symbol, start, end string,
	def domain.StrategyDef,
	simCfg simulation.Config,
	persist bool,
	logger *log.Logger,
) (*domain.BacktestRun, error) {
	startTime, endTime := time.Time{}, time.Now().UTC()
	var err error
	if start != "" {
		if startTime, err = time.Parse(time.DateOnly, start); err != nil {
			return nil, fmt.Errorf("parse --start: %w", err)
		}
	}
	if end != "" {
		if endTime, err = time.Parse(time.DateOnly, end); err != nil {
			return nil, fmt.Errorf("parse --end: %w", err)
		}
		endTime = endTime.Add(24*time.Hour - time.Nanosecond)
	}

	stores, err := app.OpenStores(ctx, cfg.Storage, false, logger)
	if err != nil {
		return nil, err
	}
	defer stores.Close()

	opts := simulation.RunnerOptions{
		BarStore:     stores.Bars,
		Logger:       logger,
		MinBars:      cfg.Backtest.MinBars,
		RiskFreeRate: simCfg.RiskFreeRate,
	}
	if persist {
		opts.RunStore = stores.Runs
		opts.Aggregator = metrics.NewAggregator(stores.Runs, stores.Summaries)
	}
	runner := simulation.NewRunner(opts)

	return runner.Run(ctx, simulation.Request{
		Symbol:         symbol,
		StartDate:      startTime,
		EndDate:        endTime,
		Strategy:       def,
		InitialCapital: simCfg.InitialCapital,
		CommissionRate: simCfg.CommissionRate,
		SlippageRate:   simCfg.SlippageRate,
	})
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Width(18).Foreground(lipgloss.Color("8"))
	gainStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// printResult outputs a human-readable summary.
func printResult(run *domain.BacktestRun) {
	res := run.Result
	signed := func(v float64, format string) string {
		s := fmt.Sprintf(format, v)
		if v < 0 {
			return lossStyle.Render(s)
		}
		return gainStyle.Render(s)
	}
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
	}

	lines := []string{
		titleStyle.Render(fmt.Sprintf("Backtest: %s on %s", run.Strategy.Name, run.Symbol)),
		row("Period", fmt.Sprintf("%s to %s (%d bars)",
			run.StartDate.Format(time.DateOnly), run.EndDate.Format(time.DateOnly), res.BarCount)),
		row("Initial Capital", fmt.Sprintf("%.2f", res.InitialCapital)),
		row("Final Capital", fmt.Sprintf("%.2f", res.FinalCapital)),
		row("Total Return", signed(res.TotalReturn, "%.2f%%")),
		row("Sharpe Ratio", fmt.Sprintf("%.4f", res.SharpeRatio)),
		row("Max Drawdown", signed(res.MaxDrawdown, "%.2f%%")),
		row("Win Rate", fmt.Sprintf("%.2f%%", res.WinRate)),
		row("Trades", fmt.Sprintf("%d", len(res.Positions))),
	}
	if m := res.Metrics; m != nil {
		pf := "inf"
		if m.ProfitFactor != nil {
			pf = fmt.Sprintf("%.4f", *m.ProfitFactor)
		}
		lines = append(lines,
			row("Wins / Losses", fmt.Sprintf("%d / %d", m.WinningTrades, m.LosingTrades)),
			row("Avg Win / Loss", fmt.Sprintf("%.2f / %.2f", m.AvgWin, m.AvgLoss)),
			row("Profit Factor", pf),
		)
	}
	if len(res.SignalCounts) > 0 {
		keys := make([]string, 0, len(res.SignalCounts))
		for k := range res.SignalCounts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%d", k, res.SignalCounts[k])
		}
		lines = append(lines, row("Signals", strings.Join(parts, " ")))
	}

	fmt.Println(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}
