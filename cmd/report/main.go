// Command report renders a backtest run into report.md, positions.csv and
// equity.csv. The run comes from a JSON file (as printed by backtest --json)
// or from the configured run store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"backtest-lab/internal/app"
	"backtest-lab/internal/config"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/reporting"
)

func main() {
	// Parse flags
	runFile := flag.String("run-file", "", "Backtest run JSON file")
	runID := flag.String("run-id", "", "Run ID to load from the run store (instead of --run-file)")
	outputDir := flag.String("output-dir", "reports", "Output directory for generated files")
	configPath := flag.String("config", "", "Config file (yaml, json or toml)")
	drawdownThreshold := flag.Float64("drawdown-threshold", reporting.DefaultDrawdownThreshold, "Drawdown percent listed as significant")
	flag.Parse()

	ctx := context.Background()

	// Validate flags
	if (*runFile == "") == (*runID == "") {
		fmt.Fprintln(os.Stderr, "Error: exactly one of --run-file or --run-id is required")
		os.Exit(1)
	}

	var (
		report *reporting.Report
		err    error
	)
	if *runFile != "" {
		report, err = fromFile(*runFile, *drawdownThreshold)
	} else {
		report, err = fromStore(ctx, *configPath, *runID, *drawdownThreshold)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	paths, err := reporting.WriteFiles(*outputDir, report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Report generated at %s\n", report.GeneratedAt.Format(time.RFC3339))
	for _, p := range paths {
		fmt.Printf("  %s\n", p)
	}
}

func fromFile(path string, threshold float64) (*reporting.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var run domain.BacktestRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return reporting.NewGenerator(nil, nil).WithDrawdownThreshold(threshold).Build(&run)
}

func fromStore(ctx context.Context, configPath, runID string, threshold float64) (*reporting.Report, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Storage.UseMemory {
		return nil, fmt.Errorf("--run-id needs database storage; in-memory runs do not outlive the server")
	}

	stores, err := app.OpenStores(ctx, cfg.Storage, false, nil)
	if err != nil {
		return nil, err
	}
	defer stores.Close()

	return reporting.NewGenerator(stores.Runs, stores.Summaries).
		WithDrawdownThreshold(threshold).
		Generate(ctx, runID)
}
