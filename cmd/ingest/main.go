// Command ingest loads OHLCV bars from CSV files into the bar store after
// sorting, de-duplicating and validating them.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"backtest-lab/internal/app"
	"backtest-lab/internal/config"
	"backtest-lab/internal/normalization"
	"backtest-lab/internal/observability"
)

func main() {
	// Parse flags
	symbol := flag.String("symbol", "", "Symbol for a single file (defaults to the file name)")
	configPath := flag.String("config", "", "Config file (yaml, json or toml)")
	migrate := flag.Bool("migrate", false, "Apply schema migrations before ingesting")
	resample := flag.String("resample", "", "Resample to this interval before storing, e.g. 1d, 1w, 4h")
	outlierStd := flag.Float64("outlier-std", 0, "Drop closes beyond this many standard deviations (0 disables)")
	splitThreshold := flag.Float64("split-threshold", normalization.DefaultSplitThreshold, "One-bar close drop reported as a suspected split")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	outputJSON := flag.Bool("json", false, "Print ingestion reports as JSON")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags)

	files := flag.Args()
	if len(files) == 0 {
		logger.Fatal("usage: ingest [flags] FILE.csv...")
	}
	if *symbol != "" && len(files) > 1 {
		logger.Fatal("--symbol applies to a single file")
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	opts := normalization.Options{
		OutlierThreshold: *outlierStd,
		SplitThreshold:   *splitThreshold,
	}
	if *resample != "" {
		interval, err := normalization.ParseInterval(*resample)
		if err != nil {
			logger.Fatalf("--resample: %v", err)
		}
		opts.Resample = interval
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
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

	stores, err := app.OpenStores(ctx, cfg.Storage, *migrate, logger)
	if err != nil {
		logger.Fatalf("open stores: %v", err)
	}
	defer stores.Close()
	if cfg.Storage.UseMemory {
		logger.Printf("Warning: in-memory storage, bars are discarded on exit")
	}

	runner := normalization.NewRunner(stores.Bars, logger)

	failed := 0
	var reports []*normalization.Report
	for _, path := range files {
		sym := *symbol
		if sym == "" {
			sym = strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		}

		report, err := ingestFile(ctx, runner, path, sym, opts)
		if err != nil {
			logger.Printf("%s: %v", path, err)
			failed++
			continue
		}
		reports = append(reports, report)
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(reports, "", "  ")
		fmt.Println(string(output))
	}

	if failed > 0 {
		logger.Printf("%d of %d files failed", failed, len(files))
		stores.Close()
		os.Exit(1)
	}
}

func ingestFile(ctx context.Context, runner *normalization.Runner, path, symbol string, opts normalization.Options) (*normalization.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return runner.IngestCSV(ctx, symbol, f, opts)
}
