// Package main runs the backtest HTTP API: backtest runs and their progress
// stream, strategy validation, summaries and equity analysis.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"backtest-lab/internal/api"
	"backtest-lab/internal/app"
	"backtest-lab/internal/config"
	"backtest-lab/internal/metrics"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/simulation"
)

const defaultNamespace = "backtest_lab"

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Config file (yaml, json or toml)")
	envFile := flag.String("env-file", ".env", "Dotenv file loaded before the environment")
	migrate := flag.Bool("migrate", false, "Apply schema migrations on startup")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (overrides config)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags)

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *useMemory {
		cfg.Storage.UseMemory = true
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		sig = <-sigCh
		logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	stores, err := app.OpenStores(ctx, cfg.Storage, *migrate, logger)
	if err != nil {
		logger.Fatalf("open stores: %v", err)
	}
	defer stores.Close()

	m := observability.DefaultMetrics
	if ns := cfg.Metrics.Namespace; ns != "" && ns != defaultNamespace {
		m = observability.NewMetrics(ns, nil)
	}

	// Separate metrics listener, /metrics is also served by the API
	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("Starting metrics server on %s", cfg.Metrics.Addr)
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	runner := simulation.NewRunner(simulation.RunnerOptions{
		BarStore:     stores.Bars,
		RunStore:     stores.Runs,
		Aggregator:   metrics.NewAggregator(stores.Runs, stores.Summaries),
		Metrics:      m,
		Logger:       log.New(os.Stdout, "[backtest] ", log.LstdFlags),
		MinBars:      cfg.Backtest.MinBars,
		RiskFreeRate: cfg.Backtest.RiskFreeRate,
	})

	server := api.NewServer(api.Options{
		Runner:      runner,
		Metrics:     m,
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSOrigins,
		Defaults: api.Defaults{
			InitialCapital: cfg.Backtest.InitialCapital,
			CommissionRate: cfg.Backtest.CommissionRate,
			SlippageRate:   cfg.Backtest.SlippageRate,
		},
	})

	if err := server.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		logger.Printf("Server error: %v", err)
		stores.Close()
		os.Exit(1)
	}
	logger.Println("Shutdown complete")
}
