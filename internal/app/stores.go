// Package app wires storage backends for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"backtest-lab/internal/config"
	"backtest-lab/internal/storage"
	chstore "backtest-lab/internal/storage/clickhouse"
	"backtest-lab/internal/storage/memory"
	pgstore "backtest-lab/internal/storage/postgres"
)

// Stores holds all storage implementations.
// Bars and strategy summaries live in ClickHouse, runs in PostgreSQL.
type Stores struct {
	Bars      storage.BarStore
	Runs      storage.BacktestRunStore
	Summaries storage.StrategySummaryStore

	closers []func()
}

// Close releases every connection opened by OpenStores.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// MemoryStores returns empty in-memory stores.
func MemoryStores() *Stores {
	return &Stores{
		Bars:      memory.NewBarStore(),
		Runs:      memory.NewBacktestRunStore(),
		Summaries: memory.NewStrategySummaryStore(),
	}
}

// OpenStores connects the configured backends. With migrate set, the
// embedded schema migrations are applied first. A nil logger discards output.
func OpenStores(ctx context.Context, cfg config.StorageConfig, migrate bool, logger *log.Logger) (*Stores, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.UseMemory {
		logger.Printf("Using in-memory storage")
		return MemoryStores(), nil
	}
	if cfg.PostgresDSN == "" || cfg.ClickHouseDSN == "" {
		return nil, errors.New("postgres and clickhouse DSNs are required when not using memory storage")
	}

	stores := &Stores{}

	// PostgreSQL for backtest runs
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	stores.closers = append(stores.closers, pool.Close)

	if migrate {
		applied, err := pgstore.Migrate(ctx, pool)
		if err != nil {
			stores.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		logger.Printf("PostgreSQL migrations applied: %d new", len(applied))
	}
	stores.Runs = pgstore.NewBacktestRunStore(pool)

	// ClickHouse for bars and strategy summaries
	var conn *chstore.Conn
	if migrate {
		conn, err = chstore.OpenAndMigrate(ctx, cfg.ClickHouseDSN)
		if err == nil {
			logger.Printf("ClickHouse migrations applied")
		}
	} else {
		conn, err = chstore.NewConn(ctx, cfg.ClickHouseDSN)
	}
	if err != nil {
		stores.Close()
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	stores.closers = append(stores.closers, func() { conn.Close() })

	stores.Bars = chstore.NewBarStore(conn)
	stores.Summaries = chstore.NewStrategySummaryStore(conn)
	return stores, nil
}
