package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// BarStore implements storage.BarStore using PostgreSQL.
type BarStore struct {
	pool *Pool
}

// NewBarStore creates a new BarStore.
func NewBarStore(pool *Pool) *BarStore {
	return &BarStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

var barColumns = []string{"symbol", "ts", "open", "high", "low", "close", "volume"}

// InsertBulk adds bars for a symbol atomically using COPY.
// Fails entire batch on any duplicate (symbol, ts).
func (s *BarStore) InsertBulk(ctx context.Context, symbol string, bars []domain.Bar) error {
	if symbol == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	rows := make([][]any, len(bars))
	for i, b := range bars {
		if b.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		rows[i] = []any{symbol, b.Timestamp.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume}
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"ohlcv_bars"}, barColumns, pgx.CopyFromRows(rows))
		return translate("copy bars for "+symbol, err)
	})
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive), ordered by ts ASC.
func (s *BarStore) GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	query := `
		SELECT ts, open, high, low, close, volume
		FROM ohlcv_bars
		WHERE symbol = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("get bars by time range: %w", err)
	}
	defer rows.Close()

	bars := make([]domain.Bar, 0)
	for rows.Next() {
		var b domain.Bar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}
		b.Timestamp = b.Timestamp.UTC()
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}

// Symbols lists the stored symbols in ascending order.
func (s *BarStore) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT symbol FROM ohlcv_bars ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	symbols := make([]string, 0)
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol row: %w", err)
		}
		symbols = append(symbols, sym)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbol rows: %w", err)
	}

	return symbols, nil
}
