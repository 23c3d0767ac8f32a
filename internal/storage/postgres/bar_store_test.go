package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

func testBars(n int, start time.Time) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = domain.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000 + float64(i),
		}
	}
	return bars
}

func TestBarStore_InsertBulkAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(pool)
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := testBars(10, start)
	require.NoError(t, store.InsertBulk(ctx, "AAPL", bars))

	got, err := store.GetByTimeRange(ctx, "AAPL", bars[2].Timestamp, bars[4].Timestamp)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, b := range got {
		assert.True(t, b.Timestamp.Equal(bars[i+2].Timestamp))
		assert.Equal(t, bars[i+2].Close, b.Close)
		assert.Equal(t, bars[i+2].Volume, b.Volume)
	}
}

func TestBarStore_InsertBulkDuplicate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(pool)
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertBulk(ctx, "AAPL", testBars(3, start)))

	err := store.InsertBulk(ctx, "AAPL", testBars(5, start.AddDate(0, 0, 2)))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Batch rolled back as a whole
	got, err := store.GetByTimeRange(ctx, "AAPL", start, start.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestBarStore_Symbols(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(pool)
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertBulk(ctx, "MSFT", testBars(2, start)))
	require.NoError(t, store.InsertBulk(ctx, "AAPL", testBars(2, start)))

	symbols, err := store.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
}
