package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"backtest-lab/internal/storage"
)

func TestBacktestRunStore_InsertAndGet(t *testing.T) {
	store := NewBacktestRunStore()
	ctx := context.Background()

	run := sampleRun("run1", "strat1", baseTime)
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.Symbol != run.Symbol {
		t.Errorf("Symbol mismatch: got %s, want %s", got.Symbol, run.Symbol)
	}
	if got.Result.FinalCapital != run.Result.FinalCapital {
		t.Errorf("FinalCapital mismatch: got %f, want %f", got.Result.FinalCapital, run.Result.FinalCapital)
	}
	if len(got.Result.Positions) != 1 || *got.Result.Positions[0].PnL != 98 {
		t.Errorf("Positions not preserved: %+v", got.Result.Positions)
	}
}

func TestBacktestRunStore_DuplicateKey(t *testing.T) {
	store := NewBacktestRunStore()
	ctx := context.Background()

	run := sampleRun("run1", "strat1", baseTime)
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, run)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestBacktestRunStore_NotFound(t *testing.T) {
	store := NewBacktestRunStore()

	_, err := store.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBacktestRunStore_InvalidInput(t *testing.T) {
	store := NewBacktestRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil run, got %v", err)
	}

	run := sampleRun("run1", "strat1", baseTime)
	run.Result = nil
	if err := store.Insert(ctx, run); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil result, got %v", err)
	}
}

func TestBacktestRunStore_CopyIsolation(t *testing.T) {
	store := NewBacktestRunStore()
	ctx := context.Background()

	run := sampleRun("run1", "strat1", baseTime)
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the caller's value must not leak into the store
	*run.Result.Positions[0].PnL = -1
	run.Result.SignalCounts["BUY"] = 99

	got, _ := store.GetByID(ctx, "run1")
	if *got.Result.Positions[0].PnL != 98 {
		t.Errorf("stored pnl mutated: got %f", *got.Result.Positions[0].PnL)
	}
	if got.Result.SignalCounts["BUY"] != 5 {
		t.Errorf("stored signal counts mutated: got %d", got.Result.SignalCounts["BUY"])
	}

	// Mutating a read copy must not leak either
	got.Result.Positions[0].Quantity = 0
	again, _ := store.GetByID(ctx, "run1")
	if again.Result.Positions[0].Quantity != 10 {
		t.Errorf("read copy leaked into store")
	}
}

func TestBacktestRunStore_GetByStrategy(t *testing.T) {
	store := NewBacktestRunStore()
	ctx := context.Background()

	runs := []struct {
		id, strategy string
		offset       time.Duration
	}{
		{"run-c", "strat1", 2 * time.Hour},
		{"run-a", "strat1", 0},
		{"run-x", "strat2", time.Hour},
		{"run-b", "strat1", time.Hour},
	}
	for _, r := range runs {
		if err := store.Insert(ctx, sampleRun(r.id, r.strategy, baseTime.Add(r.offset))); err != nil {
			t.Fatalf("Insert %s failed: %v", r.id, err)
		}
	}

	got, err := store.GetByStrategy(ctx, "strat1")
	if err != nil {
		t.Fatalf("GetByStrategy failed: %v", err)
	}

	want := []string{"run-a", "run-b", "run-c"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d runs, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].RunID != id {
			t.Errorf("run %d: got %s, want %s", i, got[i].RunID, id)
		}
	}
}
