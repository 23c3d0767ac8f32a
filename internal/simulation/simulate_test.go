package simulation

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/strategy"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Helper to create daily bars from closes
func makeBars(closes []float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Timestamp: baseTime.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func risingCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func smaCrossDef() domain.StrategyDef {
	return domain.StrategyDef{
		ID:   "sma-cross",
		Name: "Close above SMA",
		Indicators: []domain.IndicatorSpec{
			{ID: "i1", Name: "sma20", Type: domain.IndicatorSMA, Parameters: map[string]any{"period": 20}},
		},
		Conditions: []domain.ConditionSpec{
			{ID: "c1", Indicator: "close", Operator: domain.OperatorGT, Value: domain.Ref("sma20")},
		},
	}
}

func frictionless() Config {
	return Config{InitialCapital: 10000}
}

func TestSimulate_RisingMarket(t *testing.T) {
	bars := makeBars(risingCloses(60))

	res, err := Simulate(context.Background(), strategy.NewCompiler(nil), bars, smaCrossDef(), frictionless())
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	// Entry at bar 19 (close 119, first defined SMA), forced exit at bar 59 (close 159)
	if len(res.Positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(res.Positions))
	}
	p := res.Positions[0]
	if p.Quantity != 84 {
		t.Errorf("quantity: got %f, want 84", p.Quantity)
	}
	if p.EntryPrice != 119 || *p.ExitPrice != 159 {
		t.Errorf("prices: got %f -> %f, want 119 -> 159", p.EntryPrice, *p.ExitPrice)
	}
	if p.ExitReason != domain.ExitReasonEndOfData {
		t.Errorf("exit reason: got %s, want %s", p.ExitReason, domain.ExitReasonEndOfData)
	}
	if res.FinalCapital != 13360 {
		t.Errorf("final capital: got %f, want 13360", res.FinalCapital)
	}
	if math.Abs(res.TotalReturn-33.6) > 1e-9 {
		t.Errorf("total return: got %f, want 33.6", res.TotalReturn)
	}
	if res.BarCount != 60 {
		t.Errorf("bar count: got %d, want 60", res.BarCount)
	}
	if res.SignalCounts["BUY"] != 41 || res.SignalCounts["HOLD"] != 19 || res.SignalCounts["SELL"] != 0 {
		t.Errorf("signal counts: got %v", res.SignalCounts)
	}
	if len(res.EquityCurve) != 1 || res.EquityCurve[0].Equity != 13360 {
		t.Errorf("equity curve: got %+v", res.EquityCurve)
	}
}

func TestSimulate_CapitalConservation(t *testing.T) {
	closes := []float64{}
	for i := 0; i < 120; i++ {
		closes = append(closes, 100+10*math.Sin(float64(i)/5))
	}
	bars := makeBars(closes)
	cfg := Config{InitialCapital: 10000, CommissionRate: 0.001, SlippageRate: 0.0005}

	res, err := Simulate(context.Background(), strategy.NewCompiler(nil), bars, smaCrossDef(), cfg)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	sum := 0.0
	for _, p := range res.Positions {
		if !p.IsClosed() {
			t.Fatalf("position %s left open", p.ID)
		}
		sum += *p.PnL
	}
	if math.Abs(res.FinalCapital-(cfg.InitialCapital+sum)) > 1e-6 {
		t.Errorf("final capital %f != initial + sum(pnl) %f", res.FinalCapital, cfg.InitialCapital+sum)
	}
}

func TestSimulate_Deterministic(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100 + 5*math.Cos(float64(i)/3)
	}
	bars := makeBars(closes)
	def := smaCrossDef()

	first, err := Simulate(context.Background(), strategy.NewCompiler(nil), bars, def, DefaultConfig())
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	for run := 0; run < 5; run++ {
		again, err := Simulate(context.Background(), strategy.NewCompiler(nil), bars, def, DefaultConfig())
		if err != nil {
			t.Fatalf("run %d: Simulate failed: %v", run, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d: results differ", run)
		}
	}
}

func TestSimulate_EmptyBars(t *testing.T) {
	res, err := Simulate(context.Background(), strategy.NewCompiler(nil), nil, smaCrossDef(), frictionless())
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if len(res.Positions) != 0 || len(res.EquityCurve) != 0 {
		t.Errorf("expected empty result, got %d positions", len(res.Positions))
	}
	if res.FinalCapital != 10000 || res.TotalReturn != 0 || res.SharpeRatio != 0 || res.MaxDrawdown != 0 {
		t.Errorf("unexpected stats for empty input: %+v", res)
	}
}

func TestSimulate_Errors(t *testing.T) {
	bars := makeBars(risingCloses(30))

	tests := []struct {
		name   string
		mutate func(*domain.StrategyDef, *Config)
		want   error
	}{
		{
			name: "unknown indicator type",
			mutate: func(d *domain.StrategyDef, _ *Config) {
				d.Indicators[0].Type = "ichimoku"
			},
			want: domain.ErrConfiguration,
		},
		{
			name: "unresolved reference",
			mutate: func(d *domain.StrategyDef, _ *Config) {
				d.Conditions[0].Value = domain.Ref("ema50")
			},
			want: domain.ErrReference,
		},
		{
			name: "warm-up longer than series",
			mutate: func(d *domain.StrategyDef, _ *Config) {
				d.Indicators[0].Parameters = map[string]any{"period": 200}
			},
			want: domain.ErrInsufficientData,
		},
		{
			name: "non-positive capital",
			mutate: func(_ *domain.StrategyDef, c *Config) {
				c.InitialCapital = 0
			},
			want: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := smaCrossDef()
			cfg := frictionless()
			tt.mutate(&def, &cfg)

			_, err := Simulate(context.Background(), strategy.NewCompiler(nil), bars, def, cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSimulate_NonPositivePrice(t *testing.T) {
	closes := risingCloses(30)
	closes[25] = 0
	bars := makeBars(closes)
	bars[25].Low = 0

	def := domain.StrategyDef{
		ID:   "always",
		Name: "always in",
		Indicators: []domain.IndicatorSpec{
			{ID: "i1", Name: "obv", Type: domain.IndicatorOBV},
		},
		Conditions: []domain.ConditionSpec{
			{ID: "c1", Indicator: "close", Operator: domain.OperatorLT, Value: domain.Literal(1)},
		},
	}

	_, err := Simulate(context.Background(), strategy.NewCompiler(nil), bars, def, frictionless())
	if !errors.Is(err, domain.ErrDomain) {
		t.Errorf("expected ErrDomain, got %v", err)
	}
}
