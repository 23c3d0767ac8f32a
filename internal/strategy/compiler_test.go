package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/indicator"
)

// Helper to create bars from closes
func makeBars(closes []float64) []domain.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Timestamp: start.AddDate(0, 0, i),
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

func constantCloses(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
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

func TestCompile_AttachesColumns(t *testing.T) {
	def := domain.StrategyDef{
		ID:   "multi",
		Name: "multi",
		Indicators: []domain.IndicatorSpec{
			{ID: "i1", Name: "fast", Type: domain.IndicatorEMA, Parameters: map[string]any{"period": 5}},
			{ID: "i2", Name: "bb", Type: domain.IndicatorBollinger},
			{ID: "i3", Name: "osc", Type: domain.IndicatorMACD},
		},
		Conditions: []domain.ConditionSpec{
			{ID: "c1", Indicator: "fast", Operator: domain.OperatorGT, Value: domain.Ref("bb_middle")},
		},
	}

	table, err := NewCompiler(nil).Compile(context.Background(), makeBars(risingCloses(40)), def)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	expected := []string{"fast", "bb_upper", "bb_middle", "bb_lower", "osc_macd", "osc_signal", "osc_histogram"}
	cols := table.Columns()
	if len(cols) != len(expected) {
		t.Fatalf("expected %d columns, got %v", len(expected), cols)
	}
	for i, want := range expected {
		if cols[i] != want {
			t.Errorf("column %d: expected %s, got %s", i, want, cols[i])
		}
	}

	if got := table.IndicatorColumns("bb"); len(got) != 3 {
		t.Errorf("expected 3 bollinger columns, got %v", got)
	}
	if !table.Has("close") || !table.Has("osc") || table.Has("missing") {
		t.Error("unexpected Has results")
	}
	if v, ok := table.Value("close", 3); !ok || v != 103 {
		t.Errorf("expected close 103, got %v (ok=%v)", v, ok)
	}
	if table.Len() != 40 {
		t.Errorf("expected 40 rows, got %d", table.Len())
	}
	if got := table.WarmUp(); got != 19 {
		t.Errorf("expected warm-up 19 (bollinger 20), got %d", got)
	}
}

func TestCompile_Errors(t *testing.T) {
	bars := makeBars(risingCloses(30))

	tests := []struct {
		name    string
		mutate  func(def *domain.StrategyDef)
		bars    []domain.Bar
		wantErr error
	}{
		{
			name:    "unknown type",
			mutate:  func(def *domain.StrategyDef) { def.Indicators[0].Type = "ichimoku" },
			wantErr: domain.ErrConfiguration,
		},
		{
			name:    "bad parameter",
			mutate:  func(def *domain.StrategyDef) { def.Indicators[0].Parameters = map[string]any{"period": 0} },
			wantErr: domain.ErrConfiguration,
		},
		{
			name: "duplicate name",
			mutate: func(def *domain.StrategyDef) {
				def.Indicators = append(def.Indicators, domain.IndicatorSpec{ID: "i2", Name: "sma20", Type: domain.IndicatorEMA})
			},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "name shadows bar column",
			mutate:  func(def *domain.StrategyDef) { def.Indicators[0].Name = "close" },
			wantErr: domain.ErrValidation,
		},
		{
			name: "sub-series collision",
			mutate: func(def *domain.StrategyDef) {
				def.Indicators = append(def.Indicators,
					domain.IndicatorSpec{ID: "i2", Name: "m", Type: domain.IndicatorMACD},
					domain.IndicatorSpec{ID: "i3", Name: "m_macd", Type: domain.IndicatorSMA},
				)
			},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "no indicators",
			mutate:  func(def *domain.StrategyDef) { def.Indicators = nil },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "no conditions",
			mutate:  func(def *domain.StrategyDef) { def.Conditions = nil },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "empty operand",
			mutate:  func(def *domain.StrategyDef) { def.Conditions[0].Value = domain.Operand{} },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "series shorter than warm-up",
			mutate:  func(def *domain.StrategyDef) { def.Indicators[0].Parameters = map[string]any{"period": 31} },
			wantErr: domain.ErrInsufficientData,
		},
		{
			name:    "empty bars",
			mutate:  func(def *domain.StrategyDef) {},
			bars:    []domain.Bar{},
			wantErr: domain.ErrInsufficientData,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			def := smaCrossDef()
			tc.mutate(&def)
			in := bars
			if tc.bars != nil {
				in = tc.bars
			}

			_, err := NewCompiler(nil).Compile(context.Background(), in, def)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCompile_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCompiler(nil).Compile(ctx, makeBars(risingCloses(30)), smaCrossDef())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCompile_CustomIndicator(t *testing.T) {
	registry := indicator.NewRegistry()
	err := registry.Register("midpoint", func(bars []domain.Bar, _ map[string]any) (indicator.Output, error) {
		s := make(indicator.Series, len(bars))
		for i, b := range bars {
			s[i] = (b.High + b.Low) / 2
		}
		return indicator.Single(s), nil
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	def := smaCrossDef()
	def.Indicators = append(def.Indicators, domain.IndicatorSpec{ID: "i2", Name: "mid", Type: "midpoint"})

	table, err := NewCompiler(registry).Compile(context.Background(), makeBars(risingCloses(30)), def)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if v, ok := table.Value("mid", 5); !ok || v != 105 {
		t.Errorf("expected midpoint 105, got %v", v)
	}
}

func TestCompile_DoesNotMutateDefinitionOrBars(t *testing.T) {
	bars := makeBars(risingCloses(30))
	snapshot := append([]domain.Bar(nil), bars...)
	def := smaCrossDef()

	if _, err := NewCompiler(nil).Compile(context.Background(), bars, def); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	for i := range bars {
		if bars[i] != snapshot[i] {
			t.Fatalf("bar %d mutated", i)
		}
	}
	if def.Indicators[0].Parameters["period"] != 20 {
		t.Errorf("parameters mutated: %v", def.Indicators[0].Parameters)
	}
}

func TestTable_Resolve(t *testing.T) {
	table, err := NewCompiler(nil).Compile(context.Background(), makeBars(risingCloses(30)), smaCrossDef())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	v, ok, err := table.Resolve(domain.Literal(42), 0)
	if err != nil || !ok || v != 42 {
		t.Errorf("literal: got %v ok=%v err=%v", v, ok, err)
	}

	_, ok, err = table.Resolve(domain.Ref("sma20"), 0)
	if err != nil || ok {
		t.Errorf("warm-up reference: expected undefined without error, got ok=%v err=%v", ok, err)
	}

	v, ok, err = table.Resolve(domain.Ref("sma20"), 19)
	if err != nil || !ok || v != 109.5 {
		t.Errorf("reference: got %v ok=%v err=%v", v, ok, err)
	}

	if _, _, err = table.Resolve(domain.Ref("nope"), 0); !errors.Is(err, domain.ErrReference) {
		t.Errorf("expected ErrReference, got %v", err)
	}
}
