package indicator

import (
	"fmt"
	"sort"
	"sync"

	"backtest-lab/internal/domain"
)

// Calculator computes one indicator over bars with raw parameters.
type Calculator func(bars []domain.Bar, params map[string]any) (Output, error)

// Registry maps indicator types to calculators. A registry is owned by
// the component that uses it; custom indicators are added with Register.
type Registry struct {
	mu          sync.RWMutex
	calculators map[domain.IndicatorType]Calculator
}

// NewRegistry creates a registry holding the built-in indicators.
func NewRegistry() *Registry {
	r := &Registry{
		calculators: make(map[domain.IndicatorType]Calculator, len(domain.BuiltinIndicators)),
	}
	for _, t := range domain.BuiltinIndicators {
		r.calculators[t] = builtin(t)
	}
	return r
}

// Register adds or replaces the calculator for t.
func (r *Registry) Register(t domain.IndicatorType, calc Calculator) error {
	if t == "" {
		return fmt.Errorf("%w: empty indicator type", domain.ErrConfiguration)
	}
	if calc == nil {
		return fmt.Errorf("%w: nil calculator for %q", domain.ErrConfiguration, t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calculators[t] = calc
	return nil
}

// Has reports whether t is registered.
func (r *Registry) Has(t domain.IndicatorType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.calculators[t]
	return ok
}

// Types returns the registered types: built-ins in catalogue order, then
// custom types sorted by name.
func (r *Registry) Types() []domain.IndicatorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	builtins := make(map[domain.IndicatorType]struct{}, len(domain.BuiltinIndicators))
	result := make([]domain.IndicatorType, 0, len(r.calculators))
	for _, t := range domain.BuiltinIndicators {
		builtins[t] = struct{}{}
		if _, ok := r.calculators[t]; ok {
			result = append(result, t)
		}
	}

	var custom []domain.IndicatorType
	for t := range r.calculators {
		if _, ok := builtins[t]; !ok {
			custom = append(custom, t)
		}
	}
	sort.Slice(custom, func(i, j int) bool { return custom[i] < custom[j] })

	return append(result, custom...)
}

// Compute runs the calculator registered for t.
// Returns ErrConfiguration for an unknown type, invalid parameters or an
// output that is not aligned with bars.
func (r *Registry) Compute(t domain.IndicatorType, bars []domain.Bar, params map[string]any) (Output, error) {
	r.mu.RLock()
	calc, ok := r.calculators[t]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown indicator type %q", domain.ErrConfiguration, t)
	}

	out, err := calc(bars, params)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: indicator %q produced no output", domain.ErrConfiguration, t)
	}

	seen := make(map[string]struct{}, len(out))
	for _, line := range out {
		if len(line.Values) != len(bars) {
			return nil, fmt.Errorf("%w: indicator %q produced %d values for %d bars",
				domain.ErrConfiguration, t, len(line.Values), len(bars))
		}
		if _, dup := seen[line.Key]; dup {
			return nil, fmt.Errorf("%w: indicator %q produced duplicate sub-series %q",
				domain.ErrConfiguration, t, line.Key)
		}
		seen[line.Key] = struct{}{}
	}
	return out, nil
}

// CheckParams validates params for t without computing anything.
// Custom calculators are only checked for registration; their parameters
// are validated when computed.
func (r *Registry) CheckParams(t domain.IndicatorType, params map[string]any) error {
	if !r.Has(t) {
		return fmt.Errorf("%w: unknown indicator type %q", domain.ErrConfiguration, t)
	}
	if _, ok := catalog[t]; !ok {
		return nil
	}
	_, err := builtin(t)(nil, params)
	return err
}

// builtin returns the calculator for a built-in kind.
func builtin(t domain.IndicatorType) Calculator {
	switch t {
	case domain.IndicatorSMA:
		return func(bars []domain.Bar, raw map[string]any) (Output, error) {
			p := periodParams{Period: 20, Column: domain.ColumnClose}
			if err := decodeParams(t, raw, &p); err != nil {
				return nil, err
			}
			return Single(SMA(Column(bars, p.Column), p.Period)), nil
		}
	case domain.IndicatorEMA:
		return func(bars []domain.Bar, raw map[string]any) (Output, error) {
			p := periodParams{Period: 20, Column: domain.ColumnClose}
			if err := decodeParams(t, raw, &p); err != nil {
				return nil, err
			}
			return Single(EMA(Column(bars, p.Column), p.Period)), nil
		}
	case domain.IndicatorMACD:
		return func(bars []domain.Bar, raw map[string]any) (Output, error) {
			p := macdParams{Fast: 12, Slow: 26, Signal: 9, Column: domain.ColumnClose}
			if err := decodeParams(t, raw, &p); err != nil {
				return nil, err
			}
			return MACD(Column(bars, p.Column), p.Fast, p.Slow, p.Signal), nil
		}
	case domain.IndicatorRSI:
		return func(bars []domain.Bar, raw map[string]any) (Output, error) {
			p := periodParams{Period: 14, Column: domain.ColumnClose}
			if err := decodeParams(t, raw, &p); err != nil {
				return nil, err
			}
			return Single(RSI(Column(bars, p.Column), p.Period)), nil
		}
	case domain.IndicatorStochastic:
		return func(bars []domain.Bar, raw map[string]any) (Output, error) {
			p := stochasticParams{Period: 14, SmoothK: 3, SmoothD: 3}
			if err := decodeParams(t, raw, &p); err != nil {
				return nil, err
			}
			return Stochastic(bars, p.Period, p.SmoothK, p.SmoothD), nil
		}
	case domain.IndicatorROC:
		return func(bars []domain.Bar, raw map[string]any) (Output, error) {
			p := periodParams{Period: 10, Column: domain.ColumnClose}
			if err := decodeParams(t, raw, &p); err != nil {
				return nil, err
			}
			return Single(ROC(Column(bars, p.Column), p.Period)), nil
		}
	case domain.IndicatorBollinger:
		return func(bars []domain.Bar, raw map[string]any) (Output, error) {
			p := bollingerParams{Period: 20, Std: 2.0, Column: domain.ColumnClose}
			if err := decodeParams(t, raw, &p); err != nil {
				return nil, err
			}
			return Bollinger(Column(bars, p.Column), p.Period, p.Std), nil
		}
	case domain.IndicatorATR:
		return func(bars []domain.Bar, raw map[string]any) (Output, error) {
			p := barsPeriodParams{Period: 14}
			if err := decodeParams(t, raw, &p); err != nil {
				return nil, err
			}
			return Single(ATR(bars, p.Period)), nil
		}
	case domain.IndicatorOBV:
		return func(bars []domain.Bar, raw map[string]any) (Output, error) {
			if err := decodeParams(t, raw, &noParams{}); err != nil {
				return nil, err
			}
			return Single(OBV(bars)), nil
		}
	case domain.IndicatorVWAP:
		return func(bars []domain.Bar, raw map[string]any) (Output, error) {
			if err := decodeParams(t, raw, &noParams{}); err != nil {
				return nil, err
			}
			return Single(VWAP(bars)), nil
		}
	default:
		panic(fmt.Sprintf("indicator: no built-in calculator for %q", t))
	}
}
