package backtest

import (
	"fmt"
	"math"

	"backtest-lab/internal/domain"
)

// Options configures one simulation.
type Options struct {
	StrategyID     string
	InitialCapital float64
	Costs          CostModel
}

// DefaultOptions returns 10000 initial capital with the default cost model.
func DefaultOptions() Options {
	return Options{
		InitialCapital: 10000,
		Costs:          DefaultCostModel(),
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if !(o.InitialCapital > 0) || math.IsInf(o.InitialCapital, 0) {
		return fmt.Errorf("%w: initial capital must be positive, got %v", domain.ErrValidation, o.InitialCapital)
	}
	if !(o.Costs.CommissionRate >= 0) {
		return fmt.Errorf("%w: commission rate must be non-negative, got %v", domain.ErrValidation, o.Costs.CommissionRate)
	}
	if !(o.Costs.SlippageRate >= 0) {
		return fmt.Errorf("%w: slippage rate must be non-negative, got %v", domain.ErrValidation, o.Costs.SlippageRate)
	}
	return nil
}

// Run drives a fresh engine over bars and their signals, one per bar, and
// force-closes any open position at the final bar. Empty input yields
// empty results with the initial capital untouched.
func Run(bars []domain.Bar, signals []domain.Signal, opts Options) (*Results, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(bars) != len(signals) {
		return nil, fmt.Errorf("%w: %d signals for %d bars", domain.ErrValidation, len(signals), len(bars))
	}

	engine := NewEngine(opts.StrategyID, opts.InitialCapital, opts.Costs)
	for i, bar := range bars {
		if err := engine.OnBar(bar, signals[i]); err != nil {
			return nil, fmt.Errorf("simulate bar %d: %w", i, err)
		}
	}
	return engine.Finish()
}
