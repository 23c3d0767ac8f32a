// Package strategy compiles strategy definitions over bar series and
// evaluates their conditions into per-bar signals.
package strategy

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/indicator"
)

// Compiler attaches the indicators of a strategy to a bar table.
type Compiler struct {
	registry *indicator.Registry
}

// NewCompiler creates a compiler that owns registry.
// A nil registry is replaced by one holding the built-in indicators.
func NewCompiler(registry *indicator.Registry) *Compiler {
	if registry == nil {
		registry = indicator.NewRegistry()
	}
	return &Compiler{registry: registry}
}

// Registry returns the indicator registry used by the compiler.
func (c *Compiler) Registry() *indicator.Registry {
	return c.registry
}

// Compile computes every declared indicator over bars and returns the
// resulting table. Indicators are independent of each other and are
// computed concurrently; the table keeps declaration order.
//
// Returns ErrValidation for a malformed definition, ErrConfiguration for an
// unknown type or bad parameters and ErrInsufficientData for empty bars or
// bars no longer than an indicator's warm-up.
func (c *Compiler) Compile(ctx context.Context, bars []domain.Bar, def domain.StrategyDef) (*Table, error) {
	if err := checkDefinition(def); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars", domain.ErrInsufficientData)
	}
	for _, spec := range def.Indicators {
		lookback, err := c.registry.Lookback(spec.Type, spec.Parameters)
		if err != nil {
			return nil, fmt.Errorf("indicator %q: %w", spec.Name, err)
		}
		if lookback >= len(bars) {
			return nil, fmt.Errorf("%w: indicator %q needs more than %d bars, got %d",
				domain.ErrInsufficientData, spec.Name, lookback, len(bars))
		}
	}

	outputs := make([]indicator.Output, len(def.Indicators))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range def.Indicators {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := c.registry.Compute(spec.Type, bars, spec.Parameters)
			if err != nil {
				return fmt.Errorf("compute indicator %q: %w", spec.Name, err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := newTable(bars)
	for i, spec := range def.Indicators {
		if err := table.attach(spec.Name, outputs[i]); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// checkDefinition rejects structurally malformed definitions that should
// have been caught by Validate upstream.
func checkDefinition(def domain.StrategyDef) error {
	if len(def.Indicators) == 0 {
		return fmt.Errorf("%w: strategy %q declares no indicators", domain.ErrValidation, def.ID)
	}
	if len(def.Conditions) == 0 {
		return fmt.Errorf("%w: strategy %q declares no conditions", domain.ErrValidation, def.ID)
	}

	names := make(map[string]struct{}, len(def.Indicators))
	for i, spec := range def.Indicators {
		switch {
		case spec.Name == "":
			return fmt.Errorf("%w: indicator %d has no name", domain.ErrValidation, i)
		case domain.IsBaseColumn(spec.Name):
			return fmt.Errorf("%w: indicator name %q shadows a bar column", domain.ErrValidation, spec.Name)
		}
		if _, dup := names[spec.Name]; dup {
			return fmt.Errorf("%w: duplicate indicator name %q", domain.ErrValidation, spec.Name)
		}
		names[spec.Name] = struct{}{}
	}

	for i, cond := range def.Conditions {
		if cond.Indicator == "" {
			return fmt.Errorf("%w: condition %d has no indicator", domain.ErrValidation, i)
		}
		if cond.Value.IsZero() {
			return fmt.Errorf("%w: condition %d has no value", domain.ErrValidation, i)
		}
	}
	return nil
}
