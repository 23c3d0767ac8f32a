package strategy

import (
	"fmt"
	"math"

	"backtest-lab/internal/domain"
)

// Approximate equality tolerance, |a-b| <= eqAbsTol + eqRelTol*|b|.
const (
	eqRelTol = 1e-5
	eqAbsTol = 1e-8
)

type compare func(a, b float64) bool

func operatorFunc(op domain.Operator) (compare, error) {
	switch op {
	case domain.OperatorGT:
		return func(a, b float64) bool { return a > b }, nil
	case domain.OperatorGTE:
		return func(a, b float64) bool { return a >= b }, nil
	case domain.OperatorLT:
		return func(a, b float64) bool { return a < b }, nil
	case domain.OperatorLTE:
		return func(a, b float64) bool { return a <= b }, nil
	case domain.OperatorEQ:
		return approxEqual, nil
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", domain.ErrConfiguration, op)
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= eqAbsTol+eqRelTol*math.Abs(b)
}

// rule is a condition bound to a table.
type rule struct {
	left  string
	cmp   compare
	value domain.Operand
}

func bindConditions(table *Table, conds []domain.ConditionSpec) ([]rule, error) {
	rules := make([]rule, 0, len(conds))
	for _, cond := range conds {
		cmp, err := operatorFunc(cond.Operator)
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", cond.ID, err)
		}
		if _, ok := table.Series(cond.Indicator); !ok {
			return nil, fmt.Errorf("condition %q: %w: %q is not a known column",
				cond.ID, domain.ErrReference, cond.Indicator)
		}
		if cond.Value.IsRef() {
			if _, ok := table.Series(cond.Value.Ref); !ok {
				return nil, fmt.Errorf("condition %q: %w: %q is not a known column",
					cond.ID, domain.ErrReference, cond.Value.Ref)
			}
		}
		rules = append(rules, rule{left: cond.Indicator, cmp: cmp, value: cond.Value})
	}
	return rules, nil
}

// GenerateSignals classifies every row of table in order. A row where any
// declared indicator is undefined is Hold. Otherwise the row is Buy when
// every condition holds and Hold when any fails. No Sell is emitted.
//
// Operators and references are bound before the scan, so a bad condition
// fails even when no row would reach it.
func GenerateSignals(table *Table, def domain.StrategyDef) ([]domain.Signal, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", domain.ErrValidation)
	}
	if len(def.Conditions) == 0 {
		return nil, fmt.Errorf("%w: strategy %q declares no conditions", domain.ErrValidation, def.ID)
	}

	rules, err := bindConditions(table, def.Conditions)
	if err != nil {
		return nil, err
	}

	var gated []string
	for _, spec := range def.Indicators {
		cols := table.IndicatorColumns(spec.Name)
		if cols == nil {
			return nil, fmt.Errorf("%w: indicator %q was not compiled", domain.ErrReference, spec.Name)
		}
		gated = append(gated, cols...)
	}

	signals := make([]domain.Signal, table.Len())
	for i := range signals {
		signals[i] = evaluateRow(table, gated, rules, i)
	}
	return signals, nil
}

func evaluateRow(table *Table, gated []string, rules []rule, i int) domain.Signal {
	for _, col := range gated {
		if _, ok := table.Value(col, i); !ok {
			return domain.SignalHold
		}
	}
	for _, r := range rules {
		left, ok := table.Value(r.left, i)
		if !ok {
			return domain.SignalHold
		}
		right, ok, err := table.Resolve(r.value, i)
		if err != nil || !ok {
			return domain.SignalHold
		}
		if !r.cmp(left, right) {
			return domain.SignalHold
		}
	}
	return domain.SignalBuy
}

// CountSignals tallies signals by label.
func CountSignals(signals []domain.Signal) map[string]int {
	counts := map[string]int{
		domain.SignalBuy.String():  0,
		domain.SignalHold.String(): 0,
		domain.SignalSell.String(): 0,
	}
	for _, s := range signals {
		counts[s.String()]++
	}
	return counts
}
