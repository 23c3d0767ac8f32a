package indicator

import (
	"fmt"

	"backtest-lab/internal/domain"
)

// Lookback returns how many leading values of t are undefined by
// construction, whatever the data. A series of Lookback bars or fewer
// never yields a defined value. Custom indicators report zero.
func (r *Registry) Lookback(t domain.IndicatorType, params map[string]any) (int, error) {
	if err := r.CheckParams(t, params); err != nil {
		return 0, err
	}

	switch t {
	case domain.IndicatorSMA, domain.IndicatorEMA, domain.IndicatorRSI:
		p := periodParams{Period: defaultPeriod(t), Column: domain.ColumnClose}
		if err := decodeParams(t, params, &p); err != nil {
			return 0, err
		}
		return p.Period - 1, nil
	case domain.IndicatorROC:
		p := periodParams{Period: 10, Column: domain.ColumnClose}
		if err := decodeParams(t, params, &p); err != nil {
			return 0, err
		}
		return p.Period, nil
	case domain.IndicatorBollinger:
		p := bollingerParams{Period: 20, Std: 2.0, Column: domain.ColumnClose}
		if err := decodeParams(t, params, &p); err != nil {
			return 0, err
		}
		return p.Period - 1, nil
	case domain.IndicatorATR:
		p := barsPeriodParams{Period: 14}
		if err := decodeParams(t, params, &p); err != nil {
			return 0, err
		}
		return p.Period - 1, nil
	case domain.IndicatorStochastic:
		p := stochasticParams{Period: 14, SmoothK: 3, SmoothD: 3}
		if err := decodeParams(t, params, &p); err != nil {
			return 0, err
		}
		return p.Period + p.SmoothK + p.SmoothD - 3, nil
	default:
		// macd is ungated; obv, vwap and custom calculators start at bar 0
		return 0, nil
	}
}

func defaultPeriod(t domain.IndicatorType) int {
	switch t {
	case domain.IndicatorRSI:
		return 14
	case domain.IndicatorSMA, domain.IndicatorEMA:
		return 20
	default:
		panic(fmt.Sprintf("indicator: no default period for %q", t))
	}
}
