package indicator

import "backtest-lab/internal/domain"

// Info describes an indicator for catalogue listings.
type Info struct {
	Type       domain.IndicatorType `json:"type"`
	Name       string               `json:"name"`
	Parameters []string             `json:"parameters"`
	Outputs    []string             `json:"outputs,omitempty"`
}

var catalog = map[domain.IndicatorType]Info{
	domain.IndicatorSMA:        {Name: "Simple Moving Average", Parameters: []string{"period", "column"}},
	domain.IndicatorEMA:        {Name: "Exponential Moving Average", Parameters: []string{"period", "column"}},
	domain.IndicatorRSI:        {Name: "Relative Strength Index", Parameters: []string{"period", "column"}},
	domain.IndicatorMACD:       {Name: "MACD", Parameters: []string{"fast", "slow", "signal", "column"}, Outputs: []string{KeyMACD, KeySignal, KeyHistogram}},
	domain.IndicatorBollinger:  {Name: "Bollinger Bands", Parameters: []string{"period", "std", "column"}, Outputs: []string{KeyUpper, KeyMiddle, KeyLower}},
	domain.IndicatorATR:        {Name: "Average True Range", Parameters: []string{"period"}},
	domain.IndicatorStochastic: {Name: "Stochastic Oscillator", Parameters: []string{"period", "smooth_k", "smooth_d"}, Outputs: []string{KeyStochK, KeyStochD}},
	domain.IndicatorROC:        {Name: "Rate of Change", Parameters: []string{"period", "column"}},
	domain.IndicatorOBV:        {Name: "On-Balance Volume", Parameters: []string{}},
	domain.IndicatorVWAP:       {Name: "Volume Weighted Average Price", Parameters: []string{}},
}

// Catalog lists every registered indicator. Custom indicators are listed
// with their type as name and no declared parameters.
func (r *Registry) Catalog() []Info {
	types := r.Types()
	result := make([]Info, 0, len(types))
	for _, t := range types {
		info, ok := catalog[t]
		if !ok {
			info = Info{Name: string(t), Parameters: []string{}}
		}
		info.Type = t
		result = append(result, info)
	}
	return result
}

// OutputKeys returns the sub-series keys of a built-in multi-output
// indicator, or nil for single-output and custom indicators.
func OutputKeys(t domain.IndicatorType) []string {
	return catalog[t].Outputs
}
