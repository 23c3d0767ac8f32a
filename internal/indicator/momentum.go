package indicator

import "backtest-lab/internal/domain"

// RSI is the relative strength index over trailing means of gains and
// losses across exactly period samples. The first sample has no change and
// counts as zero gain and zero loss.
//
// When the average loss is zero, RS is unbounded and the value is left
// undefined. A flat series therefore never produces an RSI.
func RSI(src Series, period int) Series {
	n := len(src)
	gains := make(Series, n)
	losses := make(Series, n)
	for i := 1; i < n; i++ {
		if !src.Defined(i) || !src.Defined(i-1) {
			gains[i], losses[i] = undefinedValue(), undefinedValue()
			continue
		}
		delta := src[i] - src[i-1]
		if delta > 0 {
			gains[i] = delta
		} else if delta < 0 {
			losses[i] = -delta
		}
	}

	avgGain := rollingMean(gains, period)
	avgLoss := rollingMean(losses, period)

	out := undefined(n)
	for i := range out {
		if !avgGain.Defined(i) || !avgLoss.Defined(i) || avgLoss[i] == 0 {
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// Stochastic sub-series keys.
const (
	KeyStochK = "k"
	KeyStochD = "d"
)

// Stochastic returns the smoothed %K and %D lines.
// Raw %K = 100*(close - lowest low)/(highest high - lowest low) over period;
// k is its trailing mean over smoothK and d the trailing mean of k over
// smoothD. A zero high-low range leaves raw %K undefined.
func Stochastic(bars []domain.Bar, period, smoothK, smoothD int) Output {
	closes := Column(bars, domain.ColumnClose)
	lowest := rollingExtreme(Column(bars, domain.ColumnLow), period, false)
	highest := rollingExtreme(Column(bars, domain.ColumnHigh), period, true)

	raw := undefined(len(bars))
	for i := range raw {
		if !lowest.Defined(i) || !highest.Defined(i) {
			continue
		}
		rng := highest[i] - lowest[i]
		if rng == 0 {
			continue
		}
		raw[i] = 100 * (closes[i] - lowest[i]) / rng
	}

	k := rollingMean(raw, smoothK)
	d := rollingMean(k, smoothD)

	return Output{
		{Key: KeyStochK, Values: k},
		{Key: KeyStochD, Values: d},
	}
}

// ROC is the percentage change versus the value period bars earlier.
// Undefined for the first period positions and where the earlier value is zero.
func ROC(src Series, period int) Series {
	out := undefined(len(src))
	if period < 1 {
		return out
	}
	for i := period; i < len(src); i++ {
		prev := src[i-period]
		if !src.Defined(i) || !src.Defined(i-period) || prev == 0 {
			continue
		}
		out[i] = (src[i] - prev) / prev * 100
	}
	return out
}
