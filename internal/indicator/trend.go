package indicator

// SMA is the mean of the trailing period values.
// Undefined for the first period-1 positions.
func SMA(src Series, period int) Series {
	return rollingMean(src, period)
}

// EMA is exponential smoothing with alpha = 2/(period+1) seeded by the first
// value. Undefined for the first period-1 positions to match SMA warm-up.
func EMA(src Series, period int) Series {
	return ema(src, period, true)
}

// MACD sub-series keys.
const (
	KeyMACD      = "macd"
	KeySignal    = "signal"
	KeyHistogram = "histogram"
)

// MACD returns macd = EMA(fast) - EMA(slow), signal = EMA(macd, signal) and
// histogram = macd - signal. All three EMAs are ungated and defined from
// the first sample.
func MACD(src Series, fast, slow, signal int) Output {
	fastEMA := ema(src, fast, false)
	slowEMA := ema(src, slow, false)

	macd := undefined(len(src))
	for i := range src {
		if fastEMA.Defined(i) && slowEMA.Defined(i) {
			macd[i] = fastEMA[i] - slowEMA[i]
		}
	}

	signalLine := ema(macd, signal, false)

	histogram := undefined(len(src))
	for i := range src {
		if macd.Defined(i) && signalLine.Defined(i) {
			histogram[i] = macd[i] - signalLine[i]
		}
	}

	return Output{
		{Key: KeyMACD, Values: macd},
		{Key: KeySignal, Values: signalLine},
		{Key: KeyHistogram, Values: histogram},
	}
}
