package indicator

import "backtest-lab/internal/domain"

// OBV is on-balance volume: seeded by the first volume, then volume is
// added on an up close, subtracted on a down close and carried otherwise.
// Each step depends on the previous one so this is a forward scan.
func OBV(bars []domain.Bar) Series {
	out := make(Series, len(bars))
	if len(bars) == 0 {
		return out
	}
	out[0] = bars[0].Volume
	for i := 1; i < len(bars); i++ {
		switch {
		case bars[i].Close > bars[i-1].Close:
			out[i] = out[i-1] + bars[i].Volume
		case bars[i].Close < bars[i-1].Close:
			out[i] = out[i-1] - bars[i].Volume
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// VWAP is cumulative(typical price * volume) / cumulative(volume) from the
// start of the series, typical price = (high+low+close)/3. No session reset.
// Undefined while cumulative volume is zero.
func VWAP(bars []domain.Bar) Series {
	out := undefined(len(bars))
	var cumPV, cumVol float64
	for i, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3
		cumPV += typical * b.Volume
		cumVol += b.Volume
		if cumVol != 0 {
			out[i] = cumPV / cumVol
		}
	}
	return out
}
