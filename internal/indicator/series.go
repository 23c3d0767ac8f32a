// Package indicator computes technical indicators over bar series.
//
// Every function is pure: it never mutates its input and returns a series
// of the same length as the input. Undefined values (warm-up, division by
// zero) are represented by NaN.
package indicator

import (
	"math"

	"backtest-lab/internal/domain"
)

// Series is a numeric series aligned with a bar series. NaN marks an
// undefined value.
type Series []float64

// Defined reports whether the value at i exists and is finite.
func (s Series) Defined(i int) bool {
	return i >= 0 && i < len(s) && !math.IsNaN(s[i]) && !math.IsInf(s[i], 0)
}

// CountUndefinedPrefix returns the number of leading undefined values.
func (s Series) CountUndefinedPrefix() int {
	for i := range s {
		if s.Defined(i) {
			return i
		}
	}
	return len(s)
}

// undefined returns a series of n NaN values.
func undefined(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Column extracts the named bar column as a series.
// Unknown names yield an all-undefined series.
func Column(bars []domain.Bar, name string) Series {
	out := make(Series, len(bars))
	for i, b := range bars {
		v, ok := b.Field(name)
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// windowReady reports whether src[i-window+1..i] exists and is fully defined.
func windowReady(src Series, i, window int) bool {
	if window < 1 || i < window-1 {
		return false
	}
	for j := i - window + 1; j <= i; j++ {
		if !src.Defined(j) {
			return false
		}
	}
	return true
}

// rollingMean is the trailing mean over exactly window samples.
func rollingMean(src Series, window int) Series {
	out := undefined(len(src))
	for i := range src {
		if !windowReady(src, i, window) {
			continue
		}
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += src[j]
		}
		out[i] = sum / float64(window)
	}
	return out
}

// rollingStd is the trailing sample standard deviation (n-1 denominator).
// A window of one sample has no sample deviation and stays undefined.
func rollingStd(src Series, window int) Series {
	out := undefined(len(src))
	if window < 2 {
		return out
	}
	for i := range src {
		if !windowReady(src, i, window) {
			continue
		}
		mean := 0.0
		for j := i - window + 1; j <= i; j++ {
			mean += src[j]
		}
		mean /= float64(window)

		sumSq := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := src[j] - mean
			sumSq += d * d
		}
		out[i] = math.Sqrt(sumSq / float64(window-1))
	}
	return out
}

// rollingExtreme returns the trailing min (wantMax=false) or max over window.
func rollingExtreme(src Series, window int, wantMax bool) Series {
	out := undefined(len(src))
	for i := range src {
		if !windowReady(src, i, window) {
			continue
		}
		v := src[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			if wantMax && src[j] > v || !wantMax && src[j] < v {
				v = src[j]
			}
		}
		out[i] = v
	}
	return out
}

// ema is exponential smoothing with alpha = 2/(period+1), seeded by the
// first defined sample. When gated, values stay undefined until period
// samples have been observed. Undefined inputs leave the state untouched.
func ema(src Series, period int, gated bool) Series {
	out := undefined(len(src))
	if period < 1 {
		return out
	}
	alpha := 2.0 / float64(period+1)

	var (
		value    float64
		observed int
	)
	for i := range src {
		if !src.Defined(i) {
			continue
		}
		if observed == 0 {
			value = src[i]
		} else {
			value = alpha*src[i] + (1-alpha)*value
		}
		observed++

		if gated && observed < period {
			continue
		}
		out[i] = value
	}
	return out
}

func undefinedValue() float64 {
	return math.NaN()
}
