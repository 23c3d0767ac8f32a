package indicator

import (
	"testing"

	"github.com/markcheno/go-talib"

	"backtest-lab/internal/domain"
)

func referenceBars() []domain.Bar {
	closes := []float64{
		44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10, 45.42, 45.84, 46.08,
		45.89, 46.03, 45.61, 46.28, 46.28, 46.00, 46.03, 46.41, 46.22, 45.64,
		46.21, 46.25, 45.71, 46.45, 45.78, 45.35, 44.03, 44.18, 44.22, 44.57,
	}
	return makeBars(closes)
}

// talib fills the warm-up region with zeros; compare only defined values.
func TestSMA_MatchesTalib(t *testing.T) {
	bars := referenceBars()
	closes := Column(bars, domain.ColumnClose)

	for _, period := range []int{2, 5, 14} {
		ours := SMA(closes, period)
		ref := talib.Sma([]float64(closes), period)
		for i := period - 1; i < len(closes); i++ {
			if !almostEqual(ours[i], ref[i]) {
				t.Errorf("period %d index %d: ours %v talib %v", period, i, ours[i], ref[i])
			}
		}
	}
}

func TestROC_MatchesTalib(t *testing.T) {
	bars := referenceBars()
	closes := Column(bars, domain.ColumnClose)

	ours := ROC(closes, 10)
	ref := talib.Roc([]float64(closes), 10)
	for i := 10; i < len(closes); i++ {
		if !almostEqual(ours[i], ref[i]) {
			t.Errorf("index %d: ours %v talib %v", i, ours[i], ref[i])
		}
	}
}

func TestOBV_MatchesTalib(t *testing.T) {
	bars := referenceBars()
	closes := Column(bars, domain.ColumnClose)
	volumes := Column(bars, domain.ColumnVolume)

	ours := OBV(bars)
	ref := talib.Obv([]float64(closes), []float64(volumes))
	for i := range closes {
		if !almostEqual(ours[i], ref[i]) {
			t.Errorf("index %d: ours %v talib %v", i, ours[i], ref[i])
		}
	}
}
