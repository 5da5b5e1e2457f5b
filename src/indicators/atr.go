package indicators

import (
	"math"

	"github.com/KyleKCarter/stock-bot/src/models"
)

// DefaultATR is used when there is not enough history for a real ATR, which
// is expected early in the session and must not abort evaluation.
const DefaultATR = 0.5

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(bar models.Bar, prevClose float64) float64 {
	tr := bar.High - bar.Low
	if hc := math.Abs(bar.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := math.Abs(bar.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

// ATR averages the true range of the trailing period bars. Fewer than
// period+1 bars falls back to DefaultATR.
func ATR(bars []models.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return DefaultATR
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		bar := bars[len(bars)-i]
		prevClose := bars[len(bars)-i-1].Close
		sum += TrueRange(bar, prevClose)
	}

	return sum / float64(period)
}
