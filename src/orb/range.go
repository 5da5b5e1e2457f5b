package orb

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/KyleKCarter/stock-bot/src/models"
	"github.com/KyleKCarter/stock-bot/src/utils"
)

// RangeCalculator derives the opening range for each symbol once the range
// window has closed.
type RangeCalculator struct {
	fetcher BarFetcher
	params  StrategyParams
}

func NewRangeCalculator(fetcher BarFetcher, params StrategyParams) *RangeCalculator {
	return &RangeCalculator{fetcher: fetcher, params: params}
}

// RangeWindow returns the opening-range bounds for the session containing
// now, in now's location.
func (r *RangeCalculator) RangeWindow(now time.Time) (time.Time, time.Time) {
	start := utils.AtTimeOfDay(now, r.params.RangeStartHour, r.params.RangeStartMinute)
	end := utils.AtTimeOfDay(now, r.params.RangeEndHour, r.params.RangeEndMinute)
	return start, end
}

// ComputeRange fetches the window's bars and seeds the symbol's range. An
// empty fetch leaves the range unset; the symbol stays out of breakout
// detection until a later recovery attempt succeeds.
func (r *RangeCalculator) ComputeRange(ctx context.Context, state *models.SymbolState, now time.Time) error {
	start, end := r.RangeWindow(now)

	bars, err := r.fetcher.FetchBars(ctx, state.Symbol, r.params.RangeTimeframe, start, end)
	if err != nil {
		return fmt.Errorf("ComputeRange: %s: %w", state.Symbol, err)
	}

	var high, low float64
	found := false
	for _, bar := range bars {
		if bar.Timestamp.Before(start) || bar.Timestamp.After(end) {
			continue
		}

		if !found {
			high, low = bar.High, bar.Low
			found = true
			continue
		}

		if bar.High > high {
			high = bar.High
		}
		if bar.Low < low {
			low = bar.Low
		}
	}

	if !found {
		log.Warnf("ComputeRange: %s: no bars in range window, leaving range unset", state.Symbol)
		return nil
	}

	state.ORBHigh = high
	state.ORBLow = low
	state.InPosition = false
	state.PendingRetest = nil

	log.WithFields(log.Fields{
		"symbol": state.Symbol,
		"high":   high,
		"low":    low,
	}).Info("ComputeRange: opening range set")

	return nil
}
