package orb

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/KyleKCarter/stock-bot/src/indicators"
	"github.com/KyleKCarter/stock-bot/src/models"
)

const retestTimeframe = "1Min"

// RetestMonitor drives each pending retest to one of its exits: a confirmed
// retouch entry, a timeout market entry, or a staleness clear.
type RetestMonitor struct {
	fetcher  BarFetcher
	calendar SessionCalendar
	executor *OrderExecutor
	counters *DailyCounters
	params   StrategyParams
}

func NewRetestMonitor(fetcher BarFetcher, calendar SessionCalendar, executor *OrderExecutor, counters *DailyCounters, params StrategyParams) *RetestMonitor {
	return &RetestMonitor{
		fetcher:  fetcher,
		calendar: calendar,
		executor: executor,
		counters: counters,
		params:   params,
	}
}

// Evaluate advances the symbol's pending retest by one tick.
func (m *RetestMonitor) Evaluate(ctx context.Context, state *models.SymbolState, now time.Time) error {
	pending := state.PendingRetest
	if pending == nil {
		return nil
	}

	pending.BarsSinceBreakout++

	bars, err := m.fetcher.FetchBars(ctx, state.Symbol, retestTimeframe,
		now.Add(-4*time.Minute), now.Add(-1*time.Minute))
	if err != nil {
		m.counters.RecordFiltered(models.FilterReasonData)
		return fmt.Errorf("Evaluate: %s: %w", state.Symbol, err)
	}

	if m.retestConfirmed(pending, bars, now) {
		latest := bars[len(bars)-1]

		log.WithFields(log.Fields{
			"symbol":    state.Symbol,
			"direction": pending.Direction,
			"level":     pending.BreakoutLevel,
			"close":     latest.Close,
		}).Info("Evaluate: retest confirmed")

		return m.executor.Execute(ctx, EntryRequest{
			State:       state,
			Direction:   pending.Direction,
			Entry:       latest.Close,
			ATR:         indicators.ATR(bars, m.params.ATRPeriod),
			IsImmediate: pending.IsImmediate,
			TradeType:   models.TradeTypeRetest,
		}, now)
	}

	if pending.BarsSinceBreakout >= m.params.MaxBarsWithoutRetest && !state.InPosition {
		if len(bars) == 0 {
			m.counters.RecordFiltered(models.FilterReasonData)
			return nil
		}
		latest := bars[len(bars)-1]

		log.WithFields(log.Fields{
			"symbol":    state.Symbol,
			"direction": pending.Direction,
			"bars":      pending.BarsSinceBreakout,
		}).Info("Evaluate: retest timed out, falling back to market entry")

		return m.executor.Execute(ctx, EntryRequest{
			State:       state,
			Direction:   pending.Direction,
			Entry:       latest.Close,
			ATR:         indicators.ATR(bars, m.params.ATRPeriod),
			IsImmediate: pending.IsImmediate,
			TradeType:   models.TradeTypeBreakout,
			Market:      true,
		}, now)
	}

	return nil
}

// retestConfirmed checks the retouch-and-reclaim pattern: the previous bar
// trades back through the breakout level and the latest closes beyond it
// again, on confirming volume.
func (m *RetestMonitor) retestConfirmed(pending *models.PendingRetest, bars []models.Bar, now time.Time) bool {
	if len(bars) < 2 {
		return false
	}

	latest := bars[len(bars)-1]
	prev := bars[len(bars)-2]
	level := pending.BreakoutLevel

	var touched, reclaimed bool
	if pending.Direction == models.TradeDirectionLong {
		touched = prev.Low <= level
		reclaimed = latest.Close > level
	} else {
		touched = prev.High >= level
		reclaimed = latest.Close < level
	}

	if !touched || !reclaimed {
		return false
	}

	return m.volumeConfirmed(latest, bars[:len(bars)-1], now)
}

// volumeConfirmed applies the time-of-day sensitive baseline gate. Too few
// baseline bars means allow, not reject.
func (m *RetestMonitor) volumeConfirmed(latest models.Bar, history []models.Bar, now time.Time) bool {
	if len(history) < 2 {
		return true
	}

	if len(history) > 3 {
		history = history[len(history)-3:]
	}

	relVolume := indicators.RelativeVolume(latest, history)
	return relVolume >= m.params.StandardVolumeMult(now, m.calendar.IsPreHoliday(now))
}

// SweepStale clears pendings that outlived any plausible retest window.
func (m *RetestMonitor) SweepStale(state *models.SymbolState) {
	pending := state.PendingRetest
	if pending == nil {
		return
	}

	if pending.BarsSinceBreakout > m.params.StaleRetestBars {
		log.Warnf("SweepStale: %s: clearing stale pending retest after %d bars",
			state.Symbol, pending.BarsSinceBreakout)
		state.PendingRetest = nil
	}
}
