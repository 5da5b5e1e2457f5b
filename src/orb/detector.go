package orb

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/KyleKCarter/stock-bot/src/indicators"
	"github.com/KyleKCarter/stock-bot/src/models"
)

// SignalDetector watches post-range bars for a qualifying breakout. It
// emits at most one breakout per symbol per day, and always records a
// pending retest for a detected breakout even when the immediate entry is
// filtered out downstream.
type SignalDetector struct {
	fetcher  BarFetcher
	calendar SessionCalendar
	scorer   *ConfirmationScorer
	counters *DailyCounters
	params   StrategyParams
}

func NewSignalDetector(fetcher BarFetcher, calendar SessionCalendar, counters *DailyCounters, params StrategyParams) *SignalDetector {
	return &SignalDetector{
		fetcher:  fetcher,
		calendar: calendar,
		scorer:   NewConfirmationScorer(params),
		counters: counters,
		params:   params,
	}
}

// Detect evaluates one symbol for a breakout at now. A nil breakout with a
// nil error means no qualifying signal this tick.
func (d *SignalDetector) Detect(ctx context.Context, state *models.SymbolState, now time.Time) (*models.Breakout, error) {
	if !d.preconditions(state, now) {
		return nil, nil
	}

	rangeEnd := time.Date(now.Year(), now.Month(), now.Day(),
		d.params.RangeEndHour, d.params.RangeEndMinute, 0, 0, now.Location())

	sessionStart := time.Date(now.Year(), now.Month(), now.Day(),
		d.params.RangeStartHour, d.params.RangeStartMinute, 0, 0, now.Location())

	bars, err := d.fetcher.FetchBars(ctx, state.Symbol, d.params.RangeTimeframe, sessionStart, now)
	if err != nil {
		d.counters.RecordFiltered(models.FilterReasonData)
		return nil, fmt.Errorf("Detect: %s: %w", state.Symbol, err)
	}

	var postRange []models.Bar
	for _, bar := range bars {
		if bar.Timestamp.After(rangeEnd) {
			postRange = append(postRange, bar)
		}
	}

	if len(postRange) == 0 {
		return nil, nil
	}

	candidate := postRange[len(postRange)-1]

	direction, level := d.breakoutSide(state, candidate)
	if direction == "" {
		return nil, nil
	}

	condition := indicators.MarketConditionOf(bars)
	if !condition.Tradable() {
		log.Debugf("Detect: %s: market condition %s, skipping", state.Symbol, condition)
		d.counters.RecordFiltered(models.FilterReasonMarket)
		return nil, nil
	}

	atr := indicators.ATR(bars, d.params.ATRPeriod)
	baseline := indicators.VolumeBaseline(postRange[:len(postRange)-1])
	relVolume := indicators.RelativeVolume(candidate, baseline)
	preHoliday := d.calendar.IsPreHoliday(now)

	// immediate fast path: a fresh, tight cross with a decisive close
	if d.scorer.Immediate(candidate, level, direction) &&
		relVolume >= d.params.ImmediateVolumeMult(preHoliday) {
		log.WithFields(log.Fields{
			"symbol":    state.Symbol,
			"direction": direction,
			"close":     candidate.Close,
			"relVolume": relVolume,
		}).Info("Detect: immediate breakout")

		return d.emit(state, bars, candidate, direction, level, atr, true), nil
	}

	if relVolume < d.params.BreakoutVolumeMult(now, preHoliday) {
		d.counters.RecordFiltered(models.FilterReasonVolume)
		return nil, nil
	}

	// exhaustion gate: an oversized body is a gap or climax bar, not a
	// breakout worth entering
	if candidate.Body() > d.params.MaxBodyATRRatio*atr {
		d.counters.RecordFiltered(models.FilterReasonBody)
		return nil, nil
	}

	if !d.scorer.Sustainable(candidate, level, atr, direction) {
		d.counters.RecordFiltered(models.FilterReasonSustainability)
		return nil, nil
	}

	var prior models.Bar
	if len(postRange) >= 2 {
		prior = postRange[len(postRange)-2]
	} else if len(bars) >= 2 {
		prior = bars[len(bars)-2]
	}

	score, passed := d.scorer.Score(ScoreInput{
		Bar:            candidate,
		PriorBar:       prior,
		Direction:      direction,
		RelativeVolume: relVolume,
		Condition:      condition,
		Now:            now,
		PreHoliday:     preHoliday,
	})
	if !passed {
		log.Debugf("Detect: %s: confirmation score %d insufficient", state.Symbol, score)
		d.counters.RecordFiltered(models.FilterReasonConfirmation)
		return nil, nil
	}

	log.WithFields(log.Fields{
		"symbol":    state.Symbol,
		"direction": direction,
		"close":     candidate.Close,
		"score":     score,
		"relVolume": relVolume,
	}).Info("Detect: breakout confirmed")

	return d.emit(state, bars, candidate, direction, level, atr, false), nil
}

func (d *SignalDetector) preconditions(state *models.SymbolState, now time.Time) bool {
	if now.After(d.calendar.TradingCutoff(now)) {
		return false
	}
	if state.HasTradedToday || state.TradeType == models.TradeTypeBreakout || state.TradeType == models.TradeTypeRetest {
		return false
	}
	if state.PendingRetest != nil {
		return false
	}
	return state.HasRange()
}

func (d *SignalDetector) breakoutSide(state *models.SymbolState, bar models.Bar) (models.TradeDirection, float64) {
	if bar.Close > state.ORBHigh {
		return models.TradeDirectionLong, state.ORBHigh
	}
	if bar.Close < state.ORBLow {
		return models.TradeDirectionShort, state.ORBLow
	}
	return "", 0
}

// emit records the pending retest on the state before handing the breakout
// back. The retest survives even if the caller skips the immediate entry.
func (d *SignalDetector) emit(state *models.SymbolState, bars []models.Bar, bar models.Bar, direction models.TradeDirection, level, atr float64, immediate bool) *models.Breakout {
	state.PendingRetest = &models.PendingRetest{
		Direction:     direction,
		BreakoutLevel: level,
		IsImmediate:   immediate,
	}

	return &models.Breakout{
		Symbol:      state.Symbol,
		Direction:   direction,
		Close:       bar.Close,
		Level:       level,
		IsImmediate: immediate,
		ATR:         atr,
		Bar:         bar,

		TrendConfirmed: indicators.TrendConfirms(bars, direction),
		Structure:      indicators.MarketStructureOf(bars),
	}
}
