package orb

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/KyleKCarter/stock-bot/src/indicators"
	"github.com/KyleKCarter/stock-bot/src/models"
)

// Coordinator fans ticks out across the symbol set. sweepMu serializes
// every entry point that touches symbol state: a tick that fires while the
// previous sweep is still running is skipped outright, never queued, and
// control-plane liquidations wait for the in-flight sweep to finish before
// mutating state.
type Coordinator struct {
	store     *StateStore
	rangeCalc *RangeCalculator
	detector  *SignalDetector
	retest    *RetestMonitor
	executor  *OrderExecutor
	broker    Broker
	calendar  SessionCalendar
	counters  *DailyCounters
	params    StrategyParams

	sweepMu   sync.Mutex
	lastSweep atomic.Int64
}

func NewCoordinator(fetcher BarFetcher, broker Broker, calendar SessionCalendar, symbols []string, params StrategyParams) *Coordinator {
	counters := NewDailyCounters()
	executor := NewOrderExecutor(broker, counters, params)

	return &Coordinator{
		store:     NewStateStore(symbols),
		rangeCalc: NewRangeCalculator(fetcher, params),
		detector:  NewSignalDetector(fetcher, calendar, counters, params),
		retest:    NewRetestMonitor(fetcher, calendar, executor, counters, params),
		executor:  executor,
		broker:    broker,
		calendar:  calendar,
		counters:  counters,
		params:    params,
	}
}

// Store exposes the state store to the control-plane handlers.
func (c *Coordinator) Store() *StateStore {
	return c.store
}

// Counters exposes the day's aggregates for status reporting.
func (c *Coordinator) Counters() *DailyCounters {
	return c.counters
}

// LastSweep returns when the last sweep finished, or the zero time if none
// has run yet.
func (c *Coordinator) LastSweep() time.Time {
	nanos := c.lastSweep.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// Sweep runs one breakout-plus-retest pass over every symbol. Both passes
// for a symbol run on the same goroutine, so a breakout tick and a retest
// tick can never race on one SymbolState.
func (c *Coordinator) Sweep(ctx context.Context, now time.Time) {
	if !c.sweepMu.TryLock() {
		sweepsSkipped.Inc()
		log.Warn("Sweep: previous sweep still in flight, skipping tick")
		return
	}
	defer c.sweepMu.Unlock()

	var wg sync.WaitGroup
	for _, symbol := range c.store.Symbols() {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("Sweep: %s: panic recovered: %v", symbol, r)
				}
			}()

			c.evaluateSymbol(ctx, c.store.Get(symbol), now)
		}(symbol)
	}
	wg.Wait()

	c.lastSweep.Store(now.UnixNano())
}

func (c *Coordinator) evaluateSymbol(ctx context.Context, state *models.SymbolState, now time.Time) {
	breakout, err := c.detector.Detect(ctx, state, now)
	if err != nil {
		log.Errorf("evaluateSymbol: %s: detect: %v", state.Symbol, err)
	}

	if breakout != nil {
		c.handleBreakout(ctx, state, breakout, now)
	}

	if state.PendingRetest != nil {
		if err := c.retest.Evaluate(ctx, state, now); err != nil {
			log.Errorf("evaluateSymbol: %s: retest: %v", state.Symbol, err)
		}
	}
}

// handleBreakout applies the pre-entry gates and attempts the immediate
// entry. A gated entry still leaves the pending retest in place.
func (c *Coordinator) handleBreakout(ctx context.Context, state *models.SymbolState, breakout *models.Breakout, now time.Time) {
	if !breakout.TrendConfirmed {
		log.Debugf("handleBreakout: %s: trend against %s entry, leaving retest pending", state.Symbol, breakout.Direction)
		c.counters.RecordFiltered(models.FilterReasonTrend)
		return
	}

	if !indicators.StructureAllows(breakout.Structure, breakout.Direction) {
		log.Debugf("handleBreakout: %s: structure %s blocks %s entry, leaving retest pending",
			state.Symbol, breakout.Structure.Strength, breakout.Direction)
		c.counters.RecordFiltered(models.FilterReasonStructure)
		return
	}

	err := c.executor.Execute(ctx, EntryRequest{
		State:       state,
		Direction:   breakout.Direction,
		Entry:       breakout.Close,
		ATR:         breakout.ATR,
		IsImmediate: breakout.IsImmediate,
		TradeType:   models.TradeTypeBreakout,
	}, now)
	if err != nil {
		log.Errorf("handleBreakout: %s: %v", state.Symbol, err)
	}
}

// ResetDaily clears date-keyed state and the day's counters. Idempotent
// within a day.
func (c *Coordinator) ResetDaily(now time.Time) {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	c.store.ResetDaily(now.Format("2006-01-02"))
	c.counters.Reset()
	log.Info("ResetDaily: daily state reset complete")
}

// ComputeRanges seeds every symbol's opening range. Symbols whose fetch
// fails stay rangeless until RecoverMissingRanges succeeds for them.
func (c *Coordinator) ComputeRanges(ctx context.Context, now time.Time) {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	var wg sync.WaitGroup
	for _, symbol := range c.store.Symbols() {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			if err := c.rangeCalc.ComputeRange(ctx, c.store.Get(symbol), now); err != nil {
				log.Errorf("ComputeRanges: %v", err)
			}
		}(symbol)
	}
	wg.Wait()
}

// RecoverMissingRanges retries range computation for symbols that still
// have none. Run periodically after the range window closes.
func (c *Coordinator) RecoverMissingRanges(ctx context.Context, now time.Time) {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	for _, symbol := range c.store.Symbols() {
		state := c.store.Get(symbol)
		if state.HasRange() {
			continue
		}

		log.Infof("RecoverMissingRanges: retrying range for %s", symbol)
		if err := c.rangeCalc.ComputeRange(ctx, state, now); err != nil {
			log.Errorf("RecoverMissingRanges: %v", err)
		}
	}
}

// SweepStaleRetests clears pending retests that have outlived the bound.
func (c *Coordinator) SweepStaleRetests() {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	for _, symbol := range c.store.Symbols() {
		c.retest.SweepStale(c.store.Get(symbol))
	}
}

// ResyncPositions reconciles every symbol's inPosition flag against the
// brokerage. Run at startup and after any submission failure.
func (c *Coordinator) ResyncPositions(ctx context.Context) {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	for _, symbol := range c.store.Symbols() {
		state := c.store.Get(symbol)

		position, err := c.broker.FetchPosition(ctx, symbol)
		if err != nil {
			log.Warnf("ResyncPositions: %s: %v", symbol, err)
			continue
		}

		state.InPosition = position != nil
	}
}

// CloseAll liquidates every open position, at the end of the session or on
// operator request. It waits for any in-flight sweep before touching state.
func (c *Coordinator) CloseAll(ctx context.Context) {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	for _, symbol := range c.store.Symbols() {
		if err := c.closeSymbol(ctx, c.store.Get(symbol)); err != nil {
			log.Errorf("CloseAll: %v", err)
		}
	}

	log.Info("CloseAll: end-of-session liquidation complete")
}

// ClosePosition liquidates a single symbol on operator request, serialized
// against the sweep like CloseAll.
func (c *Coordinator) ClosePosition(ctx context.Context, symbol string) error {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	return c.closeSymbol(ctx, c.store.Get(symbol))
}

func (c *Coordinator) closeSymbol(ctx context.Context, state *models.SymbolState) error {
	state.PendingRetest = nil

	if err := c.broker.CancelOpenOrders(ctx, state.Symbol); err != nil {
		log.Warnf("closeSymbol: %s: cancel orders: %v", state.Symbol, err)
	}

	if err := c.broker.ClosePosition(ctx, state.Symbol); err != nil {
		return fmt.Errorf("closeSymbol: %s: %w", state.Symbol, err)
	}

	state.InPosition = false
	return nil
}

// StatusRow is one symbol's line in the status report.
type StatusRow struct {
	Symbol         string
	ORBHigh        float64
	ORBLow         float64
	InPosition     bool
	HasTradedToday bool
	TradeType      models.TradeType
	PendingRetest  bool
	BarsSince      int
}

// Status returns a sorted snapshot of every symbol's state, taken under the
// sweep lock so rows are never mid-mutation.
func (c *Coordinator) Status() []StatusRow {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	symbols := c.store.Symbols()
	sort.Strings(symbols)

	rows := make([]StatusRow, 0, len(symbols))
	for _, symbol := range symbols {
		state := c.store.Get(symbol)

		row := StatusRow{
			Symbol:         symbol,
			ORBHigh:        state.ORBHigh,
			ORBLow:         state.ORBLow,
			InPosition:     state.InPosition,
			HasTradedToday: state.HasTradedToday,
			TradeType:      state.TradeType,
		}

		if state.PendingRetest != nil {
			row.PendingRetest = true
			row.BarsSince = state.PendingRetest.BarsSinceBreakout
		}

		rows = append(rows, row)
	}

	return rows
}
