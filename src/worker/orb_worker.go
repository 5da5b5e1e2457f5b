package worker

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/KyleKCarter/stock-bot/src/orb"
	"github.com/KyleKCarter/stock-bot/src/utils"
)

// OrbWorker drives the coordinator across the trading day: daily reset
// before the open, range computation at the window close, minute sweeps up
// to the entry cutoff, periodic health passes, and the end-of-session
// close-all.
type OrbWorker struct {
	wg          *sync.WaitGroup
	coordinator *orb.Coordinator
	calendar    orb.SessionCalendar
	tradeLog    *orb.TradeLog
	location    *time.Location
	params      orb.StrategyParams

	lastMinute    time.Time
	lastResetDate string
	lastRangeDate string
	lastCloseDate string
}

func NewOrbWorker(wg *sync.WaitGroup, coordinator *orb.Coordinator, calendar orb.SessionCalendar, tradeLog *orb.TradeLog, params orb.StrategyParams) *OrbWorker {
	worker := &OrbWorker{
		wg:          wg,
		coordinator: coordinator,
		calendar:    calendar,
		tradeLog:    tradeLog,
		params:      params,
	}

	var err error

	worker.location, err = time.LoadLocation("America/New_York")

	if err != nil {
		log.Fatalf("failed to load location America/New_York: %v", err)
	}

	return worker
}

func (w *OrbWorker) Start(ctx context.Context) {
	w.wg.Add(1)

	timer := time.NewTicker(15 * time.Second)

	log.Info("starting OrbWorker")

	// reconcile position flags before the first sweep
	w.coordinator.ResyncPositions(ctx)

	go func() {
		defer w.wg.Done()
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("stopping OrbWorker")
				return
			case <-timer.C:
				w.tick(ctx, time.Now().In(w.location))
			}
		}
	}()
}

// tick fires the minute's actions at most once per wall-clock minute.
func (w *OrbWorker) tick(ctx context.Context, now time.Time) {
	minute := now.Truncate(time.Minute)
	if minute.Equal(w.lastMinute) {
		return
	}
	w.lastMinute = minute

	if !w.calendar.IsTradingDay(now) {
		return
	}

	today := now.Format("2006-01-02")
	hhmm := now.Hour()*100 + now.Minute()

	if hhmm >= 928 && w.lastResetDate != today {
		w.lastResetDate = today
		w.coordinator.ResetDaily(now)
		w.tradeLog.ResetDaily()
	}

	rangeReady := utils.AtTimeOfDay(now, w.params.RangeEndHour, w.params.RangeEndMinute)
	if !now.Before(rangeReady) && w.lastRangeDate != today {
		w.lastRangeDate = today
		w.coordinator.ComputeRanges(ctx, now)
	}

	sessionClose := w.calendar.SessionClose(now)

	if w.lastRangeDate == today && now.After(rangeReady) && now.Before(sessionClose) {
		w.coordinator.Sweep(ctx, now)
	}

	if now.Minute()%15 == 0 && now.After(rangeReady) && now.Before(sessionClose) {
		w.coordinator.RecoverMissingRanges(ctx, now)
		w.coordinator.SweepStaleRetests()
	}

	if now.Minute()%30 == 0 && now.After(rangeReady) {
		log.Infof("status report\n%s", orb.RenderStatus(w.coordinator.Status(), w.coordinator.Counters()))
	}

	if !now.Before(sessionClose) && w.lastCloseDate != today {
		w.lastCloseDate = today
		w.coordinator.CloseAll(ctx)
		log.Infof("daily summary\n%s", orb.RenderStatus(w.coordinator.Status(), w.coordinator.Counters()))
	}
}
