package orb

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/KyleKCarter/stock-bot/src/models"
)

var (
	tradesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orb_trades_submitted_total",
		Help: "Orders submitted, labelled by trade type.",
	}, []string{"type"})

	tradesFiltered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orb_trades_filtered_total",
		Help: "Candidate trades rejected, labelled by filter reason.",
	}, []string{"reason"})

	sweepsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orb_sweeps_skipped_total",
		Help: "Sweep invocations skipped because one was already in flight.",
	})
)

// DailyCounters aggregates the day's decisions for the status report. The
// prometheus counters above carry the same figures across process lifetime.
type DailyCounters struct {
	mu sync.Mutex

	TotalTrades   int
	TradesByType  map[models.TradeType]int
	FilteredByWhy map[models.FilterReason]int
}

func NewDailyCounters() *DailyCounters {
	return &DailyCounters{
		TradesByType:  make(map[models.TradeType]int),
		FilteredByWhy: make(map[models.FilterReason]int),
	}
}

func (c *DailyCounters) RecordTrade(tradeType models.TradeType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.TotalTrades++
	c.TradesByType[tradeType]++
	tradesSubmitted.WithLabelValues(string(tradeType)).Inc()
}

func (c *DailyCounters) RecordFiltered(reason models.FilterReason) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.FilteredByWhy[reason]++
	tradesFiltered.WithLabelValues(string(reason)).Inc()
}

func (c *DailyCounters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.TotalTrades = 0
	c.TradesByType = make(map[models.TradeType]int)
	c.FilteredByWhy = make(map[models.FilterReason]int)
}

// Snapshot returns copies safe to render outside the lock.
func (c *DailyCounters) Snapshot() (int, map[models.TradeType]int, map[models.FilterReason]int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byType := make(map[models.TradeType]int, len(c.TradesByType))
	for k, v := range c.TradesByType {
		byType[k] = v
	}

	byReason := make(map[models.FilterReason]int, len(c.FilteredByWhy))
	for k, v := range c.FilteredByWhy {
		byReason[k] = v
	}

	return c.TotalTrades, byType, byReason
}
