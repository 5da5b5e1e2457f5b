package orb

import (
	"fmt"
	"os"
	"sync"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"

	"github.com/KyleKCarter/stock-bot/src/eventpubsub"
	"github.com/KyleKCarter/stock-bot/src/models"
)

// TradeLog is the append-only record of trade decisions. It subscribes to
// the trade-event topic and rewrites its CSV file on every event; the
// in-memory slice is the source of truth for the day.
type TradeLog struct {
	mu     sync.Mutex
	path   string
	events []models.TradeEvent
}

func NewTradeLog(path string) *TradeLog {
	return &TradeLog{path: path}
}

// Start wires the log into the event bus.
func (l *TradeLog) Start() error {
	if err := eventpubsub.Subscribe(eventpubsub.TopicTradeEvents, l.Record); err != nil {
		return fmt.Errorf("TradeLog.Start: %w", err)
	}
	return nil
}

// Record appends one event and flushes the file.
func (l *TradeLog) Record(event models.TradeEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, event)

	if err := l.flush(); err != nil {
		log.Errorf("TradeLog.Record: %v", err)
	}
}

// Events returns a copy of the day's events.
func (l *TradeLog) Events() []models.TradeEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.TradeEvent, len(l.events))
	copy(out, l.events)
	return out
}

// ResetDaily drops the previous day's events. The file is kept; a new
// day's flush overwrites it.
func (l *TradeLog) ResetDaily() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = nil
}

func (l *TradeLog) flush() error {
	file, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("flush: failed to create %s: %w", l.path, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&l.events, file); err != nil {
		return fmt.Errorf("flush: failed to write %s: %w", l.path, err)
	}

	return nil
}
