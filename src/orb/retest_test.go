package orb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyleKCarter/stock-bot/src/models"
)

func retestFixture(t *testing.T, minuteBars []models.Bar) (*RetestMonitor, *fakeBroker, *models.SymbolState, time.Time) {
	t.Helper()

	loc := newYork(t)
	params := testParams()

	fetcher := &fakeFetcher{barsByTF: map[string][]models.Bar{"1Min": minuteBars}}
	broker := &fakeBroker{equity: 100000}
	counters := NewDailyCounters()
	executor := NewOrderExecutor(broker, counters, params)
	monitor := NewRetestMonitor(fetcher, fakeCalendar{}, executor, counters, params)

	state := &models.SymbolState{
		Symbol:    "AAPL",
		ORBHigh:   102.0,
		ORBLow:    100.0,
		TradeType: models.TradeTypeNone,
		PendingRetest: &models.PendingRetest{
			Direction:     models.TradeDirectionLong,
			BreakoutLevel: 102.0,
		},
	}

	now := time.Date(2026, 3, 10, 10, 30, 0, 0, loc)
	return monitor, broker, state, now
}

func minuteBar(loc *time.Location, minuteOffset int, open, high, low, close, volume float64) models.Bar {
	return models.Bar{
		Timestamp: time.Date(2026, 3, 10, 10, 25+minuteOffset, 0, 0, loc),
		Open:      open, High: high, Low: low, Close: close, Volume: volume,
	}
}

func TestRetestConfirmed(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")

	// previous bar dips back to the level, latest reclaims it on volume
	bars := []models.Bar{
		minuteBar(loc, 0, 102.3, 102.4, 102.2, 102.3, 800),
		minuteBar(loc, 1, 102.3, 102.3, 102.1, 102.2, 800),
		minuteBar(loc, 2, 102.2, 102.2, 101.95, 102.0, 900),
		minuteBar(loc, 3, 102.0, 102.3, 102.0, 102.25, 1500),
	}

	monitor, broker, state, now := retestFixture(t, bars)

	require.NoError(t, monitor.Evaluate(context.Background(), state, now))

	require.Equal(t, 1, broker.submittedCount())
	assert.True(t, state.InPosition)
	assert.True(t, state.HasTradedToday)
	assert.Equal(t, models.TradeTypeRetest, state.TradeType)
	assert.Nil(t, state.PendingRetest)
}

func TestRetestNotYet(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")

	// price holds above the level the whole window: no retouch
	bars := []models.Bar{
		minuteBar(loc, 0, 102.3, 102.4, 102.2, 102.3, 800),
		minuteBar(loc, 1, 102.3, 102.4, 102.25, 102.35, 800),
		minuteBar(loc, 2, 102.35, 102.5, 102.3, 102.4, 900),
	}

	monitor, broker, state, now := retestFixture(t, bars)

	require.NoError(t, monitor.Evaluate(context.Background(), state, now))

	assert.Equal(t, 0, broker.submittedCount())
	require.NotNil(t, state.PendingRetest)
	assert.Equal(t, 1, state.PendingRetest.BarsSinceBreakout)
}

func TestRetestTimeoutFallback(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")

	bars := []models.Bar{
		minuteBar(loc, 0, 102.3, 102.4, 102.2, 102.3, 800),
		minuteBar(loc, 1, 102.3, 102.4, 102.25, 102.35, 800),
		minuteBar(loc, 2, 102.35, 102.5, 102.3, 102.4, 900),
	}

	monitor, broker, state, now := retestFixture(t, bars)
	state.PendingRetest.BarsSinceBreakout = 4

	require.NoError(t, monitor.Evaluate(context.Background(), state, now))

	require.Equal(t, 1, broker.submittedCount())
	assert.Equal(t, models.OrderTypeMarket, broker.submitted[0].Type)
	assert.Equal(t, models.TradeTypeBreakout, state.TradeType)
	assert.Nil(t, state.PendingRetest)
}

func TestRetestTimeoutSuppressedInPosition(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")

	bars := []models.Bar{
		minuteBar(loc, 0, 102.3, 102.4, 102.2, 102.3, 800),
		minuteBar(loc, 1, 102.3, 102.4, 102.25, 102.35, 800),
	}

	monitor, broker, state, now := retestFixture(t, bars)
	state.PendingRetest.BarsSinceBreakout = 4
	state.InPosition = true

	require.NoError(t, monitor.Evaluate(context.Background(), state, now))
	assert.Equal(t, 0, broker.submittedCount())
}

func TestRetestVolumeGate(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")

	// retouch pattern present but the reclaim bar trades thin
	bars := []models.Bar{
		minuteBar(loc, 0, 102.3, 102.4, 102.2, 102.3, 800),
		minuteBar(loc, 1, 102.3, 102.3, 102.1, 102.2, 800),
		minuteBar(loc, 2, 102.2, 102.2, 101.95, 102.0, 900),
		minuteBar(loc, 3, 102.0, 102.3, 102.0, 102.25, 500),
	}

	monitor, broker, state, now := retestFixture(t, bars)

	require.NoError(t, monitor.Evaluate(context.Background(), state, now))
	assert.Equal(t, 0, broker.submittedCount())
	assert.NotNil(t, state.PendingRetest)
}

func TestSweepStale(t *testing.T) {
	monitor, _, state, _ := retestFixture(t, nil)

	state.PendingRetest.BarsSinceBreakout = 31
	monitor.SweepStale(state)
	assert.Nil(t, state.PendingRetest)

	state.PendingRetest = &models.PendingRetest{BarsSinceBreakout: 10}
	monitor.SweepStale(state)
	assert.NotNil(t, state.PendingRetest)
}
