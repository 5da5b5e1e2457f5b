package orb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyleKCarter/stock-bot/src/models"
)

// sessionBars builds a 5-minute session for the [100, 102] opening range:
// three range bars followed by three quiet post-range bars, ready for a
// candidate to be appended.
func sessionBars(loc *time.Location) []models.Bar {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)
	at := func(h, m int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc)
	}

	return []models.Bar{
		{Timestamp: at(9, 30), Open: 100.5, High: 101.5, Low: 100.0, Close: 101.0, Volume: 5000},
		{Timestamp: at(9, 35), Open: 101.0, High: 102.0, Low: 100.8, Close: 101.5, Volume: 4000},
		{Timestamp: at(9, 40), Open: 101.5, High: 101.9, Low: 101.0, Close: 101.3, Volume: 3500},
		{Timestamp: at(9, 50), Open: 101.3, High: 101.7, Low: 101.1, Close: 101.5, Volume: 1000},
		{Timestamp: at(9, 55), Open: 101.5, High: 101.8, Low: 101.3, Close: 101.6, Volume: 1000},
		{Timestamp: at(10, 0), Open: 101.6, High: 101.9, Low: 101.4, Close: 101.7, Volume: 1000},
	}
}

func detectorFixture(t *testing.T, candidate models.Bar) (*SignalDetector, *models.SymbolState, time.Time) {
	t.Helper()

	loc := newYork(t)
	bars := append(sessionBars(loc), candidate)

	fetcher := &fakeFetcher{barsByTF: map[string][]models.Bar{"5Min": bars}}
	detector := NewSignalDetector(fetcher, fakeCalendar{}, NewDailyCounters(), testParams())

	state := &models.SymbolState{
		Symbol:    "AAPL",
		ORBHigh:   102.0,
		ORBLow:    100.0,
		TradeType: models.TradeTypeNone,
	}

	now := time.Date(2026, 3, 10, 10, 6, 0, 0, loc)
	return detector, state, now
}

func immediateCandidate(loc *time.Location) models.Bar {
	return models.Bar{
		Timestamp: time.Date(2026, 3, 10, 10, 5, 0, 0, loc),
		Open:      102.00,
		High:      102.30,
		Low:       101.95,
		Close:     102.25,
		Volume:    1500,
	}
}

func TestDetectImmediateBreakout(t *testing.T) {
	loc := newYork(t)
	detector, state, now := detectorFixture(t, immediateCandidate(loc))

	breakout, err := detector.Detect(context.Background(), state, now)
	require.NoError(t, err)
	require.NotNil(t, breakout)

	assert.True(t, breakout.IsImmediate)
	assert.Equal(t, models.TradeDirectionLong, breakout.Direction)
	assert.Equal(t, 102.25, breakout.Close)
	assert.Equal(t, 102.0, breakout.Level)

	require.NotNil(t, state.PendingRetest)
	assert.Equal(t, models.TradeDirectionLong, state.PendingRetest.Direction)
	assert.Equal(t, 102.0, state.PendingRetest.BreakoutLevel)
}

func TestDetectVolumeFiltered(t *testing.T) {
	loc := newYork(t)
	candidate := immediateCandidate(loc)
	candidate.Volume = 1100

	detector, state, now := detectorFixture(t, candidate)

	breakout, err := detector.Detect(context.Background(), state, now)
	require.NoError(t, err)
	assert.Nil(t, breakout)
	assert.Nil(t, state.PendingRetest)

	_, _, byReason := detector.counters.Snapshot()
	assert.Equal(t, 1, byReason[models.FilterReasonVolume])
}

func TestDetectExhaustionBarRejected(t *testing.T) {
	loc := newYork(t)
	// a huge body relative to ATR, far enough beyond the boundary to
	// bypass the immediate fast path
	candidate := models.Bar{
		Timestamp: time.Date(2026, 3, 10, 10, 5, 0, 0, loc),
		Open:      101.0,
		High:      104.5,
		Low:       100.9,
		Close:     104.4,
		Volume:    5000,
	}

	detector, state, now := detectorFixture(t, candidate)

	breakout, err := detector.Detect(context.Background(), state, now)
	require.NoError(t, err)
	assert.Nil(t, breakout)

	_, _, byReason := detector.counters.Snapshot()
	assert.Equal(t, 1, byReason[models.FilterReasonBody])
}

func TestDetectPreconditions(t *testing.T) {
	loc := newYork(t)

	t.Run("no range means no detection", func(t *testing.T) {
		detector, state, now := detectorFixture(t, immediateCandidate(loc))
		state.ORBHigh = 0
		state.ORBLow = 0

		breakout, err := detector.Detect(context.Background(), state, now)
		require.NoError(t, err)
		assert.Nil(t, breakout)
	})

	t.Run("already traded today", func(t *testing.T) {
		detector, state, now := detectorFixture(t, immediateCandidate(loc))
		state.HasTradedToday = true

		breakout, err := detector.Detect(context.Background(), state, now)
		require.NoError(t, err)
		assert.Nil(t, breakout)
	})

	t.Run("existing pending retest", func(t *testing.T) {
		detector, state, now := detectorFixture(t, immediateCandidate(loc))
		state.PendingRetest = &models.PendingRetest{Direction: models.TradeDirectionLong, BreakoutLevel: 102}

		breakout, err := detector.Detect(context.Background(), state, now)
		require.NoError(t, err)
		assert.Nil(t, breakout)
	})

	t.Run("after trading cutoff", func(t *testing.T) {
		detector, state, _ := detectorFixture(t, immediateCandidate(loc))
		late := time.Date(2026, 3, 10, 14, 30, 0, 0, loc)

		breakout, err := detector.Detect(context.Background(), state, late)
		require.NoError(t, err)
		assert.Nil(t, breakout)
	})

	t.Run("close inside the range", func(t *testing.T) {
		candidate := immediateCandidate(loc)
		candidate.Close = 101.5
		candidate.High = 101.6
		detector, state, now := detectorFixture(t, candidate)

		breakout, err := detector.Detect(context.Background(), state, now)
		require.NoError(t, err)
		assert.Nil(t, breakout)
		assert.Nil(t, state.PendingRetest)
	})
}
