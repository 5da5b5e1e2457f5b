package eventservices

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCalendar(t *testing.T) (*MarketCalendar, *time.Location) {
	t.Helper()

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "calendar.yaml")
	content := `holidays:
  - "2026-11-26"
  - "2026-12-25"
early_closes:
  - "2026-11-27"
  - "2026-12-24"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	calendar, err := NewMarketCalendar(path, loc)
	require.NoError(t, err)

	return calendar, loc
}

func TestMarketCalendar(t *testing.T) {
	calendar, loc := testCalendar(t)

	thanksgiving := time.Date(2026, 11, 26, 10, 0, 0, 0, loc)
	dayAfter := time.Date(2026, 11, 27, 10, 0, 0, 0, loc)
	regular := time.Date(2026, 11, 30, 10, 0, 0, 0, loc)
	wednesday := time.Date(2026, 11, 25, 10, 0, 0, 0, loc)
	saturday := time.Date(2026, 11, 28, 10, 0, 0, 0, loc)

	t.Run("holiday is not a trading day", func(t *testing.T) {
		assert.True(t, calendar.IsHoliday(thanksgiving))
		assert.False(t, calendar.IsTradingDay(thanksgiving))
	})

	t.Run("weekend is not a trading day", func(t *testing.T) {
		assert.False(t, calendar.IsTradingDay(saturday))
	})

	t.Run("regular session closes at four", func(t *testing.T) {
		close := calendar.SessionClose(regular)
		assert.Equal(t, 16, close.Hour())
		assert.True(t, calendar.IsTradingDay(regular))
	})

	t.Run("early close session ends at one", func(t *testing.T) {
		assert.True(t, calendar.IsEarlyClose(dayAfter))
		close := calendar.SessionClose(dayAfter)
		assert.Equal(t, 13, close.Hour())
	})

	t.Run("cutoff trails close by two hours", func(t *testing.T) {
		assert.Equal(t, 14, calendar.TradingCutoff(regular).Hour())
		assert.Equal(t, 11, calendar.TradingCutoff(dayAfter).Hour())
	})

	t.Run("day before a holiday is pre-holiday", func(t *testing.T) {
		assert.True(t, calendar.IsPreHoliday(wednesday))
		assert.True(t, calendar.IsPreHoliday(dayAfter))
		assert.False(t, calendar.IsPreHoliday(regular))
	})

	t.Run("utc timestamps resolve in exchange time", func(t *testing.T) {
		// 2026-11-26 15:00 UTC is thanksgiving morning in New York
		utc := time.Date(2026, 11, 26, 15, 0, 0, 0, time.UTC)
		assert.True(t, calendar.IsHoliday(utc))
	})
}

func TestMarketCalendarFallback(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	calendar, err := NewMarketCalendar("", loc)
	require.NoError(t, err)

	christmas := time.Date(2026, 12, 25, 10, 0, 0, 0, loc)
	assert.True(t, calendar.IsHoliday(christmas))
}
