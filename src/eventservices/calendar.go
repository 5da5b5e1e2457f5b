package eventservices

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/KyleKCarter/stock-bot/src/utils"
)

// MarketCalendar answers session-shape questions for US equities: full
// holidays, early-close (13:00 ET) sessions, and the sessions right before a
// holiday where liquidity thins out ahead of the break.
type MarketCalendar struct {
	Holidays    []string `yaml:"holidays"`
	EarlyCloses []string `yaml:"early_closes"`

	location   *time.Location
	holidaySet map[string]bool
	earlySet   map[string]bool
}

// Built-in table covering the current and next year, used when no calendar
// file is configured.
var defaultCalendar = MarketCalendar{
	Holidays: []string{
		"2026-01-01", "2026-01-19", "2026-02-16", "2026-04-03",
		"2026-05-25", "2026-06-19", "2026-07-03", "2026-09-07",
		"2026-11-26", "2026-12-25",
		"2027-01-01", "2027-01-18", "2027-02-15", "2027-03-26",
		"2027-05-31", "2027-06-18", "2027-07-05", "2027-09-06",
		"2027-11-25", "2027-12-24",
	},
	EarlyCloses: []string{
		"2026-11-27", "2026-12-24",
		"2027-11-26",
	},
}

// NewMarketCalendar loads the calendar from path, or falls back to the
// built-in table when path is empty or unreadable.
func NewMarketCalendar(path string, location *time.Location) (*MarketCalendar, error) {
	calendar := defaultCalendar

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warnf("NewMarketCalendar: failed to read %s, using built-in table: %v", path, err)
		} else if err := yaml.Unmarshal(data, &calendar); err != nil {
			return nil, fmt.Errorf("NewMarketCalendar: failed to parse %s: %w", path, err)
		}
	}

	calendar.location = location
	calendar.holidaySet = make(map[string]bool, len(calendar.Holidays))
	for _, day := range calendar.Holidays {
		calendar.holidaySet[day] = true
	}

	calendar.earlySet = make(map[string]bool, len(calendar.EarlyCloses))
	for _, day := range calendar.EarlyCloses {
		calendar.earlySet[day] = true
	}

	return &calendar, nil
}

func (c *MarketCalendar) dateKey(t time.Time) string {
	return t.In(c.location).Format("2006-01-02")
}

// IsHoliday reports whether the exchange is closed all day.
func (c *MarketCalendar) IsHoliday(t time.Time) bool {
	return c.holidaySet[c.dateKey(t)]
}

// IsEarlyClose reports whether the session ends at 13:00 ET.
func (c *MarketCalendar) IsEarlyClose(t time.Time) bool {
	return c.earlySet[c.dateKey(t)]
}

// IsTradingDay reports whether t falls on a regular or early-close session.
func (c *MarketCalendar) IsTradingDay(t time.Time) bool {
	local := t.In(c.location)
	if !utils.IsWeekday(local) {
		return false
	}
	return !c.IsHoliday(local)
}

// IsPreHoliday reports whether the next trading-shaped day is a holiday, or
// the session itself closes early. Volume gates run stricter on these days.
func (c *MarketCalendar) IsPreHoliday(t time.Time) bool {
	if c.IsEarlyClose(t) {
		return true
	}

	next := t.In(c.location).AddDate(0, 0, 1)
	for !utils.IsWeekday(next) {
		next = next.AddDate(0, 0, 1)
	}

	return c.IsHoliday(next)
}

// SessionClose returns the close time for t's session, 16:00 ET normally and
// 13:00 ET on early-close days.
func (c *MarketCalendar) SessionClose(t time.Time) time.Time {
	local := t.In(c.location)
	if c.IsEarlyClose(local) {
		return time.Date(local.Year(), local.Month(), local.Day(), 13, 0, 0, 0, c.location)
	}
	return time.Date(local.Year(), local.Month(), local.Day(), 16, 0, 0, 0, c.location)
}

// TradingCutoff returns the last moment new breakout entries are allowed,
// two hours before the session close. That lands on the usual 14:00 ET for
// regular sessions and 11:00 ET for early closes.
func (c *MarketCalendar) TradingCutoff(t time.Time) time.Time {
	return c.SessionClose(t).Add(-2 * time.Hour)
}
