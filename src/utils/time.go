package utils

import (
	"math"
	"time"
)

// Round2 rounds a price to cents.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// AtTimeOfDay returns t's calendar day at hour:minute in t's location.
func AtTimeOfDay(t time.Time, hour, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
}

// IsWeekday reports whether t falls on Monday through Friday.
func IsWeekday(t time.Time) bool {
	return t.Weekday() >= time.Monday && t.Weekday() <= time.Friday
}
