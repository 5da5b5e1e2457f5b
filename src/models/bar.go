package models

import "time"

// Bar is a single OHLCV sample at some timeframe. Bars come back from the
// market-data feed in ascending timestamp order and are never mutated.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Body returns the absolute open-to-close distance.
func (b Bar) Body() float64 {
	body := b.Close - b.Open
	if body < 0 {
		return -body
	}
	return body
}

// Range returns the high-to-low distance.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// ClosePosition returns where the close sits within the bar's range,
// 0 at the low and 1 at the high. A zero-range bar reports 0.5.
func (b Bar) ClosePosition() float64 {
	r := b.Range()
	if r <= 0 {
		return 0.5
	}
	return (b.Close - b.Low) / r
}

// IsBullish reports whether the bar closed above its open.
func (b Bar) IsBullish() bool {
	return b.Close > b.Open
}

// UpperWick returns the distance from the body top to the high.
func (b Bar) UpperWick() float64 {
	if b.Close > b.Open {
		return b.High - b.Close
	}
	return b.High - b.Open
}

// LowerWick returns the distance from the body bottom to the low.
func (b Bar) LowerWick() float64 {
	if b.Close > b.Open {
		return b.Open - b.Low
	}
	return b.Close - b.Low
}
