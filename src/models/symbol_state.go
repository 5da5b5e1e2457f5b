package models

import (
	"math"
	"time"
)

// SymbolState is the per-symbol daily trading record. It is owned by the
// state store; components read and write it only inside their own symbol's
// evaluation path.
type SymbolState struct {
	Symbol         string
	ORBHigh        float64
	ORBLow         float64
	InPosition     bool
	PendingRetest  *PendingRetest
	HasTradedToday bool
	TradeType      TradeType
	LastTradeDate  string
	LastTradeTime  time.Time
}

// HasRange reports whether a numerically valid opening range is set.
func (s *SymbolState) HasRange() bool {
	if s.ORBHigh == 0 && s.ORBLow == 0 {
		return false
	}
	if math.IsNaN(s.ORBHigh) || math.IsNaN(s.ORBLow) {
		return false
	}
	return s.ORBHigh > s.ORBLow
}

// RangeWidth returns the opening-range width, or 0 when no range is set.
func (s *SymbolState) RangeWidth() float64 {
	if !s.HasRange() {
		return 0
	}
	return s.ORBHigh - s.ORBLow
}
