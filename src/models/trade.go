package models

import "time"

type TradeDirection string

const (
	TradeDirectionLong  TradeDirection = "long"
	TradeDirectionShort TradeDirection = "short"
)

// Opposite returns the other direction.
func (d TradeDirection) Opposite() TradeDirection {
	if d == TradeDirectionLong {
		return TradeDirectionShort
	}
	return TradeDirectionLong
}

type TradeType string

const (
	TradeTypeNone     TradeType = "none"
	TradeTypeBreakout TradeType = "breakout"
	TradeTypeRetest   TradeType = "retest"
)

// FilterReason identifies which gate rejected a candidate trade.
type FilterReason string

const (
	FilterReasonVolume         FilterReason = "volume"
	FilterReasonBody           FilterReason = "body"
	FilterReasonSustainability FilterReason = "sustainability"
	FilterReasonConfirmation   FilterReason = "confirmation"
	FilterReasonMarket         FilterReason = "market"
	FilterReasonCooldown       FilterReason = "cooldown"
	FilterReasonTrend          FilterReason = "trend"
	FilterReasonStructure      FilterReason = "structure"
	FilterReasonRiskReward     FilterReason = "risk_reward"
	FilterReasonData           FilterReason = "data"
)

// Breakout is the signal emitted by the detector: at most one per symbol per
// day. IsImmediate marks the fresh, tight, high-conviction fast path.
type Breakout struct {
	Symbol      string
	Direction   TradeDirection
	Close       float64
	Level       float64
	IsImmediate bool
	ATR         float64
	Bar         Bar

	// pre-entry gate inputs, evaluated from the same bars as the signal
	TrendConfirmed bool
	Structure      MarketStructure
}

// PendingRetest is an unresolved breakout awaiting a retouch of the broken
// level. BarsSinceBreakout is incremented on every retest tick.
type PendingRetest struct {
	Direction         TradeDirection
	BreakoutLevel     float64
	BarsSinceBreakout int
	IsImmediate       bool
}

// TradeDecision is a fully risk-checked instruction, produced by the risk
// engine and consumed immediately by the order executor.
type TradeDecision struct {
	Symbol          string
	Direction       TradeDirection
	Entry           float64
	Stop            float64
	Target          float64
	Quantity        int
	RiskRewardRatio float64
	IsImmediate     bool
	ATR             float64
}

// TradeEvent is the append-only record written to the trade-event sink.
type TradeEvent struct {
	Timestamp time.Time    `csv:"timestamp"`
	Symbol    string       `csv:"symbol"`
	Kind      string       `csv:"kind"`
	Direction string       `csv:"direction"`
	Entry     float64      `csv:"entry"`
	Stop      float64      `csv:"stop"`
	Target    float64      `csv:"target"`
	Quantity  int          `csv:"quantity"`
	RRR       float64      `csv:"rrr"`
	Reason    FilterReason `csv:"reason"`
}
