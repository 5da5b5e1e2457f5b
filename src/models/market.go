package models

// MarketStructureLabel classifies recent swing structure.
type MarketStructureLabel string

const (
	MarketStructureBullish MarketStructureLabel = "bullish"
	MarketStructureBearish MarketStructureLabel = "bearish"
	MarketStructureNeutral MarketStructureLabel = "neutral"
)

// MarketStructure is the swing-structure classification with a confidence
// ratio in [0, 1].
type MarketStructure struct {
	Strength   MarketStructureLabel
	Confidence float64
}

// MarketCondition is a qualitative tradability label derived from
// volatility and choppiness of the recent window.
type MarketCondition string

const (
	MarketConditionExcellent MarketCondition = "excellent"
	MarketConditionGood      MarketCondition = "good"
	MarketConditionPoor      MarketCondition = "poor"
	MarketConditionDangerous MarketCondition = "dangerous"
)

// Tradable reports whether breakout detection should run at all.
func (c MarketCondition) Tradable() bool {
	return c == MarketConditionExcellent || c == MarketConditionGood
}
