package indicators

import (
	"github.com/montanaflynn/stats"

	"github.com/KyleKCarter/stock-bot/src/models"
)

const (
	trendWindow            = 4
	structureWindow        = 6
	structureMinHistory    = 8
	structureMinConfidence = 0.6
)

// TrendConfirms reports whether the short moving-average slope agrees with
// the trade direction. With fewer than trendWindow+1 bars the gate passes,
// since early-session history is too thin to veto on.
func TrendConfirms(bars []models.Bar, direction models.TradeDirection) bool {
	if len(bars) < trendWindow+1 {
		return true
	}

	current := movingAverage(bars[len(bars)-trendWindow:])
	previous := movingAverage(bars[len(bars)-trendWindow-1 : len(bars)-1])

	slope := current - previous
	if direction == models.TradeDirectionLong {
		return slope > 0
	}

	return slope < 0
}

func movingAverage(bars []models.Bar) float64 {
	closes := make([]float64, 0, len(bars))
	for _, bar := range bars {
		closes = append(closes, bar.Close)
	}

	mean, err := stats.Mean(closes)
	if err != nil {
		return 0
	}

	return mean
}

// MarketStructureOf classifies the last structureWindow bars by counting
// higher highs and higher lows against lower highs and lower lows. A side
// needs at least structureMinConfidence of the comparisons to win the label.
// Fewer than structureMinHistory bars of context grades neutral outright.
func MarketStructureOf(bars []models.Bar) models.MarketStructure {
	if len(bars) < structureMinHistory {
		return models.MarketStructure{Strength: models.MarketStructureNeutral, Confidence: 0}
	}

	window := bars[len(bars)-structureWindow:]

	var bullish, bearish, total float64
	for i := 1; i < len(window); i++ {
		prev, cur := window[i-1], window[i]
		total += 2

		if cur.High > prev.High {
			bullish++
		} else if cur.High < prev.High {
			bearish++
		}

		if cur.Low > prev.Low {
			bullish++
		} else if cur.Low < prev.Low {
			bearish++
		}
	}

	if total == 0 {
		return models.MarketStructure{Strength: models.MarketStructureNeutral, Confidence: 0}
	}

	bullRatio := bullish / total
	bearRatio := bearish / total

	switch {
	case bullRatio >= structureMinConfidence:
		return models.MarketStructure{Strength: models.MarketStructureBullish, Confidence: bullRatio}
	case bearRatio >= structureMinConfidence:
		return models.MarketStructure{Strength: models.MarketStructureBearish, Confidence: bearRatio}
	default:
		return models.MarketStructure{Strength: models.MarketStructureNeutral, Confidence: maxFloat(bullRatio, bearRatio)}
	}
}

// StructureAllows reports whether the swing structure permits a trade in the
// given direction. Neutral structure never vetoes.
func StructureAllows(structure models.MarketStructure, direction models.TradeDirection) bool {
	switch structure.Strength {
	case models.MarketStructureBullish:
		return direction == models.TradeDirectionLong
	case models.MarketStructureBearish:
		return direction == models.TradeDirectionShort
	default:
		return true
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
