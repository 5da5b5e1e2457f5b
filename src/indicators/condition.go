package indicators

import (
	"github.com/montanaflynn/stats"

	"github.com/KyleKCarter/stock-bot/src/models"
)

const conditionWindow = 10

// MarketConditionOf grades tradability of the recent window from two
// measures: the standard deviation of bar-to-bar returns, and choppiness,
// the ratio of the average single-bar range to the total range of the
// window. High return volatility or a window that churns without covering
// ground both degrade the grade.
func MarketConditionOf(bars []models.Bar) models.MarketCondition {
	if len(bars) < conditionWindow {
		return models.MarketConditionGood
	}

	window := bars[len(bars)-conditionWindow:]

	returns := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		if window[i-1].Close == 0 {
			continue
		}
		returns = append(returns, (window[i].Close-window[i-1].Close)/window[i-1].Close)
	}

	volatility, err := stats.StandardDeviation(returns)
	if err != nil {
		return models.MarketConditionGood
	}

	choppiness := choppinessOf(window)

	switch {
	case volatility > 0.008 || choppiness > 0.85:
		return models.MarketConditionDangerous
	case volatility > 0.005 || choppiness > 0.7:
		return models.MarketConditionPoor
	case volatility < 0.002 && choppiness < 0.5:
		return models.MarketConditionExcellent
	default:
		return models.MarketConditionGood
	}
}

func choppinessOf(window []models.Bar) float64 {
	hi := window[0].High
	lo := window[0].Low
	sumRange := 0.0
	for _, bar := range window {
		if bar.High > hi {
			hi = bar.High
		}
		if bar.Low < lo {
			lo = bar.Low
		}
		sumRange += bar.Range()
	}

	total := hi - lo
	if total <= 0 {
		return 1
	}

	return (sumRange / float64(len(window))) / total
}
