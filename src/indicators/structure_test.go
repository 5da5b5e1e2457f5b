package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KyleKCarter/stock-bot/src/models"
)

func closeBars(closes ...float64) []models.Bar {
	bars := make([]models.Bar, 0, len(closes))
	for _, c := range closes {
		bars = append(bars, models.Bar{Close: c, High: c + 0.1, Low: c - 0.1})
	}
	return bars
}

func TestTrendConfirms(t *testing.T) {
	t.Run("thin history passes", func(t *testing.T) {
		assert.True(t, TrendConfirms(closeBars(100, 101), models.TradeDirectionLong))
		assert.True(t, TrendConfirms(closeBars(100, 101), models.TradeDirectionShort))
	})

	t.Run("rising slope confirms long only", func(t *testing.T) {
		bars := closeBars(100, 101, 102, 103, 104)
		assert.True(t, TrendConfirms(bars, models.TradeDirectionLong))
		assert.False(t, TrendConfirms(bars, models.TradeDirectionShort))
	})

	t.Run("falling slope confirms short only", func(t *testing.T) {
		bars := closeBars(104, 103, 102, 101, 100)
		assert.False(t, TrendConfirms(bars, models.TradeDirectionLong))
		assert.True(t, TrendConfirms(bars, models.TradeDirectionShort))
	})
}

func stairBars(step float64, n int) []models.Bar {
	bars := make([]models.Bar, 0, n)
	price := 100.0
	for i := 0; i < n; i++ {
		bars = append(bars, models.Bar{High: price + 0.5, Low: price - 0.5, Close: price})
		price += step
	}
	return bars
}

func TestMarketStructureOf(t *testing.T) {
	t.Run("thin history is neutral", func(t *testing.T) {
		got := MarketStructureOf(stairBars(1, 4))
		assert.Equal(t, models.MarketStructureNeutral, got.Strength)
		assert.Equal(t, 0.0, got.Confidence)
	})

	t.Run("seven bars is still too thin", func(t *testing.T) {
		got := MarketStructureOf(stairBars(1, 7))
		assert.Equal(t, models.MarketStructureNeutral, got.Strength)
		assert.Equal(t, 0.0, got.Confidence)
	})

	t.Run("higher highs and lows are bullish", func(t *testing.T) {
		got := MarketStructureOf(stairBars(1, 8))
		assert.Equal(t, models.MarketStructureBullish, got.Strength)
		assert.InDelta(t, 1.0, got.Confidence, 1e-9)
	})

	t.Run("lower highs and lows are bearish", func(t *testing.T) {
		got := MarketStructureOf(stairBars(-1, 8))
		assert.Equal(t, models.MarketStructureBearish, got.Strength)
		assert.InDelta(t, 1.0, got.Confidence, 1e-9)
	})

	t.Run("mixed swings are neutral", func(t *testing.T) {
		bars := []models.Bar{
			{High: 100, Low: 99},
			{High: 101, Low: 100},
			{High: 101, Low: 100},
			{High: 102, Low: 101},
			{High: 101, Low: 100},
			{High: 102, Low: 101},
			{High: 101, Low: 100},
			{High: 101, Low: 100},
		}
		got := MarketStructureOf(bars)
		assert.Equal(t, models.MarketStructureNeutral, got.Strength)
	})
}

func TestStructureAllows(t *testing.T) {
	bull := models.MarketStructure{Strength: models.MarketStructureBullish, Confidence: 0.8}
	bear := models.MarketStructure{Strength: models.MarketStructureBearish, Confidence: 0.8}
	flat := models.MarketStructure{Strength: models.MarketStructureNeutral}

	assert.True(t, StructureAllows(bull, models.TradeDirectionLong))
	assert.False(t, StructureAllows(bull, models.TradeDirectionShort))
	assert.False(t, StructureAllows(bear, models.TradeDirectionLong))
	assert.True(t, StructureAllows(bear, models.TradeDirectionShort))
	assert.True(t, StructureAllows(flat, models.TradeDirectionLong))
	assert.True(t, StructureAllows(flat, models.TradeDirectionShort))
}
