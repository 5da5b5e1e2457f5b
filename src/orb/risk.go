package orb

import (
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/KyleKCarter/stock-bot/src/models"
	"github.com/KyleKCarter/stock-bot/src/utils"
)

// RiskEngine turns a breakout or retest entry into a fully sized decision,
// or rejects it when the realized risk/reward falls below the floor.
type RiskEngine struct {
	params StrategyParams
}

func NewRiskEngine(params StrategyParams) *RiskEngine {
	return &RiskEngine{params: params}
}

// riskPerTradePct is the traditional percent-risk sizing input: the share
// of equity put at risk between entry and stop.
const riskPerTradePct = 0.01

// Build computes stop, target, and quantity for an entry at price. A nil
// decision means the trade failed the risk/reward floor.
func (r *RiskEngine) Build(symbol string, direction models.TradeDirection, entry, atr, rangeWidth, equity float64, immediate bool) *models.TradeDecision {
	stop := r.stopPrice(direction, entry, atr)
	target := r.targetPrice(direction, entry, atr, rangeWidth)

	risk := math.Abs(entry - stop)
	reward := math.Abs(target - entry)
	if risk <= 0 {
		return nil
	}

	rrr := reward / risk

	floor := r.params.MinRRR
	if immediate {
		floor = r.params.ImmediateMinRRR
	}

	if rrr < floor {
		log.Debugf("RiskEngine.Build: %s rrr %.2f below floor %.2f", symbol, rrr, floor)
		return nil
	}

	quantity := r.positionSize(entry, atr, risk, equity)
	if quantity < 1 {
		quantity = 1
	}

	return &models.TradeDecision{
		Symbol:          symbol,
		Direction:       direction,
		Entry:           utils.Round2(entry),
		Stop:            utils.Round2(stop),
		Target:          utils.Round2(target),
		Quantity:        quantity,
		RiskRewardRatio: rrr,
		IsImmediate:     immediate,
		ATR:             atr,
	}
}

func (r *RiskEngine) stopPrice(direction models.TradeDirection, entry, atr float64) float64 {
	dist := atr * r.params.StopATRMultiplier
	dist = clamp(dist, r.params.MinStopDist, r.params.MaxStopDist)

	if direction == models.TradeDirectionLong {
		return entry - dist
	}
	return entry + dist
}

// targetPrice takes the most conservative of three extensions: twice ATR,
// the opening-range width, and the stop risk times the minimum RRR.
func (r *RiskEngine) targetPrice(direction models.TradeDirection, entry, atr, rangeWidth float64) float64 {
	stopDist := clamp(atr*r.params.StopATRMultiplier, r.params.MinStopDist, r.params.MaxStopDist)

	dist := 2 * atr
	if rangeWidth > 0 && rangeWidth < dist {
		dist = rangeWidth
	}
	if byRRR := stopDist * r.params.MinRRR; byRRR < dist {
		dist = byRRR
	}

	dist = clamp(dist, r.params.MinTPDist, r.params.MaxTPDist)

	if direction == models.TradeDirectionLong {
		return entry + dist
	}
	return entry - dist
}

// positionSize returns the smaller of dollar-exposure sizing and
// percent-risk sizing, bounded by liquidity and account-tier caps.
func (r *RiskEngine) positionSize(entry, atr, riskPerShare, equity float64) int {
	if entry <= 0 || equity <= 0 {
		return 0
	}

	targetValue := equity * equityPercentForPrice(entry)
	if ceiling := dollarCapForEquity(equity); targetValue > ceiling {
		targetValue = ceiling
	}

	// volatility adjustment: richer ATR shrinks size
	volAdjust := clamp(0.5/math.Max(atr, 0.01), 0.5, 1.5)
	targetValue *= volAdjust

	dollarQty := int(targetValue / entry)

	shareCap := shareCapForPrice(entry)
	if equity < 25000 {
		// pattern-day-trader accounts run smaller
		shareCap = int(float64(shareCap) * 0.6)
	}
	if dollarQty > shareCap {
		dollarQty = shareCap
	}

	riskQty := dollarQty
	if riskPerShare > 0 {
		riskQty = int(equity * riskPerTradePct / riskPerShare)
	}

	if riskQty < dollarQty {
		return riskQty
	}
	return dollarQty
}

func equityPercentForPrice(price float64) float64 {
	switch {
	case price >= 200:
		return 0.05
	case price >= 100:
		return 0.045
	case price >= 50:
		return 0.04
	case price >= 20:
		return 0.035
	case price >= 10:
		return 0.03
	default:
		return 0.02
	}
}

func dollarCapForEquity(equity float64) float64 {
	switch {
	case equity <= 25000:
		return 1000
	case equity <= 50000:
		return 2500
	case equity <= 100000:
		return 5000
	case equity <= 250000:
		return 12500
	default:
		return 25000
	}
}

func shareCapForPrice(price float64) int {
	switch {
	case price >= 200:
		return 25
	case price >= 100:
		return 50
	case price >= 50:
		return 75
	case price >= 20:
		return 100
	case price >= 10:
		return 150
	default:
		return 200
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
