package orb

import (
	"math"
	"time"

	"github.com/KyleKCarter/stock-bot/src/models"
)

// ConfirmationScorer grades a candidate breakout bar. The score is out of
// five points: volume, momentum, candle structure, time of day, and market
// quality. Standard breakouts need four; three suffice when the market
// grades excellent.
type ConfirmationScorer struct {
	params StrategyParams
}

func NewConfirmationScorer(params StrategyParams) *ConfirmationScorer {
	return &ConfirmationScorer{params: params}
}

// ScoreInput carries everything the scorer looks at for one candidate.
type ScoreInput struct {
	Bar            models.Bar
	PriorBar       models.Bar
	Direction      models.TradeDirection
	RelativeVolume float64
	Condition      models.MarketCondition
	Now            time.Time
	PreHoliday     bool
}

// Score returns the earned points and whether they clear the bar for the
// given market condition.
func (s *ConfirmationScorer) Score(in ScoreInput) (int, bool) {
	score := 0

	if in.RelativeVolume >= s.params.BreakoutVolumeMult(in.Now, in.PreHoliday) {
		score++
	}

	if s.hasMomentum(in.Bar, in.PriorBar, in.Direction) {
		score++
	}

	if s.wickAcceptable(in.Bar, in.Direction) {
		score++
	}

	if s.timeAcceptable(in) {
		score++
	}

	if in.Condition.Tradable() {
		score++
	}

	required := s.params.ConfirmMinScore
	if in.Condition == models.MarketConditionExcellent {
		required = s.params.ConfirmMinScoreExcellent
	}

	return score, score >= required
}

func (s *ConfirmationScorer) hasMomentum(bar, prior models.Bar, direction models.TradeDirection) bool {
	if direction == models.TradeDirectionLong {
		return bar.Close > prior.Close
	}
	return bar.Close < prior.Close
}

// wickAcceptable rejects candles with a long rejection wick on the breakout
// side relative to their body.
func (s *ConfirmationScorer) wickAcceptable(bar models.Bar, direction models.TradeDirection) bool {
	body := bar.Body()
	if body <= 0 {
		return false
	}

	wick := bar.UpperWick()
	if direction == models.TradeDirectionShort {
		wick = bar.LowerWick()
	}

	return wick/body <= s.params.MaxWickToBodyRatio
}

// timeAcceptable grants the point outside the lunch window outright; inside
// it, only when volume clears the stricter non-lunch gate anyway.
func (s *ConfirmationScorer) timeAcceptable(in ScoreInput) bool {
	if !s.params.InLunchWindow(in.Now) {
		return true
	}

	strict := s.params.VolumeMultBreakout
	if in.PreHoliday {
		strict += s.params.PreHolidayVolumeBump
	}

	return in.RelativeVolume >= strict
}

// Sustainable checks that the breakout has carried far enough and closed
// strongly enough to be worth chasing: distance from the broken level at
// least SustainMinDistATR of ATR, close in the outer band of the bar's
// range on the breakout side, and a close-strength ratio above the floor.
func (s *ConfirmationScorer) Sustainable(bar models.Bar, level, atr float64, direction models.TradeDirection) bool {
	dist := math.Abs(bar.Close - level)
	if dist < s.params.SustainMinDistATR*atr {
		return false
	}

	pos := bar.ClosePosition()
	if direction == models.TradeDirectionLong && pos < s.params.SustainClosePosition {
		return false
	}
	if direction == models.TradeDirectionShort && pos > 1-s.params.SustainClosePosition {
		return false
	}

	r := bar.Range()
	if r <= 0 {
		return false
	}

	return bar.Body()/r >= s.params.SustainMinCloseStrength
}

// Immediate reports whether the bar matches the fast-path shape: close just
// beyond the boundary, a decisive close position, a real body, and closing
// in the breakout direction. Volume is checked separately by the detector.
func (s *ConfirmationScorer) Immediate(bar models.Bar, level float64, direction models.TradeDirection) bool {
	var beyond float64
	if direction == models.TradeDirectionLong {
		beyond = bar.Close - level
	} else {
		beyond = level - bar.Close
	}

	if beyond <= 0 || beyond > s.params.ImmediateProximity {
		return false
	}

	pos := bar.ClosePosition()
	if direction == models.TradeDirectionLong && pos < s.params.ImmediateClosePosition {
		return false
	}
	if direction == models.TradeDirectionShort && pos > 1-s.params.ImmediateClosePosition {
		return false
	}

	r := bar.Range()
	if r <= 0 || bar.Body()/r < s.params.ImmediateMinBodyRatio {
		return false
	}

	if direction == models.TradeDirectionLong {
		return bar.IsBullish()
	}
	return !bar.IsBullish()
}
