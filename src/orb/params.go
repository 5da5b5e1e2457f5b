package orb

import (
	"time"

	"github.com/KyleKCarter/stock-bot/src/utils"
)

// StrategyParams holds every tunable of the strategy. Defaults match the
// paper-trading calibration; each field can be overridden from the
// environment via FromEnv.
type StrategyParams struct {
	// opening range window, exchange time
	RangeStartHour   int
	RangeStartMinute int
	RangeEndHour     int
	RangeEndMinute   int
	RangeTimeframe   string

	ATRPeriod int

	// volume-ratio gates
	VolumeMultStandard      float64
	VolumeMultLunch         float64
	VolumeMultBreakout      float64
	VolumeMultBreakoutLunch float64
	VolumeMultImmediate     float64
	PreHolidayVolumeBump    float64

	// lunch window, exchange time
	LunchStartHour int
	LunchEndHour   int

	// immediate fast path
	ImmediateProximity     float64
	ImmediateClosePosition float64
	ImmediateMinBodyRatio  float64

	// exhaustion and sustainability gates
	MaxBodyATRRatio         float64
	SustainMinDistATR       float64
	SustainClosePosition    float64
	SustainMinCloseStrength float64

	// confirmation score
	ConfirmMinScore          int
	ConfirmMinScoreExcellent int
	MaxWickToBodyRatio       float64

	// risk engine
	StopATRMultiplier float64
	MinStopDist       float64
	MaxStopDist       float64
	MinTPDist         float64
	MaxTPDist         float64
	MinRRR            float64
	ImmediateMinRRR   float64

	// retest
	MaxBarsWithoutRetest int
	StaleRetestBars      int

	// cadence guards
	TradeCooldown   time.Duration
	BracketDelay    time.Duration
	StopLimitOffset float64
}

// DefaultParams returns the baseline calibration.
func DefaultParams() StrategyParams {
	return StrategyParams{
		RangeStartHour:   9,
		RangeStartMinute: 30,
		RangeEndHour:     9,
		RangeEndMinute:   45,
		RangeTimeframe:   "5Min",

		ATRPeriod: 5,

		VolumeMultStandard:      1.2,
		VolumeMultLunch:         1.1,
		VolumeMultBreakout:      1.4,
		VolumeMultBreakoutLunch: 1.25,
		VolumeMultImmediate:     1.5,
		PreHolidayVolumeBump:    0.1,

		LunchStartHour: 11,
		LunchEndHour:   13,

		ImmediateProximity:     0.3,
		ImmediateClosePosition: 0.7,
		ImmediateMinBodyRatio:  0.3,

		MaxBodyATRRatio:         1.5,
		SustainMinDistATR:       0.3,
		SustainClosePosition:    0.8,
		SustainMinCloseStrength: 0.4,

		ConfirmMinScore:          4,
		ConfirmMinScoreExcellent: 3,
		MaxWickToBodyRatio:       1.0,

		StopATRMultiplier: 0.5,
		MinStopDist:       0.5,
		MaxStopDist:       2.0,
		MinTPDist:         0.25,
		MaxTPDist:         3.0,
		MinRRR:            1.5,
		ImmediateMinRRR:   1.3,

		MaxBarsWithoutRetest: 5,
		StaleRetestBars:      30,

		TradeCooldown:   5 * time.Minute,
		BracketDelay:    1500 * time.Millisecond,
		StopLimitOffset: 0.20,
	}
}

// FromEnv overlays environment overrides onto the defaults.
func FromEnv() StrategyParams {
	p := DefaultParams()

	p.ATRPeriod = utils.GetEnvInt("ORB_ATR_PERIOD", p.ATRPeriod)

	p.VolumeMultStandard = utils.GetEnvFloat("ORB_VOLUME_MULT_STANDARD", p.VolumeMultStandard)
	p.VolumeMultLunch = utils.GetEnvFloat("ORB_VOLUME_MULT_LUNCH", p.VolumeMultLunch)
	p.VolumeMultBreakout = utils.GetEnvFloat("ORB_VOLUME_MULT_BREAKOUT", p.VolumeMultBreakout)
	p.VolumeMultBreakoutLunch = utils.GetEnvFloat("ORB_VOLUME_MULT_BREAKOUT_LUNCH", p.VolumeMultBreakoutLunch)
	p.VolumeMultImmediate = utils.GetEnvFloat("ORB_VOLUME_MULT_IMMEDIATE", p.VolumeMultImmediate)

	p.ImmediateProximity = utils.GetEnvFloat("ORB_IMMEDIATE_PROXIMITY", p.ImmediateProximity)

	p.StopATRMultiplier = utils.GetEnvFloat("ORB_STOP_ATR_MULTIPLIER", p.StopATRMultiplier)
	p.MinStopDist = utils.GetEnvFloat("MIN_STOP_DIST", p.MinStopDist)
	p.MaxStopDist = utils.GetEnvFloat("MAX_STOP_DIST", p.MaxStopDist)
	p.MinTPDist = utils.GetEnvFloat("MIN_TP_DIST", p.MinTPDist)
	p.MaxTPDist = utils.GetEnvFloat("MAX_TP_DIST", p.MaxTPDist)
	p.MinRRR = utils.GetEnvFloat("ORB_MIN_RRR", p.MinRRR)
	p.ImmediateMinRRR = utils.GetEnvFloat("ORB_IMMEDIATE_MIN_RRR", p.ImmediateMinRRR)

	p.MaxBarsWithoutRetest = utils.GetEnvInt("MAX_BARS_WITHOUT_RETEST", p.MaxBarsWithoutRetest)
	p.StaleRetestBars = utils.GetEnvInt("ORB_STALE_RETEST_BARS", p.StaleRetestBars)

	p.TradeCooldown = utils.GetEnvDurationMs("ORB_TRADE_COOLDOWN_MS", p.TradeCooldown)
	p.BracketDelay = utils.GetEnvDurationMs("BRACKET_ORDER_DELAY_MS", p.BracketDelay)
	p.StopLimitOffset = utils.GetEnvFloat("STOP_LIMIT_OFFSET", p.StopLimitOffset)

	return p
}

// InLunchWindow reports whether t falls in the low-liquidity midday stretch.
func (p StrategyParams) InLunchWindow(t time.Time) bool {
	return t.Hour() >= p.LunchStartHour && t.Hour() < p.LunchEndHour
}

// StandardVolumeMult returns the baseline volume multiplier for t, used by
// the retest gate.
func (p StrategyParams) StandardVolumeMult(t time.Time, preHoliday bool) float64 {
	mult := p.VolumeMultStandard
	if p.InLunchWindow(t) {
		mult = p.VolumeMultLunch
	}
	if preHoliday {
		mult += p.PreHolidayVolumeBump
	}
	return mult
}

// BreakoutVolumeMult returns the stricter multiplier applied to standard
// breakout candles.
func (p StrategyParams) BreakoutVolumeMult(t time.Time, preHoliday bool) float64 {
	mult := p.VolumeMultBreakout
	if p.InLunchWindow(t) {
		mult = p.VolumeMultBreakoutLunch
	}
	if preHoliday {
		mult += p.PreHolidayVolumeBump
	}
	return mult
}

// ImmediateVolumeMult returns the multiplier for the immediate fast path.
func (p StrategyParams) ImmediateVolumeMult(preHoliday bool) float64 {
	mult := p.VolumeMultImmediate
	if preHoliday {
		mult += p.PreHolidayVolumeBump
	}
	return mult
}
