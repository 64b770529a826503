package analysis

import (
	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

const (
	SideLong  = "LONG"
	SideShort = "SHORT"
)

// TrueRanges returns the per-bar true range. Index 0 is always zero because
// there is no previous close to compare against.
func TrueRanges(s *candle.Series) []float64 {
	tr := make([]float64, s.Len())
	for i := 1; i < s.Len(); i++ {
		hl := s.Highs[i] - s.Lows[i]
		hc := abs(s.Highs[i] - s.Closes[i-1])
		lc := abs(s.Lows[i] - s.Closes[i-1])
		tr[i] = hl
		if hc > tr[i] {
			tr[i] = hc
		}
		if lc > tr[i] {
			tr[i] = lc
		}
	}
	return tr
}

// VolatilityAnalyzer computes the Wilder-smoothed ATR and stop-loss
// suggestions derived from it.
type VolatilityAnalyzer struct {
	cfg config.VolatilityConfig
}

func NewVolatilityAnalyzer(cfg config.VolatilityConfig) *VolatilityAnalyzer {
	def := config.Default().VolatilityConfig
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = def.ATRPeriod
	}
	if cfg.StopMultiplier <= 0 {
		cfg.StopMultiplier = def.StopMultiplier
	}
	return &VolatilityAnalyzer{cfg: cfg}
}

// ATR returns the average true range of the last bar, or 0 when the series
// is invalid or too short. The result is never negative.
func (a *VolatilityAnalyzer) ATR(s *candle.Series) float64 {
	period := a.cfg.ATRPeriod
	if !s.Usable(period + 1) {
		return 0
	}

	tr := TrueRanges(s)
	if len(tr) <= period {
		return mean(tr[1:])
	}

	atr := mean(tr[1 : period+1])
	for i := period + 1; i < len(tr); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
	}
	return atr
}

// SuggestStopLoss places the stop one ATR multiple away from the entry,
// below for longs and above for shorts. Returns 0 when inputs are degenerate.
func (a *VolatilityAnalyzer) SuggestStopLoss(entry, atr float64, side string) float64 {
	if entry == 0 || atr == 0 {
		return 0
	}
	distance := atr * a.cfg.StopMultiplier
	switch side {
	case SideLong:
		return entry - distance
	case SideShort:
		return entry + distance
	default:
		return 0
	}
}
