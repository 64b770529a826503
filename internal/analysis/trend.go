package analysis

import (
	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

// Shared direction labels used across the analyzers.
const (
	DirectionBullish = "BULLISH"
	DirectionBearish = "BEARISH"
	DirectionNeutral = "NEUTRAL"
)

const (
	CrossoverGolden = "GOLDEN"
	CrossoverDeath  = "DEATH"
	CrossoverNone   = "NONE"

	PullbackBullishBounce = "BULLISH_BOUNCE"
	PullbackBearishBounce = "BEARISH_BOUNCE"
	PullbackNone          = "NONE"

	CompressionBreakoutUp   = "BREAKOUT_UP"
	CompressionBreakoutDown = "BREAKOUT_DOWN"
	CompressionCompressed   = "COMPRESSED"
	CompressionNone         = "NONE"
)

// TrendState summarizes the triple moving-average structure of a series.
type TrendState struct {
	EMAFast   float64 `json:"ema_fast"`
	EMAMedium float64 `json:"ema_medium"`
	EMASlow   float64 `json:"ema_slow"`

	Alignment   string `json:"alignment"`
	Crossover   string `json:"crossover"`
	Pullback    string `json:"pullback"`
	Compression string `json:"compression"`

	DistanceFromSlowPct float64 `json:"distance_from_slow_pct"`
	Confidence          int     `json:"confidence"`
}

// TrendAnalyzer scores moving-average alignment, crossovers, pullbacks to the
// medium average, and compression breakouts into one bounded confidence value.
type TrendAnalyzer struct {
	cfg          config.TrendConfig
	volumeWindow int
}

func NewTrendAnalyzer(cfg config.TrendConfig) *TrendAnalyzer {
	def := config.Default().TrendConfig
	if cfg.FastPeriod <= 0 {
		cfg.FastPeriod = def.FastPeriod
	}
	if cfg.MediumPeriod <= 0 {
		cfg.MediumPeriod = def.MediumPeriod
	}
	if cfg.SlowPeriod <= 0 {
		cfg.SlowPeriod = def.SlowPeriod
	}
	if cfg.MinGapPercent <= 0 {
		cfg.MinGapPercent = def.MinGapPercent
	}
	if cfg.CrossoverLookback <= 0 {
		cfg.CrossoverLookback = def.CrossoverLookback
	}
	if cfg.PullbackTolerance <= 0 {
		cfg.PullbackTolerance = def.PullbackTolerance
	}
	if cfg.PullbackMinVolume <= 0 {
		cfg.PullbackMinVolume = def.PullbackMinVolume
	}
	if cfg.CompressionMaxPct <= 0 {
		cfg.CompressionMaxPct = def.CompressionMaxPct
	}
	if cfg.BreakoutMinVolume <= 0 {
		cfg.BreakoutMinVolume = def.BreakoutMinVolume
	}
	return &TrendAnalyzer{cfg: cfg, volumeWindow: 20}
}

// Analyze returns nil when the series is invalid or too short.
func (a *TrendAnalyzer) Analyze(s *candle.Series) *TrendState {
	if !s.Usable(a.cfg.SlowPeriod + 10) {
		return nil
	}

	emaFast := EMA(s.Closes, a.cfg.FastPeriod)
	emaMedium := EMA(s.Closes, a.cfg.MediumPeriod)
	emaSlow := EMA(s.Closes, a.cfg.SlowPeriod)

	n := s.Len()
	price := s.Closes[n-1]
	curFast := emaFast[n-1]
	curMedium := emaMedium[n-1]
	curSlow := emaSlow[n-1]

	ratios := VolumeRatios(s.Volumes, a.volumeWindow)
	curRatio := ratios[n-1]

	alignment, alignScore := a.checkAlignment(curFast, curMedium, curSlow)
	crossover, crossScore := a.checkCrossover(emaFast, emaMedium, emaSlow)
	pullback, pullScore := a.checkPullback(s, emaMedium, alignment, price, curMedium, curRatio)
	compression, compScore := a.checkCompression(curFast, curSlow, price, curRatio)
	bonus := a.bonuses(emaFast, emaMedium, emaSlow, price, curFast, curSlow, curRatio, alignment)
	penalty := a.penalties(emaFast, emaMedium, ratios, curSlow, price)

	confidence := 50 + alignScore + crossScore + pullScore + compScore + bonus + penalty
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	distance := abs((price - curSlow) / curSlow * 100)

	return &TrendState{
		EMAFast:             curFast,
		EMAMedium:           curMedium,
		EMASlow:             curSlow,
		Alignment:           alignment,
		Crossover:           crossover,
		Pullback:            pullback,
		Compression:         compression,
		DistanceFromSlowPct: distance,
		Confidence:          confidence,
	}
}

func (a *TrendAnalyzer) checkAlignment(fast, medium, slow float64) (string, int) {
	gapFastMedium := abs((fast - medium) / medium * 100)
	gapMediumSlow := abs((medium - slow) / slow * 100)

	switch {
	case fast > medium && medium > slow:
		if gapFastMedium >= a.cfg.MinGapPercent && gapMediumSlow >= a.cfg.MinGapPercent {
			return DirectionBullish, 15
		}
		return DirectionBullish, 10
	case fast < medium && medium < slow:
		if gapFastMedium >= a.cfg.MinGapPercent && gapMediumSlow >= a.cfg.MinGapPercent {
			return DirectionBearish, 15
		}
		return DirectionBearish, 10
	default:
		return DirectionNeutral, 0
	}
}

// checkCrossover scans the last lookback bars for a fast/medium cross that is
// consistent with the medium/slow ordering.
func (a *TrendAnalyzer) checkCrossover(fast, medium, slow []float64) (string, int) {
	n := len(fast)
	lookback := a.cfg.CrossoverLookback
	if lookback > n-1 {
		lookback = n - 1
	}

	for i := 1; i <= lookback; i++ {
		idx := n - i
		if fast[idx] > medium[idx] && fast[idx-1] <= medium[idx-1] {
			if medium[idx] > slow[idx] {
				return CrossoverGolden, 12
			}
		} else if fast[idx] < medium[idx] && fast[idx-1] >= medium[idx-1] {
			if medium[idx] < slow[idx] {
				return CrossoverDeath, 12
			}
		}
	}
	return CrossoverNone, 0
}

func (a *TrendAnalyzer) checkPullback(s *candle.Series, emaMedium []float64, alignment string, price, curMedium, volumeRatio float64) (string, int) {
	n := s.Len()
	limit := 3
	if limit > n-1 {
		limit = n - 1
	}

	for i := 1; i <= limit; i++ {
		idx := n - i
		emaVal := emaMedium[idx]
		touchUpper := emaVal * (1 + a.cfg.PullbackTolerance/100)
		touchLower := emaVal * (1 - a.cfg.PullbackTolerance/100)

		if alignment == DirectionBullish && s.Lows[idx] >= touchLower && s.Lows[idx] <= touchUpper {
			if price > curMedium && volumeRatio >= a.cfg.PullbackMinVolume {
				return PullbackBullishBounce, 10
			}
		} else if alignment == DirectionBearish && s.Highs[idx] >= touchLower && s.Highs[idx] <= touchUpper {
			if price < curMedium && volumeRatio >= a.cfg.PullbackMinVolume {
				return PullbackBearishBounce, 10
			}
		}
	}
	return PullbackNone, 0
}

func (a *TrendAnalyzer) checkCompression(fast, slow, price, volumeRatio float64) (string, int) {
	spread := abs((fast - slow) / slow * 100)
	if spread > a.cfg.CompressionMaxPct {
		return CompressionNone, 0
	}

	if volumeRatio >= a.cfg.BreakoutMinVolume {
		upper, lower := fast, slow
		if slow > fast {
			upper, lower = slow, fast
		}
		if price > upper {
			return CompressionBreakoutUp, 12
		}
		if price < lower {
			return CompressionBreakoutDown, 12
		}
	}
	return CompressionCompressed, 0
}

func (a *TrendAnalyzer) bonuses(fast, medium, slow []float64, price, curFast, curSlow, volumeRatio float64, alignment string) int {
	n := len(fast)
	bonus := 0

	// All three averages sloping with the trend.
	if n >= 5 {
		if alignment == DirectionBullish &&
			fast[n-1] > fast[n-5] && medium[n-1] > medium[n-5] && slow[n-1] > slow[n-5] {
			bonus += 10
		} else if alignment == DirectionBearish &&
			fast[n-1] < fast[n-5] && medium[n-1] < medium[n-5] && slow[n-1] < slow[n-5] {
			bonus += 10
		}
	}

	if alignment == DirectionBullish && price > curFast {
		bonus += 8
	} else if alignment == DirectionBearish && price < curFast {
		bonus += 8
	}

	if abs((price-curSlow)/curSlow*100) < 3.0 {
		bonus += 8
	}

	if volumeRatio >= 1.5 {
		bonus += 8
	}
	return bonus
}

func (a *TrendAnalyzer) penalties(fast, medium, ratios []float64, curSlow, price float64) int {
	n := len(fast)
	penalty := 0

	// Flat medium average means no trend worth following.
	if n >= 10 {
		slope := abs((medium[n-1] - medium[n-10]) / medium[n-10] * 100)
		if slope < 0.5 {
			penalty -= 10
		}
	}

	if abs((price-curSlow)/curSlow*100) > 5.0 {
		penalty -= 10
	}

	if n >= 3 {
		dead := true
		for _, r := range ratios[n-3:] {
			if r >= 0.8 {
				dead = false
				break
			}
		}
		if dead {
			penalty -= 10
		}
	}

	// Whipsaw: repeated fast/medium crosses inside the last 10 bars.
	crosses := 0
	limit := 10
	if limit > n-1 {
		limit = n - 1
	}
	for i := 1; i <= limit; i++ {
		idx := n - i
		crossedUp := fast[idx] > medium[idx] && fast[idx-1] <= medium[idx-1]
		crossedDown := fast[idx] < medium[idx] && fast[idx-1] >= medium[idx-1]
		if crossedUp || crossedDown {
			crosses++
		}
	}
	if crosses >= 3 {
		penalty -= 12
	}
	return penalty
}
