package smartmoney

import (
	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/analysis"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/levels"
)

const (
	BreakoutUp   = "UP"
	BreakoutDown = "DOWN"

	BreakoutSimple   = "SIMPLE"
	BreakoutTwoBars  = "TWO_BARS"
	BreakoutMultiBar = "MULTI_BAR"
)

// FalseBreakoutSignal is a failed breakout of a horizontal level: price
// pierced the level, could not hold the far side and closed back. The trade
// goes against the breakout direction.
type FalseBreakoutSignal struct {
	Direction         string  `json:"direction"`
	BreakoutDirection string  `json:"breakout_direction"`
	LevelPrice        float64 `json:"level_price"`
	LevelKind         string  `json:"level_kind"`
	BreakoutType      string  `json:"breakout_type"`
	BreakoutIndex     int     `json:"breakout_index"`
	ReturnIndex       int     `json:"return_index"`
	EntryIndex        int     `json:"entry_index"`
	BreakoutDepthPct  float64 `json:"breakout_depth_pct"`
	TailSizePct       float64 `json:"tail_size_pct"`
	StopLoss          float64 `json:"stop_loss"`
	VolumeSpikeRatio  float64 `json:"volume_spike_ratio"`
	VolatilitySpike   float64 `json:"volatility_spike"`
	Confidence        int     `json:"confidence"`
}

type prerequisites struct {
	levelAge        int
	trendingMove    bool
	fastApproach    bool
	noConsolidation bool
	score           int
}

type breakoutAttempt struct {
	index     int
	direction string
	depthPct  float64
}

// FalseBreakoutDetector validates a level's setup, finds a breach of it and
// confirms the close back across the level within the return window.
type FalseBreakoutDetector struct {
	cfg        config.FalseBreakoutConfig
	volatility *analysis.VolatilityAnalyzer
}

func NewFalseBreakoutDetector(cfg config.FalseBreakoutConfig, vol config.VolatilityConfig) *FalseBreakoutDetector {
	def := config.Default().SmartMoneyConfig.FalseBreakout
	if cfg.Lookback <= 0 {
		cfg.Lookback = def.Lookback
	}
	if cfg.MinLevelAgeBars <= 0 {
		cfg.MinLevelAgeBars = def.MinLevelAgeBars
	}
	if cfg.BreakoutWindowBars <= 0 {
		cfg.BreakoutWindowBars = def.BreakoutWindowBars
	}
	if cfg.ReturnWindowBars <= 0 {
		cfg.ReturnWindowBars = def.ReturnWindowBars
	}
	if cfg.LevelTolerancePct <= 0 {
		cfg.LevelTolerancePct = def.LevelTolerancePct
	}
	if cfg.ApproachMinMovePct <= 0 {
		cfg.ApproachMinMovePct = def.ApproachMinMovePct
	}
	if cfg.MaxTailFracOfATR <= 0 {
		cfg.MaxTailFracOfATR = def.MaxTailFracOfATR
	}
	return &FalseBreakoutDetector{
		cfg:        cfg,
		volatility: analysis.NewVolatilityAnalyzer(vol),
	}
}

// Detect checks a single level for a completed false breakout. It returns nil
// when the setup is missing a prerequisite, the level was never breached, the
// breach held (a genuine breakout), or price never closed back.
func (d *FalseBreakoutDetector) Detect(s *candle.Series, level *levels.Level) *FalseBreakoutSignal {
	if level == nil || level.Price <= 0 {
		return nil
	}
	if !s.Usable(d.cfg.Lookback + d.cfg.BreakoutWindowBars + 10) {
		return nil
	}

	levelIndex := lastTouchIndex(level, s.Len())
	if levelIndex < 0 {
		return nil
	}

	prereq := d.checkPrerequisites(s, level, levelIndex)
	if prereq == nil {
		return nil
	}

	breakout := d.detectBreakout(s, level, levelIndex)
	if breakout == nil {
		return nil
	}

	returnIndex := d.findReturn(s, level, breakout)
	if returnIndex < 0 {
		return nil
	}
	if d.sticksToLevel(s, level, breakout, returnIndex) {
		return nil
	}

	atr := d.volatility.ATR(s)
	volumeRatio, volumeSpike := d.breakoutVolume(s, breakout.index)
	volatilitySpike := d.breakoutVolatility(s, breakout.index, atr)
	breakoutType := classifyBreakout(breakout.index, returnIndex)
	tailPct := d.tailSizePct(s, breakout, atr)

	direction := analysis.SideLong
	if breakout.direction == BreakoutUp {
		direction = analysis.SideShort
	}

	sig := &FalseBreakoutSignal{
		Direction:         direction,
		BreakoutDirection: breakout.direction,
		LevelPrice:        level.Price,
		LevelKind:         level.Kind,
		BreakoutType:      breakoutType,
		BreakoutIndex:     breakout.index,
		ReturnIndex:       returnIndex,
		EntryIndex:        returnIndex,
		BreakoutDepthPct:  breakout.depthPct,
		TailSizePct:       tailPct,
		StopLoss:          d.stopLoss(s, level, breakout, tailPct),
		VolumeSpikeRatio:  volumeRatio,
		VolatilitySpike:   volatilitySpike,
	}
	sig.Confidence = d.confidence(prereq, breakout, returnIndex, volumeSpike,
		volumeRatio, volatilitySpike, breakoutType, tailPct, level)
	return sig
}

// DetectAll runs Detect against every level and returns the highest
// confidence signal, preferring one aligned with the given direction.
func (d *FalseBreakoutDetector) DetectAll(s *candle.Series, all []levels.Level, direction string) *FalseBreakoutSignal {
	var best *FalseBreakoutSignal
	for i := range all {
		sig := d.Detect(s, &all[i])
		if sig == nil {
			continue
		}
		if best == nil {
			best = sig
			continue
		}
		bestAligned := best.Direction == direction
		sigAligned := sig.Direction == direction
		if sigAligned != bestAligned {
			if sigAligned {
				best = sig
			}
			continue
		}
		if sig.Confidence > best.Confidence {
			best = sig
		}
	}
	return best
}

func lastTouchIndex(level *levels.Level, n int) int {
	last := -1
	for _, idx := range level.Indices {
		if idx > last {
			last = idx
		}
	}
	if last >= n {
		return -1
	}
	return last
}

// checkPrerequisites scores the setup quality: a seasoned level, a trending
// approach with few pullbacks, oversized approach bars and no consolidation
// hugging the level. Score below 20 rejects the setup.
func (d *FalseBreakoutDetector) checkPrerequisites(s *candle.Series, level *levels.Level, levelIndex int) *prerequisites {
	current := s.Len() - 1
	age := current - levelIndex
	if age < d.cfg.MinLevelAgeBars {
		return nil
	}

	p := &prerequisites{levelAge: age}
	if age >= 180 {
		p.score += 20
	} else if age >= 60 {
		p.score += 10
	}

	approachStart := current - d.cfg.Lookback
	if approachStart < 0 {
		approachStart = 0
	}
	approach := s.Closes[approachStart : current+1]
	if len(approach) < 10 {
		return nil
	}

	if level.Kind == levels.KindResistance {
		movePct := (approach[len(approach)-1] - approach[0]) / approach[0] * 100
		if movePct > d.cfg.ApproachMinMovePct && countPullbacks(approach, BreakoutUp) <= 2 {
			p.trendingMove = true
			p.score += 15
		}
	} else {
		movePct := (approach[0] - approach[len(approach)-1]) / approach[0] * 100
		if movePct > d.cfg.ApproachMinMovePct && countPullbacks(approach, BreakoutDown) <= 2 {
			p.trendingMove = true
			p.score += 15
		}
	}

	if d.countLargeBars(s, approachStart, current) >= 3 {
		p.fastApproach = true
		p.score += 15
	}

	if !d.consolidatesNearLevel(s, level, current, d.cfg.Lookback/2) {
		p.noConsolidation = true
		p.score += 10
	}

	if p.score < 20 {
		return nil
	}
	return p
}

func countPullbacks(prices []float64, direction string) int {
	if len(prices) < 3 {
		return 0
	}
	pullbacks := 0
	for i := 1; i < len(prices)-1; i++ {
		if direction == BreakoutUp {
			if prices[i] < prices[i-1] && prices[i] < prices[i+1] {
				pullbacks++
			}
		} else {
			if prices[i] > prices[i-1] && prices[i] > prices[i+1] {
				pullbacks++
			}
		}
	}
	return pullbacks
}

func (d *FalseBreakoutDetector) countLargeBars(s *candle.Series, start, end int) int {
	atr := d.volatility.ATR(s)
	if atr == 0 {
		return 0
	}
	count := 0
	for i := start; i < end && i < s.Len(); i++ {
		if s.Highs[i]-s.Lows[i] > atr*1.5 {
			count++
		}
	}
	return count
}

// consolidatesNearLevel reports whether a third or more of the recent bars
// traded at the level. Sticking there reads as acceptance, not rejection.
func (d *FalseBreakoutDetector) consolidatesNearLevel(s *candle.Series, level *levels.Level, current, lookback int) bool {
	start := current - lookback
	if start < 0 {
		start = 0
	}
	near := 0
	for i := start; i <= current; i++ {
		if d.nearLevel(s.Highs[i], level.Price) ||
			d.nearLevel(s.Lows[i], level.Price) ||
			d.nearLevel(s.Closes[i], level.Price) {
			near++
		}
	}
	return float64(near) >= float64(lookback)*0.3
}

func (d *FalseBreakoutDetector) nearLevel(price, level float64) bool {
	return abs(price-level)/level*100 <= d.cfg.LevelTolerancePct
}

func (d *FalseBreakoutDetector) detectBreakout(s *candle.Series, level *levels.Level, levelIndex int) *breakoutAttempt {
	current := s.Len() - 1
	tol := d.cfg.LevelTolerancePct / 100

	start := current - d.cfg.BreakoutWindowBars
	if start < levelIndex {
		start = levelIndex
	}
	for i := start; i <= current; i++ {
		if level.Kind == levels.KindResistance && s.Highs[i] > level.Price*(1+tol) {
			return &breakoutAttempt{
				index:     i,
				direction: BreakoutUp,
				depthPct:  (s.Highs[i] - level.Price) / level.Price * 100,
			}
		}
		if level.Kind == levels.KindSupport && s.Lows[i] < level.Price*(1-tol) {
			return &breakoutAttempt{
				index:     i,
				direction: BreakoutDown,
				depthPct:  (level.Price - s.Lows[i]) / level.Price * 100,
			}
		}
	}
	return nil
}

// findReturn looks for a close back across the level within the return
// window. Returns -1 when price never came back.
func (d *FalseBreakoutDetector) findReturn(s *candle.Series, level *levels.Level, breakout *breakoutAttempt) int {
	tol := d.cfg.LevelTolerancePct / 100
	end := breakout.index + d.cfg.ReturnWindowBars
	if end >= s.Len() {
		end = s.Len() - 1
	}
	for i := breakout.index + 1; i <= end; i++ {
		if breakout.direction == BreakoutUp && s.Closes[i] < level.Price*(1-tol) {
			return i
		}
		if breakout.direction == BreakoutDown && s.Closes[i] > level.Price*(1+tol) {
			return i
		}
	}
	return -1
}

// sticksToLevel rejects the signal when any bar between breakout and return
// closed beyond the level. Closing on the far side means the breakout held.
func (d *FalseBreakoutDetector) sticksToLevel(s *candle.Series, level *levels.Level, breakout *breakoutAttempt, returnIndex int) bool {
	tol := d.cfg.LevelTolerancePct / 100
	for i := breakout.index; i < returnIndex && i < s.Len(); i++ {
		if breakout.direction == BreakoutUp && s.Closes[i] > level.Price*(1+tol) {
			return true
		}
		if breakout.direction == BreakoutDown && s.Closes[i] < level.Price*(1-tol) {
			return true
		}
	}
	return false
}

func (d *FalseBreakoutDetector) breakoutVolume(s *candle.Series, breakoutIndex int) (float64, bool) {
	const volumeWindow = 10

	start := breakoutIndex - volumeWindow
	if start < 0 {
		start = 0
	}
	end := breakoutIndex + volumeWindow + 1
	if end > s.Len() {
		end = s.Len()
	}
	window := s.Volumes[start:end]
	if len(window) == 0 {
		return 1.0, false
	}

	beforeStart := breakoutIndex - d.cfg.Lookback
	if beforeStart < 0 {
		beforeStart = 0
	}
	before := s.Volumes[beforeStart:breakoutIndex]
	avgBefore := 1.0
	if len(before) > 0 {
		avgBefore = mean(before)
	}
	if avgBefore <= 0 {
		return 1.0, false
	}

	maxVolume := window[0]
	for _, v := range window[1:] {
		if v > maxVolume {
			maxVolume = v
		}
	}
	ratio := maxVolume / avgBefore
	return ratio, ratio >= 1.5
}

func (d *FalseBreakoutDetector) breakoutVolatility(s *candle.Series, breakoutIndex int, atr float64) float64 {
	if atr <= 0 || breakoutIndex >= s.Len() {
		return 0
	}
	return (s.Highs[breakoutIndex] - s.Lows[breakoutIndex]) / atr
}

// classifyBreakout types the failure by how fast price came back: the next
// bar is the cleanest rejection, two bars is decent, anything longer means
// price lingered on the wrong side.
func classifyBreakout(breakoutIndex, returnIndex int) string {
	switch returnIndex - breakoutIndex {
	case 1:
		return BreakoutSimple
	case 2:
		return BreakoutTwoBars
	default:
		return BreakoutMultiBar
	}
}

func (d *FalseBreakoutDetector) tailSizePct(s *candle.Series, breakout *breakoutAttempt, atr float64) float64 {
	if atr <= 0 {
		return 0
	}
	i := breakout.index
	var tail float64
	if breakout.direction == BreakoutUp {
		body := s.Closes[i]
		if s.Opens[i] > body {
			body = s.Opens[i]
		}
		tail = s.Highs[i] - body
	} else {
		body := s.Closes[i]
		if s.Opens[i] < body {
			body = s.Opens[i]
		}
		tail = body - s.Lows[i]
	}
	return tail / atr * 100
}

// stopLoss goes just beyond the breakout bar's extreme when the rejection
// tail is short, otherwise just beyond the level itself.
func (d *FalseBreakoutDetector) stopLoss(s *candle.Series, level *levels.Level, breakout *breakoutAttempt, tailPct float64) float64 {
	maxTailPct := d.cfg.MaxTailFracOfATR * 100
	if tailPct > 0 && tailPct <= maxTailPct {
		if breakout.direction == BreakoutUp {
			return s.Highs[breakout.index] * 1.001
		}
		return s.Lows[breakout.index] * 0.999
	}
	if breakout.direction == BreakoutUp {
		return level.Price * 1.002
	}
	return level.Price * 0.998
}

func (d *FalseBreakoutDetector) confidence(
	prereq *prerequisites,
	breakout *breakoutAttempt,
	returnIndex int,
	volumeSpike bool,
	volumeRatio float64,
	volatilitySpike float64,
	breakoutType string,
	tailPct float64,
	level *levels.Level,
) int {
	confidence := 30 + prereq.score

	if volumeSpike {
		if volumeRatio >= 2.0 {
			confidence += 15
		} else if volumeRatio >= 1.5 {
			confidence += 10
		}
	}
	if volatilitySpike >= 1.5 {
		confidence += 10
	}

	switch breakoutType {
	case BreakoutSimple:
		confidence += 10
	case BreakoutTwoBars:
		confidence += 5
	}

	if tailPct >= 10.0 && tailPct <= 15.0 {
		confidence += 15
	} else if tailPct > 0 && tailPct < 10.0 {
		confidence += 10
	}

	if level.Touches >= 5 {
		confidence += 10
	} else if level.Touches >= 3 {
		confidence += 5
	}

	returnSpeed := returnIndex - breakout.index
	if returnSpeed <= 2 {
		confidence += 15
	} else if returnSpeed <= 3 {
		confidence += 10
	} else if returnSpeed <= 5 {
		confidence += 5
	}

	if confidence > 100 {
		confidence = 100
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}
