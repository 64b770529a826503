// Package smartmoney detects institutional footprints: order blocks, fair
// value gaps, liquidity sweeps, and false breakouts of structure levels.
package smartmoney

import (
	"sort"

	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/analysis"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

// OrderBlock is the last opposite-direction candle before a strong impulse.
type OrderBlock struct {
	PriceLow    float64 `json:"price_low"`
	PriceHigh   float64 `json:"price_high"`
	CandleIndex int     `json:"candle_index"`
	Direction   string  `json:"direction"`
	Strength    float64 `json:"strength"`
	Mitigated   bool    `json:"mitigated"`
	DistancePct float64 `json:"distance_pct"`
}

// OrderBlockAnalysis relates the detected blocks to a signal direction.
type OrderBlockAnalysis struct {
	Nearest    *OrderBlock `json:"nearest"`
	Total      int         `json:"total"`
	Bullish    int         `json:"bullish"`
	Bearish    int         `json:"bearish"`
	Adjustment int         `json:"adjustment"`
}

type OrderBlockDetector struct {
	cfg config.OrderBlockConfig
}

func NewOrderBlockDetector(cfg config.OrderBlockConfig) *OrderBlockDetector {
	def := config.Default().SmartMoneyConfig.OrderBlock
	if cfg.Lookback <= 0 {
		cfg.Lookback = def.Lookback
	}
	if cfg.SwingWindow <= 0 {
		cfg.SwingWindow = def.SwingWindow
	}
	if cfg.MinImpulsePct <= 0 {
		cfg.MinImpulsePct = def.MinImpulsePct
	}
	if cfg.MinImpulseBars <= 0 {
		cfg.MinImpulseBars = def.MinImpulseBars
	}
	if cfg.DirectionalRatio <= 0 {
		cfg.DirectionalRatio = def.DirectionalRatio
	}
	if cfg.MaxLookbackBars <= 0 {
		cfg.MaxLookbackBars = def.MaxLookbackBars
	}
	if cfg.MitigationBuffer <= 0 {
		cfg.MitigationBuffer = def.MitigationBuffer
	}
	return &OrderBlockDetector{cfg: cfg}
}

// Find returns all order blocks in the lookback window sorted by distance
// from the current price.
func (d *OrderBlockDetector) Find(s *candle.Series) []OrderBlock {
	if !s.Usable(d.cfg.Lookback) {
		return nil
	}

	offset := s.Len() - d.cfg.Lookback
	highs := s.Highs[offset:]
	lows := s.Lows[offset:]
	closes := s.Closes[offset:]
	opens := s.Opens[offset:]
	price := s.LastClose()

	swingHighs := analysis.SwingHighs(highs, d.cfg.SwingWindow)
	swingLows := analysis.SwingLows(lows, d.cfg.SwingWindow)

	var blocks []OrderBlock

	// Bullish: an upward impulse out of a swing low. The last swing is
	// skipped because its impulse has not had room to unfold yet.
	for _, lowIdx := range head(swingLows) {
		ok, strength := d.detectImpulse(closes, highs, lowIdx, analysis.DirectionBullish)
		if !ok {
			continue
		}
		obIdx := d.findBlockCandle(opens, closes, lowIdx, analysis.DirectionBullish)
		if obIdx < 0 {
			continue
		}
		obLow, obHigh := lows[obIdx], highs[obIdx]
		blocks = append(blocks, OrderBlock{
			PriceLow:    obLow,
			PriceHigh:   obHigh,
			CandleIndex: offset + obIdx,
			Direction:   analysis.DirectionBullish,
			Strength:    strength,
			Mitigated:   d.checkMitigation(lows, highs, obIdx, obLow, obHigh, analysis.DirectionBullish),
			DistancePct: distancePct(price, obHigh),
		})
	}

	// Bearish: a downward impulse out of a swing high.
	for _, highIdx := range head(swingHighs) {
		ok, strength := d.detectImpulse(closes, lows, highIdx, analysis.DirectionBearish)
		if !ok {
			continue
		}
		obIdx := d.findBlockCandle(opens, closes, highIdx, analysis.DirectionBearish)
		if obIdx < 0 {
			continue
		}
		obLow, obHigh := lows[obIdx], highs[obIdx]
		blocks = append(blocks, OrderBlock{
			PriceLow:    obLow,
			PriceHigh:   obHigh,
			CandleIndex: offset + obIdx,
			Direction:   analysis.DirectionBearish,
			Strength:    strength,
			Mitigated:   d.checkMitigation(lows, highs, obIdx, obLow, obHigh, analysis.DirectionBearish),
			DistancePct: distancePct(price, obLow),
		})
	}

	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].DistancePct < blocks[j].DistancePct
	})
	return blocks
}

// Analyze picks the nearest direction-relevant block, preferring fresh ones.
func (d *OrderBlockDetector) Analyze(s *candle.Series, direction string) *OrderBlockAnalysis {
	if s.Len() == 0 || s.LastClose() == 0 {
		return nil
	}

	all := d.Find(s)
	out := &OrderBlockAnalysis{Total: len(all)}
	for i := range all {
		if all[i].Direction == analysis.DirectionBullish {
			out.Bullish++
		} else {
			out.Bearish++
		}
	}
	if len(all) == 0 {
		return out
	}

	price := s.LastClose()
	var relevant []*OrderBlock
	for i := range all {
		ob := &all[i]
		if direction == analysis.SideLong && ob.Direction == analysis.DirectionBullish && ob.PriceHigh < price {
			relevant = append(relevant, ob)
		}
		if direction == analysis.SideShort && ob.Direction == analysis.DirectionBearish && ob.PriceLow > price {
			relevant = append(relevant, ob)
		}
	}
	for _, ob := range relevant {
		if !ob.Mitigated {
			out.Nearest = ob
			break
		}
	}
	if out.Nearest == nil && len(relevant) > 0 {
		out.Nearest = relevant[0]
	}

	out.Adjustment = orderBlockAdjustment(out.Nearest)
	return out
}

func (d *OrderBlockDetector) detectImpulse(closes, extremes []float64, startIdx int, direction string) (bool, float64) {
	minBars := d.cfg.MinImpulseBars
	if startIdx+minBars >= len(closes) {
		return false, 0
	}

	start := closes[startIdx]
	if start <= 0 {
		return false, 0
	}
	window := extremes[startIdx : startIdx+minBars+1]

	var movePct float64
	if direction == analysis.DirectionBullish {
		max := window[0]
		for _, v := range window[1:] {
			if v > max {
				max = v
			}
		}
		movePct = (max - start) / start * 100
	} else {
		min := window[0]
		for _, v := range window[1:] {
			if v < min {
				min = v
			}
		}
		movePct = (start - min) / start * 100
	}

	if movePct < d.cfg.MinImpulsePct || !d.cleanImpulse(closes[startIdx:startIdx+minBars+1], direction) {
		return false, 0
	}

	strength := movePct / d.cfg.MinImpulsePct * 50
	if strength > 100 {
		strength = 100
	}
	return true, strength
}

// cleanImpulse requires most bars to close in the impulse direction.
func (d *OrderBlockDetector) cleanImpulse(closes []float64, direction string) bool {
	if len(closes) < 3 {
		return false
	}
	count := 0
	for i := 1; i < len(closes); i++ {
		if direction == analysis.DirectionBullish && closes[i] > closes[i-1] {
			count++
		}
		if direction == analysis.DirectionBearish && closes[i] < closes[i-1] {
			count++
		}
	}
	ratio := float64(count) / float64(len(closes)-1)
	return ratio >= d.cfg.DirectionalRatio
}

// findBlockCandle scans back from the impulse start for the last
// opposite-color candle, falling back to the bar right before the impulse.
func (d *OrderBlockDetector) findBlockCandle(opens, closes []float64, impulseStart int, direction string) int {
	if impulseStart < 1 {
		return -1
	}
	stop := impulseStart - d.cfg.MaxLookbackBars
	if stop < 0 {
		stop = 0
	}
	for i := impulseStart; i > stop; i-- {
		if direction == analysis.DirectionBullish && closes[i] < opens[i] {
			return i
		}
		if direction == analysis.DirectionBearish && closes[i] > opens[i] {
			return i
		}
	}
	return impulseStart - 1
}

func (d *OrderBlockDetector) checkMitigation(lows, highs []float64, obIdx int, obLow, obHigh float64, direction string) bool {
	for i := obIdx + 1; i < len(lows); i++ {
		if direction == analysis.DirectionBullish && lows[i] <= obHigh*(1+d.cfg.MitigationBuffer) {
			return true
		}
		if direction == analysis.DirectionBearish && highs[i] >= obLow*(1-d.cfg.MitigationBuffer) {
			return true
		}
	}
	return false
}

func orderBlockAdjustment(ob *OrderBlock) int {
	if ob == nil {
		return 0
	}
	adjustment := 8
	if ob.Strength >= 70 {
		adjustment += 5
	}
	if !ob.Mitigated {
		adjustment += 10
	}
	switch {
	case ob.DistancePct > 5.0:
		adjustment -= 8
	case ob.DistancePct < 1.0:
		adjustment += 5
	}
	return adjustment
}

func head(indices []int) []int {
	if len(indices) == 0 {
		return nil
	}
	return indices[:len(indices)-1]
}

func distancePct(current, target float64) float64 {
	if current == 0 {
		return 0
	}
	return abs((current - target) / current * 100)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
