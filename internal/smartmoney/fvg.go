package smartmoney

import (
	"sort"

	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/analysis"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

// FairValueGap is a 3-bar price gap left by a fast directional move.
type FairValueGap struct {
	GapLow      float64 `json:"gap_low"`
	GapHigh     float64 `json:"gap_high"`
	CandleIndex int     `json:"candle_index"`
	Direction   string  `json:"direction"`
	Filled      bool    `json:"filled"`
	FillPct     float64 `json:"fill_pct"`
	Touches     int     `json:"touches"`
	DistancePct float64 `json:"distance_pct"`
}

// FVGAnalysis relates detected gaps to a signal direction.
type FVGAnalysis struct {
	Nearest    *FairValueGap `json:"nearest"`
	Total      int           `json:"total"`
	Unfilled   int           `json:"unfilled"`
	Bullish    int           `json:"bullish"`
	Bearish    int           `json:"bearish"`
	Adjustment int           `json:"adjustment"`
}

type FVGDetector struct {
	cfg config.FairValueGapConfig
	// lookback window shared with the other smart money detectors
	lookback int
}

func NewFVGDetector(cfg config.FairValueGapConfig) *FVGDetector {
	def := config.Default().SmartMoneyConfig.FairValueGap
	if cfg.MinGapPercent <= 0 {
		cfg.MinGapPercent = def.MinGapPercent
	}
	if cfg.MaxTouches <= 0 {
		cfg.MaxTouches = def.MaxTouches
	}
	return &FVGDetector{cfg: cfg, lookback: 50}
}

// Find scans a 3-bar window for gaps and tracks how later bars fill them.
// Results are sorted by distance from the current price.
func (d *FVGDetector) Find(s *candle.Series) []FairValueGap {
	if !s.Usable(d.lookback + 2) {
		return nil
	}

	offset := s.Len() - d.lookback
	highs := s.Highs[offset:]
	lows := s.Lows[offset:]
	price := s.LastClose()

	var gaps []FairValueGap
	for i := 1; i < len(highs)-1; i++ {
		prevHigh := highs[i-1]
		nextLow := lows[i+1]

		// Bullish gap: the candle before never traded up to where the
		// candle after opened room.
		if prevHigh < nextLow && prevHigh > 0 {
			gapPct := (nextLow - prevHigh) / prevHigh * 100
			if gapPct >= d.cfg.MinGapPercent {
				g := FairValueGap{
					GapLow:      prevHigh,
					GapHigh:     nextLow,
					CandleIndex: offset + i,
					Direction:   analysis.DirectionBullish,
					DistancePct: distancePct(price, nextLow),
				}
				d.trackFill(&g, lows[i+1:], highs[i+1:])
				gaps = append(gaps, g)
			}
		}

		prevLow := lows[i-1]
		nextHigh := highs[i+1]

		if prevLow > nextHigh && nextHigh > 0 {
			gapPct := (prevLow - nextHigh) / nextHigh * 100
			if gapPct >= d.cfg.MinGapPercent {
				g := FairValueGap{
					GapLow:      nextHigh,
					GapHigh:     prevLow,
					CandleIndex: offset + i,
					Direction:   analysis.DirectionBearish,
					DistancePct: distancePct(price, prevLow),
				}
				d.trackFill(&g, lows[i+1:], highs[i+1:])
				gaps = append(gaps, g)
			}
		}
	}

	sort.Slice(gaps, func(i, j int) bool {
		return gaps[i].DistancePct < gaps[j].DistancePct
	})
	return gaps
}

// trackFill accumulates penetration across every later bar that enters the
// zone. A gap counts as filled when one bar penetrates more than half, the
// running penetration sum exceeds a full traversal, or the zone was touched
// more often than the configured maximum. A bar crossing the whole zone
// marks the gap 100% filled outright.
func (d *FVGDetector) trackFill(g *FairValueGap, lows, highs []float64) {
	size := g.GapHigh - g.GapLow
	if size <= 0 {
		return
	}

	maxFill := 0.0
	cumulative := 0.0
	touches := 0

	for i := range lows {
		var penetration float64

		if g.Direction == analysis.DirectionBullish {
			if lows[i] > g.GapHigh {
				continue
			}
			if lows[i] <= g.GapLow {
				g.Filled = true
				g.FillPct = 100
				g.Touches = touches + 1
				return
			}
			penetration = (g.GapHigh - lows[i]) / size * 100
		} else {
			if highs[i] < g.GapLow {
				continue
			}
			if highs[i] >= g.GapHigh {
				g.Filled = true
				g.FillPct = 100
				g.Touches = touches + 1
				return
			}
			penetration = (highs[i] - g.GapLow) / size * 100
		}

		touches++
		cumulative += penetration
		if penetration > maxFill {
			maxFill = penetration
		}

		if penetration > 50 || cumulative > 100 || touches > d.cfg.MaxTouches {
			g.Filled = true
			g.FillPct = maxFill
			g.Touches = touches
			return
		}
	}

	g.FillPct = maxFill
	g.Touches = touches
}

// Analyze finds the nearest direction-relevant gap, preferring unfilled ones.
func (d *FVGDetector) Analyze(s *candle.Series, direction string) *FVGAnalysis {
	if s.Len() == 0 || s.LastClose() == 0 {
		return nil
	}

	all := d.Find(s)
	out := &FVGAnalysis{Total: len(all)}
	for i := range all {
		if !all[i].Filled {
			out.Unfilled++
		}
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
	var relevant []*FairValueGap
	for i := range all {
		g := &all[i]
		if direction == analysis.SideLong && g.Direction == analysis.DirectionBullish && g.GapHigh < price {
			relevant = append(relevant, g)
		}
		if direction == analysis.SideShort && g.Direction == analysis.DirectionBearish && g.GapLow > price {
			relevant = append(relevant, g)
		}
	}
	for _, g := range relevant {
		if !g.Filled {
			out.Nearest = g
			break
		}
	}
	if out.Nearest == nil && len(relevant) > 0 {
		out.Nearest = relevant[0]
	}

	out.Adjustment = fvgAdjustment(out.Nearest)
	return out
}

func fvgAdjustment(g *FairValueGap) int {
	if g == nil {
		return 0
	}
	adjustment := 5
	if !g.Filled {
		adjustment += 8
	} else if g.FillPct < 30 {
		adjustment += 5
	}
	switch {
	case g.DistancePct > 5.0:
		adjustment -= 5
	case g.DistancePct < 1.0:
		adjustment += 5
	}
	return adjustment
}
