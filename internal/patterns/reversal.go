// Package patterns detects single-bar reversal confirmations: the buyout bar
// that absorbs a selloff and the sellout bar that absorbs a rally.
package patterns

import (
	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

// ReversalBar is a candle whose long rejection wick and strong close signal
// that one side absorbed the other's push.
type ReversalBar struct {
	Index          int     `json:"index"`
	BodyPct        float64 `json:"body_pct"`
	LowerShadowPct float64 `json:"lower_shadow_pct"`
	UpperShadowPct float64 `json:"upper_shadow_pct"`
	ClosePct       float64 `json:"close_pct"`
	Strength       int     `json:"strength"`
}

type Detector struct {
	cfg config.PatternConfig
}

func NewDetector(cfg config.PatternConfig) *Detector {
	def := config.Default().PatternConfig
	if cfg.LookbackBars <= 0 {
		cfg.LookbackBars = def.LookbackBars
	}
	if cfg.MinShadowPct <= 0 {
		cfg.MinShadowPct = def.MinShadowPct
	}
	if cfg.MinClosePct <= 0 {
		cfg.MinClosePct = def.MinClosePct
	}
	if cfg.SmallShadow <= 0 {
		cfg.SmallShadow = def.SmallShadow
	}
	if cfg.SmallBodyPct <= 0 {
		cfg.SmallBodyPct = def.SmallBodyPct
	}
	return &Detector{cfg: cfg}
}

// FindBuyoutBar scans the most recent bars for a candle with a long lower
// wick that closed near its high. Returns the strongest match or nil.
func (d *Detector) FindBuyoutBar(s *candle.Series) *ReversalBar {
	if !s.Usable(d.cfg.LookbackBars) {
		return nil
	}

	var best *ReversalBar
	for i := s.Len() - d.cfg.LookbackBars; i < s.Len(); i++ {
		bar := d.measure(s, i)
		if bar == nil {
			continue
		}
		// Close position measured from the low: high values mean the
		// bar closed near its top.
		closeNearHigh := (s.Closes[i] - s.Lows[i]) / (s.Highs[i] - s.Lows[i]) * 100
		if bar.LowerShadowPct < d.cfg.MinShadowPct || closeNearHigh < d.cfg.MinClosePct {
			continue
		}
		bar.ClosePct = closeNearHigh
		bar.Strength = d.strength(bar.LowerShadowPct, closeNearHigh, bar.BodyPct, bar.UpperShadowPct)
		if best == nil || bar.Strength > best.Strength {
			best = bar
		}
	}
	return best
}

// FindSelloutBar is the mirror: a long upper wick with a close near the low.
func (d *Detector) FindSelloutBar(s *candle.Series) *ReversalBar {
	if !s.Usable(d.cfg.LookbackBars) {
		return nil
	}

	var best *ReversalBar
	for i := s.Len() - d.cfg.LookbackBars; i < s.Len(); i++ {
		bar := d.measure(s, i)
		if bar == nil {
			continue
		}
		closeNearLow := (s.Highs[i] - s.Closes[i]) / (s.Highs[i] - s.Lows[i]) * 100
		if bar.UpperShadowPct < d.cfg.MinShadowPct || closeNearLow < d.cfg.MinClosePct {
			continue
		}
		bar.ClosePct = closeNearLow
		bar.Strength = d.strength(bar.UpperShadowPct, closeNearLow, bar.BodyPct, bar.LowerShadowPct)
		if best == nil || bar.Strength > best.Strength {
			best = bar
		}
	}
	return best
}

// measure decomposes a bar into body and shadow fractions of its range.
// Returns nil for zero-range bars.
func (d *Detector) measure(s *candle.Series, i int) *ReversalBar {
	rng := s.Highs[i] - s.Lows[i]
	if rng == 0 {
		return nil
	}

	body := s.Closes[i] - s.Opens[i]
	if body < 0 {
		body = -body
	}
	lower := s.Opens[i]
	if s.Closes[i] < lower {
		lower = s.Closes[i]
	}
	upper := s.Opens[i]
	if s.Closes[i] > upper {
		upper = s.Closes[i]
	}

	return &ReversalBar{
		Index:          i,
		BodyPct:        body / rng * 100,
		LowerShadowPct: (lower - s.Lows[i]) / rng * 100,
		UpperShadowPct: (s.Highs[i] - upper) / rng * 100,
	}
}

// strength grades the rejection: longer wick, stronger close, small opposite
// shadow, and a penalty for an indecisive body.
func (d *Detector) strength(shadowPct, closePct, bodyPct, oppositeShadowPct float64) int {
	strength := 50

	switch {
	case shadowPct >= 50:
		strength += 20
	case shadowPct >= 40:
		strength += 15
	case shadowPct >= 30:
		strength += 10
	}

	switch {
	case closePct >= 95:
		strength += 20
	case closePct >= 90:
		strength += 15
	case closePct >= 80:
		strength += 10
	}

	if oppositeShadowPct <= d.cfg.SmallShadow/2 {
		strength += 10
	} else if oppositeShadowPct <= d.cfg.SmallShadow {
		strength += 5
	}

	if bodyPct < d.cfg.SmallBodyPct {
		strength -= 10
	}

	if strength > 100 {
		strength = 100
	}
	if strength < 0 {
		strength = 0
	}
	return strength
}
