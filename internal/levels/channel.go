package levels

import (
	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

// Channel is a consolidation band where price traded between stable bounds.
type Channel struct {
	UpperBound   float64 `json:"upper_bound"`
	LowerBound   float64 `json:"lower_bound"`
	StartIndex   int     `json:"start_index"`
	EndIndex     int     `json:"end_index"`
	DurationBars int     `json:"duration_bars"`
	DurationDays float64 `json:"duration_days"`
	AvgPrice     float64 `json:"avg_price"`
	TouchesUpper int     `json:"touches_upper"`
	TouchesLower int     `json:"touches_lower"`
	IsValid      bool    `json:"is_valid"`
}

// ChannelFinder searches sliding windows for the best-scoring consolidation
// band. The channel must end before the most recent bars so a breakout can
// still be observed after it.
type ChannelFinder struct {
	cfg config.ChannelConfig
}

func NewChannelFinder(cfg config.ChannelConfig) *ChannelFinder {
	def := config.Default().ChannelConfig
	if cfg.MinDurationBars <= 0 {
		cfg.MinDurationBars = def.MinDurationBars
	}
	if cfg.MaxWidthPct <= 0 {
		cfg.MaxWidthPct = def.MaxWidthPct
	}
	if cfg.TolerancePct <= 0 {
		cfg.TolerancePct = def.TolerancePct
	}
	if cfg.MinInsideFrac <= 0 {
		cfg.MinInsideFrac = def.MinInsideFrac
	}
	if cfg.MinTouches <= 0 {
		cfg.MinTouches = def.MinTouches
	}
	if cfg.MinBarsAfter <= 0 {
		cfg.MinBarsAfter = def.MinBarsAfter
	}
	if cfg.SearchStepStart <= 0 {
		cfg.SearchStepStart = def.SearchStepStart
	}
	if cfg.SearchStepSize <= 0 {
		cfg.SearchStepSize = def.SearchStepSize
	}
	return &ChannelFinder{cfg: cfg}
}

// Find returns the best channel in the series, or nil when none qualifies.
func (f *ChannelFinder) Find(s *candle.Series) *Channel {
	if !s.Usable(f.cfg.MinDurationBars + f.cfg.MinBarsAfter) {
		return nil
	}

	n := s.Len()
	maxEnd := n - f.cfg.MinBarsAfter

	var best *Channel
	bestScore := 0.0

	for start := 0; start+f.cfg.MinDurationBars <= maxEnd; start += f.cfg.SearchStepStart {
		for size := f.cfg.MinDurationBars; start+size <= maxEnd; size += f.cfg.SearchStepSize {
			end := start + size

			ch, score := f.evaluate(s, start, end)
			if ch != nil && score > bestScore {
				bestScore = score
				best = ch
			}
		}
	}
	return best
}

func (f *ChannelFinder) evaluate(s *candle.Series, start, end int) (*Channel, float64) {
	upper := s.Highs[start]
	lower := s.Lows[start]
	for i := start + 1; i < end; i++ {
		if s.Highs[i] > upper {
			upper = s.Highs[i]
		}
		if s.Lows[i] < lower {
			lower = s.Lows[i]
		}
	}
	if lower <= 0 {
		return nil, 0
	}

	widthPct := (upper - lower) / lower * 100
	if widthPct > f.cfg.MaxWidthPct {
		return nil, 0
	}

	tol := f.cfg.TolerancePct
	insideUpper := upper * (1 + tol/100)
	insideLower := lower * (1 - tol/100)

	inside, touchesUpper, touchesLower := 0, 0, 0
	closeSum := 0.0
	for i := start; i < end; i++ {
		if abs(s.Highs[i]-upper)/upper*100 <= tol {
			touchesUpper++
		}
		if abs(s.Lows[i]-lower)/lower*100 <= tol {
			touchesLower++
		}
		if s.Closes[i] >= insideLower && s.Closes[i] <= insideUpper {
			inside++
		}
		closeSum += s.Closes[i]
	}

	size := end - start
	if float64(inside)/float64(size) < f.cfg.MinInsideFrac {
		return nil, 0
	}
	if touchesUpper < f.cfg.MinTouches || touchesLower < f.cfg.MinTouches {
		return nil, 0
	}

	width := widthPct
	if width < 0.1 {
		width = 0.1
	}
	score := float64(size)*0.4 + float64(touchesUpper+touchesLower)*10 + (1.0/width)*5

	return &Channel{
		UpperBound:   upper,
		LowerBound:   lower,
		StartIndex:   start,
		EndIndex:     end - 1,
		DurationBars: size,
		DurationDays: durationDays(s.Interval, size),
		AvgPrice:     closeSum / float64(size),
		TouchesUpper: touchesUpper,
		TouchesLower: touchesLower,
		IsValid:      true,
	}, score
}

// Contains reports whether price sits inside the channel with tolerance.
func (c *Channel) Contains(price, tolerancePct float64) bool {
	upper := c.UpperBound * (1 + tolerancePct/100)
	lower := c.LowerBound * (1 - tolerancePct/100)
	return price >= lower && price <= upper
}

// DistancePct returns the % distance from price to the lower and upper bound.
func (c *Channel) DistancePct(price float64) (toLower, toUpper float64) {
	toLower = (price - c.LowerBound) / c.LowerBound * 100
	toUpper = (c.UpperBound - price) / c.UpperBound * 100
	return toLower, toUpper
}

func durationDays(interval string, bars int) float64 {
	switch interval {
	case "60":
		return float64(bars) / 24.0
	case "240":
		return float64(bars) / 6.0
	default:
		return float64(bars)
	}
}
