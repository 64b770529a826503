// Package levels detects horizontal market structure: clustered
// support/resistance levels and consolidation channels.
package levels

import (
	"sort"

	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/analysis"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

const (
	KindSupport    = "SUPPORT"
	KindResistance = "RESISTANCE"

	ZoneNearSupport    = "NEAR_SUPPORT"
	ZoneNearResistance = "NEAR_RESISTANCE"
	ZoneMiddle         = "MIDDLE"
)

// Level is a clustered horizontal price level.
type Level struct {
	Price       float64 `json:"price"`
	Kind        string  `json:"kind"`
	Touches     int     `json:"touches"`
	Strength    float64 `json:"strength"`
	DistancePct float64 `json:"distance_pct"`
	Indices     []int   `json:"indices"`
}

// Analysis relates the level set to the current price and a signal side.
type Analysis struct {
	NearestSupport    *Level  `json:"nearest_support"`
	NearestResistance *Level  `json:"nearest_resistance"`
	All               []Level `json:"all"`
	Zone              string  `json:"zone"`
	Adjustment        int     `json:"adjustment"`
}

// Detector clusters swing extremes into levels that were touched at least a
// minimum number of times.
type Detector struct {
	cfg config.LevelsConfig
}

func NewDetector(cfg config.LevelsConfig) *Detector {
	def := config.Default().LevelsConfig
	if cfg.Lookback <= 0 {
		cfg.Lookback = def.Lookback
	}
	if cfg.SwingWindow <= 0 {
		cfg.SwingWindow = def.SwingWindow
	}
	if cfg.ClusterTolerance <= 0 {
		cfg.ClusterTolerance = def.ClusterTolerance
	}
	if cfg.MinTouches <= 0 {
		cfg.MinTouches = def.MinTouches
	}
	if cfg.StrongTouches <= 0 {
		cfg.StrongTouches = def.StrongTouches
	}
	if cfg.NearDistancePct <= 0 {
		cfg.NearDistancePct = def.NearDistancePct
	}
	return &Detector{cfg: cfg}
}

type candidate struct {
	price float64
	kind  string
	index int
}

// Find returns all levels sorted by distance from the current price.
func (d *Detector) Find(s *candle.Series) []Level {
	if !s.Usable(20) {
		return nil
	}

	lookback := d.cfg.Lookback
	if lookback > s.Len() {
		lookback = s.Len()
	}
	offset := s.Len() - lookback
	highs := s.Highs[offset:]
	lows := s.Lows[offset:]
	price := s.LastClose()

	var candidates []candidate
	for _, i := range analysis.SwingHighs(highs, d.cfg.SwingWindow) {
		candidates = append(candidates, candidate{price: highs[i], kind: KindResistance, index: offset + i})
	}
	for _, i := range analysis.SwingLows(lows, d.cfg.SwingWindow) {
		candidates = append(candidates, candidate{price: lows[i], kind: KindSupport, index: offset + i})
	}
	if len(candidates) == 0 {
		return nil
	}

	levels := d.cluster(candidates, price)

	sort.Slice(levels, func(i, j int) bool {
		return levels[i].DistancePct < levels[j].DistancePct
	})
	return levels
}

// cluster chains price-sorted candidates: a candidate joins the current
// cluster when it is the same kind and within tolerance of the cluster's
// last member.
func (d *Detector) cluster(candidates []candidate, currentPrice float64) []Level {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].price < candidates[j].price
	})

	var levels []Level
	flush := func(group []candidate) {
		touches := len(group)
		if touches < d.cfg.MinTouches {
			return
		}
		sum := 0.0
		indices := make([]int, 0, touches)
		for _, c := range group {
			sum += c.price
			indices = append(indices, c.index)
		}
		avg := sum / float64(touches)

		strength := float64(touches) / float64(d.cfg.MinTouches) * 50
		if strength > 100 {
			strength = 100
		}
		switch {
		case touches >= 5:
			strength += 20
		case touches >= 4:
			strength += 10
		}
		if strength > 100 {
			strength = 100
		}

		distance := 0.0
		if currentPrice > 0 {
			distance = abs((currentPrice - avg) / currentPrice * 100)
		}
		levels = append(levels, Level{
			Price:       avg,
			Kind:        group[0].kind,
			Touches:     touches,
			Strength:    strength,
			DistancePct: distance,
			Indices:     indices,
		})
	}

	group := []candidate{candidates[0]}
	for _, c := range candidates[1:] {
		last := group[len(group)-1]
		diff := abs((c.price - last.price) / last.price * 100)
		if diff <= d.cfg.ClusterTolerance && c.kind == last.kind {
			group = append(group, c)
		} else {
			flush(group)
			group = []candidate{c}
		}
	}
	flush(group)
	return levels
}

// Analyze finds the nearest support below and resistance above the current
// price and scores proximity for the given signal side.
func (d *Detector) Analyze(s *candle.Series, direction string) *Analysis {
	if !s.Usable(20) {
		return nil
	}

	all := d.Find(s)
	out := &Analysis{All: all, Zone: ZoneMiddle}
	if len(all) == 0 {
		return out
	}

	price := s.LastClose()
	for i := range all {
		l := &all[i]
		if l.Kind == KindSupport && l.Price < price && out.NearestSupport == nil {
			out.NearestSupport = l
		}
		if l.Kind == KindResistance && l.Price > price && out.NearestResistance == nil {
			out.NearestResistance = l
		}
	}

	if out.NearestSupport != nil && out.NearestSupport.DistancePct < d.cfg.NearDistancePct {
		out.Zone = ZoneNearSupport
	} else if out.NearestResistance != nil && out.NearestResistance.DistancePct < d.cfg.NearDistancePct {
		out.Zone = ZoneNearResistance
	}

	out.Adjustment = d.adjustment(out, direction)
	return out
}

func (d *Detector) adjustment(a *Analysis, direction string) int {
	score := func(l *Level) int {
		if l == nil {
			return 0
		}
		switch {
		case l.DistancePct < d.cfg.NearDistancePct:
			adj := 10
			if l.Touches >= d.cfg.StrongTouches {
				adj += 5
			}
			return adj
		case l.DistancePct < 2.5:
			return 5
		default:
			return 0
		}
	}

	switch direction {
	case "LONG":
		return score(a.NearestSupport)
	case "SHORT":
		return score(a.NearestResistance)
	default:
		return 0
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
