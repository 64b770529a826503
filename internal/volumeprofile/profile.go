// Package volumeprofile builds a binned volume-at-price histogram and
// derives the point of control, value area and volume node zones from it.
package volumeprofile

import (
	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

const (
	RelevanceStrong   = "STRONG"
	RelevanceModerate = "MODERATE"
	RelevanceWeak     = "WEAK"
	RelevanceExpired  = "EXPIRED"

	BehaviorAttraction = "ATTRACTION"
	BehaviorNeutral    = "NEUTRAL"
	BehaviorSupport    = "SUPPORT"
	BehaviorFastMove   = "FAST_MOVE"
	BehaviorNormal     = "NORMAL"

	PositionAbove  = "ABOVE"
	PositionBelow  = "BELOW"
	PositionInside = "INSIDE"

	ConditionStrong        = "STRONG"
	ConditionWeak          = "WEAK"
	ConditionNormal        = "NORMAL"
	ConditionOverextended  = "OVEREXTENDED"
	ConditionUnderextended = "UNDEREXTENDED"

	MoveContinue   = "CONTINUE"
	MoveRevertToVA = "REVERT_TO_VA"
	MoveRange      = "RANGE"
)

// Zone is a contiguous price band of unusual traded volume.
type Zone struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

func (z Zone) Contains(price float64) bool {
	return price >= z.Low && price <= z.High
}

// Profile is the volume-at-price histogram for a series.
type Profile struct {
	POC           float64   `json:"poc"`
	POCVolume     float64   `json:"poc_volume"`
	ValueAreaHigh float64   `json:"value_area_high"`
	ValueAreaLow  float64   `json:"value_area_low"`
	HVNZones      []Zone    `json:"hvn_zones"`
	LVNZones      []Zone    `json:"lvn_zones"`
	TotalVolume   float64   `json:"total_volume"`
	BinVolumes    []float64 `json:"bin_volumes"`
	BinSize       float64   `json:"bin_size"`
	MinPrice      float64   `json:"min_price"`
}

// POCProximity relates the current price to the point of control.
type POCProximity struct {
	DistancePct float64 `json:"distance_pct"`
	Relevance   string  `json:"relevance"`
	Behavior    string  `json:"behavior"`
	Adjustment  int     `json:"adjustment"`
}

// ValueAreaPosition places the current price relative to the value area.
type ValueAreaPosition struct {
	Position     string `json:"position"`
	Condition    string `json:"condition"`
	ExpectedMove string `json:"expected_move"`
	Adjustment   int    `json:"adjustment"`
}

// NodeAnalysis reports whether price sits inside a volume node.
type NodeAnalysis struct {
	InHVN      bool   `json:"in_hvn"`
	InLVN      bool   `json:"in_lvn"`
	NearestHVN *Zone  `json:"nearest_hvn"`
	Behavior   string `json:"behavior"`
	Adjustment int    `json:"adjustment"`
}

// Analysis combines the three profile reads and their total adjustment.
type Analysis struct {
	POCProximity POCProximity      `json:"poc_proximity"`
	ValueArea    ValueAreaPosition `json:"value_area"`
	Nodes        NodeAnalysis      `json:"nodes"`
	Adjustment   int               `json:"adjustment"`
}

type Engine struct {
	cfg config.VolumeProfileConfig
}

func NewEngine(cfg config.VolumeProfileConfig) *Engine {
	def := config.Default().VolumeProfileConfig
	if cfg.Bins <= 0 {
		cfg.Bins = def.Bins
	}
	if cfg.ValueAreaFrac <= 0 {
		cfg.ValueAreaFrac = def.ValueAreaFrac
	}
	if cfg.POCStrongDistPct <= 0 {
		cfg.POCStrongDistPct = def.POCStrongDistPct
	}
	if cfg.POCModerateDistPct <= 0 {
		cfg.POCModerateDistPct = def.POCModerateDistPct
	}
	if cfg.POCWeakDistPct <= 0 {
		cfg.POCWeakDistPct = def.POCWeakDistPct
	}
	if cfg.VAOverextendedPct <= 0 {
		cfg.VAOverextendedPct = def.VAOverextendedPct
	}
	if cfg.HVNMult <= 0 {
		cfg.HVNMult = def.HVNMult
	}
	if cfg.LVNMult <= 0 {
		cfg.LVNMult = def.LVNMult
	}
	return &Engine{cfg: cfg}
}

// Calculate bins every candle's volume across the price levels its range
// spans. Volume is split over every bin the bar's [low, high] range overlaps,
// so a bar narrower than one bin still lands in exactly one bin instead of
// being dropped. Returns nil when the series is too short or the range is
// flat.
func (e *Engine) Calculate(s *candle.Series) *Profile {
	if !s.Usable(20) {
		return nil
	}

	minPrice := s.Lows[0]
	maxPrice := s.Highs[0]
	for i := 1; i < s.Len(); i++ {
		if s.Lows[i] < minPrice {
			minPrice = s.Lows[i]
		}
		if s.Highs[i] > maxPrice {
			maxPrice = s.Highs[i]
		}
	}
	if minPrice >= maxPrice || maxPrice <= 0 {
		return nil
	}

	binSize := (maxPrice - minPrice) / float64(e.cfg.Bins)
	bins := make([]float64, e.cfg.Bins)
	total := 0.0

	for i := 0; i < s.Len(); i++ {
		lo := e.binIndex(s.Lows[i], minPrice, binSize)
		hi := e.binIndex(s.Highs[i], minPrice, binSize)
		share := s.Volumes[i] / float64(hi-lo+1)
		for b := lo; b <= hi; b++ {
			bins[b] += share
		}
		total += s.Volumes[i]
	}
	if total <= 0 {
		return nil
	}

	pocBin := 0
	for b := 1; b < len(bins); b++ {
		if bins[b] > bins[pocBin] {
			pocBin = b
		}
	}

	vaLowBin, vaHighBin := e.valueArea(bins, total)

	p := &Profile{
		POC:           binCenter(pocBin, minPrice, binSize),
		POCVolume:     bins[pocBin],
		ValueAreaHigh: minPrice + float64(vaHighBin+1)*binSize,
		ValueAreaLow:  minPrice + float64(vaLowBin)*binSize,
		TotalVolume:   total,
		BinVolumes:    bins,
		BinSize:       binSize,
		MinPrice:      minPrice,
	}
	p.HVNZones, p.LVNZones = e.volumeNodes(bins, minPrice, binSize)
	return p
}

func (e *Engine) binIndex(price, minPrice, binSize float64) int {
	idx := int((price - minPrice) / binSize)
	if idx < 0 {
		idx = 0
	}
	if idx >= e.cfg.Bins {
		idx = e.cfg.Bins - 1
	}
	return idx
}

func binCenter(bin int, minPrice, binSize float64) float64 {
	return minPrice + (float64(bin)+0.5)*binSize
}

// valueArea accumulates bins in descending volume order until the target
// fraction of total volume is covered, then returns the bin index bounds.
func (e *Engine) valueArea(bins []float64, total float64) (int, int) {
	order := make([]int, len(bins))
	for i := range order {
		order[i] = i
	}
	// Insertion sort by volume, descending. Bin counts are tiny.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && bins[order[j]] > bins[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	target := total * e.cfg.ValueAreaFrac
	accumulated := 0.0
	low, high := order[0], order[0]
	for _, b := range order {
		accumulated += bins[b]
		if b < low {
			low = b
		}
		if b > high {
			high = b
		}
		if accumulated >= target {
			break
		}
	}
	return low, high
}

// volumeNodes finds contiguous runs of bins above the HVN threshold and
// below the LVN threshold, measured against the mean bin volume.
func (e *Engine) volumeNodes(bins []float64, minPrice, binSize float64) ([]Zone, []Zone) {
	avg := 0.0
	for _, v := range bins {
		avg += v
	}
	avg /= float64(len(bins))

	hvnThreshold := avg * e.cfg.HVNMult
	lvnThreshold := avg * e.cfg.LVNMult

	var hvn, lvn []Zone
	hvnStart, lvnStart := -1, -1

	closeZone := func(zones []Zone, start, end int) []Zone {
		return append(zones, Zone{
			Low:  minPrice + float64(start)*binSize,
			High: minPrice + float64(end+1)*binSize,
		})
	}

	for b := range bins {
		if bins[b] >= hvnThreshold {
			if hvnStart < 0 {
				hvnStart = b
			}
		} else if hvnStart >= 0 {
			hvn = closeZone(hvn, hvnStart, b-1)
			hvnStart = -1
		}

		if bins[b] <= lvnThreshold {
			if lvnStart < 0 {
				lvnStart = b
			}
		} else if lvnStart >= 0 {
			lvn = closeZone(lvn, lvnStart, b-1)
			lvnStart = -1
		}
	}
	if hvnStart >= 0 {
		hvn = closeZone(hvn, hvnStart, len(bins)-1)
	}
	if lvnStart >= 0 {
		lvn = closeZone(lvn, lvnStart, len(bins)-1)
	}
	return hvn, lvn
}

// Analyze reads the profile against the current price. Returns nil when the
// profile is missing or degenerate.
func (e *Engine) Analyze(p *Profile, price float64) *Analysis {
	if p == nil || p.POC == 0 || price == 0 {
		return nil
	}

	out := &Analysis{
		POCProximity: e.pocProximity(price, p.POC),
		ValueArea:    e.valueAreaPosition(price, p.ValueAreaLow, p.ValueAreaHigh),
		Nodes:        e.nodeAnalysis(price, p.HVNZones, p.LVNZones),
	}
	out.Adjustment = out.POCProximity.Adjustment +
		out.ValueArea.Adjustment +
		out.Nodes.Adjustment
	return out
}

func (e *Engine) pocProximity(price, poc float64) POCProximity {
	distance := abs((price - poc) / price * 100)

	out := POCProximity{DistancePct: distance}
	switch {
	case distance < e.cfg.POCStrongDistPct:
		out.Relevance = RelevanceStrong
		out.Behavior = BehaviorAttraction
		out.Adjustment = 10
	case distance < e.cfg.POCModerateDistPct:
		out.Relevance = RelevanceModerate
		out.Behavior = BehaviorAttraction
		out.Adjustment = 5
	case distance < e.cfg.POCWeakDistPct:
		out.Relevance = RelevanceWeak
		out.Behavior = BehaviorNeutral
	default:
		out.Relevance = RelevanceExpired
		out.Behavior = BehaviorNeutral
	}
	return out
}

func (e *Engine) valueAreaPosition(price, vaLow, vaHigh float64) ValueAreaPosition {
	if vaLow == 0 || vaHigh == 0 {
		return ValueAreaPosition{Position: PositionInside, Condition: ConditionNormal, ExpectedMove: MoveRange}
	}

	switch {
	case price > vaHigh:
		distance := (price - vaHigh) / vaHigh * 100
		if distance > e.cfg.VAOverextendedPct {
			return ValueAreaPosition{PositionAbove, ConditionOverextended, MoveRevertToVA, -8}
		}
		return ValueAreaPosition{PositionAbove, ConditionStrong, MoveContinue, 5}
	case price < vaLow:
		distance := (vaLow - price) / vaLow * 100
		if distance > e.cfg.VAOverextendedPct {
			return ValueAreaPosition{PositionBelow, ConditionUnderextended, MoveRevertToVA, -8}
		}
		return ValueAreaPosition{PositionBelow, ConditionWeak, MoveContinue, 5}
	default:
		return ValueAreaPosition{PositionInside, ConditionNormal, MoveRange, 0}
	}
}

func (e *Engine) nodeAnalysis(price float64, hvn, lvn []Zone) NodeAnalysis {
	out := NodeAnalysis{Behavior: BehaviorNormal}

	for i := range hvn {
		if hvn[i].Contains(price) {
			out.InHVN = true
		}
	}
	for i := range lvn {
		if lvn[i].Contains(price) {
			out.InLVN = true
		}
	}

	best := -1.0
	for i := range hvn {
		center := (hvn[i].Low + hvn[i].High) / 2
		d := abs(price - center)
		if best < 0 || d < best {
			best = d
			out.NearestHVN = &hvn[i]
		}
	}

	if out.InHVN {
		out.Behavior = BehaviorSupport
		out.Adjustment = 8
	} else if out.InLVN {
		out.Behavior = BehaviorFastMove
		out.Adjustment = -5
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
