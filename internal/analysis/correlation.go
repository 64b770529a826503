package analysis

import (
	"math"

	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

const (
	CorrelationStrong   = "STRONG"
	CorrelationModerate = "MODERATE"
	CorrelationWeak     = "WEAK"
	CorrelationUnknown  = "UNKNOWN"

	AnomalyDecouplingStrength = "DECOUPLING_STRENGTH"
	AnomalyDecouplingWeakness = "DECOUPLING_WEAKNESS"
	AnomalyNone               = "NONE"

	TrendUp   = "UP"
	TrendDown = "DOWN"
	TrendFlat = "FLAT"
)

// CorrelationState describes how an asset co-moves with the reference series.
type CorrelationState struct {
	Correlation  float64 `json:"correlation"`
	Strength     string  `json:"strength"`
	IsCorrelated bool    `json:"is_correlated"`
	RefTrend     string  `json:"ref_trend"`
	Adjustment   int     `json:"adjustment"`
}

// CorrelationAnomaly flags decoupling from the move implied by the reference.
type CorrelationAnomaly struct {
	Detected   bool    `json:"detected"`
	Type       string  `json:"type"`
	ActualPct  float64 `json:"actual_pct"`
	ImpliedPct float64 `json:"implied_pct"`
	Adjustment int     `json:"adjustment"`
}

// CorrelationAnalyzer computes Pearson co-movement against a reference series
// and detects decoupling anomalies. Only very strong correlation produces a
// confidence adjustment; weaker correlation is reported without scoring.
type CorrelationAnalyzer struct {
	cfg config.CorrelationConfig
}

func NewCorrelationAnalyzer(cfg config.CorrelationConfig) *CorrelationAnalyzer {
	def := config.Default().CorrelationConfig
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MinFinitePairs <= 0 {
		cfg.MinFinitePairs = def.MinFinitePairs
	}
	if cfg.StrongThreshold <= 0 {
		cfg.StrongThreshold = def.StrongThreshold
	}
	if cfg.ModerateThreshold <= 0 {
		cfg.ModerateThreshold = def.ModerateThreshold
	}
	if cfg.SignificantThreshold <= 0 {
		cfg.SignificantThreshold = def.SignificantThreshold
	}
	if cfg.AlignmentGate <= 0 {
		cfg.AlignmentGate = def.AlignmentGate
	}
	if cfg.DecouplingMult <= 0 {
		cfg.DecouplingMult = def.DecouplingMult
	}
	if cfg.TrendWindow <= 0 {
		cfg.TrendWindow = def.TrendWindow
	}
	if cfg.TrendThresholdPct <= 0 {
		cfg.TrendThresholdPct = def.TrendThresholdPct
	}
	return &CorrelationAnalyzer{cfg: cfg}
}

// Pearson computes correlation over the last window paired values, masking
// out non-finite pairs. Returns 0 when fewer than minPairs finite pairs
// remain or variance degenerates.
func Pearson(a, b []float64, window, minPairs int) float64 {
	if len(a) < window || len(b) < window {
		return 0
	}
	ra := a[len(a)-window:]
	rb := b[len(b)-window:]

	var xs, ys []float64
	for i := 0; i < window; i++ {
		if isFinite(ra[i]) && isFinite(rb[i]) {
			xs = append(xs, ra[i])
			ys = append(ys, rb[i])
		}
	}
	if len(xs) < minPairs {
		return 0
	}

	meanX, meanY := mean(xs), mean(ys)
	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	corr := cov / math.Sqrt(varX*varY)
	if !isFinite(corr) {
		return 0
	}
	return corr
}

// Analyze correlates the asset against the reference and, when correlation
// exceeds the alignment gate, scores the given signal direction against the
// reference trend.
func (a *CorrelationAnalyzer) Analyze(asset, reference *candle.Series, direction string) *CorrelationState {
	if !asset.Usable(a.cfg.Window) || !reference.Usable(a.cfg.Window) {
		return &CorrelationState{Strength: CorrelationUnknown, RefTrend: TrendFlat}
	}

	corr := Pearson(asset.Closes, reference.Closes, a.cfg.Window, a.cfg.MinFinitePairs)
	absCorr := abs(corr)

	strength := CorrelationWeak
	correlated := false
	switch {
	case absCorr > a.cfg.StrongThreshold:
		strength = CorrelationStrong
		correlated = true
	case absCorr > a.cfg.ModerateThreshold:
		strength = CorrelationModerate
		correlated = true
	}

	refTrend := a.referenceTrend(reference.Closes)

	adjustment := 0
	if absCorr > a.cfg.AlignmentGate {
		adjustment = a.alignmentAdjustment(corr, refTrend, direction)
	}

	return &CorrelationState{
		Correlation:  corr,
		Strength:     strength,
		IsCorrelated: correlated,
		RefTrend:     refTrend,
		Adjustment:   adjustment,
	}
}

// DetectAnomaly compares the asset's actual % move against the move implied
// by the reference move scaled by correlation.
func (a *CorrelationAnalyzer) DetectAnomaly(assetChangePct, refChangePct, correlation float64) *CorrelationAnomaly {
	out := &CorrelationAnomaly{Type: AnomalyNone, ActualPct: assetChangePct}

	if abs(correlation) < a.cfg.SignificantThreshold {
		return out
	}

	expectedSign := sign(refChangePct)
	if correlation < 0 {
		expectedSign = -expectedSign
	}
	actualSign := sign(assetChangePct)
	if expectedSign == 0 || actualSign == 0 {
		return out
	}

	implied := abs(refChangePct) * abs(correlation)
	out.ImpliedPct = implied

	if expectedSign != actualSign {
		out.Detected = true
		out.Type = AnomalyDecouplingWeakness
		out.Adjustment = -10
		return out
	}

	if abs(assetChangePct) > implied*a.cfg.DecouplingMult {
		out.Detected = true
		out.Type = AnomalyDecouplingStrength
		out.Adjustment = 8
	}
	return out
}

// PriceChangePct is the % change between the close window bars back and the
// latest close.
func PriceChangePct(prices []float64, window int) float64 {
	if len(prices) < window {
		window = len(prices)
	}
	if window < 2 {
		return 0
	}
	old := prices[len(prices)-window]
	if old == 0 {
		return 0
	}
	return (prices[len(prices)-1] - old) / old * 100
}

// referenceTrend compares the first and last third of the trend window.
func (a *CorrelationAnalyzer) referenceTrend(prices []float64) string {
	window := a.cfg.TrendWindow
	if len(prices) < window {
		window = len(prices)
	}
	if window < 5 {
		return TrendFlat
	}

	recent := prices[len(prices)-window:]
	third := window / 3
	first := mean(recent[:third])
	last := mean(recent[len(recent)-third:])
	if first == 0 {
		return TrendFlat
	}

	change := (last - first) / first * 100
	switch {
	case change > a.cfg.TrendThresholdPct:
		return TrendUp
	case change < -a.cfg.TrendThresholdPct:
		return TrendDown
	default:
		return TrendFlat
	}
}

func (a *CorrelationAnalyzer) alignmentAdjustment(corr float64, refTrend, direction string) int {
	if corr > 0 {
		if (direction == SideLong && refTrend == TrendUp) ||
			(direction == SideShort && refTrend == TrendDown) {
			return 10
		}
		return -12
	}
	if (direction == SideLong && refTrend == TrendDown) ||
		(direction == SideShort && refTrend == TrendUp) {
		return 10
	}
	return -12
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
