package analysis

import (
	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

const (
	VolumeTrendIncreasing = "INCREASING"
	VolumeTrendDecreasing = "DECREASING"
	VolumeTrendStable     = "STABLE"
)

// VolumeState reports how current volume relates to its recent average.
type VolumeState struct {
	Ratio         float64 `json:"ratio"`
	Trend         string  `json:"trend"`
	SpikeDetected bool    `json:"spike_detected"`
	Adjustment    int     `json:"adjustment"`
}

// VolumeRatios returns volume[i] / mean(volume[i-window:i]) for every index,
// defaulting to 1.0 where the window is not yet available or the average is
// zero. Ratios are never negative and never zero for positive volume.
func VolumeRatios(volumes []float64, window int) []float64 {
	if window <= 0 {
		window = 20
	}
	ratios := make([]float64, len(volumes))
	for i := range ratios {
		ratios[i] = 1.0
	}
	if len(volumes) < window {
		return ratios
	}

	for i := window; i < len(volumes); i++ {
		avg := mean(volumes[i-window : i])
		if avg > 0 {
			ratios[i] = volumes[i] / avg
		}
	}
	return ratios
}

// VolumeAnalyzer classifies the current volume ratio, its short-term trend,
// and spike conditions into a confidence adjustment.
type VolumeAnalyzer struct {
	cfg config.VolumeConfig
}

func NewVolumeAnalyzer(cfg config.VolumeConfig) *VolumeAnalyzer {
	def := config.Default().VolumeConfig
	if cfg.AveragePeriod <= 0 {
		cfg.AveragePeriod = def.AveragePeriod
	}
	if cfg.TrendBars <= 0 {
		cfg.TrendBars = def.TrendBars
	}
	if cfg.SpikeRatio <= 0 {
		cfg.SpikeRatio = def.SpikeRatio
	}
	if cfg.StrongRatio <= 0 {
		cfg.StrongRatio = def.StrongRatio
	}
	if cfg.GoodRatio <= 0 {
		cfg.GoodRatio = def.GoodRatio
	}
	if cfg.DeadRatio <= 0 {
		cfg.DeadRatio = def.DeadRatio
	}
	if cfg.TrendDeltaPct <= 0 {
		cfg.TrendDeltaPct = def.TrendDeltaPct
	}
	return &VolumeAnalyzer{cfg: cfg}
}

func (a *VolumeAnalyzer) Analyze(s *candle.Series) *VolumeState {
	if !s.Usable(a.cfg.AveragePeriod + 5) {
		return nil
	}

	ratios := VolumeRatios(s.Volumes, a.cfg.AveragePeriod)
	current := ratios[len(ratios)-1]

	trend := a.trend(ratios)
	spike := current >= a.cfg.SpikeRatio

	return &VolumeState{
		Ratio:         current,
		Trend:         trend,
		SpikeDetected: spike,
		Adjustment:    a.adjustment(current, trend, spike),
	}
}

// trend looks for strict monotonic ratios over the last bars first, then
// falls back to comparing two adjacent window averages.
func (a *VolumeAnalyzer) trend(ratios []float64) string {
	lookback := a.cfg.TrendBars
	if len(ratios) < 2*lookback {
		return VolumeTrendStable
	}

	recent := ratios[len(ratios)-lookback:]
	increasing, decreasing := true, true
	for i := 1; i < len(recent); i++ {
		if recent[i] <= recent[i-1] {
			increasing = false
		}
		if recent[i] >= recent[i-1] {
			decreasing = false
		}
	}
	if increasing {
		return VolumeTrendIncreasing
	}
	if decreasing {
		return VolumeTrendDecreasing
	}

	avgRecent := mean(recent)
	avgBefore := mean(ratios[len(ratios)-2*lookback : len(ratios)-lookback])
	delta := a.cfg.TrendDeltaPct / 100
	if avgRecent > avgBefore*(1+delta) {
		return VolumeTrendIncreasing
	}
	if avgRecent < avgBefore*(1-delta) {
		return VolumeTrendDecreasing
	}
	return VolumeTrendStable
}

func (a *VolumeAnalyzer) adjustment(ratio float64, trend string, spike bool) int {
	adjustment := 0

	switch {
	case spike:
		adjustment += 15
	case ratio >= a.cfg.StrongRatio:
		adjustment += 10
	case ratio >= a.cfg.GoodRatio:
		adjustment += 5
	}

	switch trend {
	case VolumeTrendIncreasing:
		adjustment += 5
	case VolumeTrendDecreasing:
		adjustment -= 5
	}

	if ratio < a.cfg.DeadRatio {
		adjustment -= 10
	}
	return adjustment
}
