package smartmoney

import (
	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/analysis"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

const (
	SweepHigh = "SWEEP_HIGH"
	SweepLow  = "SWEEP_LOW"
)

// LiquiditySweep is a brief breach of a prior extreme followed by a sharp
// reversal back past it, read as a stop hunt.
type LiquiditySweep struct {
	SweepLevel        float64 `json:"sweep_level"`
	SweepCandleIndex  int     `json:"sweep_candle_index"`
	Direction         string  `json:"direction"`
	ReversalConfirmed bool    `json:"reversal_confirmed"`
	ReversalStrength  float64 `json:"reversal_strength"`
	VolumeConfirmed   bool    `json:"volume_confirmed"`
	ReversionPct      float64 `json:"reversion_pct"`
}

// SweepAnalysis scores a detected sweep against a signal direction.
type SweepAnalysis struct {
	Detected   bool            `json:"detected"`
	Sweep      *LiquiditySweep `json:"sweep"`
	Adjustment int             `json:"adjustment"`
}

type SweepDetector struct {
	cfg config.LiquiditySweepConfig
}

func NewSweepDetector(cfg config.LiquiditySweepConfig) *SweepDetector {
	def := config.Default().SmartMoneyConfig.LiquiditySweep
	if cfg.Lookback <= 0 {
		cfg.Lookback = def.Lookback
	}
	if cfg.RecentExclusion <= 0 {
		cfg.RecentExclusion = def.RecentExclusion
	}
	if cfg.MinBreachPct <= 0 {
		cfg.MinBreachPct = def.MinBreachPct
	}
	if cfg.MaxBreachPct <= 0 {
		cfg.MaxBreachPct = def.MaxBreachPct
	}
	if cfg.MinReversionPct <= 0 {
		cfg.MinReversionPct = def.MinReversionPct
	}
	if cfg.VolumeSpikeMult <= 0 {
		cfg.VolumeSpikeMult = def.VolumeSpikeMult
	}
	return &SweepDetector{cfg: cfg}
}

// Detect looks for a sweep of the lookback extreme within the most recent
// bars. A breach must stay inside the configured band: smaller is noise,
// larger is a genuine breakout.
func (d *SweepDetector) Detect(s *candle.Series) *LiquiditySweep {
	recent := d.cfg.RecentExclusion
	if !s.Usable(d.cfg.Lookback + recent) {
		return nil
	}

	n := s.Len()
	windowHighs := s.Highs[n-d.cfg.Lookback-recent : n-recent]
	windowLows := s.Lows[n-d.cfg.Lookback-recent : n-recent]

	swingHigh := windowHighs[0]
	swingLow := windowLows[0]
	for i := 1; i < len(windowHighs); i++ {
		if windowHighs[i] > swingHigh {
			swingHigh = windowHighs[i]
		}
		if windowLows[i] < swingLow {
			swingLow = windowLows[i]
		}
	}

	checkHighs := s.Highs[n-recent:]
	checkLows := s.Lows[n-recent:]
	checkCloses := s.Closes[n-recent:]
	checkVolumes := s.Volumes[n-recent:]

	// Sweep of the high, hunting stops above resistance.
	for i := 0; i < len(checkHighs)-1; i++ {
		if checkHighs[i] <= swingHigh {
			continue
		}
		sweepPct := (checkHighs[i] - swingHigh) / swingHigh * 100
		if sweepPct < d.cfg.MinBreachPct || sweepPct > d.cfg.MaxBreachPct {
			continue
		}
		if sw := d.checkReversal(checkCloses[i:], checkVolumes[i:], swingHigh, analysis.DirectionBearish); sw != nil {
			sw.SweepLevel = swingHigh
			sw.SweepCandleIndex = n - recent + i
			sw.Direction = SweepHigh
			return sw
		}
	}

	// Sweep of the low, hunting stops below support.
	for i := 0; i < len(checkLows)-1; i++ {
		if checkLows[i] >= swingLow {
			continue
		}
		sweepPct := (swingLow - checkLows[i]) / swingLow * 100
		if sweepPct < d.cfg.MinBreachPct || sweepPct > d.cfg.MaxBreachPct {
			continue
		}
		if sw := d.checkReversal(checkCloses[i:], checkVolumes[i:], swingLow, analysis.DirectionBullish); sw != nil {
			sw.SweepLevel = swingLow
			sw.SweepCandleIndex = n - recent + i
			sw.Direction = SweepLow
			return sw
		}
	}
	return nil
}

// checkReversal requires the latest close back past the swept level with a
// minimum reversion. Strength scales with reversion magnitude.
func (d *SweepDetector) checkReversal(closes, volumes []float64, sweepLevel float64, direction string) *LiquiditySweep {
	if len(closes) < 2 || sweepLevel <= 0 {
		return nil
	}

	current := closes[len(closes)-1]

	var reversionPct float64
	var confirmed bool
	if direction == analysis.DirectionBullish {
		reversionPct = (current - sweepLevel) / sweepLevel * 100
		confirmed = current > sweepLevel && reversionPct > d.cfg.MinReversionPct
	} else {
		reversionPct = (sweepLevel - current) / sweepLevel * 100
		confirmed = current < sweepLevel && reversionPct > d.cfg.MinReversionPct
	}
	if !confirmed {
		return nil
	}

	volumeSpike := false
	if len(volumes) >= 2 {
		avg := mean(volumes[:len(volumes)-1])
		volumeSpike = volumes[len(volumes)-1] > avg*d.cfg.VolumeSpikeMult
	}

	strength := abs(reversionPct) * 20
	if strength > 100 {
		strength = 100
	}

	return &LiquiditySweep{
		ReversalConfirmed: true,
		ReversalStrength:  strength,
		VolumeConfirmed:   volumeSpike,
		ReversionPct:      abs(reversionPct),
	}
}

// Analyze rewards a sweep that sets up the given direction and penalizes a
// mismatch.
func (d *SweepDetector) Analyze(s *candle.Series, direction string) *SweepAnalysis {
	sweep := d.Detect(s)
	if sweep == nil || !sweep.ReversalConfirmed {
		return &SweepAnalysis{}
	}

	out := &SweepAnalysis{Detected: true, Sweep: sweep}

	aligned := (direction == analysis.SideLong && sweep.Direction == SweepLow) ||
		(direction == analysis.SideShort && sweep.Direction == SweepHigh)
	if aligned {
		out.Adjustment = 15
		if sweep.VolumeConfirmed {
			out.Adjustment += 5
		}
	} else {
		out.Adjustment = -8
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
