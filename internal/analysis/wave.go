package analysis

import (
	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

// WaveState describes where price sits inside the current swing wave
// relative to the typical wave length of the series.
type WaveState struct {
	Direction      string    `json:"direction"`
	WaveLengths    []float64 `json:"wave_lengths"`
	AverageLength  float64   `json:"average_length"`
	CurrentMovePct float64   `json:"current_move_pct"`
	ProgressPct    float64   `json:"progress_pct"`
	EarlyEntry     bool      `json:"early_entry"`
	Adjustment     int       `json:"adjustment"`
}

// WaveAnalyzer measures swing-to-swing wave lengths and scores how far the
// current move has progressed against their average. Entries early in a wave
// are rewarded, entries near or past the average length are penalized.
type WaveAnalyzer struct {
	cfg config.WaveConfig
}

func NewWaveAnalyzer(cfg config.WaveConfig) *WaveAnalyzer {
	def := config.Default().WaveConfig
	if cfg.SwingWindow <= 0 {
		cfg.SwingWindow = def.SwingWindow
	}
	if cfg.AverageWaves <= 0 {
		cfg.AverageWaves = def.AverageWaves
	}
	if cfg.EarlyEntryMaxPct <= 0 {
		cfg.EarlyEntryMaxPct = def.EarlyEntryMaxPct
	}
	if cfg.DominanceWaves <= 0 {
		cfg.DominanceWaves = def.DominanceWaves
	}
	if cfg.DominanceBonus <= 0 {
		cfg.DominanceBonus = def.DominanceBonus
	}
	return &WaveAnalyzer{cfg: cfg}
}

// Analyze uses the configured number of waves for averaging.
func (a *WaveAnalyzer) Analyze(s *candle.Series) *WaveState {
	return a.AnalyzeWindow(s, a.cfg.AverageWaves)
}

// AnalyzeWindow measures against the mean of the last numWaves same-direction
// waves. Returns nil when the series is invalid, too short, or has no swings.
func (a *WaveAnalyzer) AnalyzeWindow(s *candle.Series, numWaves int) *WaveState {
	if numWaves <= 0 {
		numWaves = a.cfg.AverageWaves
	}
	if !s.Usable(2*a.cfg.SwingWindow + 10) {
		return nil
	}

	highs := SwingHighs(s.Highs, a.cfg.SwingWindow)
	lows := SwingLows(s.Lows, a.cfg.SwingWindow)
	if len(highs) == 0 && len(lows) == 0 {
		return nil
	}

	bullish := pairWaves(lows, highs, func(lowIdx, highIdx int) float64 {
		low, high := s.Lows[lowIdx], s.Highs[highIdx]
		if low <= 0 {
			return 0
		}
		return (high - low) / low * 100
	})
	bearish := pairWaves(highs, lows, func(highIdx, lowIdx int) float64 {
		high, low := s.Highs[highIdx], s.Lows[lowIdx]
		if high <= 0 {
			return 0
		}
		return (high - low) / high * 100
	})

	// The current wave runs from whichever swing came last.
	lastHigh, lastLow := -1, -1
	if len(highs) > 0 {
		lastHigh = highs[len(highs)-1]
	}
	if len(lows) > 0 {
		lastLow = lows[len(lows)-1]
	}

	price := s.LastClose()
	var direction string
	var lengths []float64
	var currentMove float64

	if lastLow >= lastHigh {
		direction = DirectionBullish
		lengths = bullish
		if s.Lows[lastLow] > 0 {
			currentMove = (price - s.Lows[lastLow]) / s.Lows[lastLow] * 100
		}
	} else {
		direction = DirectionBearish
		lengths = bearish
		if s.Highs[lastHigh] > 0 {
			currentMove = (s.Highs[lastHigh] - price) / s.Highs[lastHigh] * 100
		}
	}
	if currentMove < 0 {
		currentMove = 0
	}

	recent := lastN(lengths, numWaves)
	avg := mean(recent)

	progress := 0.0
	if avg > 0 {
		progress = currentMove / avg * 100
	}

	state := &WaveState{
		Direction:      direction,
		WaveLengths:    recent,
		AverageLength:  avg,
		CurrentMovePct: currentMove,
		ProgressPct:    progress,
		EarlyEntry:     avg > 0 && progress <= a.cfg.EarlyEntryMaxPct,
	}
	state.Adjustment = a.adjustment(state, bullish, bearish)
	return state
}

// pairWaves matches each start swing with the first opposite swing after it.
func pairWaves(starts, ends []int, length func(start, end int) float64) []float64 {
	var waves []float64
	j := 0
	for _, start := range starts {
		for j < len(ends) && ends[j] <= start {
			j++
		}
		if j >= len(ends) {
			break
		}
		if l := length(start, ends[j]); l > 0 {
			waves = append(waves, l)
		}
	}
	return waves
}

// adjustment maps wave progress onto a stepped curve and adds a dominance
// bonus when recent same-direction waves outsize the opposite ones.
func (a *WaveAnalyzer) adjustment(state *WaveState, bullish, bearish []float64) int {
	if state.AverageLength <= 0 {
		return 0
	}

	var adj int
	switch p := state.ProgressPct; {
	case p <= a.cfg.EarlyEntryMaxPct:
		adj = 15
	case p <= 60:
		adj = 8
	case p <= 80:
		adj = 0
	case p <= 100:
		adj = -8
	default:
		adj = -15
	}

	same, opposite := bullish, bearish
	if state.Direction == DirectionBearish {
		same, opposite = bearish, bullish
	}
	sameRecent := lastN(same, a.cfg.DominanceWaves)
	oppRecent := lastN(opposite, a.cfg.DominanceWaves)
	if len(sameRecent) == a.cfg.DominanceWaves && mean(sameRecent) > mean(oppRecent) {
		adj += int(a.cfg.DominanceBonus)
	}
	return adj
}

func lastN(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
