package analysis

import (
	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

// MACDSeries holds the raw convergence/divergence curves.
type MACDSeries struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACDState is the last-bar summary used for scoring.
type MACDState struct {
	Histogram  float64 `json:"histogram"`
	Trend      string  `json:"trend"`
	Crossover  bool    `json:"crossover"`
	Divergence bool    `json:"divergence"`
	Adjustment int     `json:"adjustment"`
}

// MACD computes line = EMA(fast) - EMA(slow), signal = EMA(line, signalPeriod)
// and histogram = line - signal. Series shorter than the slow period yield
// all-zero curves.
func MACD(prices []float64, fast, slow, signalPeriod int) *MACDSeries {
	zero := func() *MACDSeries {
		return &MACDSeries{
			Line:      make([]float64, len(prices)),
			Signal:    make([]float64, len(prices)),
			Histogram: make([]float64, len(prices)),
		}
	}
	if len(prices) < slow || fast <= 0 || slow <= 0 || signalPeriod <= 0 {
		return zero()
	}

	emaFast := EMA(prices, fast)
	emaSlow := EMA(prices, slow)

	line := make([]float64, len(prices))
	for i := range line {
		line[i] = emaFast[i] - emaSlow[i]
	}
	signal := emaOfDeltas(line, signalPeriod)

	histogram := make([]float64, len(prices))
	for i := range histogram {
		histogram[i] = line[i] - signal[i]
	}
	return &MACDSeries{Line: line, Signal: signal, Histogram: histogram}
}

// emaOfDeltas smooths a series that can legitimately start at or below zero,
// so it seeds from the first element instead of the first positive one.
func emaOfDeltas(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACDAnalyzer scores histogram trend, recent signal crossovers, and
// price/histogram divergence.
type MACDAnalyzer struct {
	cfg config.MACDConfig
}

func NewMACDAnalyzer(cfg config.MACDConfig) *MACDAnalyzer {
	def := config.Default().MACDConfig
	if cfg.FastPeriod <= 0 {
		cfg.FastPeriod = def.FastPeriod
	}
	if cfg.SlowPeriod <= 0 {
		cfg.SlowPeriod = def.SlowPeriod
	}
	if cfg.SignalPeriod <= 0 {
		cfg.SignalPeriod = def.SignalPeriod
	}
	if cfg.TrendBars <= 0 {
		cfg.TrendBars = def.TrendBars
	}
	if cfg.WeakHistogram <= 0 {
		cfg.WeakHistogram = def.WeakHistogram
	}
	if cfg.DivergenceBars <= 0 {
		cfg.DivergenceBars = def.DivergenceBars
	}
	return &MACDAnalyzer{cfg: cfg}
}

func (a *MACDAnalyzer) Analyze(s *candle.Series) *MACDState {
	if !s.Usable(a.cfg.SlowPeriod + 10) {
		return nil
	}

	m := MACD(s.Closes, a.cfg.FastPeriod, a.cfg.SlowPeriod, a.cfg.SignalPeriod)
	current := m.Histogram[len(m.Histogram)-1]

	trend := a.trend(m.Histogram)
	crossover := a.recentCrossover(m.Line, m.Signal)
	divergence := a.divergence(s.Closes, m.Histogram)

	return &MACDState{
		Histogram:  current,
		Trend:      trend,
		Crossover:  crossover,
		Divergence: divergence,
		Adjustment: a.adjustment(current, trend, crossover, divergence),
	}
}

// trend requires a sign-consistent histogram that is expanding away from zero
// over the lookback.
func (a *MACDAnalyzer) trend(histogram []float64) string {
	lookback := a.cfg.TrendBars
	if len(histogram) < lookback {
		return DirectionNeutral
	}
	recent := histogram[len(histogram)-lookback:]

	allPositive, allNegative := true, true
	for _, h := range recent {
		if h <= 0 {
			allPositive = false
		}
		if h >= 0 {
			allNegative = false
		}
	}
	if allPositive && recent[len(recent)-1] > recent[0] {
		return DirectionBullish
	}
	if allNegative && recent[len(recent)-1] < recent[0] {
		return DirectionBearish
	}
	return DirectionNeutral
}

func (a *MACDAnalyzer) recentCrossover(line, signal []float64) bool {
	n := len(line)
	lookback := a.cfg.TrendBars
	if n < lookback+1 {
		return false
	}

	for i := 1; i <= lookback; i++ {
		idx := n - i
		if line[idx] > signal[idx] && line[idx-1] <= signal[idx-1] {
			return true
		}
		if line[idx] < signal[idx] && line[idx-1] >= signal[idx-1] {
			return true
		}
	}
	return false
}

func (a *MACDAnalyzer) divergence(prices, histogram []float64) bool {
	lookback := a.cfg.DivergenceBars
	n := len(prices)
	if n < lookback {
		return false
	}

	priceTrend := prices[n-1] - prices[n-lookback]
	histTrend := histogram[n-1] - histogram[n-lookback]

	return (priceTrend < 0 && histTrend > 0) || (priceTrend > 0 && histTrend < 0)
}

func (a *MACDAnalyzer) adjustment(histogram float64, trend string, crossover, divergence bool) int {
	adjustment := 0

	if trend == DirectionBullish || trend == DirectionBearish {
		adjustment += 8
	}
	if crossover {
		adjustment += 10
	}
	if divergence {
		adjustment -= 12
	}
	if abs(histogram) < a.cfg.WeakHistogram {
		adjustment -= 8
	}
	return adjustment
}
