package analysis

import (
	"math"
	"reflect"
	"testing"

	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

// buildSeries creates a valid series from closes, deriving OHLC around each
// close with a fixed spread and constant volume.
func buildSeries(closes []float64) *candle.Series {
	s := &candle.Series{Symbol: "TESTUSDT", Interval: "60", Valid: true}
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		high := math.Max(open, c) * 1.005
		low := math.Min(open, c) * 0.995
		s.Timestamps = append(s.Timestamps, int64(1700000000000+i*3600000))
		s.Opens = append(s.Opens, open)
		s.Highs = append(s.Highs, high)
		s.Lows = append(s.Lows, low)
		s.Closes = append(s.Closes, c)
		s.Volumes = append(s.Volumes, 1000)
	}
	return s
}

func rampSeries(n int, start, step float64) *candle.Series {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return buildSeries(closes)
}

func zigzagSeries(n int, base, amplitude float64, period int) *candle.Series {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = base + amplitude*math.Sin(2*math.Pi*float64(i)/float64(period))
	}
	return buildSeries(closes)
}

func TestRSIStaysInBounds(t *testing.T) {
	series := []*candle.Series{
		rampSeries(100, 100, 2),
		rampSeries(100, 500, -2),
		zigzagSeries(120, 100, 15, 9),
	}

	for _, s := range series {
		rsi := RSI(s.Closes, 14)
		for i, v := range rsi {
			if v < 0 || v > 100 {
				t.Fatalf("RSI out of bounds at %d: %v", i, v)
			}
		}
	}
}

func TestRSIMaxOnMonotonicRise(t *testing.T) {
	s := rampSeries(60, 100, 1)

	rsi := RSI(s.Closes, 14)

	if got := rsi[len(rsi)-1]; got < 99 {
		t.Errorf("expected RSI near 100 on a pure rise, got %v", got)
	}
}

func TestATRNonNegative(t *testing.T) {
	a := NewVolatilityAnalyzer(config.VolatilityConfig{})

	for _, s := range []*candle.Series{
		rampSeries(60, 100, 1),
		zigzagSeries(80, 100, 20, 7),
	} {
		if atr := a.ATR(s); atr < 0 {
			t.Errorf("ATR must be non-negative, got %v", atr)
		}
	}
}

func TestATRInsufficientData(t *testing.T) {
	a := NewVolatilityAnalyzer(config.VolatilityConfig{ATRPeriod: 14})

	if atr := a.ATR(rampSeries(10, 100, 1)); atr != 0 {
		t.Errorf("expected 0 ATR for short series, got %v", atr)
	}
	if atr := a.ATR(nil); atr != 0 {
		t.Errorf("expected 0 ATR for nil series, got %v", atr)
	}
}

func TestSuggestStopLoss(t *testing.T) {
	a := NewVolatilityAnalyzer(config.VolatilityConfig{StopMultiplier: 2.0})

	if stop := a.SuggestStopLoss(100, 1.5, SideLong); stop != 97 {
		t.Errorf("expected long stop 97, got %v", stop)
	}
	if stop := a.SuggestStopLoss(100, 1.5, SideShort); stop != 103 {
		t.Errorf("expected short stop 103, got %v", stop)
	}
	if stop := a.SuggestStopLoss(100, 0, SideLong); stop != 0 {
		t.Errorf("expected 0 stop for zero ATR, got %v", stop)
	}
}

func TestVolumeRatiosAlwaysPositive(t *testing.T) {
	volumes := make([]float64, 80)
	for i := range volumes {
		volumes[i] = 500 + float64(i%7)*300
	}

	ratios := VolumeRatios(volumes, 20)

	if len(ratios) != len(volumes) {
		t.Fatalf("ratio length mismatch: %d vs %d", len(ratios), len(volumes))
	}
	for i, r := range ratios {
		if r <= 0 {
			t.Fatalf("volume ratio must stay positive, got %v at %d", r, i)
		}
	}
}

func TestVolumeRatiosZeroAverageDefaults(t *testing.T) {
	volumes := make([]float64, 30)
	volumes[29] = 100 // all prior volume zero

	ratios := VolumeRatios(volumes, 20)

	if ratios[29] != 1.0 {
		t.Errorf("expected neutral ratio 1.0 on zero average, got %v", ratios[29])
	}
}

func TestTrendBullishAlignment(t *testing.T) {
	a := NewTrendAnalyzer(config.TrendConfig{})

	state := a.Analyze(rampSeries(120, 100, 1))

	if state == nil {
		t.Fatal("expected trend state")
	}
	if state.Alignment != DirectionBullish {
		t.Errorf("expected BULLISH alignment on a steady rise, got %s", state.Alignment)
	}
	if state.EMAFast <= state.EMAMedium || state.EMAMedium <= state.EMASlow {
		t.Errorf("expected fast>medium>slow, got %v/%v/%v",
			state.EMAFast, state.EMAMedium, state.EMASlow)
	}
	if state.Confidence < 0 || state.Confidence > 100 {
		t.Errorf("confidence out of bounds: %d", state.Confidence)
	}
}

func TestTrendBearishAlignment(t *testing.T) {
	a := NewTrendAnalyzer(config.TrendConfig{})

	state := a.Analyze(rampSeries(120, 500, -2))

	if state == nil {
		t.Fatal("expected trend state")
	}
	if state.Alignment != DirectionBearish {
		t.Errorf("expected BEARISH alignment on a steady fall, got %s", state.Alignment)
	}
}

func TestTrendRejectsInvalidSeries(t *testing.T) {
	a := NewTrendAnalyzer(config.TrendConfig{})

	s := rampSeries(120, 100, 1)
	s.Valid = false

	if state := a.Analyze(s); state != nil {
		t.Error("expected nil for invalid series")
	}
	if state := a.Analyze(nil); state != nil {
		t.Error("expected nil for nil series")
	}
}

func TestTrendPurity(t *testing.T) {
	a := NewTrendAnalyzer(config.TrendConfig{})
	s := zigzagSeries(150, 100, 10, 13)

	first := a.Analyze(s)
	second := a.Analyze(s)

	if !reflect.DeepEqual(first, second) {
		t.Error("repeated analysis of the same series must be identical")
	}
}

func TestOscillatorZones(t *testing.T) {
	a := NewOscillatorAnalyzer(config.OscillatorConfig{})

	up := a.Analyze(rampSeries(60, 100, 2))
	if up == nil {
		t.Fatal("expected oscillator state")
	}
	if up.Zone != ZoneOverbought {
		t.Errorf("expected OVERBOUGHT on a pure rise, got %s", up.Zone)
	}
	if up.Adjustment >= 0 {
		t.Errorf("extreme zone must penalize, got %+d", up.Adjustment)
	}

	down := a.Analyze(rampSeries(60, 500, -2))
	if down.Zone != ZoneOversold {
		t.Errorf("expected OVERSOLD on a pure fall, got %s", down.Zone)
	}
}

func TestMACDBullishTrend(t *testing.T) {
	a := NewMACDAnalyzer(config.MACDConfig{})

	// accelerating rise keeps the histogram positive and expanding
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + float64(i)*float64(i)*0.05
	}

	state := a.Analyze(buildSeries(closes))
	if state == nil {
		t.Fatal("expected MACD state")
	}
	if state.Trend != DirectionBullish {
		t.Errorf("expected BULLISH MACD trend, got %s", state.Trend)
	}
	if state.Histogram <= 0 {
		t.Errorf("expected positive histogram, got %v", state.Histogram)
	}
}

func TestMACDWeakHistogramPenalty(t *testing.T) {
	a := NewMACDAnalyzer(config.MACDConfig{})

	flat := make([]float64, 100)
	for i := range flat {
		flat[i] = 100
	}

	state := a.Analyze(buildSeries(flat))
	if state == nil {
		t.Fatal("expected MACD state")
	}
	if state.Adjustment > -8 {
		t.Errorf("flat market must take the weak-histogram penalty, got %+d", state.Adjustment)
	}
}

func TestVolumeSpikeDetection(t *testing.T) {
	a := NewVolumeAnalyzer(config.VolumeConfig{})

	s := rampSeries(60, 100, 1)
	s.Volumes[len(s.Volumes)-1] = 5000 // 5x the 1000 baseline

	state := a.Analyze(s)
	if state == nil {
		t.Fatal("expected volume state")
	}
	if !state.SpikeDetected {
		t.Error("expected spike on 5x volume")
	}
	if state.Adjustment < 15 {
		t.Errorf("spike must add the spike bonus, got %+d", state.Adjustment)
	}
}

func TestVolumeDeadPenalty(t *testing.T) {
	a := NewVolumeAnalyzer(config.VolumeConfig{})

	s := rampSeries(60, 100, 1)
	s.Volumes[len(s.Volumes)-1] = 100 // 0.1x the baseline

	state := a.Analyze(s)
	if state == nil {
		t.Fatal("expected volume state")
	}
	if state.SpikeDetected {
		t.Error("no spike expected on dead volume")
	}
	if state.Adjustment >= 0 {
		t.Errorf("dead volume must penalize, got %+d", state.Adjustment)
	}
}

func TestWaveClassifiesCurrentDirection(t *testing.T) {
	a := NewWaveAnalyzer(config.WaveConfig{})

	// repeated swings ending in a trough, so the current wave is bullish
	s := zigzagSeries(100, 100, 10, 20)

	state := a.Analyze(s)
	if state == nil {
		t.Fatal("expected wave state")
	}
	if state.Direction != DirectionBullish && state.Direction != DirectionBearish {
		t.Errorf("unexpected direction %s", state.Direction)
	}
	if state.AverageLength < 0 || state.ProgressPct < 0 {
		t.Errorf("negative wave metrics: avg=%v progress=%v", state.AverageLength, state.ProgressPct)
	}
}

func TestWavePurity(t *testing.T) {
	a := NewWaveAnalyzer(config.WaveConfig{})
	s := zigzagSeries(150, 100, 12, 17)

	first := a.Analyze(s)
	second := a.Analyze(s)

	if !reflect.DeepEqual(first, second) {
		t.Error("repeated wave analysis must be identical")
	}
}

func TestPearsonPerfectCorrelation(t *testing.T) {
	a := make([]float64, 60)
	b := make([]float64, 60)
	for i := range a {
		a[i] = float64(i)
		b[i] = float64(i)*2 + 5
	}

	corr := Pearson(a, b, 50, 10)

	if math.Abs(corr-1.0) > 1e-9 {
		t.Errorf("expected correlation 1.0, got %v", corr)
	}
}

func TestPearsonMasksNonFinite(t *testing.T) {
	a := make([]float64, 60)
	b := make([]float64, 60)
	for i := range a {
		a[i] = float64(i)
		b[i] = -float64(i)
	}
	a[55] = math.NaN()
	b[58] = math.Inf(1)

	corr := Pearson(a, b, 50, 10)

	if math.Abs(corr+1.0) > 1e-9 {
		t.Errorf("expected correlation -1.0 with masked values, got %v", corr)
	}
}

func TestPearsonDegenerateVariance(t *testing.T) {
	a := make([]float64, 60)
	b := make([]float64, 60)
	for i := range a {
		a[i] = 7 // constant
		b[i] = float64(i)
	}

	if corr := Pearson(a, b, 50, 10); corr != 0 {
		t.Errorf("expected neutral 0 for zero variance, got %v", corr)
	}
}

func TestDetectAnomalyDecoupling(t *testing.T) {
	a := NewCorrelationAnalyzer(config.CorrelationConfig{})

	strength := a.DetectAnomaly(5.0, 2.0, 0.9)
	if !strength.Detected || strength.Type != AnomalyDecouplingStrength {
		t.Errorf("expected DECOUPLING_STRENGTH, got %+v", strength)
	}
	if strength.Adjustment <= 0 {
		t.Errorf("strength anomaly must add a bonus, got %+d", strength.Adjustment)
	}

	weakness := a.DetectAnomaly(-2.0, 3.0, 0.9)
	if !weakness.Detected || weakness.Type != AnomalyDecouplingWeakness {
		t.Errorf("expected DECOUPLING_WEAKNESS, got %+v", weakness)
	}
	if weakness.Adjustment >= 0 {
		t.Errorf("weakness anomaly must penalize, got %+d", weakness.Adjustment)
	}

	none := a.DetectAnomaly(2.0, 2.0, 0.2)
	if none.Detected {
		t.Errorf("weak correlation must not flag anomalies: %+v", none)
	}
}

func TestCorrelationAlignmentGate(t *testing.T) {
	a := NewCorrelationAnalyzer(config.CorrelationConfig{})

	asset := rampSeries(80, 100, 1)
	reference := rampSeries(80, 20000, 150)

	state := a.Analyze(asset, reference, SideLong)
	if state == nil {
		t.Fatal("expected correlation state")
	}
	if state.Strength != CorrelationStrong {
		t.Errorf("two rising ramps must correlate strongly, got %s", state.Strength)
	}
	if state.RefTrend != TrendUp {
		t.Errorf("expected UP reference trend, got %s", state.RefTrend)
	}
	if state.Adjustment <= 0 {
		t.Errorf("aligned LONG above the gate must score a bonus, got %+d", state.Adjustment)
	}
}
