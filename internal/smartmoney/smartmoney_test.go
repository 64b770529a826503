package smartmoney

import (
	"testing"

	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/analysis"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/levels"
)

func newTestSeries(opens, highs, lows, closes, volumes []float64) *candle.Series {
	ts := make([]int64, len(closes))
	for i := range ts {
		ts[i] = int64(i) * 900000
	}
	return &candle.Series{
		Symbol:     "BTCUSDT",
		Interval:   "15",
		Timestamps: ts,
		Opens:      opens,
		Highs:      highs,
		Lows:       lows,
		Closes:     closes,
		Volumes:    volumes,
		Valid:      true,
	}
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestFVGFullTraversalMarksFilled(t *testing.T) {
	n := 60
	opens := filled(n, 100)
	highs := filled(n, 101)
	lows := filled(n, 99)
	closes := filled(n, 100)

	// Gap between bar 30's high and bar 32's low.
	opens[30], highs[30], lows[30], closes[30] = 99.9, 100, 99, 99.8
	opens[31], highs[31], lows[31], closes[31] = 100, 103, 100, 102.5
	opens[32], highs[32], lows[32], closes[32] = 103, 104, 102.2, 103
	for i := 33; i < n; i++ {
		opens[i], highs[i], lows[i], closes[i] = 103, 104, 102.5, 103
	}
	// One bar later crosses the whole zone.
	opens[50], highs[50], lows[50], closes[50] = 103.5, 104, 99, 103

	d := NewFVGDetector(config.FairValueGapConfig{})
	gaps := d.Find(newTestSeries(opens, highs, lows, closes, filled(n, 100)))

	var gap *FairValueGap
	for i := range gaps {
		if gaps[i].Direction == analysis.DirectionBullish && gaps[i].GapLow == 100 {
			gap = &gaps[i]
		}
	}
	if gap == nil {
		t.Fatalf("bullish gap at [100, 102.2] not detected, got %d gaps", len(gaps))
	}
	if !gap.Filled {
		t.Errorf("gap crossed end to end should be filled")
	}
	if gap.FillPct != 100 {
		t.Errorf("FillPct = %v, want 100", gap.FillPct)
	}
}

func TestFVGPartialFillStaysOpen(t *testing.T) {
	n := 60
	opens := filled(n, 100)
	highs := filled(n, 101)
	lows := filled(n, 99)
	closes := filled(n, 100)

	opens[30], highs[30], lows[30], closes[30] = 99.9, 100, 99, 99.8
	opens[31], highs[31], lows[31], closes[31] = 100, 103, 100, 102.5
	opens[32], highs[32], lows[32], closes[32] = 103, 104, 102.2, 103
	for i := 33; i < n; i++ {
		opens[i], highs[i], lows[i], closes[i] = 103, 104, 102.5, 103
	}
	// 40% penetration, below the single-bar fill threshold.
	opens[50], highs[50], lows[50], closes[50] = 103.5, 104, 101.32, 103

	d := NewFVGDetector(config.FairValueGapConfig{})
	gaps := d.Find(newTestSeries(opens, highs, lows, closes, filled(n, 100)))

	var gap *FairValueGap
	for i := range gaps {
		if gaps[i].Direction == analysis.DirectionBullish && gaps[i].GapLow == 100 {
			gap = &gaps[i]
		}
	}
	if gap == nil {
		t.Fatalf("bullish gap not detected")
	}
	if gap.Filled {
		t.Errorf("40%% penetration should not mark the gap filled")
	}
	if gap.FillPct < 39 || gap.FillPct > 41 {
		t.Errorf("FillPct = %v, want ~40", gap.FillPct)
	}
	// Bar 32 sits exactly on the gap edge (low == GapHigh) and counts as a
	// touch alongside the bar 50 penetration.
	if gap.Touches != 2 {
		t.Errorf("Touches = %d, want 2", gap.Touches)
	}
}

func TestFVGRejectsInvalidSeries(t *testing.T) {
	d := NewFVGDetector(config.FairValueGapConfig{})
	if gaps := d.Find(nil); gaps != nil {
		t.Errorf("nil series should yield nil, got %v", gaps)
	}
	s := newTestSeries(filled(10, 100), filled(10, 101), filled(10, 99), filled(10, 100), filled(10, 100))
	s.Valid = false
	if gaps := d.Find(s); gaps != nil {
		t.Errorf("invalid series should yield nil, got %v", gaps)
	}
}

func sweepSeries() ([]float64, []float64, []float64, []float64, []float64) {
	n := 30
	opens := filled(n, 97.5)
	highs := filled(n, 99)
	lows := filled(n, 96)
	closes := filled(n, 98)
	volumes := filled(n, 100)

	// The extreme every stop sits above.
	highs[20] = 100

	// Breach, stall, close back under with a volume burst.
	opens[27], highs[27], lows[27], closes[27] = 98, 101, 97.5, 100.5
	opens[28], highs[28], lows[28], closes[28] = 99.8, 99.9, 99.4, 99.6
	opens[29], highs[29], lows[29], closes[29] = 99.6, 99.6, 98.8, 99.0
	volumes[29] = 1000

	return opens, highs, lows, closes, volumes
}

func TestSweepHighDetection(t *testing.T) {
	s := newTestSeries(sweepSeries())

	d := NewSweepDetector(config.LiquiditySweepConfig{})
	sweep := d.Detect(s)
	if sweep == nil {
		t.Fatalf("sweep of the swing high not detected")
	}
	if sweep.Direction != SweepHigh {
		t.Errorf("Direction = %q, want %q", sweep.Direction, SweepHigh)
	}
	if sweep.SweepLevel != 100 {
		t.Errorf("SweepLevel = %v, want 100", sweep.SweepLevel)
	}
	if sweep.SweepCandleIndex != 27 {
		t.Errorf("SweepCandleIndex = %d, want 27", sweep.SweepCandleIndex)
	}
	if !sweep.ReversalConfirmed {
		t.Errorf("reversal back under the level should be confirmed")
	}
	if sweep.ReversalStrength != 20 {
		t.Errorf("ReversalStrength = %v, want 20", sweep.ReversalStrength)
	}
	if !sweep.VolumeConfirmed {
		t.Errorf("10x volume on the reversal bar should confirm")
	}
}

func TestSweepBreachOutsideBandIgnored(t *testing.T) {
	cases := []struct {
		name string
		high float64
	}{
		{"too shallow", 100.1},
		{"too deep", 102.5},
	}
	for _, tc := range cases {
		opens, highs, lows, closes, volumes := sweepSeries()
		highs[27] = tc.high
		s := newTestSeries(opens, highs, lows, closes, volumes)

		d := NewSweepDetector(config.LiquiditySweepConfig{})
		if sweep := d.Detect(s); sweep != nil {
			t.Errorf("%s: breach of %.1f should be ignored, got %+v", tc.name, tc.high, sweep)
		}
	}
}

func TestSweepAnalyzeScoresDirection(t *testing.T) {
	s := newTestSeries(sweepSeries())
	d := NewSweepDetector(config.LiquiditySweepConfig{})

	short := d.Analyze(s, analysis.SideShort)
	if !short.Detected || short.Adjustment != 20 {
		t.Errorf("aligned short: detected=%v adjustment=%d, want true/20", short.Detected, short.Adjustment)
	}

	long := d.Analyze(s, analysis.SideLong)
	if long.Adjustment != -8 {
		t.Errorf("misaligned long: adjustment=%d, want -8", long.Adjustment)
	}
}

func TestOrderBlockBullishImpulse(t *testing.T) {
	n := 50
	closes := make([]float64, n)
	for i := 0; i <= 10; i++ {
		closes[i] = 106 - 0.6*float64(i)
	}
	closes[11], closes[12], closes[13], closes[14] = 103, 105, 105.5, 106
	for i := 15; i <= 40; i++ {
		closes[i] = 106 - 3*float64(i-14)/26
	}
	for i := 41; i < n; i++ {
		closes[i] = 103 + 0.5*float64(i-40)
	}

	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i := range closes {
		if i <= 10 || (i >= 15 && i <= 40) {
			opens[i] = closes[i] + 0.2
		} else {
			opens[i] = closes[i] - 0.2
		}
		hi, lo := opens[i], closes[i]
		if closes[i] > hi {
			hi, lo = closes[i], opens[i]
		}
		highs[i] = hi + 0.3
		lows[i] = lo - 0.3
	}

	s := newTestSeries(opens, highs, lows, closes, filled(n, 100))
	d := NewOrderBlockDetector(config.OrderBlockConfig{})

	blocks := d.Find(s)
	if len(blocks) != 1 {
		t.Fatalf("len(blocks) = %d, want 1", len(blocks))
	}
	ob := blocks[0]
	if ob.Direction != analysis.DirectionBullish {
		t.Errorf("Direction = %q, want %q", ob.Direction, analysis.DirectionBullish)
	}
	if ob.CandleIndex != 10 {
		t.Errorf("CandleIndex = %d, want 10", ob.CandleIndex)
	}
	if ob.Strength != 100 {
		t.Errorf("Strength = %v, want 100", ob.Strength)
	}
	if ob.Mitigated {
		t.Errorf("price never returned to the block, should be unmitigated")
	}

	out := d.Analyze(s, analysis.SideLong)
	if out.Nearest == nil {
		t.Fatalf("Analyze should pick the bullish block below price")
	}
	// +8 base, +5 strength, +10 unmitigated, -8 for being over 5% away.
	if out.Adjustment != 15 {
		t.Errorf("Adjustment = %d, want 15", out.Adjustment)
	}
}

func TestOrderBlockRejectsInvalidSeries(t *testing.T) {
	d := NewOrderBlockDetector(config.OrderBlockConfig{})
	if blocks := d.Find(nil); blocks != nil {
		t.Errorf("nil series should yield nil, got %v", blocks)
	}
}

func falseBreakoutSeries() ([]float64, []float64, []float64, []float64, []float64) {
	n := 80
	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	volumes := filled(n, 100)

	for i := 0; i < n; i++ {
		closes[i] = 95 + 0.055*float64(i)
		opens[i] = closes[i] - 0.1
		highs[i] = closes[i] + 0.3
		lows[i] = closes[i] - 0.3
	}
	// Oversized bars on the approach.
	for _, i := range []int{40, 42, 44, 46} {
		highs[i] = closes[i] + 1.0
		lows[i] = closes[i] - 1.0
	}
	// Wick through the level, close back under on the very next bar.
	opens[77], highs[77], lows[77], closes[77] = 99.1, 100.8, 99.0, 99.235
	volumes[77] = 300

	return opens, highs, lows, closes, volumes
}

func resistanceLevel() *levels.Level {
	return &levels.Level{
		Price:   100,
		Kind:    levels.KindResistance,
		Touches: 5,
		Indices: []int{10, 20, 30},
	}
}

func TestFalseBreakoutSimpleType(t *testing.T) {
	s := newTestSeries(falseBreakoutSeries())
	d := NewFalseBreakoutDetector(config.FalseBreakoutConfig{}, config.VolatilityConfig{})

	sig := d.Detect(s, resistanceLevel())
	if sig == nil {
		t.Fatalf("false breakout not detected")
	}
	if sig.BreakoutType != BreakoutSimple {
		t.Errorf("BreakoutType = %q, want %q", sig.BreakoutType, BreakoutSimple)
	}
	if sig.BreakoutIndex != 77 || sig.ReturnIndex != 78 {
		t.Errorf("breakout/return = %d/%d, want 77/78", sig.BreakoutIndex, sig.ReturnIndex)
	}
	if sig.EntryIndex != sig.ReturnIndex {
		t.Errorf("entry %d should be the return bar %d", sig.EntryIndex, sig.ReturnIndex)
	}
	if sig.Direction != analysis.SideShort {
		t.Errorf("Direction = %q, want %q (against the breakout)", sig.Direction, analysis.SideShort)
	}
	if sig.BreakoutDirection != BreakoutUp {
		t.Errorf("BreakoutDirection = %q, want %q", sig.BreakoutDirection, BreakoutUp)
	}
	if sig.StopLoss <= sig.LevelPrice {
		t.Errorf("short stop %v should sit above the level %v", sig.StopLoss, sig.LevelPrice)
	}
	if sig.Confidence != 100 {
		t.Errorf("Confidence = %d, want 100", sig.Confidence)
	}
}

func TestFalseBreakoutRejectsHeldBreakout(t *testing.T) {
	opens, highs, lows, closes, volumes := falseBreakoutSeries()
	// Closing beyond the level for two bars means the breakout held.
	opens[75], highs[75], lows[75], closes[75] = 99.9, 100.8, 99.5, 100.5
	opens[76], highs[76], lows[76], closes[76] = 100.5, 100.6, 100.0, 100.4
	closes[78] = 99.5
	s := newTestSeries(opens, highs, lows, closes, volumes)

	d := NewFalseBreakoutDetector(config.FalseBreakoutConfig{}, config.VolatilityConfig{})
	if sig := d.Detect(s, resistanceLevel()); sig != nil {
		t.Errorf("breakout that held above the level should be rejected, got %+v", sig)
	}
}

func TestFalseBreakoutLevelTooRecent(t *testing.T) {
	s := newTestSeries(falseBreakoutSeries())
	d := NewFalseBreakoutDetector(config.FalseBreakoutConfig{}, config.VolatilityConfig{})

	level := resistanceLevel()
	level.Indices = []int{70}
	if sig := d.Detect(s, level); sig != nil {
		t.Errorf("level aged %d bars should be rejected, got %+v", 79-70, sig)
	}
}
