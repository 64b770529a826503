package levels

import (
	"testing"

	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

func newSeries(n int) *candle.Series {
	s := &candle.Series{Symbol: "TESTUSDT", Interval: "240", Valid: true}
	s.Timestamps = make([]int64, n)
	s.Opens = make([]float64, n)
	s.Highs = make([]float64, n)
	s.Lows = make([]float64, n)
	s.Closes = make([]float64, n)
	s.Volumes = make([]float64, n)
	for i := 0; i < n; i++ {
		s.Timestamps[i] = int64(1700000000000 + i*14400000)
		s.Volumes[i] = 1000
	}
	return s
}

func TestFlatTopProducesSingleResistance(t *testing.T) {
	s := newSeries(40)
	for i := 0; i < 40; i++ {
		s.Opens[i] = 95
		s.Closes[i] = 95
		s.Highs[i] = 95.0 + 0.01*float64(i) // rising baseline, no local maxima
		s.Lows[i] = 90.0 - 0.1*float64(i)   // falling lows, no local minima
	}
	// five identical spikes, each a clean local maximum
	for _, i := range []int{5, 10, 15, 20, 25} {
		s.Highs[i] = 110
	}

	d := NewDetector(config.LevelsConfig{})
	found := d.Find(s)

	if len(found) != 1 {
		t.Fatalf("expected exactly one level, got %d: %+v", len(found), found)
	}
	level := found[0]
	if level.Kind != KindResistance {
		t.Errorf("expected RESISTANCE, got %s", level.Kind)
	}
	if level.Touches != 5 {
		t.Errorf("expected 5 touches, got %d", level.Touches)
	}
	if level.Price != 110 {
		t.Errorf("expected level price 110, got %v", level.Price)
	}
	if level.Strength < 100 {
		t.Errorf("five touches must max out strength, got %v", level.Strength)
	}
}

func TestFindRejectsInvalidSeries(t *testing.T) {
	d := NewDetector(config.LevelsConfig{})

	s := newSeries(40)
	s.Valid = false

	if found := d.Find(s); found != nil {
		t.Errorf("expected nil for invalid series, got %v", found)
	}
	if found := d.Find(nil); found != nil {
		t.Errorf("expected nil for nil series, got %v", found)
	}
}

func TestTwoTouchesBelowMinimumIgnored(t *testing.T) {
	s := newSeries(40)
	for i := 0; i < 40; i++ {
		s.Opens[i] = 95
		s.Closes[i] = 95
		s.Highs[i] = 95.0 + 0.01*float64(i)
		s.Lows[i] = 90.0 - 0.1*float64(i)
	}
	s.Highs[10] = 110
	s.Highs[20] = 110

	d := NewDetector(config.LevelsConfig{MinTouches: 3})

	if found := d.Find(s); len(found) != 0 {
		t.Errorf("two touches must not form a level, got %+v", found)
	}
}

func TestAnalyzeNearSupportScoresLong(t *testing.T) {
	s := newSeries(40)
	for i := 0; i < 40; i++ {
		s.Opens[i] = 105
		s.Closes[i] = 105
		s.Highs[i] = 110.0 + 0.1*float64(i)
		s.Lows[i] = 101.0 - 0.01*float64(i)
	}
	for _, i := range []int{5, 12, 19, 26} {
		s.Lows[i] = 100
	}
	// current close just above the support cluster
	s.Closes[39] = 100.5
	s.Lows[39] = 100.3
	s.Opens[39] = 100.6
	s.Highs[39] = 114

	d := NewDetector(config.LevelsConfig{})
	a := d.Analyze(s, "LONG")

	if a == nil || a.NearestSupport == nil {
		t.Fatalf("expected a nearby support, got %+v", a)
	}
	if a.Zone != ZoneNearSupport {
		t.Errorf("expected NEAR_SUPPORT zone, got %s", a.Zone)
	}
	if a.Adjustment <= 0 {
		t.Errorf("LONG near support must score a bonus, got %+d", a.Adjustment)
	}
}

func TestChannelFinderDetectsConsolidation(t *testing.T) {
	s := newSeries(60)
	for i := 0; i < 45; i++ {
		s.Lows[i] = 100
		s.Highs[i] = 103
		s.Opens[i] = 101.5
		s.Closes[i] = 101.5
		if i%2 == 1 {
			s.Lows[i] = 100.5
			s.Highs[i] = 102.5
		}
	}
	for i := 45; i < 60; i++ {
		base := 104.0 + float64(i-45)
		s.Opens[i] = base
		s.Closes[i] = base + 0.5
		s.Highs[i] = base + 1
		s.Lows[i] = base - 0.5
	}

	f := NewChannelFinder(config.ChannelConfig{})
	ch := f.Find(s)

	if ch == nil {
		t.Fatal("expected a consolidation channel")
	}
	if ch.UpperBound != 103 || ch.LowerBound != 100 {
		t.Errorf("expected bounds [100, 103], got [%v, %v]", ch.LowerBound, ch.UpperBound)
	}
	if ch.TouchesUpper < 3 || ch.TouchesLower < 3 {
		t.Errorf("expected at least 3 touches per bound, got U=%d L=%d",
			ch.TouchesUpper, ch.TouchesLower)
	}
	if !ch.Contains(101.5, 1.0) {
		t.Error("mid price must sit inside the channel")
	}
	if ch.Contains(110, 1.0) {
		t.Error("breakout price must sit outside the channel")
	}
}

func TestChannelFinderRejectsTrend(t *testing.T) {
	s := newSeries(60)
	for i := 0; i < 60; i++ {
		base := 100.0 + float64(i)*2
		s.Opens[i] = base
		s.Closes[i] = base + 1
		s.Highs[i] = base + 1.5
		s.Lows[i] = base - 0.5
	}

	f := NewChannelFinder(config.ChannelConfig{})

	if ch := f.Find(s); ch != nil {
		t.Errorf("steep trend must not qualify as consolidation, got %+v", ch)
	}
}
