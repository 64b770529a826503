package signal

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/analysis"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

func rampSeries(symbol string, n int, start, step float64) *candle.Series {
	s := &candle.Series{
		Symbol:     symbol,
		Interval:   "15",
		Timestamps: make([]int64, n),
		Opens:      make([]float64, n),
		Highs:      make([]float64, n),
		Lows:       make([]float64, n),
		Closes:     make([]float64, n),
		Volumes:    make([]float64, n),
		Valid:      true,
	}
	for i := 0; i < n; i++ {
		c := start + step*float64(i)
		s.Timestamps[i] = int64(i) * 900000
		s.Opens[i] = c - 0.2
		s.Highs[i] = c + 0.4
		s.Lows[i] = c - 0.4
		s.Closes[i] = c
		s.Volumes[i] = 100
	}
	return s
}

func flatSeries(n int) *candle.Series {
	return rampSeries("FLATUSDT", n, 100, 0)
}

func TestAggregatorLongSignalOnUptrend(t *testing.T) {
	agg := NewAggregator(*config.Default(), zerolog.Nop())

	asset := rampSeries("BTCUSDT", 120, 100, 0.5)
	reference := rampSeries("ETHUSDT", 120, 2000, 4)

	sig := agg.Analyze(asset, reference)
	if sig == nil {
		t.Fatalf("steady uptrend should produce a signal")
	}
	if sig.Direction != analysis.SideLong {
		t.Errorf("Direction = %q, want %q", sig.Direction, analysis.SideLong)
	}
	if sig.Score < 0 || sig.Score > 100 {
		t.Errorf("Score = %d, want within [0, 100]", sig.Score)
	}
	if sig.Entry != asset.LastClose() {
		t.Errorf("Entry = %v, want %v", sig.Entry, asset.LastClose())
	}
	if sig.ATR <= 0 {
		t.Errorf("ATR = %v, want positive", sig.ATR)
	}
	if sig.StopLoss <= 0 || sig.StopLoss >= sig.Entry {
		t.Errorf("long stop %v should sit below entry %v", sig.StopLoss, sig.Entry)
	}
	if sig.ID == "" {
		t.Errorf("signal ID should be set")
	}
	if sig.CreatedAt.IsZero() {
		t.Errorf("CreatedAt should be set")
	}
	if sig.Breakdown.Trend == nil || sig.Breakdown.Trend.Alignment != analysis.DirectionBullish {
		t.Errorf("breakdown should record the bullish trend state")
	}
}

func TestAggregatorShortSignalOnDowntrend(t *testing.T) {
	agg := NewAggregator(*config.Default(), zerolog.Nop())

	asset := rampSeries("SOLUSDT", 120, 200, -0.5)
	sig := agg.Analyze(asset, nil)
	if sig == nil {
		t.Fatalf("steady downtrend should produce a signal")
	}
	if sig.Direction != analysis.SideShort {
		t.Errorf("Direction = %q, want %q", sig.Direction, analysis.SideShort)
	}
	if sig.StopLoss <= sig.Entry {
		t.Errorf("short stop %v should sit above entry %v", sig.StopLoss, sig.Entry)
	}
}

func TestAggregatorNeutralTrendYieldsNoSignal(t *testing.T) {
	agg := NewAggregator(*config.Default(), zerolog.Nop())

	if sig := agg.Analyze(flatSeries(120), nil); sig != nil {
		t.Errorf("flat series has no direction, got %+v", sig)
	}
}

func TestAggregatorInsufficientData(t *testing.T) {
	agg := NewAggregator(*config.Default(), zerolog.Nop())

	if sig := agg.Analyze(rampSeries("BTCUSDT", 30, 100, 0.5), nil); sig != nil {
		t.Errorf("30 bars is below the trend minimum, got %+v", sig)
	}
	if sig := agg.Analyze(nil, nil); sig != nil {
		t.Errorf("nil series should yield nil signal")
	}
}

func TestQualifies(t *testing.T) {
	cfg := config.Default()
	agg := NewAggregator(*cfg, zerolog.Nop())

	if agg.Qualifies(nil) {
		t.Errorf("nil signal must not qualify")
	}
	if agg.Qualifies(&Signal{Score: cfg.SignalConfig.MinScore - 1}) {
		t.Errorf("score below threshold must not qualify")
	}
	if !agg.Qualifies(&Signal{Score: cfg.SignalConfig.MinScore}) {
		t.Errorf("score at threshold must qualify")
	}
}
