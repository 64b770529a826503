// Package signal aggregates every analyzer's bounded confidence adjustment
// into one scored, deliverable trading signal.
package signal

import (
	"time"

	"github.com/google/uuid"

	"github.com/whph710/Final-Trade-Bot-sub000/internal/analysis"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/levels"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/patterns"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/smartmoney"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/volumeprofile"
)

// Breakdown records every component read that contributed to the score, so a
// delivered signal can be audited after the fact.
type Breakdown struct {
	Trend         *analysis.TrendState            `json:"trend,omitempty"`
	Oscillator    *analysis.OscillatorState       `json:"oscillator,omitempty"`
	MACD          *analysis.MACDState             `json:"macd,omitempty"`
	Volume        *analysis.VolumeState           `json:"volume,omitempty"`
	Wave          *analysis.WaveState             `json:"wave,omitempty"`
	Levels        *levels.Analysis                `json:"levels,omitempty"`
	Channel       *levels.Channel                 `json:"channel,omitempty"`
	OrderBlocks   *smartmoney.OrderBlockAnalysis  `json:"order_blocks,omitempty"`
	FVG           *smartmoney.FVGAnalysis         `json:"fvg,omitempty"`
	Sweep         *smartmoney.SweepAnalysis       `json:"sweep,omitempty"`
	FalseBreakout *smartmoney.FalseBreakoutSignal `json:"false_breakout,omitempty"`
	VolumeProfile *volumeprofile.Analysis         `json:"volume_profile,omitempty"`
	Correlation   *analysis.CorrelationState      `json:"correlation,omitempty"`
	Anomaly       *analysis.CorrelationAnomaly    `json:"anomaly,omitempty"`
	Pattern       *patterns.ReversalBar           `json:"pattern,omitempty"`
}

// Signal is the aggregator's final verdict for one symbol and interval.
type Signal struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Interval  string    `json:"interval"`
	Direction string    `json:"direction"`
	Score     int       `json:"score"`
	Entry     float64   `json:"entry"`
	StopLoss  float64   `json:"stop_loss"`
	ATR       float64   `json:"atr"`
	CreatedAt time.Time `json:"created_at"`
	Breakdown Breakdown `json:"breakdown"`
}

func newSignal(symbol, interval, direction string) *Signal {
	return &Signal{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Interval:  interval,
		Direction: direction,
		CreatedAt: time.Now().UTC(),
	}
}
