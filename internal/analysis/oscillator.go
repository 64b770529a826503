package analysis

import (
	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
)

const (
	ZoneOverbought   = "OVERBOUGHT"
	ZoneOversold     = "OVERSOLD"
	ZoneOptimalLong  = "OPTIMAL_LONG"
	ZoneOptimalShort = "OPTIMAL_SHORT"
	ZoneNeutral      = "NEUTRAL"
)

// OscillatorState is the RSI snapshot for the last bar of a series.
type OscillatorState struct {
	Value      float64 `json:"value"`
	Zone       string  `json:"zone"`
	Divergence bool    `json:"divergence"`
	Adjustment int     `json:"adjustment"`
}

// RSI computes the Wilder-smoothed relative strength index. Indices before
// the seed window hold the neutral value 50; output is clipped to [0, 100].
func RSI(prices []float64, period int) []float64 {
	if period <= 0 {
		period = 14
	}
	out := make([]float64, len(prices))
	for i := range out {
		out[i] = 50.0
	}
	if len(prices) < period+1 {
		return out
	}

	gains := make([]float64, len(prices))
	losses := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	avgGain := mean(gains[1 : period+1])
	avgLoss := mean(losses[1 : period+1])
	alpha := 1.0 / float64(period)

	set := func(i int, gain, loss float64) {
		if loss != 0 {
			rs := gain / loss
			out[i] = 100 - 100/(1+rs)
		} else if gain > 0 {
			out[i] = 100
		} else {
			out[i] = 50
		}
		if out[i] < 0 {
			out[i] = 0
		}
		if out[i] > 100 {
			out[i] = 100
		}
	}

	set(period, avgGain, avgLoss)
	for i := period + 1; i < len(prices); i++ {
		avgGain = alpha*gains[i] + (1-alpha)*avgGain
		avgLoss = alpha*losses[i] + (1-alpha)*avgLoss
		set(i, avgGain, avgLoss)
	}
	return out
}

// OscillatorAnalyzer buckets RSI into zones and checks a simplified
// endpoint divergence between price and oscillator over a lookback.
type OscillatorAnalyzer struct {
	cfg config.OscillatorConfig
}

func NewOscillatorAnalyzer(cfg config.OscillatorConfig) *OscillatorAnalyzer {
	def := config.Default().OscillatorConfig
	if cfg.Period <= 0 {
		cfg.Period = def.Period
	}
	if cfg.Overbought <= 0 {
		cfg.Overbought = def.Overbought
	}
	if cfg.Oversold <= 0 {
		cfg.Oversold = def.Oversold
	}
	if cfg.ExtremeHigh <= 0 {
		cfg.ExtremeHigh = def.ExtremeHigh
	}
	if cfg.ExtremeLow <= 0 {
		cfg.ExtremeLow = def.ExtremeLow
	}
	if cfg.DivergenceBars <= 0 {
		cfg.DivergenceBars = def.DivergenceBars
	}
	return &OscillatorAnalyzer{cfg: cfg}
}

func (a *OscillatorAnalyzer) Analyze(s *candle.Series) *OscillatorState {
	if !s.Usable(a.cfg.Period + 10) {
		return nil
	}

	rsi := RSI(s.Closes, a.cfg.Period)
	current := rsi[len(rsi)-1]

	zone := a.zone(current)
	divergence := a.divergence(s.Closes, rsi)

	return &OscillatorState{
		Value:      current,
		Zone:       zone,
		Divergence: divergence,
		Adjustment: a.adjustment(current, zone, divergence),
	}
}

func (a *OscillatorAnalyzer) zone(rsi float64) string {
	switch {
	case rsi > a.cfg.Overbought:
		return ZoneOverbought
	case rsi < a.cfg.Oversold:
		return ZoneOversold
	case rsi >= 50 && rsi <= a.cfg.Overbought:
		return ZoneOptimalLong
	case rsi >= a.cfg.Oversold && rsi <= 50:
		return ZoneOptimalShort
	default:
		return ZoneNeutral
	}
}

// divergence fires when price and oscillator moved in opposite directions
// over the lookback window.
func (a *OscillatorAnalyzer) divergence(prices, rsi []float64) bool {
	lookback := a.cfg.DivergenceBars
	n := len(prices)
	if n < lookback {
		return false
	}

	priceTrend := prices[n-1] - prices[n-lookback]
	rsiTrend := rsi[n-1] - rsi[n-lookback]

	return (priceTrend < 0 && rsiTrend > 0) || (priceTrend > 0 && rsiTrend < 0)
}

func (a *OscillatorAnalyzer) adjustment(rsi float64, zone string, divergence bool) int {
	adjustment := 0

	if zone == ZoneOptimalLong || zone == ZoneOptimalShort {
		adjustment += 8
	}

	switch {
	case rsi > a.cfg.ExtremeHigh || rsi < a.cfg.ExtremeLow:
		adjustment -= 15
	case rsi > a.cfg.Overbought || rsi < a.cfg.Oversold:
		adjustment -= 8
	}

	if divergence {
		adjustment += 10
	}
	return adjustment
}
