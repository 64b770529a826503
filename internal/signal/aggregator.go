package signal

import (
	"github.com/rs/zerolog"

	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/analysis"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/levels"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/patterns"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/smartmoney"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/volumeprofile"
)

// Aggregator runs every analyzer over one series and folds their bounded
// adjustments onto the trend analyzer's base confidence.
type Aggregator struct {
	cfg    config.Config
	logger zerolog.Logger

	trend         *analysis.TrendAnalyzer
	oscillator    *analysis.OscillatorAnalyzer
	macd          *analysis.MACDAnalyzer
	volume        *analysis.VolumeAnalyzer
	volatility    *analysis.VolatilityAnalyzer
	wave          *analysis.WaveAnalyzer
	correlation   *analysis.CorrelationAnalyzer
	levels        *levels.Detector
	channel       *levels.ChannelFinder
	orderBlocks   *smartmoney.OrderBlockDetector
	fvg           *smartmoney.FVGDetector
	sweep         *smartmoney.SweepDetector
	falseBreakout *smartmoney.FalseBreakoutDetector
	profile       *volumeprofile.Engine
	patterns      *patterns.Detector
}

func NewAggregator(cfg config.Config, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		cfg:           cfg,
		logger:        logger,
		trend:         analysis.NewTrendAnalyzer(cfg.TrendConfig),
		oscillator:    analysis.NewOscillatorAnalyzer(cfg.OscillatorConfig),
		macd:          analysis.NewMACDAnalyzer(cfg.MACDConfig),
		volume:        analysis.NewVolumeAnalyzer(cfg.VolumeConfig),
		volatility:    analysis.NewVolatilityAnalyzer(cfg.VolatilityConfig),
		wave:          analysis.NewWaveAnalyzer(cfg.WaveConfig),
		correlation:   analysis.NewCorrelationAnalyzer(cfg.CorrelationConfig),
		levels:        levels.NewDetector(cfg.LevelsConfig),
		channel:       levels.NewChannelFinder(cfg.ChannelConfig),
		orderBlocks:   smartmoney.NewOrderBlockDetector(cfg.SmartMoneyConfig.OrderBlock),
		fvg:           smartmoney.NewFVGDetector(cfg.SmartMoneyConfig.FairValueGap),
		sweep:         smartmoney.NewSweepDetector(cfg.SmartMoneyConfig.LiquiditySweep),
		falseBreakout: smartmoney.NewFalseBreakoutDetector(cfg.SmartMoneyConfig.FalseBreakout, cfg.VolatilityConfig),
		profile:       volumeprofile.NewEngine(cfg.VolumeProfileConfig),
		patterns:      patterns.NewDetector(cfg.PatternConfig),
	}
}

// Analyze scores one series. The reference series drives the correlation
// read and may be nil. Returns nil when the trend picture gives no
// direction to trade.
func (a *Aggregator) Analyze(s, reference *candle.Series) *Signal {
	trend := a.trend.Analyze(s)
	if trend == nil {
		return nil
	}

	var direction string
	switch trend.Alignment {
	case analysis.DirectionBullish:
		direction = analysis.SideLong
	case analysis.DirectionBearish:
		direction = analysis.SideShort
	default:
		a.logger.Debug().
			Str("symbol", s.Symbol).
			Str("interval", s.Interval).
			Msg("no directional alignment, skipping")
		return nil
	}

	sig := newSignal(s.Symbol, s.Interval, direction)
	sig.Breakdown.Trend = trend
	score := trend.Confidence

	if osc := a.oscillator.Analyze(s); osc != nil {
		sig.Breakdown.Oscillator = osc
		score += osc.Adjustment
	}
	if macd := a.macd.Analyze(s); macd != nil {
		sig.Breakdown.MACD = macd
		score += macd.Adjustment
	}
	if vol := a.volume.Analyze(s); vol != nil {
		sig.Breakdown.Volume = vol
		score += vol.Adjustment
	}
	if wave := a.wave.Analyze(s); wave != nil {
		sig.Breakdown.Wave = wave
		score += wave.Adjustment
	}

	lv := a.levels.Analyze(s, direction)
	if lv != nil {
		sig.Breakdown.Levels = lv
		score += lv.Adjustment
	}
	if ch := a.channel.Find(s); ch != nil {
		sig.Breakdown.Channel = ch
		// Price still boxed inside a consolidation argues against a
		// directional entry.
		if ch.Contains(s.LastClose(), 0) {
			score -= 5
		}
	}

	if ob := a.orderBlocks.Analyze(s, direction); ob != nil {
		sig.Breakdown.OrderBlocks = ob
		score += ob.Adjustment
	}
	if fvg := a.fvg.Analyze(s, direction); fvg != nil {
		sig.Breakdown.FVG = fvg
		score += fvg.Adjustment
	}
	if sw := a.sweep.Analyze(s, direction); sw != nil && sw.Detected {
		sig.Breakdown.Sweep = sw
		score += sw.Adjustment
	}
	if fb := a.falseBreakout.DetectAll(s, a.levels.Find(s), direction); fb != nil {
		sig.Breakdown.FalseBreakout = fb
		score += falseBreakoutAdjustment(fb, direction)
	}

	if profile := a.profile.Calculate(s); profile != nil {
		if vp := a.profile.Analyze(profile, s.LastClose()); vp != nil {
			sig.Breakdown.VolumeProfile = vp
			score += vp.Adjustment
		}
	}

	if corr := a.correlation.Analyze(s, reference, direction); corr != nil {
		sig.Breakdown.Correlation = corr
		score += corr.Adjustment

		if reference.Usable(2) {
			assetChange := analysis.PriceChangePct(s.Closes, a.cfg.CorrelationConfig.TrendWindow)
			refChange := analysis.PriceChangePct(reference.Closes, a.cfg.CorrelationConfig.TrendWindow)
			if anomaly := a.correlation.DetectAnomaly(assetChange, refChange, corr.Correlation); anomaly != nil && anomaly.Detected {
				sig.Breakdown.Anomaly = anomaly
				score += anomaly.Adjustment
			}
		}
	}

	if bar := a.confirmationBar(s, direction); bar != nil {
		sig.Breakdown.Pattern = bar
		if bar.Strength >= 80 {
			score += 8
		} else {
			score += 5
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	sig.Score = score

	sig.Entry = s.LastClose()
	sig.ATR = a.volatility.ATR(s)
	sig.StopLoss = a.stopLoss(sig)

	a.logger.Debug().
		Str("symbol", sig.Symbol).
		Str("direction", sig.Direction).
		Int("score", sig.Score).
		Msg("signal aggregated")
	return sig
}

// Qualifies reports whether a signal clears the delivery threshold.
func (a *Aggregator) Qualifies(sig *Signal) bool {
	return sig != nil && sig.Score >= a.cfg.SignalConfig.MinScore
}

func (a *Aggregator) confirmationBar(s *candle.Series, direction string) *patterns.ReversalBar {
	if direction == analysis.SideLong {
		return a.patterns.FindBuyoutBar(s)
	}
	return a.patterns.FindSelloutBar(s)
}

// stopLoss prefers the false breakout's structural stop when it agrees with
// the trade direction, otherwise falls back to the ATR multiple.
func (a *Aggregator) stopLoss(sig *Signal) float64 {
	if fb := sig.Breakdown.FalseBreakout; fb != nil && fb.Direction == sig.Direction && fb.StopLoss > 0 {
		return fb.StopLoss
	}
	return a.volatility.SuggestStopLoss(sig.Entry, sig.ATR, sig.Direction)
}

// falseBreakoutAdjustment folds a 0-100 confidence setup into the bounded
// delta the aggregate expects.
func falseBreakoutAdjustment(fb *smartmoney.FalseBreakoutSignal, direction string) int {
	if fb.Direction != direction {
		return -10
	}
	if fb.Confidence >= 80 {
		return 15
	}
	return 10
}
