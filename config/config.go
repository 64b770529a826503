package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	TrendConfig         TrendConfig         `json:"trend"`
	OscillatorConfig    OscillatorConfig    `json:"oscillator"`
	MACDConfig          MACDConfig          `json:"macd"`
	VolumeConfig        VolumeConfig        `json:"volume"`
	VolatilityConfig    VolatilityConfig    `json:"volatility"`
	WaveConfig          WaveConfig          `json:"wave"`
	LevelsConfig        LevelsConfig        `json:"levels"`
	ChannelConfig       ChannelConfig       `json:"channel"`
	SmartMoneyConfig    SmartMoneyConfig    `json:"smart_money"`
	PatternConfig       PatternConfig       `json:"patterns"`
	VolumeProfileConfig VolumeProfileConfig `json:"volume_profile"`
	CorrelationConfig   CorrelationConfig   `json:"correlation"`
	SignalConfig        SignalConfig        `json:"signal"`
	MarketConfig        MarketConfig        `json:"market"`
	RedisConfig         RedisConfig         `json:"redis"`
	TelegramConfig      TelegramConfig      `json:"telegram"`
	SchedulerConfig     SchedulerConfig     `json:"scheduler"`
	LoggingConfig       LoggingConfig       `json:"logging"`
}

// TrendConfig holds triple EMA trend analysis parameters
type TrendConfig struct {
	FastPeriod        int     `json:"fast_period"`
	MediumPeriod      int     `json:"medium_period"`
	SlowPeriod        int     `json:"slow_period"`
	MinGapPercent     float64 `json:"min_gap_percent"`
	CrossoverLookback int     `json:"crossover_lookback"`
	PullbackTolerance float64 `json:"pullback_tolerance"`
	PullbackMinVolume float64 `json:"pullback_min_volume"`
	CompressionMaxPct float64 `json:"compression_max_pct"`
	BreakoutMinVolume float64 `json:"breakout_min_volume"`
}

// OscillatorConfig holds RSI parameters
type OscillatorConfig struct {
	Period         int     `json:"period"`
	Overbought     float64 `json:"overbought"`
	Oversold       float64 `json:"oversold"`
	ExtremeHigh    float64 `json:"extreme_high"`
	ExtremeLow     float64 `json:"extreme_low"`
	DivergenceBars int     `json:"divergence_bars"`
}

type MACDConfig struct {
	FastPeriod     int     `json:"fast_period"`
	SlowPeriod     int     `json:"slow_period"`
	SignalPeriod   int     `json:"signal_period"`
	TrendBars      int     `json:"trend_bars"`
	WeakHistogram  float64 `json:"weak_histogram"`
	DivergenceBars int     `json:"divergence_bars"`
}

type VolumeConfig struct {
	AveragePeriod int     `json:"average_period"`
	TrendBars     int     `json:"trend_bars"`
	SpikeRatio    float64 `json:"spike_ratio"`
	StrongRatio   float64 `json:"strong_ratio"`
	GoodRatio     float64 `json:"good_ratio"`
	DeadRatio     float64 `json:"dead_ratio"`
	TrendDeltaPct float64 `json:"trend_delta_pct"`
}

type VolatilityConfig struct {
	ATRPeriod      int     `json:"atr_period"`
	StopMultiplier float64 `json:"stop_multiplier"`
}

// WaveConfig holds swing wave measurement parameters
type WaveConfig struct {
	SwingWindow      int     `json:"swing_window"`
	AverageWaves     int     `json:"average_waves"`
	EarlyEntryMaxPct float64 `json:"early_entry_max_pct"`
	DominanceWaves   int     `json:"dominance_waves"`
	DominanceBonus   float64 `json:"dominance_bonus"`
}

type LevelsConfig struct {
	Lookback         int     `json:"lookback"`
	SwingWindow      int     `json:"swing_window"`
	ClusterTolerance float64 `json:"cluster_tolerance"`
	MinTouches       int     `json:"min_touches"`
	StrongTouches    int     `json:"strong_touches"`
	NearDistancePct  float64 `json:"near_distance_pct"`
}

type ChannelConfig struct {
	MinDurationBars int     `json:"min_duration_bars"`
	MaxWidthPct     float64 `json:"max_width_pct"`
	TolerancePct    float64 `json:"tolerance_pct"`
	MinInsideFrac   float64 `json:"min_inside_frac"`
	MinTouches      int     `json:"min_touches"`
	MinBarsAfter    int     `json:"min_bars_after"`
	SearchStepStart int     `json:"search_step_start"`
	SearchStepSize  int     `json:"search_step_size"`
}

type SmartMoneyConfig struct {
	OrderBlock     OrderBlockConfig     `json:"order_block"`
	FairValueGap   FairValueGapConfig   `json:"fair_value_gap"`
	LiquiditySweep LiquiditySweepConfig `json:"liquidity_sweep"`
	FalseBreakout  FalseBreakoutConfig  `json:"false_breakout"`
}

type OrderBlockConfig struct {
	Lookback         int     `json:"lookback"`
	SwingWindow      int     `json:"swing_window"`
	MinImpulsePct    float64 `json:"min_impulse_pct"`
	MinImpulseBars   int     `json:"min_impulse_bars"`
	DirectionalRatio float64 `json:"directional_ratio"`
	MaxLookbackBars  int     `json:"max_lookback_bars"`
	MitigationBuffer float64 `json:"mitigation_buffer"`
}

type FairValueGapConfig struct {
	MinGapPercent float64 `json:"min_gap_percent"`
	MaxTouches    int     `json:"max_touches"`
}

type LiquiditySweepConfig struct {
	Lookback        int     `json:"lookback"`
	RecentExclusion int     `json:"recent_exclusion"`
	MinBreachPct    float64 `json:"min_breach_pct"`
	MaxBreachPct    float64 `json:"max_breach_pct"`
	MinReversionPct float64 `json:"min_reversion_pct"`
	VolumeSpikeMult float64 `json:"volume_spike_mult"`
}

type FalseBreakoutConfig struct {
	Lookback           int     `json:"lookback"`
	MinLevelAgeBars    int     `json:"min_level_age_bars"`
	BreakoutWindowBars int     `json:"breakout_window_bars"`
	ReturnWindowBars   int     `json:"return_window_bars"`
	LevelTolerancePct  float64 `json:"level_tolerance_pct"`
	ApproachMinMovePct float64 `json:"approach_min_move_pct"`
	MaxTailFracOfATR   float64 `json:"max_tail_frac_of_atr"`
}

type PatternConfig struct {
	LookbackBars int     `json:"lookback_bars"`
	MinShadowPct float64 `json:"min_shadow_pct"`
	MinClosePct  float64 `json:"min_close_pct"`
	SmallShadow  float64 `json:"small_shadow"`
	SmallBodyPct float64 `json:"small_body_pct"`
}

type VolumeProfileConfig struct {
	Bins               int     `json:"bins"`
	ValueAreaFrac      float64 `json:"value_area_frac"`
	POCStrongDistPct   float64 `json:"poc_strong_dist_pct"`
	POCModerateDistPct float64 `json:"poc_moderate_dist_pct"`
	POCWeakDistPct     float64 `json:"poc_weak_dist_pct"`
	VAOverextendedPct  float64 `json:"va_overextended_pct"`
	HVNMult            float64 `json:"hvn_mult"`
	LVNMult            float64 `json:"lvn_mult"`
}

type CorrelationConfig struct {
	Window               int     `json:"window"`
	MinFinitePairs       int     `json:"min_finite_pairs"`
	StrongThreshold      float64 `json:"strong_threshold"`
	ModerateThreshold    float64 `json:"moderate_threshold"`
	SignificantThreshold float64 `json:"significant_threshold"`
	AlignmentGate        float64 `json:"alignment_gate"`
	DecouplingMult       float64 `json:"decoupling_mult"`
	TrendWindow          int     `json:"trend_window"`
	TrendThresholdPct    float64 `json:"trend_threshold_pct"`
}

// SignalConfig gates which aggregated signals are worth delivering
type SignalConfig struct {
	MinScore        int    `json:"min_score"`
	ReferenceSymbol string `json:"reference_symbol"`
}

// MarketConfig holds exchange REST API settings
type MarketConfig struct {
	BaseURL        string   `json:"base_url"`
	Category       string   `json:"category"`
	Interval       string   `json:"interval"`
	KlineLimit     int      `json:"kline_limit"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	MaxRetries     int      `json:"max_retries"`
	Symbols        []string `json:"symbols"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`

	SignalTTLHours   int `json:"signal_ttl_hours"`
	KlineCacheTTLMin int `json:"kline_cache_ttl_min"`
	CooldownMinutes  int `json:"cooldown_minutes"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type SchedulerConfig struct {
	CronSpec string `json:"cron_spec"`
	Workers  int    `json:"workers"`
}

type LoggingConfig struct {
	Level      string `json:"level"`
	JSONFormat bool   `json:"json_format"`
}

// Default returns a Config with the calibrated analysis thresholds.
func Default() *Config {
	return &Config{
		TrendConfig: TrendConfig{
			FastPeriod:        9,
			MediumPeriod:      21,
			SlowPeriod:        50,
			MinGapPercent:     0.5,
			CrossoverLookback: 5,
			PullbackTolerance: 1.5,
			PullbackMinVolume: 1.2,
			CompressionMaxPct: 1.0,
			BreakoutMinVolume: 2.0,
		},
		OscillatorConfig: OscillatorConfig{
			Period:         14,
			Overbought:     70,
			Oversold:       30,
			ExtremeHigh:    80,
			ExtremeLow:     20,
			DivergenceBars: 10,
		},
		MACDConfig: MACDConfig{
			FastPeriod:     12,
			SlowPeriod:     26,
			SignalPeriod:   9,
			TrendBars:      5,
			WeakHistogram:  0.001,
			DivergenceBars: 10,
		},
		VolumeConfig: VolumeConfig{
			AveragePeriod: 20,
			TrendBars:     5,
			SpikeRatio:    2.0,
			StrongRatio:   1.5,
			GoodRatio:     1.2,
			DeadRatio:     0.8,
			TrendDeltaPct: 20,
		},
		VolatilityConfig: VolatilityConfig{
			ATRPeriod:      14,
			StopMultiplier: 2.0,
		},
		WaveConfig: WaveConfig{
			SwingWindow:      2,
			AverageWaves:     5,
			EarlyEntryMaxPct: 40,
			DominanceWaves:   3,
			DominanceBonus:   10,
		},
		LevelsConfig: LevelsConfig{
			Lookback:         100,
			SwingWindow:      2,
			ClusterTolerance: 0.5,
			MinTouches:       3,
			StrongTouches:    5,
			NearDistancePct:  1.0,
		},
		ChannelConfig: ChannelConfig{
			MinDurationBars: 30,
			MaxWidthPct:     5.0,
			TolerancePct:    1.0,
			MinInsideFrac:   0.8,
			MinTouches:      3,
			MinBarsAfter:    10,
			SearchStepStart: 5,
			SearchStepSize:  5,
		},
		SmartMoneyConfig: SmartMoneyConfig{
			OrderBlock: OrderBlockConfig{
				Lookback:         50,
				SwingWindow:      5,
				MinImpulsePct:    2.0,
				MinImpulseBars:   2,
				DirectionalRatio: 0.7,
				MaxLookbackBars:  5,
				MitigationBuffer: 0.01,
			},
			FairValueGap: FairValueGapConfig{
				MinGapPercent: 0.1,
				MaxTouches:    3,
			},
			LiquiditySweep: LiquiditySweepConfig{
				Lookback:        20,
				RecentExclusion: 3,
				MinBreachPct:    0.3,
				MaxBreachPct:    1.5,
				MinReversionPct: 0.5,
				VolumeSpikeMult: 1.5,
			},
			FalseBreakout: FalseBreakoutConfig{
				Lookback:           50,
				MinLevelAgeBars:    20,
				BreakoutWindowBars: 10,
				ReturnWindowBars:   10,
				LevelTolerancePct:  0.1,
				ApproachMinMovePct: 2.0,
				MaxTailFracOfATR:   0.15,
			},
		},
		PatternConfig: PatternConfig{
			LookbackBars: 5,
			MinShadowPct: 30.0,
			MinClosePct:  80.0,
			SmallShadow:  10.0,
			SmallBodyPct: 20.0,
		},
		VolumeProfileConfig: VolumeProfileConfig{
			Bins:               20,
			ValueAreaFrac:      0.70,
			POCStrongDistPct:   0.5,
			POCModerateDistPct: 1.5,
			POCWeakDistPct:     3.0,
			VAOverextendedPct:  2.0,
			HVNMult:            1.5,
			LVNMult:            0.5,
		},
		CorrelationConfig: CorrelationConfig{
			Window:               50,
			MinFinitePairs:       10,
			StrongThreshold:      0.7,
			ModerateThreshold:    0.4,
			SignificantThreshold: 0.5,
			AlignmentGate:        0.85,
			DecouplingMult:       1.5,
			TrendWindow:          20,
			TrendThresholdPct:    1.0,
		},
		SignalConfig: SignalConfig{
			MinScore:        70,
			ReferenceSymbol: "BTCUSDT",
		},
		MarketConfig: MarketConfig{
			BaseURL:        "https://api.bybit.com",
			Category:       "linear",
			Interval:       "15",
			KlineLimit:     300,
			TimeoutSeconds: 10,
			MaxRetries:     3,
			Symbols:        []string{"BTCUSDT", "ETHUSDT"},
		},
		RedisConfig: RedisConfig{
			Enabled:          false,
			Address:          "localhost:6379",
			DB:               0,
			PoolSize:         10,
			SignalTTLHours:   24,
			KlineCacheTTLMin: 5,
			CooldownMinutes:  60,
		},
		TelegramConfig: TelegramConfig{
			Enabled: false,
		},
		SchedulerConfig: SchedulerConfig{
			CronSpec: "*/15 * * * *",
			Workers:  4,
		},
		LoggingConfig: LoggingConfig{
			Level:      "info",
			JSONFormat: true,
		},
	}
}

// Load builds the runtime configuration. A config.json file overrides the
// defaults, environment variables override both. A missing file is not an
// error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if fileCfg, err := loadFromFile("config.json"); err == nil {
		mergeFromFile(cfg, fileCfg)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects parameter combinations the analyzers cannot work with.
func (c *Config) Validate() error {
	if c.TrendConfig.FastPeriod <= 0 || c.TrendConfig.MediumPeriod <= c.TrendConfig.FastPeriod || c.TrendConfig.SlowPeriod <= c.TrendConfig.MediumPeriod {
		return fmt.Errorf("trend: EMA periods must be increasing and positive, got %d/%d/%d",
			c.TrendConfig.FastPeriod, c.TrendConfig.MediumPeriod, c.TrendConfig.SlowPeriod)
	}
	if c.OscillatorConfig.Period <= 0 {
		return fmt.Errorf("oscillator: period must be positive, got %d", c.OscillatorConfig.Period)
	}
	if c.MACDConfig.FastPeriod >= c.MACDConfig.SlowPeriod {
		return fmt.Errorf("macd: fast period %d must be below slow period %d",
			c.MACDConfig.FastPeriod, c.MACDConfig.SlowPeriod)
	}
	if c.VolatilityConfig.ATRPeriod <= 0 {
		return fmt.Errorf("volatility: ATR period must be positive, got %d", c.VolatilityConfig.ATRPeriod)
	}
	if c.VolumeProfileConfig.Bins <= 0 {
		return fmt.Errorf("volume_profile: bins must be positive, got %d", c.VolumeProfileConfig.Bins)
	}
	if sw := c.SmartMoneyConfig.LiquiditySweep; sw.MinBreachPct >= sw.MaxBreachPct {
		return fmt.Errorf("liquidity_sweep: breach range [%v, %v] is empty", sw.MinBreachPct, sw.MaxBreachPct)
	}
	if c.SchedulerConfig.Workers <= 0 {
		return fmt.Errorf("scheduler: workers must be positive, got %d", c.SchedulerConfig.Workers)
	}
	// An empty symbol list is allowed: the scanner discovers symbols from
	// the exchange instead.
	return nil
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

// mergeFromFile copies sections the file actually set. JSON zero values for
// whole sections keep the defaults.
func mergeFromFile(dst, src *Config) {
	if src.TrendConfig != (TrendConfig{}) {
		dst.TrendConfig = src.TrendConfig
	}
	if src.OscillatorConfig != (OscillatorConfig{}) {
		dst.OscillatorConfig = src.OscillatorConfig
	}
	if src.MACDConfig != (MACDConfig{}) {
		dst.MACDConfig = src.MACDConfig
	}
	if src.VolumeConfig != (VolumeConfig{}) {
		dst.VolumeConfig = src.VolumeConfig
	}
	if src.VolatilityConfig != (VolatilityConfig{}) {
		dst.VolatilityConfig = src.VolatilityConfig
	}
	if src.WaveConfig != (WaveConfig{}) {
		dst.WaveConfig = src.WaveConfig
	}
	if src.LevelsConfig != (LevelsConfig{}) {
		dst.LevelsConfig = src.LevelsConfig
	}
	if src.ChannelConfig != (ChannelConfig{}) {
		dst.ChannelConfig = src.ChannelConfig
	}
	if src.SmartMoneyConfig != (SmartMoneyConfig{}) {
		dst.SmartMoneyConfig = src.SmartMoneyConfig
	}
	if src.PatternConfig != (PatternConfig{}) {
		dst.PatternConfig = src.PatternConfig
	}
	if src.VolumeProfileConfig != (VolumeProfileConfig{}) {
		dst.VolumeProfileConfig = src.VolumeProfileConfig
	}
	if src.CorrelationConfig != (CorrelationConfig{}) {
		dst.CorrelationConfig = src.CorrelationConfig
	}
	if src.SignalConfig != (SignalConfig{}) {
		dst.SignalConfig = src.SignalConfig
	}
	if src.MarketConfig.BaseURL != "" || len(src.MarketConfig.Symbols) > 0 {
		dst.MarketConfig = src.MarketConfig
	}
	if src.RedisConfig.Address != "" {
		dst.RedisConfig = src.RedisConfig
	}
	if src.TelegramConfig.BotToken != "" {
		dst.TelegramConfig = src.TelegramConfig
	}
	if src.SchedulerConfig.CronSpec != "" {
		dst.SchedulerConfig = src.SchedulerConfig
	}
	if src.LoggingConfig.Level != "" {
		dst.LoggingConfig = src.LoggingConfig
	}
}

func applyEnvOverrides(cfg *Config) {
	// Market config
	cfg.MarketConfig.BaseURL = getEnvOrDefault("MARKET_BASE_URL", cfg.MarketConfig.BaseURL)
	cfg.MarketConfig.Category = getEnvOrDefault("MARKET_CATEGORY", cfg.MarketConfig.Category)
	cfg.MarketConfig.Interval = getEnvOrDefault("MARKET_INTERVAL", cfg.MarketConfig.Interval)
	cfg.MarketConfig.KlineLimit = getEnvIntOrDefault("MARKET_KLINE_LIMIT", cfg.MarketConfig.KlineLimit)
	cfg.MarketConfig.TimeoutSeconds = getEnvIntOrDefault("MARKET_TIMEOUT_SECONDS", cfg.MarketConfig.TimeoutSeconds)
	cfg.MarketConfig.MaxRetries = getEnvIntOrDefault("MARKET_MAX_RETRIES", cfg.MarketConfig.MaxRetries)

	// Redis config
	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", cfg.RedisConfig.PoolSize)
	cfg.RedisConfig.SignalTTLHours = getEnvIntOrDefault("REDIS_SIGNAL_TTL_HOURS", cfg.RedisConfig.SignalTTLHours)
	cfg.RedisConfig.CooldownMinutes = getEnvIntOrDefault("REDIS_COOLDOWN_MINUTES", cfg.RedisConfig.CooldownMinutes)

	// Telegram config
	cfg.TelegramConfig.Enabled = getEnvBoolOrDefault("TELEGRAM_ENABLED", cfg.TelegramConfig.Enabled)
	cfg.TelegramConfig.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.TelegramConfig.BotToken)
	cfg.TelegramConfig.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.TelegramConfig.ChatID)

	// Scheduler config
	cfg.SchedulerConfig.CronSpec = getEnvOrDefault("SCAN_CRON", cfg.SchedulerConfig.CronSpec)
	cfg.SchedulerConfig.Workers = getEnvIntOrDefault("SCAN_WORKERS", cfg.SchedulerConfig.Workers)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.JSONFormat = getEnvBoolOrDefault("LOG_JSON", cfg.LoggingConfig.JSONFormat)

	// Analysis overrides kept deliberately small. Tuning lives in config.json.
	cfg.VolatilityConfig.StopMultiplier = getEnvFloatOrDefault("ATR_STOP_MULTIPLIER", cfg.VolatilityConfig.StopMultiplier)
	cfg.VolumeProfileConfig.Bins = getEnvIntOrDefault("VOLUME_PROFILE_BINS", cfg.VolumeProfileConfig.Bins)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
