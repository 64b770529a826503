package config

import "testing"

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestValidateRejectsBadEMAPeriods(t *testing.T) {
	cfg := Default()
	cfg.TrendConfig.MediumPeriod = cfg.TrendConfig.FastPeriod

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-increasing EMA periods")
	}
}

func TestValidateRejectsEmptyBreachRange(t *testing.T) {
	cfg := Default()
	cfg.SmartMoneyConfig.LiquiditySweep.MinBreachPct = 2.0
	cfg.SmartMoneyConfig.LiquiditySweep.MaxBreachPct = 1.0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty breach range")
	}
}

func TestValidateAllowsEmptySymbolList(t *testing.T) {
	cfg := Default()
	cfg.MarketConfig.Symbols = nil

	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty symbol list means auto-discovery, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MARKET_INTERVAL", "60")
	t.Setenv("SCAN_WORKERS", "8")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Default()
	applyEnvOverrides(cfg)

	if cfg.MarketConfig.Interval != "60" {
		t.Errorf("Interval = %q, want 60", cfg.MarketConfig.Interval)
	}
	if cfg.SchedulerConfig.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.SchedulerConfig.Workers)
	}
	if !cfg.RedisConfig.Enabled {
		t.Error("RedisConfig.Enabled should be true")
	}
	if cfg.LoggingConfig.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.LoggingConfig.Level)
	}
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("SCAN_WORKERS", "not-a-number")

	cfg := Default()
	applyEnvOverrides(cfg)

	if cfg.SchedulerConfig.Workers != Default().SchedulerConfig.Workers {
		t.Errorf("Workers = %d, want default", cfg.SchedulerConfig.Workers)
	}
}

func TestMergeFromFileKeepsUnsetSections(t *testing.T) {
	dst := Default()
	src := &Config{}
	src.TrendConfig.FastPeriod = 5
	src.TrendConfig.MediumPeriod = 13
	src.TrendConfig.SlowPeriod = 34

	mergeFromFile(dst, src)

	if dst.TrendConfig.FastPeriod != 5 {
		t.Errorf("TrendConfig not merged: %+v", dst.TrendConfig)
	}
	if dst.MACDConfig != Default().MACDConfig {
		t.Errorf("unset MACD section must keep defaults: %+v", dst.MACDConfig)
	}
	if dst.MarketConfig.BaseURL != Default().MarketConfig.BaseURL {
		t.Errorf("unset market section must keep defaults: %+v", dst.MarketConfig)
	}
}
