package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/bot"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/logging"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/market"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/notifier"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.New(cfg.LoggingConfig.Level, cfg.LoggingConfig.JSONFormat)
	logger.Info().
		Str("interval", cfg.MarketConfig.Interval).
		Str("cron", cfg.SchedulerConfig.CronSpec).
		Int("symbols", len(cfg.MarketConfig.Symbols)).
		Msg("Starting signal scanner")

	client := market.NewClient(cfg.MarketConfig, logger)

	notifiers := []notifier.Notifier{notifier.NewConsoleNotifier(logger)}
	if cfg.TelegramConfig.Enabled {
		tg, err := notifier.NewTelegramNotifier(cfg.TelegramConfig, logger)
		if err != nil {
			return fmt.Errorf("initializing telegram: %w", err)
		}
		notifiers = append(notifiers, tg)
		logger.Info().Msg("Telegram notifications enabled")
	}

	// The runner takes the store through an interface; leave it as a nil
	// interface rather than a typed nil when Redis is off.
	var runnerStore bot.SignalStore
	if cfg.RedisConfig.Enabled {
		store, err := storage.NewStore(cfg.RedisConfig, logger)
		if err != nil {
			return fmt.Errorf("initializing storage: %w", err)
		}
		defer store.Close()
		runnerStore = store
	} else {
		logger.Info().Msg("Redis disabled, running without persistence and cooldowns")
	}

	runner := bot.NewRunner(cfg, client, runnerStore, notifiers, logger)

	scheduler, err := bot.NewScheduler(cfg.SchedulerConfig, runner, logger)
	if err != nil {
		return fmt.Errorf("initializing scheduler: %w", err)
	}

	// First scan right away so a fresh deploy does not idle until the
	// next cron tick.
	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	if err := runner.RunOnce(startupCtx); err != nil {
		logger.Error().Err(err).Msg("Initial scan failed")
	}
	cancel()

	scheduler.Start()
	defer scheduler.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	return nil
}
