package bot

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/whph710/Final-Trade-Bot-sub000/config"
)

// Scheduler triggers scans on a cron cadence. Overlapping runs are skipped:
// a scan still in flight when the next tick fires wins over the new tick.
type Scheduler struct {
	cron    *cron.Cron
	runner  *Runner
	logger  zerolog.Logger
	timeout time.Duration
	busy    chan struct{}
}

func NewScheduler(cfg config.SchedulerConfig, runner *Runner, logger zerolog.Logger) (*Scheduler, error) {
	spec := cfg.CronSpec
	if spec == "" {
		spec = config.Default().SchedulerConfig.CronSpec
	}

	s := &Scheduler{
		cron:    cron.New(),
		runner:  runner,
		logger:  logger.With().Str("component", "scheduler").Logger(),
		timeout: 10 * time.Minute,
		busy:    make(chan struct{}, 1),
	}

	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) tick() {
	select {
	case s.busy <- struct{}{}:
	default:
		s.logger.Warn().Msg("Previous scan still running, skipping tick")
		return
	}
	defer func() { <-s.busy }()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.runner.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Scan failed")
		return
	}
	s.logger.Info().Dur("elapsed", time.Since(start)).Msg("Scheduled scan finished")
}

// Start begins the cron loop. It returns immediately.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("Scheduler started")
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}
