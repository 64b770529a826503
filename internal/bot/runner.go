// Package bot runs the market scan: fetch candles, analyze each symbol,
// dedupe and deliver the signals that qualify.
package bot

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/candle"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/notifier"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/signal"
)

// KlineSource supplies raw candle rows. The market client implements it;
// tests swap in a fake.
type KlineSource interface {
	FetchKlines(ctx context.Context, symbol, interval string, limit int) ([][]string, error)
	ListSymbols(ctx context.Context) ([]string, error)
}

// SignalStore persists signals and enforces the per-symbol cooldown. A nil
// store disables persistence and dedupe.
type SignalStore interface {
	SaveSignal(ctx context.Context, sig *signal.Signal) error
	CooldownActive(ctx context.Context, symbol, direction string) bool
	CachedKlines(ctx context.Context, symbol, interval string) ([][]string, error)
	CacheKlines(ctx context.Context, symbol, interval string, rows [][]string) error
}

type Runner struct {
	cfg        *config.Config
	source     KlineSource
	store      SignalStore
	notifiers  []notifier.Notifier
	normalizer *candle.Normalizer
	aggregator *signal.Aggregator
	logger     zerolog.Logger
}

func NewRunner(cfg *config.Config, source KlineSource, store SignalStore, notifiers []notifier.Notifier, logger zerolog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		source:     source,
		store:      store,
		notifiers:  notifiers,
		normalizer: candle.NewNormalizer(0, logger),
		aggregator: signal.NewAggregator(*cfg, logger),
		logger:     logger.With().Str("component", "runner").Logger(),
	}
}

// RunOnce scans every configured symbol once. Per-symbol failures are logged
// and skipped; the scan itself only fails when no symbol list is available.
func (r *Runner) RunOnce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	symbols := r.cfg.MarketConfig.Symbols
	if len(symbols) == 0 {
		var err error
		symbols, err = r.source.ListSymbols(ctx)
		if err != nil {
			return err
		}
	}

	reference := r.referenceSeries(ctx)

	workers := r.cfg.SchedulerConfig.Workers
	if workers <= 0 {
		workers = config.Default().SchedulerConfig.Workers
	}

	jobs := make(chan string)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		produced int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				if r.scanSymbol(ctx, symbol, reference) {
					mu.Lock()
					produced++
					mu.Unlock()
				}
			}
		}()
	}

	for _, symbol := range symbols {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- symbol:
		}
	}
	close(jobs)
	wg.Wait()

	r.logger.Info().
		Int("symbols", len(symbols)).
		Int("signals", produced).
		Msg("Scan complete")
	return nil
}

// scanSymbol analyzes one symbol and reports whether a signal was delivered.
func (r *Runner) scanSymbol(ctx context.Context, symbol string, reference *candle.Series) bool {
	series := r.fetchSeries(ctx, symbol)
	if series == nil {
		return false
	}

	sig := r.aggregator.Analyze(series, reference)
	if !r.aggregator.Qualifies(sig) {
		return false
	}

	if r.store != nil && r.store.CooldownActive(ctx, sig.Symbol, sig.Direction) {
		r.logger.Debug().
			Str("symbol", sig.Symbol).
			Str("direction", sig.Direction).
			Msg("Signal suppressed by cooldown")
		return false
	}

	if r.store != nil {
		if err := r.store.SaveSignal(ctx, sig); err != nil {
			r.logger.Warn().Err(err).Str("symbol", sig.Symbol).Msg("Failed to persist signal")
		}
	}

	delivered := false
	for _, n := range r.notifiers {
		if err := n.Notify(ctx, sig); err != nil {
			r.logger.Warn().Err(err).Str("symbol", sig.Symbol).Msg("Notifier failed")
			continue
		}
		delivered = true
	}
	return delivered
}

// fetchSeries loads candles for a symbol, preferring the Redis cache, and
// normalizes them. Returns nil when data cannot be obtained.
func (r *Runner) fetchSeries(ctx context.Context, symbol string) *candle.Series {
	interval := r.cfg.MarketConfig.Interval
	limit := r.cfg.MarketConfig.KlineLimit

	var rows [][]string
	if r.store != nil {
		cached, err := r.store.CachedKlines(ctx, symbol, interval)
		if err == nil && cached != nil {
			rows = cached
		}
	}

	if rows == nil {
		fetched, err := r.source.FetchKlines(ctx, symbol, interval, limit)
		if err != nil {
			r.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch klines")
			return nil
		}
		rows = fetched
		if r.store != nil {
			if err := r.store.CacheKlines(ctx, symbol, interval, rows); err != nil {
				r.logger.Debug().Err(err).Str("symbol", symbol).Msg("Failed to cache klines")
			}
		}
	}

	series := r.normalizer.Normalize(symbol, interval, rows)
	if !series.Valid {
		return nil
	}
	return series
}

// referenceSeries loads the market reference symbol used for correlation.
// A missing reference is not fatal: correlation simply stays neutral.
func (r *Runner) referenceSeries(ctx context.Context) *candle.Series {
	refSymbol := r.cfg.SignalConfig.ReferenceSymbol
	if refSymbol == "" {
		return nil
	}
	series := r.fetchSeries(ctx, refSymbol)
	if series == nil {
		r.logger.Warn().Str("symbol", refSymbol).Msg("Reference series unavailable")
	}
	return series
}
