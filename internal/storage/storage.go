// Package storage persists generated signals and caches kline data in Redis.
// Redis is optional: when it is down the store degrades and callers fall back
// to working without history or dedupe.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/signal"
)

const (
	prefixSignal   = "signal:%s"
	prefixCooldown = "cooldown:%s:%s"
	prefixKlines   = "klines:%s:%s"
)

const maxFailures = 3

// ErrDisabled is returned by NewStore when Redis is switched off in config.
var ErrDisabled = fmt.Errorf("redis is not enabled in configuration")

type Store struct {
	client    *redis.Client
	logger    zerolog.Logger
	signalTTL time.Duration
	klineTTL  time.Duration
	cooldown  time.Duration

	mu           sync.RWMutex
	healthy      bool
	failureCount int
}

// NewStore connects to Redis. A failed initial ping is not fatal: the store
// comes back in degraded mode and recovers once Redis answers again.
func NewStore(cfg config.RedisConfig, logger zerolog.Logger) (*Store, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	def := config.Default().RedisConfig
	if cfg.SignalTTLHours <= 0 {
		cfg.SignalTTLHours = def.SignalTTLHours
	}
	if cfg.KlineCacheTTLMin <= 0 {
		cfg.KlineCacheTTLMin = def.KlineCacheTTLMin
	}
	if cfg.CooldownMinutes <= 0 {
		cfg.CooldownMinutes = def.CooldownMinutes
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	s := &Store{
		client:    client,
		logger:    logger.With().Str("component", "storage").Logger(),
		signalTTL: time.Duration(cfg.SignalTTLHours) * time.Hour,
		klineTTL:  time.Duration(cfg.KlineCacheTTLMin) * time.Minute,
		cooldown:  time.Duration(cfg.CooldownMinutes) * time.Minute,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		s.logger.Warn().Err(err).Str("address", cfg.Address).Msg("Redis unreachable, store degraded")
		return s, nil
	}

	s.healthy = true
	s.logger.Info().Str("address", cfg.Address).Msg("Redis connected")
	return s, nil
}

// Healthy reports whether Redis is currently usable.
func (s *Store) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.healthy
}

func (s *Store) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failureCount++
	if s.failureCount >= maxFailures && s.healthy {
		s.logger.Warn().Int("failures", s.failureCount).Msg("Redis marked unhealthy")
		s.healthy = false
	}
}

func (s *Store) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.healthy {
		s.logger.Info().Msg("Redis recovered")
	}
	s.healthy = true
	s.failureCount = 0
}

// SaveSignal stores the signal JSON under its ID and arms the per-symbol
// cooldown for the signal's direction.
func (s *Store) SaveSignal(ctx context.Context, sig *signal.Signal) error {
	if sig == nil {
		return fmt.Errorf("nil signal")
	}

	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshaling signal: %w", err)
	}

	key := signalKey(sig.ID)
	if err := s.client.Set(ctx, key, data, s.signalTTL).Err(); err != nil {
		s.recordFailure()
		return fmt.Errorf("saving signal %s: %w", sig.ID, err)
	}

	cdKey := cooldownKey(sig.Symbol, sig.Direction)
	if err := s.client.Set(ctx, cdKey, sig.ID, s.cooldown).Err(); err != nil {
		s.recordFailure()
		return fmt.Errorf("arming cooldown for %s: %w", sig.Symbol, err)
	}

	s.recordSuccess()
	return nil
}

// GetSignal loads a stored signal by ID. Returns nil without error when the
// signal is gone or never existed.
func (s *Store) GetSignal(ctx context.Context, id string) (*signal.Signal, error) {
	data, err := s.client.Get(ctx, signalKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		s.recordFailure()
		return nil, fmt.Errorf("loading signal %s: %w", id, err)
	}

	var sig signal.Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, fmt.Errorf("unmarshaling signal %s: %w", id, err)
	}

	s.recordSuccess()
	return &sig, nil
}

// CooldownActive reports whether a signal for this symbol and direction was
// stored within the cooldown window. Errors count as inactive so a Redis
// outage never blocks signal delivery.
func (s *Store) CooldownActive(ctx context.Context, symbol, direction string) bool {
	n, err := s.client.Exists(ctx, cooldownKey(symbol, direction)).Result()
	if err != nil {
		s.recordFailure()
		return false
	}
	s.recordSuccess()
	return n > 0
}

// CacheKlines stores raw kline rows for a symbol and interval.
func (s *Store) CacheKlines(ctx context.Context, symbol, interval string, rows [][]string) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshaling klines: %w", err)
	}
	if err := s.client.Set(ctx, klineKey(symbol, interval), data, s.klineTTL).Err(); err != nil {
		s.recordFailure()
		return fmt.Errorf("caching klines for %s: %w", symbol, err)
	}
	s.recordSuccess()
	return nil
}

// CachedKlines returns previously cached rows, or nil on a cache miss.
func (s *Store) CachedKlines(ctx context.Context, symbol, interval string) ([][]string, error) {
	data, err := s.client.Get(ctx, klineKey(symbol, interval)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		s.recordFailure()
		return nil, fmt.Errorf("loading cached klines for %s: %w", symbol, err)
	}

	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshaling cached klines for %s: %w", symbol, err)
	}

	s.recordSuccess()
	return rows, nil
}

// RecentSignals scans stored signals, newest first, up to limit.
func (s *Store) RecentSignals(ctx context.Context, limit int) ([]*signal.Signal, error) {
	if limit <= 0 {
		limit = 50
	}

	var signals []*signal.Signal
	iter := s.client.Scan(ctx, 0, fmt.Sprintf(prefixSignal, "*"), 100).Iterator()
	for iter.Next(ctx) {
		id := strings.TrimPrefix(iter.Val(), fmt.Sprintf(prefixSignal, ""))
		sig, err := s.GetSignal(ctx, id)
		if err != nil {
			return nil, err
		}
		if sig != nil {
			signals = append(signals, sig)
		}
	}
	if err := iter.Err(); err != nil {
		s.recordFailure()
		return nil, fmt.Errorf("scanning signals: %w", err)
	}

	s.recordSuccess()
	sort.Slice(signals, func(i, j int) bool {
		return signals[i].CreatedAt.After(signals[j].CreatedAt)
	})
	if len(signals) > limit {
		signals = signals[:limit]
	}
	return signals, nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func signalKey(id string) string {
	return fmt.Sprintf(prefixSignal, id)
}

func cooldownKey(symbol, direction string) string {
	return fmt.Sprintf(prefixCooldown, symbol, direction)
}

func klineKey(symbol, interval string) string {
	return fmt.Sprintf(prefixKlines, symbol, interval)
}
