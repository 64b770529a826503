package storage

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/whph710/Final-Trade-Bot-sub000/config"
)

func unreachableStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default().RedisConfig
	cfg.Enabled = true
	// Port 1 is never a Redis server; connection is refused immediately.
	cfg.Address = "127.0.0.1:1"
	s, err := NewStore(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStoreDisabled(t *testing.T) {
	cfg := config.Default().RedisConfig
	cfg.Enabled = false

	if _, err := NewStore(cfg, zerolog.Nop()); err != ErrDisabled {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestNewStoreDegradesWhenUnreachable(t *testing.T) {
	s := unreachableStore(t)
	if s.Healthy() {
		t.Error("store should start degraded when Redis is unreachable")
	}
}

func TestCooldownFailsOpen(t *testing.T) {
	s := unreachableStore(t)
	if s.CooldownActive(context.Background(), "BTCUSDT", "LONG") {
		t.Error("cooldown must report inactive when Redis is down")
	}
}

func TestKeyLayout(t *testing.T) {
	if got := signalKey("abc"); got != "signal:abc" {
		t.Errorf("signalKey = %q", got)
	}
	if got := cooldownKey("BTCUSDT", "LONG"); got != "cooldown:BTCUSDT:LONG" {
		t.Errorf("cooldownKey = %q", got)
	}
	if got := klineKey("ETHUSDT", "15"); got != "klines:ETHUSDT:15" {
		t.Errorf("klineKey = %q", got)
	}
}
