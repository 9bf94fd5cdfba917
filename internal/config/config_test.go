package config

import (
	"testing"
	"time"
)

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "2s")
	if got := getEnvDuration("TEST_DURATION", time.Second); got != 2*time.Second {
		t.Errorf("getEnvDuration = %v, want 2s", got)
	}
	t.Setenv("TEST_DURATION", "notaduration")
	if got := getEnvDuration("TEST_DURATION", 3*time.Second); got != 3*time.Second {
		t.Errorf("getEnvDuration fallback = %v, want 3s", got)
	}
	if got := getEnvDuration("TEST_DURATION_UNSET", 4*time.Second); got != 4*time.Second {
		t.Errorf("getEnvDuration fallback unset = %v, want 4s", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if got := getEnvInt("TEST_INT", 7); got != 42 {
		t.Errorf("getEnvInt = %d, want 42", got)
	}
	t.Setenv("TEST_INT", "notanint")
	if got := getEnvInt("TEST_INT", 8); got != 8 {
		t.Errorf("getEnvInt fallback = %d, want 8", got)
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT", "0.5")
	if got := getEnvFloat("TEST_FLOAT", 1); got != 0.5 {
		t.Errorf("getEnvFloat = %v, want 0.5", got)
	}
	t.Setenv("TEST_FLOAT", "x")
	if got := getEnvFloat("TEST_FLOAT", 1); got != 1 {
		t.Errorf("getEnvFloat fallback = %v, want 1", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("RATE_LIMIT_MAX_DAILY", "")
	t.Setenv("REDIS_URL", "")

	cfg := Load()
	if !cfg.IsProduction() {
		t.Errorf("expected production env")
	}
	if cfg.RateLimit.MaxDaily != 20 {
		t.Errorf("MaxDaily = %d, want 20", cfg.RateLimit.MaxDaily)
	}
	if cfg.RateLimit.Timezone != "Asia/Tokyo" {
		t.Errorf("Timezone = %q", cfg.RateLimit.Timezone)
	}
	if cfg.Redis.Enabled() {
		t.Errorf("redis should be disabled without REDIS_URL")
	}
	if cfg.Scorer.CacheTTL != 10*time.Minute || cfg.Scorer.CacheMax != 300 {
		t.Errorf("unexpected cache defaults: %v %d", cfg.Scorer.CacheTTL, cfg.Scorer.CacheMax)
	}
}
