package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env            string
	Port           string
	PublicOrigin   string
	ShareCacheAge  time.Duration
	RateLimit      RateLimitConfig
	Burst          BurstConfig
	Scorer         ScorerConfig
	Gate           GateConfig
	Redis          RedisConfig
	OTel           OTelConfig
}

type RateLimitConfig struct {
	Secret          string
	MaxDaily        int
	Timezone        string
	CookieName      string
	MemoryMaxItems  int
	FingerprintSalt string
}

type BurstConfig struct {
	RPS        int
	Size       int
	LimiterTTL time.Duration
}

type ScorerConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	CacheTTL  time.Duration
	CacheMax  int
}

type GateConfig struct {
	MaxZeroProbability float64
	Exponent           float64
}

type RedisConfig struct {
	URL string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

// Load reads configuration from the environment. In development a .env file
// in the working directory is loaded first when present.
func Load() Config {
	if getEnv("APP_ENV", "development") == "development" {
		_ = godotenv.Load()
	}

	return Config{
		Env:            getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		PublicOrigin:   getEnv("PUBLIC_ORIGIN", ""),
		ShareCacheAge:  getEnvDuration("SHARE_CACHE_AGE", time.Hour),
		RateLimit: RateLimitConfig{
			Secret:          getEnv("RATE_LIMIT_SECRET", ""),
			MaxDaily:        getEnvInt("RATE_LIMIT_MAX_DAILY", 20),
			Timezone:        getEnv("RATE_LIMIT_TIMEZONE", "Asia/Tokyo"),
			CookieName:      getEnv("RATE_LIMIT_COOKIE", "eiken_sim"),
			MemoryMaxItems:  getEnvInt("RATE_LIMIT_MEMORY_MAX", 50000),
			FingerprintSalt: getEnv("FINGERPRINT_SALT", "eikensim"),
		},
		Burst: BurstConfig{
			RPS:        getEnvInt("BURST_RPS", 2),
			Size:       getEnvInt("BURST_SIZE", 5),
			LimiterTTL: getEnvDuration("BURST_LIMITER_TTL", time.Hour),
		},
		Scorer: ScorerConfig{
			APIKey:    getEnv("GEMINI_API_KEY", ""),
			BaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
			Model:     getEnv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
			MaxTokens: getEnvInt("SCORER_MAX_TOKENS", 350),
			Timeout:   getEnvDuration("SCORER_TIMEOUT", 20*time.Second),
			CacheTTL:  getEnvDuration("SCORE_CACHE_TTL", 10*time.Minute),
			CacheMax:  getEnvInt("SCORE_CACHE_MAX", 300),
		},
		Gate: GateConfig{
			MaxZeroProbability: getEnvFloat("GATE_MAX_ZERO_PROBABILITY", 0.8),
			Exponent:           getEnvFloat("GATE_EXPONENT", 2),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "eikensim"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
	}
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

func (c ScorerConfig) Enabled() bool {
	return c.APIKey != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("invalid int in environment, using default", "key", key, "error", err, "default", fallback)
		return fallback
	}
	return i
}

func getEnvFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		slog.Warn("invalid float in environment, using default", "key", key, "error", err, "default", fallback)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "error", err, "default", fallback)
		return fallback
	}
	return d
}
