package config

import (
	"os"
	"time"
)

// RateLimitConfig controls the fixed-window request limiter applied to the
// credential endpoints (register, login, refresh). When disabled, or when no
// Redis client is available, the limiter becomes a pass-through.
type RateLimitConfig struct {
	Enabled bool
	Limit   int           // attempts allowed per window
	Window  time.Duration // window length
	Prefix  string        // Redis key namespace
}

// LoadRateLimitConfig reads limiter settings from environment variables,
// applying conservative defaults suitable for credential endpoints.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Limit:   envInt("RATE_LIMIT_ATTEMPTS", 30),
		Window:  envDur("RATE_LIMIT_WINDOW", time.Minute),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return cfg
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	return def
}
