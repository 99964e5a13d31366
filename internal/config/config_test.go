package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Env:           "test",
		Port:          "8080",
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		BcryptCost:    12,
		TokenLookup:   "header",
	}
}

func TestValidateOK(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	cfg.TokenLookup = "body"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsSharedSecret(t *testing.T) {
	cfg := validConfig()
	cfg.RefreshSecret = cfg.AccessSecret
	assert.ErrorIs(t, cfg.Validate(), errSameSecrets)
}

func TestValidateRejectsBadTTLs(t *testing.T) {
	cfg := validConfig()
	cfg.AccessTTL = 0
	assert.ErrorIs(t, cfg.Validate(), errBadTTL)

	cfg = validConfig()
	cfg.RefreshTTL = -time.Hour
	assert.ErrorIs(t, cfg.Validate(), errBadTTL)

	// A refresh token that outlives fewer requests than its access token
	// makes rotation pointless.
	cfg = validConfig()
	cfg.RefreshTTL = cfg.AccessTTL - time.Second
	assert.ErrorIs(t, cfg.Validate(), errBadTTL)
}

func TestValidateRejectsUnknownLookup(t *testing.T) {
	cfg := validConfig()
	cfg.TokenLookup = "cookie"
	assert.ErrorIs(t, cfg.Validate(), errBadLookup)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "sessiond")
	t.Setenv("ACCESS_TOKEN_SECRET", "a-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "r-secret")

	cfg := Load()
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "header", cfg.TokenLookup)
	assert.False(t, cfg.AllowStaleRevocation)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "sessiond")
	t.Setenv("ACCESS_TOKEN_SECRET", "a-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "r-secret")
	t.Setenv("ACCESS_TOKEN_TTL_SEC", "60")
	t.Setenv("REFRESH_TOKEN_TTL_SEC", "3600")
	t.Setenv("TOKEN_LOOKUP", "body")
	t.Setenv("ALLOW_STALE_REVOCATION", "true")

	cfg := Load()
	assert.Equal(t, time.Minute, cfg.AccessTTL)
	assert.Equal(t, time.Hour, cfg.RefreshTTL)
	assert.Equal(t, "body", cfg.TokenLookup)
	assert.True(t, cfg.AllowStaleRevocation)
}

func TestLoadRateLimitDefaults(t *testing.T) {
	cfg := LoadRateLimitConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 30, cfg.Limit)
	assert.Equal(t, time.Minute, cfg.Window)
	assert.Equal(t, "rl", cfg.Prefix)
}
