// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"
)

var (
	errSameSecrets = errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	errBadTTL      = errors.New("token TTLs must be positive and refresh TTL must not be shorter than access TTL")
	errBadLookup   = errors.New(`TOKEN_LOOKUP must be "header" or "body"`)
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable. Secrets are loaded once at startup and treated as
// immutable for the lifetime of the process; rotating a secret invalidates
// every outstanding token signed with the old one.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	AccessSecret  string        // secret used to sign access tokens
	RefreshSecret string        // secret used to sign refresh tokens; must differ from AccessSecret
	AccessTTL     time.Duration // access token lifetime
	RefreshTTL    time.Duration // refresh token lifetime
	BcryptCost    int           // bcrypt cost for password and refresh-token hashing

	// TokenLookup selects how guarded endpoints extract the access token:
	// "header" (Authorization: Bearer) or "body" (access_token form field).
	TokenLookup string

	// AllowStaleRevocation lets the local validation path treat a Redis
	// outage as "not revoked" instead of failing closed. This trades a
	// window of stale revocation-awareness for availability and applies
	// only to the in-process guard; the remote validate endpoint and the
	// refresh/logout paths always fail closed.
	AllowStaleRevocation bool
}

// Load reads configuration from environment variables. Required variables are
// enforced by must() and missing values cause the program to exit with a
// fatal log message. TTLs fall back to the recommended defaults: 900 s for
// access tokens and 7 days for refresh tokens.
func Load() Config {
	cfg := Config{
		Env:                  must("APP_ENV"),
		Port:                 must("APP_PORT"),
		DBUser:               must("DB_USER"),
		DBPass:               os.Getenv("DB_PASS"),
		DBHost:               must("DB_HOST"),
		DBPort:               must("DB_PORT"),
		DBName:               must("DB_NAME"),
		AccessSecret:         must("ACCESS_TOKEN_SECRET"),
		RefreshSecret:        must("REFRESH_TOKEN_SECRET"),
		AccessTTL:            time.Duration(envInt("ACCESS_TOKEN_TTL_SEC", 900)) * time.Second,
		RefreshTTL:           time.Duration(envInt("REFRESH_TOKEN_TTL_SEC", 604800)) * time.Second,
		BcryptCost:           envInt("BCRYPT_COST", 12),
		TokenLookup:          envStr("TOKEN_LOOKUP", "header"),
		AllowStaleRevocation: envBool("ALLOW_STALE_REVOCATION", false),
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return cfg
}

// Validate enforces invariants spanning more than one variable: distinct
// signing secrets (a leaked refresh secret must not be able to forge access
// tokens and vice versa), sensible TTLs, and a known token lookup strategy.
func (c *Config) Validate() error {
	if c.AccessSecret == c.RefreshSecret {
		return errSameSecrets
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.RefreshTTL < c.AccessTTL {
		return errBadTTL
	}
	if c.TokenLookup != "header" && c.TokenLookup != "body" {
		return errBadLookup
	}
	return nil
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "":
		return def
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return def
}
