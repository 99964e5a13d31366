package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/avolkov/sessiond/internal/config"
)

// hitScript counts a request and opens the window in one atomic step. A
// separate INCR then EXPIRE could crash in between and leave a counter with
// no TTL, rate-limiting that key forever.
var hitScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return n`)

// RateLimit returns a fixed-window limiter keyed by client IP and route,
// intended for the credential endpoints. The counter lives in Redis so the
// limit holds across instances. When limiting is disabled, no client is
// configured, or Redis misbehaves, requests pass through: the limiter guards
// against brute force, it must not become an availability hazard itself.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	windowSec := int64(cfg.Window / time.Second)
	if windowSec < 1 {
		windowSec = 1
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key := strings.Join([]string{cfg.Prefix, ip, c.Request().Method, c.Path()}, ":")
			ctx := c.Request().Context()

			n, err := hitScript.Run(ctx, rdb, []string{key}, windowSec).Int64()
			if err != nil {
				c.Logger().Warnf("rate limit: redis error for %s: %v", key, err)
				return next(c)
			}
			if n > int64(cfg.Limit) {
				retry := cfg.Window
				if ttl, err := rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
					retry = ttl
				}
				secs := int(retry / time.Second)
				if secs < 1 {
					secs = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests"})
			}
			return next(c)
		}
	}
}
