// Package router wires HTTP routes to handlers and applies the per-route
// middleware chains.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/avolkov/sessiond/internal/config"
	"github.com/avolkov/sessiond/internal/handler"
	"github.com/avolkov/sessiond/internal/middleware"
	"github.com/avolkov/sessiond/internal/token"
)

// RegisterRoutes registers routes that require no authentication. Currently
// that is only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the session lifecycle and token validation routes.
//
// The credential endpoints (register, login, refresh) sit behind the rate
// limiter; they are the brute-force surface. The validation endpoints are
// unguarded because they already do nothing but verify a token. Protected
// routes under /v1 run the full local guard.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, t *handler.TokenHandler, guard *token.Validator, cfg config.Config, rl config.RateLimitConfig, rdb *redis.Client) {
	limited := middleware.RateLimit(rl, rdb)
	extract := middleware.ExtractorFor(cfg.TokenLookup)

	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, limited)
	g.POST("/login", a.Login, limited)
	g.POST("/refresh", a.Refresh, limited)
	g.POST("/logout", a.Logout)

	// Remote validation surface for other services.
	g.POST("/validate", t.Validate)
	g.GET("/user", t.User)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(guard, extract))
	auth.GET("/me", a.Me)
	auth.GET("/admin/ping", handler.Health, middleware.RequireRole("admin"))
}
