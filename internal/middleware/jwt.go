// Package middleware provides the request guards shared by protected routes:
// access-token authentication, role enforcement, and rate limiting.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/avolkov/sessiond/internal/repository"
	"github.com/avolkov/sessiond/internal/token"
)

// TokenExtractor pulls the raw access token out of a request. An empty return
// means the request carries no credential.
type TokenExtractor func(c echo.Context) string

// FromAuthHeader reads a "Bearer <token>" Authorization header.
func FromAuthHeader(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// FromForm reads the access token from the "access_token" form field.
func FromForm(c echo.Context) string {
	return strings.TrimSpace(c.FormValue("access_token"))
}

// ExtractorFor maps a configured lookup strategy name to its extractor.
// Unknown names fall back to the Authorization header.
func ExtractorFor(strategy string) TokenExtractor {
	if strategy == "body" {
		return FromForm
	}
	return FromAuthHeader
}

// JWTAuth returns a middleware that authenticates the request's access token
// through the validator and injects the verified claims into the request
// context under "claims", "user_id" and "roles". A failed revocation lookup
// is a 503 (the guard cannot confirm the token is still live), every other
// failure a 401.
func JWTAuth(v *token.Validator, extract TokenExtractor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := extract(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing access token"})
			}
			claims, err := v.Validate(c.Request().Context(), raw)
			if err != nil {
				if errors.Is(err, repository.ErrStoreUnavailable) {
					return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "token verification unavailable"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set("claims", claims)
			c.Set("user_id", claims.SubjectID())
			c.Set("roles", claims.Roles)
			return next(c)
		}
	}
}
