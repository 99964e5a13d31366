package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avolkov/sessiond/internal/middleware"
	"github.com/avolkov/sessiond/internal/token"
)

// TokenHandler serves remote token validation for other services. Both
// endpoints read the token with the configured extraction strategy, so a
// caller that can only forward form bodies works the same as one that sets
// an Authorization header.
type TokenHandler struct {
	Validator *token.Validator
	Extract   middleware.TokenExtractor
}

func NewTokenHandler(v *token.Validator, extract middleware.TokenExtractor) *TokenHandler {
	return &TokenHandler{Validator: v, Extract: extract}
}

// claimsPart is the wire shape of verified access-token claims.
type claimsPart struct {
	SubjectID string    `json:"subject_id"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	TokenID   string    `json:"token_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func claimsResp(c *token.Claims) claimsPart {
	return claimsPart{
		SubjectID: c.SubjectID(),
		Email:     c.Email,
		Roles:     c.Roles,
		TokenID:   c.TokenID(),
		IssuedAt:  c.IssuedAt.Time,
		ExpiresAt: c.ExpiresAt.Time,
	}
}

// Validate answers whether the presented access token is live. The answer is
// always a 200 verdict: a missing, forged, expired or revoked token, and even
// a revocation store outage, all normalize to {valid:false}. Callers get a
// boolean, never an error to interpret.
func (h *TokenHandler) Validate(c echo.Context) error {
	raw := h.Extract(c)
	if raw == "" {
		return c.JSON(http.StatusOK, echo.Map{"valid": false})
	}
	claims, err := h.Validator.Validate(c.Request().Context(), raw)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"valid": false})
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": true, "claims": claimsResp(claims)})
}

// User resolves the identity a live access token was issued to, from the
// token's own claims. Unlike Validate this is an authenticated read, so a
// dead token is a 401.
func (h *TokenHandler) User(c echo.Context) error {
	raw := h.Extract(c)
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing access token"})
	}
	claims, err := h.Validator.Validate(c.Request().Context(), raw)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": claimsResp(claims)})
}
