package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avolkov/sessiond/internal/middleware"
	"github.com/avolkov/sessiond/internal/repository"
	"github.com/avolkov/sessiond/internal/service"
	"github.com/avolkov/sessiond/internal/token"
)

// AuthHandler exposes the session lifecycle over HTTP: register, login,
// refresh and logout. Extract is the configured token-extraction strategy,
// shared with the guard and the validation endpoints so every surface reads
// the access token from the same place.
type AuthHandler struct {
	Sessions  *service.SessionService
	Validator *token.Validator
	Extract   middleware.TokenExtractor
}

func NewAuthHandler(s *service.SessionService, v *token.Validator, extract middleware.TokenExtractor) *AuthHandler {
	return &AuthHandler{Sessions: s, Validator: v, Extract: extract}
}

// ----- DTOs -----

type registerReq struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type logoutReq struct {
	SubjectID string `json:"subject_id"`
	TokenID   string `json:"token_id"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func sessionResp(s service.Session) authResp {
	return authResp{
		User:    userPart{ID: s.User.ID, Email: s.User.Email, Roles: s.User.Roles},
		Access:  tokenPart{Token: s.Pair.AccessToken, Expires: s.Pair.AccessExpiresAt},
		Refresh: tokenPart{Token: s.Pair.RefreshToken, Expires: s.Pair.RefreshExpiresAt},
	}
}

// mapSessionErr translates coordinator failures onto HTTP statuses: store
// outages are 503, credential failures 401, duplicates 409, everything else
// an opaque 500.
func mapSessionErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "session store unavailable"})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, service.ErrSessionExpired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session expired"})
	case errors.Is(err, service.ErrAlreadyExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	default:
		c.Logger().Errorf("session operation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// Register creates the account and returns tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	if len(req.Roles) == 0 {
		req.Roles = []string{"user"}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.Register(ctx, req.Email, req.Password, req.Roles)
	if err != nil {
		return mapSessionErr(c, err)
	}
	return c.JSON(http.StatusCreated, sessionResp(sess))
}

// Login verifies the password and returns a new pair, displacing any session
// the subject already had.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		return mapSessionErr(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp(sess))
}

// Refresh rotates the session: the presented refresh token is consumed and a
// new pair issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return mapSessionErr(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp(sess))
}

// Logout revokes the access token and closes the refresh session. The caller
// identifies the session either with an access token read through the
// configured extraction strategy, whose claims give the exact revocation
// window, or with an explicit {subject_id, token_id} body. Logout of an
// already-closed session still succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	var (
		subjectID string
		tokenID   string
		expiresAt time.Time
	)
	if raw := h.Extract(c); raw != "" {
		// Decode only: an expired or already-revoked token may still be
		// presented to close the session it belongs to.
		claims, err := h.Validator.Decode(raw)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}
		subjectID = claims.SubjectID()
		tokenID = claims.TokenID()
		expiresAt = claims.ExpiresAt.Time
	} else {
		var req logoutReq
		if err := c.Bind(&req); err != nil || strings.TrimSpace(req.SubjectID) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide an access token or subject_id"})
		}
		subjectID = strings.TrimSpace(req.SubjectID)
		tokenID = strings.TrimSpace(req.TokenID)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.Logout(ctx, subjectID, tokenID, expiresAt); err != nil {
		return mapSessionErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me echoes the authenticated identity; a minimal protected endpoint.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": c.Get("user_id"),
		"roles":   c.Get("roles"),
	})
}
