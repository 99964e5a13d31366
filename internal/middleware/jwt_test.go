package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/sessiond/internal/model"
	"github.com/avolkov/sessiond/internal/repository"
	"github.com/avolkov/sessiond/internal/token"
)

const testSecret = "guard-test-secret"

type stubRevocation struct {
	revoked bool
	err     error
}

func (s *stubRevocation) IsBlacklisted(context.Context, string) (bool, error) {
	return s.revoked, s.err
}

func issueAccess(t *testing.T) string {
	t.Helper()
	iss := token.NewIssuer(testSecret, "other-refresh-secret", 15*time.Minute, time.Hour)
	pair, err := iss.Issue(model.User{ID: 7, Email: "u@example.com", Roles: []string{"user"}})
	require.NoError(t, err)
	return pair.AccessToken
}

func echoHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get("user_id")})
}

func TestJWTAuthHeaderStrategy(t *testing.T) {
	raw := issueAccess(t)
	v := token.NewValidator(testSecret, &stubRevocation{}, false)
	mw := JWTAuth(v, ExtractorFor("header"))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, mw(echoHandler)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"7"`)
}

func TestJWTAuthBodyStrategy(t *testing.T) {
	raw := issueAccess(t)
	v := token.NewValidator(testSecret, &stubRevocation{}, false)
	mw := JWTAuth(v, ExtractorFor("body"))

	form := url.Values{"access_token": {raw}}
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/me", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, mw(echoHandler)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuthMissingToken(t *testing.T) {
	v := token.NewValidator(testSecret, &stubRevocation{}, false)
	mw := JWTAuth(v, ExtractorFor("header"))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, mw(echoHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRevokedToken(t *testing.T) {
	raw := issueAccess(t)
	v := token.NewValidator(testSecret, &stubRevocation{revoked: true}, false)
	mw := JWTAuth(v, ExtractorFor("header"))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, mw(echoHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthStoreDown(t *testing.T) {
	raw := issueAccess(t)
	storeErr := repository.ErrStoreUnavailable

	// Fail-closed guard answers 503: it cannot say the token is bad, only
	// that it cannot confirm it is good.
	strict := JWTAuth(token.NewValidator(testSecret, &stubRevocation{err: storeErr}, false), ExtractorFor("header"))
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	require.NoError(t, strict(echoHandler)(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// With stale revocation allowed the request passes.
	stale := JWTAuth(token.NewValidator(testSecret, &stubRevocation{err: errors.New("down")}, true), ExtractorFor("header"))
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	require.NoError(t, stale(echoHandler)(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.Set("roles", []string{"user", "admin"})
	require.NoError(t, RequireRole("admin")(ok)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.Set("roles", []string{"user"})
	require.NoError(t, RequireRole("admin")(ok)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// No roles in context at all.
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, RequireRole("admin")(ok)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
