package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRevocation is a scripted RevocationChecker that records whether it was
// consulted.
type fakeRevocation struct {
	revoked map[string]bool
	err     error
	calls   int
}

func (f *fakeRevocation) IsBlacklisted(_ context.Context, tokenID string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.revoked[tokenID], nil
}

func TestValidateOK(t *testing.T) {
	iss := newTestIssuer(15*time.Minute, 24*time.Hour)
	pair, err := iss.Issue(testUser())
	require.NoError(t, err)

	rev := &fakeRevocation{}
	v := NewValidator(testAccessSecret, rev, false)

	claims, err := v.Validate(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, pair.TokenID, claims.TokenID())
	assert.Equal(t, 1, rev.calls)
}

func TestValidateWrongSecret(t *testing.T) {
	iss := newTestIssuer(15*time.Minute, 24*time.Hour)
	pair, err := iss.Issue(testUser())
	require.NoError(t, err)

	rev := &fakeRevocation{}
	v := NewValidator("a-different-secret", rev, false)

	_, err = v.Validate(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
	assert.Zero(t, rev.calls)
}

func TestValidateExpiredSkipsStore(t *testing.T) {
	iss := newTestIssuer(-time.Minute, 24*time.Hour)
	pair, err := iss.Issue(testUser())
	require.NoError(t, err)

	rev := &fakeRevocation{}
	v := NewValidator(testAccessSecret, rev, false)

	_, err = v.Validate(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpired)
	// Expiry is a local check; an expired token must never cost a store
	// round-trip.
	assert.Zero(t, rev.calls)
}

func TestValidateRevoked(t *testing.T) {
	iss := newTestIssuer(15*time.Minute, 24*time.Hour)
	pair, err := iss.Issue(testUser())
	require.NoError(t, err)

	rev := &fakeRevocation{revoked: map[string]bool{pair.TokenID: true}}
	v := NewValidator(testAccessSecret, rev, false)

	_, err = v.Validate(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestValidateStoreDownFailsClosed(t *testing.T) {
	iss := newTestIssuer(15*time.Minute, 24*time.Hour)
	pair, err := iss.Issue(testUser())
	require.NoError(t, err)

	storeErr := errors.New("connection refused")
	v := NewValidator(testAccessSecret, &fakeRevocation{err: storeErr}, false)

	_, err = v.Validate(context.Background(), pair.AccessToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
}

func TestValidateStoreDownAllowStale(t *testing.T) {
	iss := newTestIssuer(15*time.Minute, 24*time.Hour)
	pair, err := iss.Issue(testUser())
	require.NoError(t, err)

	v := NewValidator(testAccessSecret, &fakeRevocation{err: errors.New("connection refused")}, true)

	claims, err := v.Validate(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, pair.TokenID, claims.TokenID())
}

func TestDecodeRejectsMissingClaims(t *testing.T) {
	v := NewValidator(testAccessSecret, nil, false)
	now := time.Now().UTC()

	cases := map[string]Claims{
		"no subject": {
			Email: "u@example.com",
			Roles: []string{"user"},
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        "jti-1",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
		},
		"no token id": {
			Email: "u@example.com",
			Roles: []string{"user"},
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "42",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
		},
		"no expiry": {
			Email: "u@example.com",
			Roles: []string{"user"},
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:  "42",
				ID:       "jti-1",
				IssuedAt: jwt.NewNumericDate(now),
			},
		},
		"no roles": {
			Email: "u@example.com",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "42",
				ID:        "jti-1",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
		},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
			require.NoError(t, err)

			_, err = v.Decode(raw)
			assert.ErrorIs(t, err, ErrSignatureInvalid)
		})
	}
}

func TestDecodeRejectsUnsignedAlg(t *testing.T) {
	v := NewValidator(testAccessSecret, nil, false)
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "42"})
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Decode(raw)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}
