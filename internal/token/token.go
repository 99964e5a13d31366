// Package token mints and validates the paired session credentials: a
// short-lived access token carrying full identity claims and a longer-lived
// refresh token carrying only the subject and the shared per-issuance id.
// Access and refresh tokens are signed with distinct secrets so that a
// leaked refresh secret cannot forge access tokens and vice versa.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/avolkov/sessiond/internal/model"
)

// Claims is the explicit, exhaustively validated payload of an access token.
// TokenID (jti) is generated fresh on every issuance and is the unit of
// revocation. Claims are created at issuance and never mutated.
type Claims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// SubjectID returns the subject identifier (the "sub" claim).
func (c *Claims) SubjectID() string { return c.Subject }

// TokenID returns the unique token identifier (the "jti" claim).
func (c *Claims) TokenID() string { return c.ID }

// refreshClaims is the minimal refresh-token payload: subject, expiry, and
// the issuance id. The id is what makes two issuances for the same subject
// distinct tokens: exp alone has one-second precision, so without it a
// back-to-back rotation could mint a byte-identical token and the old one
// would keep matching the stored hash.
type refreshClaims struct {
	jwt.RegisteredClaims
}

// Pair bundles one issuance: a matched access/refresh token pair bound to a
// single subject and token identifier.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	TokenID          string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Issuer mints token pairs. It is stateless apart from its signing secrets;
// persisting the refresh-token hash belongs to the session coordinator.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewIssuer builds an Issuer from the configured secrets and lifetimes.
func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// Issue mints a fresh access/refresh pair for the given subject. The access
// token embeds {sub, email, roles, jti, iat, exp}; the refresh token only
// {sub, jti, exp}. Both sides carry the same jti, so every issuance is a
// distinct pair of byte-unique tokens.
func (i *Issuer) Issue(u model.User) (Pair, error) {
	now := time.Now().UTC()
	jti := uuid.NewString()
	sub := strconv.FormatUint(u.ID, 10)
	accessExp := now.Add(i.accessTTL)
	refreshExp := now.Add(i.refreshTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: u.Email,
		Roles: u.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	})
	signedAccess, err := access.SignedString(i.accessSecret)
	if err != nil {
		return Pair{}, err
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	})
	signedRefresh, err := refresh.SignedString(i.refreshSecret)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:      signedAccess,
		RefreshToken:     signedRefresh,
		TokenID:          jti,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// ParseRefresh verifies a refresh token's signature and expiry against the
// refresh secret and returns the subject identifier it was issued to. Any
// defect (malformed structure, wrong secret, expired) yields
// ErrSignatureInvalid or ErrExpired.
func (i *Issuer) ParseRefresh(raw string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	var claims refreshClaims
	_, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return i.refreshSecret, nil
	})
	if err != nil {
		return "", ErrSignatureInvalid
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return "", ErrSignatureInvalid
	}
	if time.Now().After(claims.ExpiresAt.Time) {
		return "", ErrExpired
	}
	return claims.Subject, nil
}

// AccessTTL exposes the configured access-token lifetime; the coordinator
// uses it as the safe upper bound for revocation-entry TTLs.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

var (
	// ErrSignatureInvalid means the token is malformed or its signature
	// does not verify against the expected secret.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrExpired means the token's expiry has passed.
	ErrExpired = errors.New("token expired")
	// ErrRevoked means the token's identifier is in the revocation set.
	ErrRevoked = errors.New("token revoked")
)
