package token

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RevocationChecker reports whether a token identifier has been revoked.
// Implemented by the Redis-backed token repository.
type RevocationChecker interface {
	IsBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

// Validator verifies presented access tokens. Checks run in a fixed order,
// short-circuiting on the first failure: signature, then expiry, then
// revocation. The first two are local and cheap, so malformed or expired
// tokens never incur a store round-trip.
type Validator struct {
	secret     []byte
	revocation RevocationChecker
	allowStale bool
}

// NewValidator builds a Validator over the access secret and revocation set.
// allowStale relaxes only the revocation step: on a store error the token is
// accepted with possibly stale revocation-awareness. Leave it false anywhere
// correctness of logout matters; it exists as an explicit availability
// tradeoff for the high-throughput local read path.
func NewValidator(accessSecret string, revocation RevocationChecker, allowStale bool) *Validator {
	return &Validator{
		secret:     []byte(accessSecret),
		revocation: revocation,
		allowStale: allowStale,
	}
}

// Validate runs the full three-step check and returns the decoded claims on
// success. Failures are ErrSignatureInvalid, ErrExpired, ErrRevoked, or a
// wrapped store error when revocation could not be confirmed.
func (v *Validator) Validate(ctx context.Context, raw string) (*Claims, error) {
	claims, err := v.Decode(raw)
	if err != nil {
		return nil, err
	}
	if time.Now().After(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}
	revoked, err := v.revocation.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		if v.allowStale {
			return claims, nil
		}
		return nil, fmt.Errorf("revocation check: %w", err)
	}
	if revoked {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Decode verifies signature and claim shape only, skipping expiry and
// revocation. Logout uses it to read sub/jti/exp out of a token that may be
// moments from expiring.
func (v *Validator) Decode(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	claims := &Claims{}
	_, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, ErrSignatureInvalid
	}
	// Reject tokens whose decoded shape does not match exactly what Issue
	// produces. An access token with missing identity claims is treated the
	// same as a forged one.
	if claims.Subject == "" || claims.ID == "" || claims.Email == "" ||
		claims.ExpiresAt == nil || claims.IssuedAt == nil || claims.Roles == nil {
		return nil, ErrSignatureInvalid
	}
	return claims, nil
}
