package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRepo is the token store: a Redis-backed keyspace holding (a) the
// current refresh-token hash per subject and (b) the revocation set of
// blacklisted token identifiers. Every operation is a single Redis command,
// so it is atomic per key and idempotent; all expiry is delegated to Redis
// TTLs and no engine-side sweeping exists.
//
// The single-record-per-subject invariant falls out of the key scheme:
// PutRefresh overwrites refresh:<subject>, so a new issuance implicitly
// invalidates the previous refresh token even if it has not expired.
type TokenRepo struct {
	rdb *redis.Client
}

// NewTokenRepo constructs a TokenRepo over an established Redis client.
func NewTokenRepo(rdb *redis.Client) *TokenRepo { return &TokenRepo{rdb: rdb} }

func refreshKey(subjectID string) string { return "refresh:" + subjectID }
func revokedKey(tokenID string) string   { return "revoked:" + tokenID }

// PutRefresh stores the refresh-token hash for a subject, overwriting any
// prior record, with a TTL equal to the refresh token's remaining lifetime.
func (r *TokenRepo) PutRefresh(ctx context.Context, subjectID, hash string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, refreshKey(subjectID), hash, ttl).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

// GetRefresh returns the stored refresh-token hash for a subject, or
// ErrRefreshNotFound when no live record exists.
func (r *TokenRepo) GetRefresh(ctx context.Context, subjectID string) (string, error) {
	hash, err := r.rdb.Get(ctx, refreshKey(subjectID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrRefreshNotFound
	}
	if err != nil {
		return "", storeErr(err)
	}
	return hash, nil
}

// DeleteRefresh removes a subject's refresh record. Deleting an absent
// record is a no-op, which keeps logout idempotent.
func (r *TokenRepo) DeleteRefresh(ctx context.Context, subjectID string) error {
	if err := r.rdb.Del(ctx, refreshKey(subjectID)).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

// Blacklist adds a token identifier to the revocation set. The TTL must not
// exceed the remaining lifetime of the access token it revokes; entries for
// already-expired tokens are skipped since natural expiry covers them.
func (r *TokenRepo) Blacklist(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.rdb.Set(ctx, revokedKey(tokenID), "1", ttl).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

// IsBlacklisted reports whether a token identifier is in the revocation set.
// A store failure is returned as ErrStoreUnavailable so callers fail closed
// rather than defaulting to "valid".
func (r *TokenRepo) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, storeErr(err)
	}
	return n > 0, nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
