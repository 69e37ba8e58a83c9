package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/wellnest/backend/internal/infrastructure/cache"
)

// Revocations cuts access tokens short of their expiry. Logout revokes a
// single token; a password change revokes everything the user holds.
type Revocations interface {
	// Revoke rejects the token with this JTI for ttl, its remaining lifetime.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// RevokeUser rejects every token issued to the user up to now.
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error
	RevokedBefore(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

const revocationPrefix = "auth:revoked:"

// KVRevocations keeps revocations in the cache backend so every replica
// sees them. Entries expire with the tokens they cover.
type KVRevocations struct {
	kv  cache.KV
	now func() time.Time
}

func NewKVRevocations(kv cache.KV) *KVRevocations {
	return &KVRevocations{kv: kv, now: time.Now}
}

var _ Revocations = (*KVRevocations)(nil)

func tokenKey(jti string) string { return revocationPrefix + "token:" + jti }
func userKey(userID string) string { return revocationPrefix + "user:" + userID }

func (r *KVRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	// an expired token is rejected by its own exp claim
	if ttl <= 0 {
		return nil
	}
	if err := r.kv.Set(ctx, tokenKey(jti), []byte{'1'}, ttl); err != nil {
		return fmt.Errorf("revoke token %s: %w", jti, err)
	}
	return nil
}

func (r *KVRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, found, err := r.kv.Get(ctx, tokenKey(jti))
	if err != nil {
		return false, fmt.Errorf("look up token %s: %w", jti, err)
	}
	return found, nil
}

// RevokeUser records the cut-off as unix seconds.
func (r *KVRevocations) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	cutoff := strconv.AppendInt(nil, r.now().Unix(), 10)
	if err := r.kv.Set(ctx, userKey(userID), cutoff, ttl); err != nil {
		return fmt.Errorf("revoke tokens of user %s: %w", userID, err)
	}
	return nil
}

// RevokedBefore is true when issuedAt falls at or before the user's cut-off.
// JWT iat has second precision, so a token minted in the same second as the
// cut-off counts as revoked.
func (r *KVRevocations) RevokedBefore(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	raw, found, err := r.kv.Get(ctx, userKey(userID))
	if err != nil {
		return false, fmt.Errorf("look up cut-off for user %s: %w", userID, err)
	}
	if !found {
		return false, nil
	}
	cutoff, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return false, fmt.Errorf("corrupt cut-off for user %s: %w", userID, err)
	}
	return issuedAt.Unix() <= cutoff, nil
}
