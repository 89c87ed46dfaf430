package auth

import (
	"context"
	"errors"
	"time"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/cache"
)

const revokedPrefix = "auth:revoked:"

// RevocationStore remembers signed-out token IDs until the token would have
// expired anyway.
type RevocationStore struct {
	kv  cache.KV
	now func() time.Time
}

func NewRevocationStore(kv cache.KV) *RevocationStore {
	return &RevocationStore{kv: kv, now: time.Now}
}

// Revoke marks jti as revoked. Tokens that already expired are ignored.
func (s *RevocationStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.kv.Set(ctx, revokedPrefix+jti, "1", ttl)
}

// IsRevoked reports whether jti was revoked. Store errors are returned so
// the caller can fail closed.
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := s.kv.Get(ctx, revokedPrefix+jti)
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
